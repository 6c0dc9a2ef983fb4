// Package ledger is the authoritative store of per-(room type, date)
// inventory counters. Every mutation runs under the day locks it touches,
// acquired in ascending date order with a bounded wait; reads return the last
// published snapshot without waiting.
package ledger

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Youmanvi/roomledger/internal/domain"
	"github.com/Youmanvi/roomledger/internal/infrastructure/observability"
	"github.com/Youmanvi/roomledger/internal/pkg/errors"
)

// DefaultLockTimeout bounds how long one operation waits for its day locks.
const DefaultLockTimeout = 5 * time.Second

// Store receives committed day records. Writes happen after the day locks are
// released and may arrive out of order; implementations keep the highest
// Version per key.
type Store interface {
	SaveDayRecords(ctx context.Context, records []domain.DayRecord) error
}

// RoomTypeStore receives room type definitions whose capacity changed.
type RoomTypeStore interface {
	Upsert(ctx context.Context, rt domain.RoomType) error
}

// ReservationToken identifies the rooms taken by one successful Reserve call.
type ReservationToken struct {
	ID         string    `json:"id"`
	RoomTypeID string    `json:"room_type_id"`
	StartDate  time.Time `json:"start_date"`
	Nights     int       `json:"nights"`
	Quantity   int       `json:"quantity"`
}

// Dates returns the nights covered by the token.
func (t ReservationToken) Dates() []time.Time {
	return stayDates(t.StartDate, t.Nights)
}

func (t ReservationToken) sameStay(o ReservationToken) bool {
	return t.RoomTypeID == o.RoomTypeID &&
		domain.Day(t.StartDate).Equal(domain.Day(o.StartDate)) &&
		t.Nights == o.Nights &&
		t.Quantity == o.Quantity
}

// tokenState tracks one hold. A state with an empty token.ID is a claim
// whose Reserve call is still running; its mu is held until it settles.
type tokenState struct {
	mu       sync.Mutex
	token    ReservationToken
	released bool
}

// Option configures a Ledger
type Option func(*Ledger)

// WithLockTimeout sets the maximum wait for day locks per operation.
func WithLockTimeout(d time.Duration) Option {
	return func(l *Ledger) {
		if d > 0 {
			l.lockTimeout = d
		}
	}
}

// WithStore persists committed records.
func WithStore(s Store) Option {
	return func(l *Ledger) { l.store = s }
}

// WithRoomTypeStore persists room type capacity changes.
func WithRoomTypeStore(s RoomTypeStore) Option {
	return func(l *Ledger) { l.roomTypeStore = s }
}

// WithMetrics records ledger metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(l *Ledger) { l.metrics = m }
}

// WithLogger sets the ledger logger.
func WithLogger(logger *observability.Logger) Option {
	return func(l *Ledger) { l.logger = logger.WithComponent("ledger") }
}

// WithClock overrides the time source used for UpdatedAt stamps.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// Ledger is the StockLedger
type Ledger struct {
	mu        sync.RWMutex
	roomTypes map[string]*roomTypeEntry

	tokensMu sync.Mutex
	tokens   map[string]*tokenState

	lockTimeout   time.Duration
	store         Store
	roomTypeStore RoomTypeStore
	metrics       *observability.Metrics
	logger        *observability.Logger
	tracer        trace.Tracer
	now           func() time.Time
}

// New creates an empty ledger
func New(opts ...Option) *Ledger {
	l := &Ledger{
		roomTypes:   make(map[string]*roomTypeEntry),
		tokens:      make(map[string]*tokenState),
		lockTimeout: DefaultLockTimeout,
		logger:      observability.NewNopLogger(),
		tracer:      observability.GetTracer("roomledger/ledger"),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// RegisterRoomType adds a room type. Its capacity becomes the default total
// of every day record created for it.
func (l *Ledger) RegisterRoomType(rt domain.RoomType) error {
	if rt.ID == "" {
		return errors.InvalidArgument("room type ID cannot be empty")
	}
	if rt.Capacity < 0 {
		return errors.InvalidArgument("room type capacity cannot be negative")
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.roomTypes[rt.ID]; exists {
		return errors.InvalidArgument("room type " + rt.ID + " already registered")
	}
	l.roomTypes[rt.ID] = newRoomTypeEntry(rt)
	return nil
}

// RoomType returns the registered room type.
func (l *Ledger) RoomType(roomTypeID string) (domain.RoomType, error) {
	entry, err := l.entry(roomTypeID)
	if err != nil {
		return domain.RoomType{}, err
	}
	return entry.roomType(), nil
}

// RoomTypes returns all registered room types ordered by ID.
func (l *Ledger) RoomTypes() []domain.RoomType {
	l.mu.RLock()
	out := make([]domain.RoomType, 0, len(l.roomTypes))
	for _, e := range l.roomTypes {
		out = append(out, e.roomType())
	}
	l.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ChangeCapacity changes the physical room count of a room type and stores
// the new definition. It fails with CapacityBelowBooked if any existing day
// record has a larger total; those days must be lowered with SetCapacity
// first.
func (l *Ledger) ChangeCapacity(ctx context.Context, roomTypeID string, capacity int) error {
	ctx, span := l.tracer.Start(ctx, "ledger.ChangeCapacity", trace.WithAttributes(
		attribute.String("room_type_id", roomTypeID),
		attribute.Int("capacity", capacity),
	))
	defer span.End()

	err := l.changeCapacity(ctx, roomTypeID, capacity)
	l.metrics.RecordMutation("change_capacity", err)
	if err != nil {
		recordSpanError(span, err)
		l.logRejection("change capacity rejected", roomTypeID, err)
		return err
	}

	l.logger.Logger.Info().
		Str("room_type_id", roomTypeID).
		Int("capacity", capacity).
		Msg("room type capacity changed")
	return nil
}

// changeCapacity locks every materialized day without holding entry.mu, so
// reads keep going while it waits. Days materialized in the meantime force
// another round.
func (l *Ledger) changeCapacity(ctx context.Context, roomTypeID string, capacity int) error {
	if capacity < 0 {
		return errors.InvalidArgument("room type capacity cannot be negative")
	}
	entry, err := l.entry(roomTypeID)
	if err != nil {
		return err
	}

	entry.resize.Lock()
	defer entry.resize.Unlock()

	previous := entry.roomType()
	stored := false
	for {
		entry.mu.RLock()
		cells := entry.sortedCells()
		entry.mu.RUnlock()

		unlock, err := lockCells(ctx, roomTypeID, cells, l.lockTimeout)
		if err != nil {
			return l.restoreRoomType(ctx, previous, stored, err)
		}

		for _, c := range cells {
			if rec := c.snapshot(); rec.TotalRooms > capacity {
				unlock()
				return l.restoreRoomType(ctx, previous, stored,
					errors.CapacityBelowBooked(roomTypeID, rec.Date, capacity, rec.TotalRooms))
			}
		}

		next := previous
		next.Capacity = capacity
		if l.roomTypeStore != nil {
			if err := l.roomTypeStore.Upsert(ctx, next); err != nil {
				unlock()
				return l.restoreRoomType(ctx, previous, stored,
					errors.NewTransientError(errors.CodeStorageUnavailable, "failed to store room type "+roomTypeID, err))
			}
			stored = true
		}

		entry.mu.Lock()
		if len(entry.cells) != len(cells) {
			entry.mu.Unlock()
			unlock()
			continue
		}
		entry.rt.Capacity = capacity
		entry.capacity.Store(int64(capacity))
		entry.mu.Unlock()
		unlock()
		return nil
	}
}

// restoreRoomType puts back the stored definition after a failed change that
// had already been written.
func (l *Ledger) restoreRoomType(ctx context.Context, previous domain.RoomType, stored bool, cause error) error {
	if stored && l.roomTypeStore != nil {
		if err := l.roomTypeStore.Upsert(context.WithoutCancel(ctx), previous); err != nil {
			l.logger.Logger.Error().Err(err).Str("room_type_id", previous.ID).Msg("failed to restore stored room type")
		}
	}
	return cause
}

// Reserve books qty rooms on every night of [startDate, startDate+nights).
// Either every night is booked or none is; on shortage the error names the
// first night that could not absorb qty.
func (l *Ledger) Reserve(ctx context.Context, roomTypeID string, startDate time.Time, nights, qty int) (ReservationToken, error) {
	return l.ReserveHold(ctx, "", roomTypeID, startDate, nights, qty)
}

// ReserveHold is Reserve keyed by holdID. Repeating a call with the same
// holdID and stay returns the existing token without booking again; a hold
// that was released is booked again under the same id. An empty holdID gets
// a fresh one.
func (l *Ledger) ReserveHold(ctx context.Context, holdID, roomTypeID string, startDate time.Time, nights, qty int) (ReservationToken, error) {
	ctx, span := l.tracer.Start(ctx, "ledger.Reserve", trace.WithAttributes(
		attribute.String("hold_id", holdID),
		attribute.String("room_type_id", roomTypeID),
		attribute.String("start_date", domain.Day(startDate).Format(domain.DateLayout)),
		attribute.Int("nights", nights),
		attribute.Int("quantity", qty),
	))
	defer span.End()

	token, replayed, err := l.reserve(ctx, holdID, roomTypeID, startDate, nights, qty)
	if !replayed {
		l.metrics.RecordReserve(errors.CodeOf(err))
	}
	if err != nil {
		recordSpanError(span, err)
		l.logRejection("reserve rejected", roomTypeID, err)
		return ReservationToken{}, err
	}

	l.logger.Logger.Info().
		Str("room_type_id", roomTypeID).
		Str("token_id", token.ID).
		Str("start_date", token.StartDate.Format(domain.DateLayout)).
		Int("nights", nights).
		Int("quantity", qty).
		Bool("replayed", replayed).
		Msg("reservation committed")
	return token, nil
}

func (l *Ledger) reserve(ctx context.Context, holdID, roomTypeID string, startDate time.Time, nights, qty int) (ReservationToken, bool, error) {
	if nights < 1 {
		return ReservationToken{}, false, errors.InvalidReservationSpan(nights)
	}
	if qty < 1 {
		return ReservationToken{}, false, errors.InvalidArgument("quantity must be at least one")
	}
	entry, err := l.entry(roomTypeID)
	if err != nil {
		return ReservationToken{}, false, err
	}

	dates := stayDates(startDate, nights)
	want := ReservationToken{
		ID:         holdID,
		RoomTypeID: roomTypeID,
		StartDate:  dates[0],
		Nights:     nights,
		Quantity:   qty,
	}
	if want.ID == "" {
		want.ID = uuid.NewString()
	}

	st, existing := l.claim(want.ID)
	defer st.mu.Unlock()
	if existing {
		if !st.token.sameStay(want) {
			return ReservationToken{}, false, errors.InvalidArgument(fmt.Sprintf("hold %s already exists for another stay", want.ID))
		}
		if !st.released {
			return st.token, true, nil
		}
	}

	err = l.mutate(ctx, roomTypeID, entry, dates, func(rec domain.DayRecord) (domain.DayRecord, error) {
		if avail := rec.Available(); avail < qty {
			return rec, errors.InsufficientInventory(roomTypeID, rec.Date, max(avail, 0), qty)
		}
		rec.BookedRooms += qty
		return rec, nil
	})
	if err != nil {
		if !existing {
			l.dropClaim(want.ID, st)
		}
		return ReservationToken{}, false, err
	}

	st.token = want
	st.released = false
	return want, false, nil
}

// claim returns the locked state for id. existing is false when the caller
// created the claim and must either settle it or drop it.
func (l *Ledger) claim(id string) (*tokenState, bool) {
	for {
		l.tokensMu.Lock()
		st, ok := l.tokens[id]
		if !ok {
			st = &tokenState{}
			st.mu.Lock()
			l.tokens[id] = st
			l.tokensMu.Unlock()
			return st, false
		}
		l.tokensMu.Unlock()

		st.mu.Lock()
		if st.token.ID != "" {
			return st, true
		}
		// the claiming call failed and dropped it
		st.mu.Unlock()
	}
}

func (l *Ledger) dropClaim(id string, st *tokenState) {
	l.tokensMu.Lock()
	if l.tokens[id] == st {
		delete(l.tokens, id)
	}
	l.tokensMu.Unlock()
}

// Release returns the rooms taken by the matching Reserve call. Releasing a
// token twice is a no-op.
func (l *Ledger) Release(ctx context.Context, token ReservationToken) error {
	ctx, span := l.tracer.Start(ctx, "ledger.Release", trace.WithAttributes(
		attribute.String("token_id", token.ID),
	))
	defer span.End()

	l.tokensMu.Lock()
	st, ok := l.tokens[token.ID]
	l.tokensMu.Unlock()
	if !ok {
		err := errors.NewPermanentError(errors.CodeUnknownToken, "unknown reservation token "+token.ID, nil)
		recordSpanError(span, err)
		return err
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if st.token.ID == "" {
		err := errors.NewPermanentError(errors.CodeUnknownToken, "unknown reservation token "+token.ID, nil)
		recordSpanError(span, err)
		return err
	}
	if st.released {
		return nil
	}

	held := st.token
	entry, err := l.entry(held.RoomTypeID)
	if err != nil {
		recordSpanError(span, err)
		return err
	}

	err = l.mutate(ctx, held.RoomTypeID, entry, held.Dates(), func(rec domain.DayRecord) (domain.DayRecord, error) {
		rec.BookedRooms -= held.Quantity
		return rec, nil
	})
	if err != nil {
		recordSpanError(span, err)
		l.logRejection("release failed", held.RoomTypeID, err)
		return err
	}

	st.released = true
	l.metrics.RecordRelease()
	l.logger.Logger.Info().
		Str("room_type_id", held.RoomTypeID).
		Str("token_id", held.ID).
		Msg("reservation released")
	return nil
}

// RestoreHolds sets booked_rooms of every room type day to the sum of the
// holds covering it and registers those holds for release. Bookings whose
// day records never reached the store are counted again, and bookings with
// no surviving hold are dropped. Intended for startup after Load, before
// traffic is served.
func (l *Ledger) RestoreHolds(ctx context.Context, holds []ReservationToken) error {
	type nights struct {
		booked map[int64]int
		dates  map[int64]time.Time
	}
	byRoomType := make(map[string]*nights)
	for i := range holds {
		h := &holds[i]
		if h.ID == "" {
			return errors.InvalidArgument("token ID cannot be empty")
		}
		if h.Nights < 1 || h.Quantity < 1 {
			return errors.InvalidArgument("hold " + h.ID + " covers no rooms")
		}
		if _, err := l.entry(h.RoomTypeID); err != nil {
			return err
		}
		h.StartDate = domain.Day(h.StartDate)

		n, ok := byRoomType[h.RoomTypeID]
		if !ok {
			n = &nights{booked: make(map[int64]int), dates: make(map[int64]time.Time)}
			byRoomType[h.RoomTypeID] = n
		}
		for _, d := range h.Dates() {
			n.booked[dayKey(d)] += h.Quantity
			n.dates[dayKey(d)] = d
		}
	}

	for _, rt := range l.RoomTypes() {
		entry, err := l.entry(rt.ID)
		if err != nil {
			return err
		}
		n := byRoomType[rt.ID]
		if n == nil {
			n = &nights{}
		}

		drifted := entry.bookedDrift(n.booked, n.dates)
		if len(drifted) == 0 {
			continue
		}
		err = l.mutate(ctx, rt.ID, entry, drifted, func(rec domain.DayRecord) (domain.DayRecord, error) {
			rec.BookedRooms = n.booked[dayKey(rec.Date)]
			return rec, nil
		})
		if err != nil {
			return fmt.Errorf("failed to rebuild booked rooms of %s: %w", rt.ID, err)
		}
		l.logger.Logger.Warn().
			Str("room_type_id", rt.ID).
			Int("days", len(drifted)).
			Msg("booked rooms rebuilt from stored holds")
	}

	l.tokensMu.Lock()
	defer l.tokensMu.Unlock()
	for _, h := range holds {
		if _, exists := l.tokens[h.ID]; !exists {
			l.tokens[h.ID] = &tokenState{token: h}
		}
	}
	return nil
}

// SetCapacity sets total_rooms on every day of r. It is all-or-nothing and
// fails on the first day whose committed rooms exceed total.
func (l *Ledger) SetCapacity(ctx context.Context, roomTypeID string, r domain.DateRange, total int) error {
	ctx, span := l.tracer.Start(ctx, "ledger.SetCapacity", trace.WithAttributes(
		attribute.String("room_type_id", roomTypeID),
		attribute.Int("total_rooms", total),
	))
	defer span.End()

	err := l.setCapacity(ctx, roomTypeID, r, total)
	l.metrics.RecordMutation("set_capacity", err)
	if err != nil {
		recordSpanError(span, err)
		l.logRejection("set capacity rejected", roomTypeID, err)
	}
	return err
}

func (l *Ledger) setCapacity(ctx context.Context, roomTypeID string, r domain.DateRange, total int) error {
	if total < 0 {
		return errors.InvalidArgument("total rooms cannot be negative")
	}
	if r.Days() < 1 {
		return errors.InvalidArgument("date range is empty")
	}
	entry, err := l.entry(roomTypeID)
	if err != nil {
		return err
	}

	return l.mutate(ctx, roomTypeID, entry, r.Dates(), func(rec domain.DayRecord) (domain.DayRecord, error) {
		if capacity := int(entry.capacity.Load()); total > capacity {
			return rec, errors.CapacityAboveRoomType(roomTypeID, rec.Date, total, capacity)
		}
		if committed := rec.Committed(); committed > total {
			return rec, errors.CapacityBelowBooked(roomTypeID, rec.Date, total, committed)
		}
		rec.TotalRooms = total
		return rec, nil
	})
}

// SetMaintenance sets the rooms out of order on date.
func (l *Ledger) SetMaintenance(ctx context.Context, roomTypeID string, date time.Time, count int) error {
	return l.setCounter(ctx, "set_maintenance", roomTypeID, date, count, func(rec *domain.DayRecord) {
		rec.MaintenanceRooms = count
	})
}

// SetHeld sets the rooms withheld from sale by the operator on date.
func (l *Ledger) SetHeld(ctx context.Context, roomTypeID string, date time.Time, count int) error {
	return l.setCounter(ctx, "set_held", roomTypeID, date, count, func(rec *domain.DayRecord) {
		rec.HeldRooms = count
	})
}

func (l *Ledger) setCounter(ctx context.Context, op, roomTypeID string, date time.Time, count int, apply func(*domain.DayRecord)) error {
	ctx, span := l.tracer.Start(ctx, "ledger."+op, trace.WithAttributes(
		attribute.String("room_type_id", roomTypeID),
		attribute.String("date", domain.Day(date).Format(domain.DateLayout)),
		attribute.Int("count", count),
	))
	defer span.End()

	err := func() error {
		if count < 0 {
			return errors.InvalidArgument("room count cannot be negative")
		}
		entry, err := l.entry(roomTypeID)
		if err != nil {
			return err
		}
		return l.mutate(ctx, roomTypeID, entry, []time.Time{domain.Day(date)}, func(rec domain.DayRecord) (domain.DayRecord, error) {
			apply(&rec)
			if rec.Available() < 0 {
				return rec, errors.CapacityBelowBooked(roomTypeID, rec.Date, rec.TotalRooms, rec.Committed())
			}
			return rec, nil
		})
	}()

	l.metrics.RecordMutation(op, err)
	if err != nil {
		recordSpanError(span, err)
		l.logRejection(op+" rejected", roomTypeID, err)
	}
	return err
}

// SetPrice sets the nightly price on date.
func (l *Ledger) SetPrice(ctx context.Context, roomTypeID string, date time.Time, price decimal.Decimal) error {
	err := func() error {
		if price.IsNegative() {
			return errors.InvalidArgument("price cannot be negative")
		}
		entry, err := l.entry(roomTypeID)
		if err != nil {
			return err
		}
		return l.mutate(ctx, roomTypeID, entry, []time.Time{domain.Day(date)}, func(rec domain.DayRecord) (domain.DayRecord, error) {
			rec.Price = price
			return rec, nil
		})
	}()
	l.metrics.RecordMutation("set_price", err)
	return err
}

// Read returns a snapshot of the day record. Days never touched report the
// room type defaults.
func (l *Ledger) Read(roomTypeID string, date time.Time) (domain.DayRecord, error) {
	entry, err := l.entry(roomTypeID)
	if err != nil {
		return domain.DayRecord{}, err
	}
	return entry.peek(date), nil
}

// ReadRange returns snapshots for days consecutive days starting at from.
func (l *Ledger) ReadRange(roomTypeID string, from time.Time, days int) ([]domain.DayRecord, error) {
	entry, err := l.entry(roomTypeID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.DayRecord, 0, max(days, 0))
	for _, d := range stayDates(from, days) {
		out = append(out, entry.peek(d))
	}
	return out, nil
}

// Load installs persisted records, replacing any existing snapshot for the
// same day. Intended for startup before traffic is served.
func (l *Ledger) Load(records []domain.DayRecord) error {
	for _, rec := range records {
		if err := rec.Validate(); err != nil {
			return errors.NewPermanentError(errors.CodeInvalidArgument, "refusing to load invalid day record", err)
		}
		entry, err := l.entry(rec.RoomTypeID)
		if err != nil {
			return err
		}
		rec.Date = domain.Day(rec.Date)

		entry.mu.Lock()
		if c, ok := entry.cells[dayKey(rec.Date)]; ok {
			c.publish(rec)
		} else {
			entry.cells[dayKey(rec.Date)] = newCell(rec)
		}
		entry.mu.Unlock()
	}
	return nil
}

// mutate applies fn to every date under the day locks. It computes every new
// record first and publishes none of them unless all succeed.
func (l *Ledger) mutate(ctx context.Context, roomTypeID string, entry *roomTypeEntry, dates []time.Time, fn func(domain.DayRecord) (domain.DayRecord, error)) error {
	cells := entry.cellsFor(dates)

	start := time.Now()
	unlock, err := lockCells(ctx, roomTypeID, cells, l.lockTimeout)
	l.metrics.RecordLockWait(time.Since(start), errors.CodeOf(err) == errors.CodeLockTimeout)
	if err != nil {
		return err
	}

	now := l.now()
	next := make([]domain.DayRecord, len(cells))
	for i, c := range cells {
		rec, err := fn(c.snapshot())
		if err != nil {
			unlock()
			return err
		}
		if err := rec.Validate(); err != nil {
			unlock()
			return errors.CapacityBelowBooked(roomTypeID, rec.Date, rec.TotalRooms, rec.Committed())
		}
		rec.Version++
		rec.UpdatedAt = now
		next[i] = rec
	}
	for i, c := range cells {
		c.publish(next[i])
	}
	unlock()

	l.persist(ctx, next)
	return nil
}

func (l *Ledger) persist(ctx context.Context, records []domain.DayRecord) {
	if l.store == nil {
		return
	}
	if err := l.store.SaveDayRecords(ctx, records); err != nil {
		l.logger.Logger.Error().Err(err).Int("records", len(records)).Msg("failed to persist day records")
	}
}

func (l *Ledger) entry(roomTypeID string) (*roomTypeEntry, error) {
	l.mu.RLock()
	entry, ok := l.roomTypes[roomTypeID]
	l.mu.RUnlock()
	if !ok {
		return nil, errors.UnknownRoomType(roomTypeID)
	}
	return entry, nil
}

func (l *Ledger) logRejection(msg, roomTypeID string, err error) {
	event := l.logger.Logger.Warn().Err(err).Str("room_type_id", roomTypeID)
	if ce, ok := errors.As(err); ok && ce.HasDate() {
		event = event.Str("date", ce.Date.Format(domain.DateLayout))
	}
	event.Msg(msg)
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func stayDates(start time.Time, nights int) []time.Time {
	if nights <= 0 {
		return nil
	}
	out := make([]time.Time, nights)
	for i := range out {
		out[i] = domain.AddDays(start, i)
	}
	return out
}
