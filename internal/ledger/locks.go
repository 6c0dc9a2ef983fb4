package ledger

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Youmanvi/roomledger/internal/domain"
	"github.com/Youmanvi/roomledger/internal/pkg/errors"
)

// cell is one (room type, date) slot. The lock channel serializes writers;
// readers load the published snapshot without touching the lock.
type cell struct {
	date time.Time
	lock chan struct{}
	rec  atomic.Pointer[domain.DayRecord]
}

func newCell(rec domain.DayRecord) *cell {
	c := &cell{date: rec.Date, lock: make(chan struct{}, 1)}
	c.rec.Store(&rec)
	return c
}

func (c *cell) snapshot() domain.DayRecord {
	return *c.rec.Load()
}

func (c *cell) publish(rec domain.DayRecord) {
	c.rec.Store(&rec)
}

func (c *cell) unlock() {
	<-c.lock
}

// roomTypeEntry owns the cells of one room type. mu guards the cell map and
// the room type definition; it is never held while waiting on a cell lock.
type roomTypeEntry struct {
	mu    sync.RWMutex
	rt    domain.RoomType
	cells map[int64]*cell
	// capacity mirrors rt.Capacity for writers that hold day locks and must
	// not touch mu. It only changes while every materialized cell is locked.
	capacity atomic.Int64
	// resize serializes capacity changes of the room type
	resize sync.Mutex
}

func newRoomTypeEntry(rt domain.RoomType) *roomTypeEntry {
	e := &roomTypeEntry{rt: rt, cells: make(map[int64]*cell)}
	e.capacity.Store(int64(rt.Capacity))
	return e
}

func dayKey(date time.Time) int64 {
	return domain.Day(date).Unix() / 86400
}

func (e *roomTypeEntry) roomType() domain.RoomType {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.rt
}

// peek returns the current record for date without materializing it.
func (e *roomTypeEntry) peek(date time.Time) domain.DayRecord {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if c, ok := e.cells[dayKey(date)]; ok {
		return c.snapshot()
	}
	return domain.NewDayRecord(&e.rt, date)
}

// cellsFor returns the cells for dates in the given (ascending) order,
// creating missing ones with the room type defaults.
func (e *roomTypeEntry) cellsFor(dates []time.Time) []*cell {
	out := make([]*cell, len(dates))
	missing := false

	e.mu.RLock()
	for i, d := range dates {
		c, ok := e.cells[dayKey(d)]
		if !ok {
			missing = true
			break
		}
		out[i] = c
	}
	e.mu.RUnlock()
	if !missing {
		return out
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for i, d := range dates {
		k := dayKey(d)
		c, ok := e.cells[k]
		if !ok {
			c = newCell(domain.NewDayRecord(&e.rt, d))
			e.cells[k] = c
		}
		out[i] = c
	}
	return out
}

// sortedCells returns every materialized cell in ascending date order.
// Caller holds e.mu.
func (e *roomTypeEntry) sortedCells() []*cell {
	out := make([]*cell, 0, len(e.cells))
	for _, c := range e.cells {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].date.Before(out[j].date) })
	return out
}

// bookedDrift returns, in ascending order, the days whose booked rooms differ
// from booked. Days missing from booked count as zero; dates names the days
// of booked that may not be materialized yet.
func (e *roomTypeEntry) bookedDrift(booked map[int64]int, dates map[int64]time.Time) []time.Time {
	e.mu.RLock()
	out := make([]time.Time, 0)
	for k, c := range e.cells {
		if c.snapshot().BookedRooms != booked[k] {
			out = append(out, c.date)
		}
	}
	for k, n := range booked {
		if _, ok := e.cells[k]; !ok && n != 0 {
			out = append(out, dates[k])
		}
	}
	e.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// lockCells acquires the locks of cells, which must be in ascending date
// order, sharing a single wait budget. On failure every lock taken so far is
// released and a LockTimeout naming the contended date is returned.
func lockCells(ctx context.Context, roomTypeID string, cells []*cell, wait time.Duration) (func(), error) {
	timer := time.NewTimer(wait)
	defer timer.Stop()

	held := 0
	unlock := func() {
		for i := held - 1; i >= 0; i-- {
			cells[i].unlock()
		}
	}

	for _, c := range cells {
		select {
		case c.lock <- struct{}{}:
			held++
			continue
		default:
		}

		select {
		case c.lock <- struct{}{}:
			held++
		case <-timer.C:
			unlock()
			return nil, errors.LockTimeout(roomTypeID, c.date, wait)
		case <-ctx.Done():
			unlock()
			return nil, errors.NewTransientError(errors.CodeLockTimeout, "lock acquisition cancelled", ctx.Err())
		}
	}

	return unlock, nil
}
