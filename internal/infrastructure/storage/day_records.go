package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Youmanvi/roomledger/internal/domain"
	"github.com/Youmanvi/roomledger/internal/infrastructure/observability"
)

type dayKey struct {
	roomTypeID string
	date       string
}

// DayRecordRepository is a write-behind store for committed day records.
// Saves are buffered, keeping only the highest version per key, and written
// in one transaction when the batch fills or the flush interval elapses.
type DayRecordRepository struct {
	db        *sql.DB
	logger    *observability.Logger
	mu        sync.Mutex
	pending   map[dayKey]domain.DayRecord
	batchSize int
	flushTick *time.Ticker
	done      chan struct{}
	stopped   sync.WaitGroup
	closeOnce sync.Once
}

// NewDayRecordRepository creates the repository and starts its flush worker
func NewDayRecordRepository(db *sql.DB, batchSize int, flushInterval time.Duration, logger *observability.Logger) (*DayRecordRepository, error) {
	if batchSize < 1 {
		batchSize = 1
	}
	if flushInterval <= 0 {
		flushInterval = 2 * time.Second
	}
	if logger == nil {
		logger = observability.NewNopLogger()
	}

	repo := &DayRecordRepository{
		db:        db,
		logger:    logger.WithComponent("day_record_repository"),
		pending:   make(map[dayKey]domain.DayRecord, batchSize),
		batchSize: batchSize,
		flushTick: time.NewTicker(flushInterval),
		done:      make(chan struct{}),
	}

	if err := repo.initSchema(); err != nil {
		return nil, err
	}

	repo.stopped.Add(1)
	go repo.flushWorker()

	return repo, nil
}

func (r *DayRecordRepository) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS day_records (
		room_type_id TEXT NOT NULL,
		date TEXT NOT NULL,
		total_rooms INTEGER NOT NULL,
		booked_rooms INTEGER NOT NULL,
		maintenance_rooms INTEGER NOT NULL,
		held_rooms INTEGER NOT NULL,
		price TEXT NOT NULL,
		version INTEGER NOT NULL,
		updated_at DATETIME NOT NULL,
		PRIMARY KEY (room_type_id, date)
	);
	`
	if _, err := r.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create day_records schema: %w", err)
	}
	return nil
}

// SaveDayRecords queues records for the next flush.
func (r *DayRecordRepository) SaveDayRecords(ctx context.Context, records []domain.DayRecord) error {
	r.mu.Lock()
	for _, rec := range records {
		k := dayKey{roomTypeID: rec.RoomTypeID, date: formatDay(rec.Date)}
		if prev, ok := r.pending[k]; ok && prev.Version >= rec.Version {
			continue
		}
		r.pending[k] = rec
	}
	shouldFlush := len(r.pending) >= r.batchSize
	r.mu.Unlock()

	if shouldFlush {
		return r.Flush(ctx)
	}
	return nil
}

// Flush writes all queued records in a single transaction. A row is only
// replaced by a record with a higher version.
func (r *DayRecordRepository) Flush(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.pending) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO day_records (
			room_type_id, date, total_rooms, booked_rooms, maintenance_rooms,
			held_rooms, price, version, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (room_type_id, date) DO UPDATE SET
			total_rooms = excluded.total_rooms,
			booked_rooms = excluded.booked_rooms,
			maintenance_rooms = excluded.maintenance_rooms,
			held_rooms = excluded.held_rooms,
			price = excluded.price,
			version = excluded.version,
			updated_at = excluded.updated_at
		WHERE excluded.version > day_records.version
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for k, rec := range r.pending {
		_, err := stmt.ExecContext(ctx,
			k.roomTypeID,
			k.date,
			rec.TotalRooms,
			rec.BookedRooms,
			rec.MaintenanceRooms,
			rec.HeldRooms,
			rec.Price.String(),
			rec.Version,
			rec.UpdatedAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("failed to upsert day record %s/%s: %w", k.roomTypeID, k.date, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.pending = make(map[dayKey]domain.DayRecord, r.batchSize)
	return nil
}

func (r *DayRecordRepository) flushWorker() {
	defer r.stopped.Done()
	for {
		select {
		case <-r.flushTick.C:
			if err := r.Flush(context.Background()); err != nil {
				r.logger.Logger.Error().Err(err).Msg("periodic day record flush failed")
			}
		case <-r.done:
			return
		}
	}
}

// Close stops the flush worker and writes whatever is still queued.
func (r *DayRecordRepository) Close() error {
	var err error
	r.closeOnce.Do(func() {
		r.flushTick.Stop()
		close(r.done)
		r.stopped.Wait()
		err = r.Flush(context.Background())
	})
	return err
}

// LoadAll returns every stored day record ordered by room type and date.
func (r *DayRecordRepository) LoadAll(ctx context.Context) ([]domain.DayRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT room_type_id, date, total_rooms, booked_rooms, maintenance_rooms,
		       held_rooms, price, version, updated_at
		FROM day_records
		ORDER BY room_type_id, date
	`)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	records := make([]domain.DayRecord, 0)
	for rows.Next() {
		var (
			rec   domain.DayRecord
			date  string
			price string
		)
		if err := rows.Scan(
			&rec.RoomTypeID, &date, &rec.TotalRooms, &rec.BookedRooms, &rec.MaintenanceRooms,
			&rec.HeldRooms, &price, &rec.Version, &rec.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		if rec.Date, err = parseDay(date); err != nil {
			return nil, err
		}
		if rec.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("invalid stored price %q: %w", price, err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
