package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/Youmanvi/roomledger/internal/infrastructure/observability"
)

// ActivityEventRepository keeps the activity audit trail. Events are batched
// and written in one transaction like day records.
type ActivityEventRepository struct {
	db        *sql.DB
	logger    *observability.Logger
	mu        sync.Mutex
	batch     []*observability.ActivityEvent
	batchSize int
	flushTick *time.Ticker
	done      chan struct{}
	stopped   sync.WaitGroup
	closeOnce sync.Once
}

// NewActivityEventRepository creates the repository and starts its flush worker
func NewActivityEventRepository(db *sql.DB, batchSize int, flushInterval time.Duration, logger *observability.Logger) (*ActivityEventRepository, error) {
	if batchSize < 1 {
		batchSize = 1
	}
	if flushInterval <= 0 {
		flushInterval = 5 * time.Second
	}
	if logger == nil {
		logger = observability.NewNopLogger()
	}

	repo := &ActivityEventRepository{
		db:        db,
		logger:    logger.WithComponent("activity_event_repository"),
		batch:     make([]*observability.ActivityEvent, 0, batchSize),
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

func (r *ActivityEventRepository) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS activity_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME NOT NULL,
		trace_id TEXT NOT NULL,
		activity TEXT NOT NULL,
		outcome TEXT NOT NULL,
		code TEXT,
		date TEXT,
		duration_ms INTEGER NOT NULL,
		message TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_activity_events_trace ON activity_events(trace_id);
	CREATE INDEX IF NOT EXISTS idx_activity_events_activity ON activity_events(activity, timestamp);
	CREATE INDEX IF NOT EXISTS idx_activity_events_timestamp ON activity_events(timestamp);
	`
	if _, err := r.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create activity_events schema: %w", err)
	}
	return nil
}

// WriteEvent adds an event to the batch
func (r *ActivityEventRepository) WriteEvent(event *observability.ActivityEvent) error {
	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}

	r.mu.Lock()
	r.batch = append(r.batch, event)
	shouldFlush := len(r.batch) >= r.batchSize
	r.mu.Unlock()

	if shouldFlush {
		return r.Flush(context.Background())
	}
	return nil
}

// Flush writes all batched events in a single transaction
func (r *ActivityEventRepository) Flush(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.batch) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO activity_events (
			timestamp, trace_id, activity, outcome, code, date, duration_ms, message
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, event := range r.batch {
		var date sql.NullString
		if event.Date != nil {
			date = sql.NullString{String: formatDay(*event.Date), Valid: true}
		}
		_, err := stmt.ExecContext(ctx,
			event.Timestamp.UTC(),
			event.TraceID,
			event.Activity,
			event.Outcome,
			event.Code,
			date,
			event.DurationMs,
			event.Message,
		)
		if err != nil {
			return fmt.Errorf("failed to insert activity event: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.batch = r.batch[:0]
	return nil
}

func (r *ActivityEventRepository) flushWorker() {
	defer r.stopped.Done()
	for {
		select {
		case <-r.flushTick.C:
			if err := r.Flush(context.Background()); err != nil {
				r.logger.Logger.Error().Err(err).Msg("periodic activity event flush failed")
			}
		case <-r.done:
			return
		}
	}
}

// Close stops the flush worker and writes whatever is still queued.
func (r *ActivityEventRepository) Close() error {
	var err error
	r.closeOnce.Do(func() {
		r.flushTick.Stop()
		close(r.done)
		r.stopped.Wait()
		err = r.Flush(context.Background())
	})
	return err
}

// QueryByTraceID retrieves all events for a given trace ID
func (r *ActivityEventRepository) QueryByTraceID(ctx context.Context, traceID string) ([]*observability.ActivityEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, timestamp, trace_id, activity, outcome, code, date, duration_ms, message
		FROM activity_events
		WHERE trace_id = ?
		ORDER BY timestamp ASC, id ASC
	`, traceID)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	return scanActivityEvents(rows)
}

// QueryFailures returns the most recent failed executions, newest first.
func (r *ActivityEventRepository) QueryFailures(ctx context.Context, limit int) ([]*observability.ActivityEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, timestamp, trace_id, activity, outcome, code, date, duration_ms, message
		FROM activity_events
		WHERE outcome != ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, observability.OutcomeSuccess, limit)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	return scanActivityEvents(rows)
}

// ActivityStats summarizes executions of one activity
type ActivityStats struct {
	Activity      string
	Count         int64
	Failures      int64
	AvgDurationMs float64
	MaxDurationMs int64
}

// QueryActivityStats aggregates executions recorded since the given time.
func (r *ActivityEventRepository) QueryActivityStats(ctx context.Context, since time.Time) ([]ActivityStats, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT
			activity,
			COUNT(*),
			SUM(CASE WHEN outcome != ? THEN 1 ELSE 0 END),
			AVG(duration_ms),
			MAX(duration_ms)
		FROM activity_events
		WHERE timestamp >= ?
		GROUP BY activity
		ORDER BY activity
	`, observability.OutcomeSuccess, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	stats := make([]ActivityStats, 0)
	for rows.Next() {
		var s ActivityStats
		if err := rows.Scan(&s.Activity, &s.Count, &s.Failures, &s.AvgDurationMs, &s.MaxDurationMs); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// PruneOldEvents deletes events older than the specified duration
func (r *ActivityEventRepository) PruneOldEvents(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan).UTC()

	result, err := r.db.ExecContext(ctx, `DELETE FROM activity_events WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete failed: %w", err)
	}
	return result.RowsAffected()
}

func scanActivityEvents(rows *sql.Rows) ([]*observability.ActivityEvent, error) {
	events := make([]*observability.ActivityEvent, 0)
	for rows.Next() {
		var (
			event   observability.ActivityEvent
			code    sql.NullString
			date    sql.NullString
			message sql.NullString
		)
		if err := rows.Scan(
			&event.ID, &event.Timestamp, &event.TraceID, &event.Activity, &event.Outcome,
			&code, &date, &event.DurationMs, &message,
		); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		event.Code = code.String
		event.Message = message.String
		if date.Valid {
			d, err := parseDay(date.String)
			if err != nil {
				return nil, err
			}
			event.Date = &d
		}
		events = append(events, &event)
	}
	return events, rows.Err()
}
