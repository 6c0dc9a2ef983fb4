package storage

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/Youmanvi/roomledger/internal/domain"
	"github.com/Youmanvi/roomledger/internal/pkg/errors"
)

// ReservationRepository stores reservations keyed by id, indexed by
// (room_type_id, start_date) for window queries.
type ReservationRepository struct {
	db *sql.DB
}

// NewReservationRepository creates the repository and its schema
func NewReservationRepository(db *sql.DB) (*ReservationRepository, error) {
	repo := &ReservationRepository{db: db}
	if err := repo.initSchema(); err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *ReservationRepository) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS reservations (
		id TEXT PRIMARY KEY,
		room_type_id TEXT NOT NULL,
		guest_id TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		nights INTEGER NOT NULL,
		quantity INTEGER NOT NULL,
		status TEXT NOT NULL,
		token_id TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	-- Window queries feeding the layout engine
	CREATE INDEX IF NOT EXISTS idx_reservations_room_type_start
		ON reservations(room_type_id, start_date);

	CREATE INDEX IF NOT EXISTS idx_reservations_status ON reservations(status);
	`
	if _, err := r.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create reservations schema: %w", err)
	}
	return nil
}

// Save inserts a new reservation.
func (r *ReservationRepository) Save(ctx context.Context, res *domain.Reservation) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO reservations (
			id, room_type_id, guest_id, start_date, end_date, nights,
			quantity, status, token_id, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		res.ID,
		res.RoomTypeID,
		res.GuestID,
		formatDay(res.StartDate),
		formatDay(res.EndDate()),
		res.Nights,
		res.Quantity,
		string(res.Status),
		res.TokenID,
		res.CreatedAt.UTC(),
		res.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert reservation %s: %w", res.ID, err)
	}
	return nil
}

// Update writes the mutable fields of an existing reservation.
func (r *ReservationRepository) Update(ctx context.Context, res *domain.Reservation) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE reservations
		SET status = ?, token_id = ?, updated_at = ?
		WHERE id = ?
	`, string(res.Status), res.TokenID, res.UpdatedAt.UTC(), res.ID)
	if err != nil {
		return fmt.Errorf("failed to update reservation %s: %w", res.ID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update reservation %s: %w", res.ID, err)
	}
	if n == 0 {
		return notFound(res.ID)
	}
	return nil
}

// Get returns the reservation with id.
func (r *ReservationRepository) Get(ctx context.Context, id string) (*domain.Reservation, error) {
	row := r.db.QueryRowContext(ctx, selectReservation+` WHERE id = ?`, id)
	res, err := scanReservation(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, notFound(id)
	}
	return res, err
}

// ListIntersecting returns reservations of roomTypeID whose stay overlaps
// [from, to), ordered by start date then id. An empty roomTypeID matches
// every room type.
func (r *ReservationRepository) ListIntersecting(ctx context.Context, roomTypeID string, from, to time.Time) ([]*domain.Reservation, error) {
	query := selectReservation + ` WHERE start_date < ? AND end_date > ?`
	args := []any{formatDay(to), formatDay(from)}
	if roomTypeID != "" {
		query = selectReservation + ` WHERE room_type_id = ? AND start_date < ? AND end_date > ?`
		args = append([]any{roomTypeID}, args...)
	}
	query += ` ORDER BY room_type_id, start_date, id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()
	return scanReservations(rows)
}

// ListHoldingInventory returns reservations that still hold ledger rooms.
func (r *ReservationRepository) ListHoldingInventory(ctx context.Context) ([]*domain.Reservation, error) {
	rows, err := r.db.QueryContext(ctx, selectReservation+`
		WHERE status != ? AND token_id != ''
		ORDER BY room_type_id, start_date, id
	`, string(domain.ReservationStatusCancelled))
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()
	return scanReservations(rows)
}

const selectReservation = `
	SELECT id, room_type_id, guest_id, start_date, nights, quantity,
	       status, token_id, created_at, updated_at
	FROM reservations`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReservation(row rowScanner) (*domain.Reservation, error) {
	var (
		res    domain.Reservation
		start  string
		status string
	)
	if err := row.Scan(
		&res.ID, &res.RoomTypeID, &res.GuestID, &start, &res.Nights, &res.Quantity,
		&status, &res.TokenID, &res.CreatedAt, &res.UpdatedAt,
	); err != nil {
		return nil, err
	}
	d, err := parseDay(start)
	if err != nil {
		return nil, err
	}
	res.StartDate = d
	res.Status = domain.ReservationStatus(status)
	return &res, nil
}

func scanReservations(rows *sql.Rows) ([]*domain.Reservation, error) {
	out := make([]*domain.Reservation, 0)
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

func notFound(id string) error {
	return errors.NewPermanentError(errors.CodeReservationNotFound, fmt.Sprintf("reservation %s not found", id), nil)
}
