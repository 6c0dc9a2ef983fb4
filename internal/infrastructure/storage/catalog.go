package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Youmanvi/roomledger/internal/domain"
)

// RoomTypeRepository stores the room type catalog.
type RoomTypeRepository struct {
	db *sql.DB
}

// NewRoomTypeRepository creates the repository and its schema
func NewRoomTypeRepository(db *sql.DB) (*RoomTypeRepository, error) {
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS room_types (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		capacity INTEGER NOT NULL,
		base_price TEXT NOT NULL
	);
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create room_types schema: %w", err)
	}
	return &RoomTypeRepository{db: db}, nil
}

// Upsert inserts or replaces a room type.
func (r *RoomTypeRepository) Upsert(ctx context.Context, rt domain.RoomType) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO room_types (id, name, capacity, base_price) VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			capacity = excluded.capacity,
			base_price = excluded.base_price
	`, rt.ID, rt.Name, rt.Capacity, rt.BasePrice.String())
	if err != nil {
		return fmt.Errorf("failed to upsert room type %s: %w", rt.ID, err)
	}
	return nil
}

// Seed inserts a configured room type. An existing row keeps its stored
// capacity, which only ChangeCapacity moves; name and base price follow the
// seed.
func (r *RoomTypeRepository) Seed(ctx context.Context, rt domain.RoomType) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO room_types (id, name, capacity, base_price) VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			base_price = excluded.base_price
	`, rt.ID, rt.Name, rt.Capacity, rt.BasePrice.String())
	if err != nil {
		return fmt.Errorf("failed to seed room type %s: %w", rt.ID, err)
	}
	return nil
}

// List returns every room type ordered by id.
func (r *RoomTypeRepository) List(ctx context.Context) ([]domain.RoomType, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, capacity, base_price FROM room_types ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	out := make([]domain.RoomType, 0)
	for rows.Next() {
		var (
			rt    domain.RoomType
			price string
		)
		if err := rows.Scan(&rt.ID, &rt.Name, &rt.Capacity, &price); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		if rt.BasePrice, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("invalid stored price %q: %w", price, err)
		}
		out = append(out, rt)
	}
	return out, rows.Err()
}

// HolidayRepository is a holiday table usable as a calendar holiday provider.
type HolidayRepository struct {
	db *sql.DB
}

// NewHolidayRepository creates the repository and its schema
func NewHolidayRepository(db *sql.DB) (*HolidayRepository, error) {
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS holidays (
		date TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT ''
	);
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create holidays schema: %w", err)
	}
	return &HolidayRepository{db: db}, nil
}

// Add records date as a holiday. Adding an existing date renames it.
func (r *HolidayRepository) Add(ctx context.Context, date time.Time, name string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO holidays (date, name) VALUES (?, ?)
		ON CONFLICT (date) DO UPDATE SET name = excluded.name
	`, formatDay(date), name)
	if err != nil {
		return fmt.Errorf("failed to add holiday: %w", err)
	}
	return nil
}

// Remove deletes date from the holiday table.
func (r *HolidayRepository) Remove(ctx context.Context, date time.Time) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM holidays WHERE date = ?`, formatDay(date)); err != nil {
		return fmt.Errorf("failed to remove holiday: %w", err)
	}
	return nil
}

// IsHoliday reports whether date is in the table.
func (r *HolidayRepository) IsHoliday(ctx context.Context, date time.Time) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM holidays WHERE date = ?`, formatDay(domain.Day(date))).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("holiday lookup failed: %w", err)
	}
	return n > 0, nil
}
