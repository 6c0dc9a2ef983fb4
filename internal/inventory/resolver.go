// Package inventory derives the sale status of a room type day from its
// ledger counters.
package inventory

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Youmanvi/roomledger/internal/calendar"
	"github.com/Youmanvi/roomledger/internal/domain"
)

// DefaultLimitedThreshold is the share of total rooms at or below which a day
// is reported as limited.
const DefaultLimitedThreshold = 0.30

// Resolver maps day records to inventory statuses
type Resolver struct {
	threshold float64
	// share is threshold in decimal, so room counts compare exactly
	share decimal.Decimal
}

// NewResolver creates a resolver. threshold must lie in [0, 1].
func NewResolver(threshold float64) (*Resolver, error) {
	if threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("limited threshold must be between 0 and 1, got %v", threshold)
	}
	return &Resolver{threshold: threshold, share: decimal.NewFromFloat(threshold)}, nil
}

// Threshold returns the configured limited threshold.
func (r *Resolver) Threshold() float64 {
	return r.threshold
}

// Resolve returns the status of rec. Held and maintenance rooms reduce
// availability exactly like booked rooms.
func (r *Resolver) Resolve(rec domain.DayRecord) domain.InventoryStatus {
	available := rec.Available()
	switch {
	case rec.TotalRooms <= 0:
		return domain.InventoryStatusClosed
	case available <= 0:
		return domain.InventoryStatusSoldOut
	case decimal.NewFromInt(int64(available)).LessThanOrEqual(decimal.NewFromInt(int64(rec.TotalRooms)).Mul(r.share)):
		return domain.InventoryStatusLimited
	default:
		return domain.InventoryStatusOpen
	}
}

// DayStatus is one row of a projected inventory calendar.
type DayStatus struct {
	Day    calendar.DayDescriptor `json:"day"`
	Record domain.DayRecord       `json:"record"`
	Status domain.InventoryStatus `json:"status"`
}

// Project resolves records against the columns of window. records must hold
// one entry per window day in order, as returned by ledger ReadRange.
func (r *Resolver) Project(window calendar.Window, records []domain.DayRecord) ([]DayStatus, error) {
	if len(records) != window.Len() {
		return nil, fmt.Errorf("projection needs %d records, got %d", window.Len(), len(records))
	}

	out := make([]DayStatus, len(records))
	for i, rec := range records {
		day := window.Days[i]
		if !domain.Day(rec.Date).Equal(day.Date) {
			return nil, fmt.Errorf("record %d is dated %s, window column is %s",
				i, rec.Date.Format(domain.DateLayout), day.Date.Format(domain.DateLayout))
		}
		out[i] = DayStatus{Day: day, Record: rec, Status: r.Resolve(rec)}
	}
	return out, nil
}
