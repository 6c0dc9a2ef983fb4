package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DayRecord holds the inventory counters of one room type on one date.
//
// Invariant: BookedRooms + MaintenanceRooms + HeldRooms <= TotalRooms.
type DayRecord struct {
	RoomTypeID       string          `json:"room_type_id"`
	Date             time.Time       `json:"date"`
	TotalRooms       int             `json:"total_rooms"`
	BookedRooms      int             `json:"booked_rooms"`
	MaintenanceRooms int             `json:"maintenance_rooms"`
	HeldRooms        int             `json:"held_rooms"`
	Price            decimal.Decimal `json:"price"`
	// Version increases on every committed mutation.
	Version   int64     `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewDayRecord returns the lazily created default record for a room type and date.
func NewDayRecord(rt *RoomType, date time.Time) DayRecord {
	return DayRecord{
		RoomTypeID: rt.ID,
		Date:       Day(date),
		TotalRooms: rt.Capacity,
		Price:      rt.BasePrice,
	}
}

// Committed returns the rooms not available for sale besides closure.
func (r DayRecord) Committed() int {
	return r.BookedRooms + r.MaintenanceRooms + r.HeldRooms
}

// Available returns the rooms still sellable.
func (r DayRecord) Available() int {
	return r.TotalRooms - r.Committed()
}

// Closed reports whether the day has been closed by zeroing its total.
func (r DayRecord) Closed() bool {
	return r.TotalRooms == 0
}

// Validate checks the counter invariant.
func (r DayRecord) Validate() error {
	if r.TotalRooms < 0 || r.BookedRooms < 0 || r.MaintenanceRooms < 0 || r.HeldRooms < 0 {
		return fmt.Errorf("day record %s/%s has negative counters", r.RoomTypeID, r.Date.Format(DateLayout))
	}
	if r.Available() < 0 {
		return fmt.Errorf("day record %s/%s commits %d of %d rooms", r.RoomTypeID, r.Date.Format(DateLayout), r.Committed(), r.TotalRooms)
	}
	return nil
}
