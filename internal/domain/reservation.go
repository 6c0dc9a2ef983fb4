package domain

import (
	"fmt"
	"time"
)

// ReservationStatus represents the status of a reservation
type ReservationStatus string

const (
	ReservationStatusPending       ReservationStatus = "pending"
	ReservationStatusCheckedIn     ReservationStatus = "checked_in"
	ReservationStatusCheckedOut    ReservationStatus = "checked_out"
	ReservationStatusCancelled     ReservationStatus = "cancelled"
	ReservationStatusRefundFlagged ReservationStatus = "refund_flagged"
)

var reservationTransitions = map[ReservationStatus][]ReservationStatus{
	ReservationStatusPending:       {ReservationStatusCheckedIn, ReservationStatusCancelled, ReservationStatusRefundFlagged},
	ReservationStatusCheckedIn:     {ReservationStatusCheckedOut, ReservationStatusRefundFlagged},
	ReservationStatusRefundFlagged: {ReservationStatusCancelled},
}

// Reservation is a stay of one or more nights against a room type
type Reservation struct {
	ID         string            `json:"id"`
	RoomTypeID string            `json:"room_type_id"`
	GuestID    string            `json:"guest_id"`
	StartDate  time.Time         `json:"start_date"`
	Nights     int               `json:"nights"`
	Quantity   int               `json:"quantity"`
	Status     ReservationStatus `json:"status"`
	// TokenID identifies the ledger hold backing this reservation.
	TokenID   string    `json:"token_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewReservation creates a new pending reservation
func NewReservation(id, roomTypeID, guestID string, startDate time.Time, nights, quantity int) (*Reservation, error) {
	if id == "" {
		return nil, fmt.Errorf("reservation ID cannot be empty")
	}
	if roomTypeID == "" {
		return nil, fmt.Errorf("room type ID cannot be empty")
	}
	if guestID == "" {
		return nil, fmt.Errorf("guest ID cannot be empty")
	}
	if nights < 1 {
		return nil, fmt.Errorf("reservation must span at least one night")
	}
	if quantity < 1 {
		return nil, fmt.Errorf("quantity must be greater than zero")
	}

	now := time.Now()
	return &Reservation{
		ID:         id,
		RoomTypeID: roomTypeID,
		GuestID:    guestID,
		StartDate:  Day(startDate),
		Nights:     nights,
		Quantity:   quantity,
		Status:     ReservationStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// EndDate returns the checkout day, exclusive.
func (r *Reservation) EndDate() time.Time {
	return AddDays(r.StartDate, r.Nights)
}

// Intersects reports whether the stay overlaps the half-open range [from, to).
func (r *Reservation) Intersects(from, to time.Time) bool {
	return r.StartDate.Before(Day(to)) && r.EndDate().After(Day(from))
}

// OccupiesInventory reports whether the reservation still holds ledger rooms.
func (r *Reservation) OccupiesInventory() bool {
	return r.Status != ReservationStatusCancelled
}

// NeedsAttention reports whether operators must look at the reservation.
func (r *Reservation) NeedsAttention() bool {
	return r.Status == ReservationStatusRefundFlagged
}

// CanTransition checks if the reservation may move to the given status
func (r *Reservation) CanTransition(to ReservationStatus) bool {
	for _, allowed := range reservationTransitions[r.Status] {
		if allowed == to {
			return true
		}
	}
	return false
}

// TransitionTo moves the reservation to a new status
func (r *Reservation) TransitionTo(to ReservationStatus) error {
	if !r.CanTransition(to) {
		return fmt.Errorf("reservation %s cannot move from %s to %s", r.ID, r.Status, to)
	}
	r.Status = to
	r.UpdatedAt = time.Now()
	return nil
}

// ReleasesInventory reports whether entering the status frees the ledger hold.
func (s ReservationStatus) ReleasesInventory() bool {
	return s == ReservationStatusCancelled
}
