// Package layout places reservations onto the columns of a calendar window.
package layout

import (
	"sort"
	"time"

	"github.com/Youmanvi/roomledger/internal/calendar"
	"github.com/Youmanvi/roomledger/internal/domain"
)

// Span is the visible extent of one reservation inside a window. It is drawn
// once, anchored at ColumnStart.
type Span struct {
	ReservationID string `json:"reservation_id"`
	RoomTypeID    string `json:"room_type_id"`
	ColumnStart   int    `json:"column_start"`
	ColumnCount   int    `json:"column_count"`
	// Lane is the stacking row within the room type; overlapping spans never
	// share a lane.
	Lane      int  `json:"lane"`
	Attention bool `json:"attention"`
}

// Placement pairs an input reservation with its span. Span is nil when the
// reservation is outside the window or cancelled.
type Placement struct {
	ReservationID string `json:"reservation_id"`
	Span          *Span  `json:"span,omitempty"`
}

// Engine computes spans. It is stateless and safe for concurrent use.
type Engine struct{}

// NewEngine creates a layout engine
func NewEngine() *Engine {
	return &Engine{}
}

// Layout returns one placement per distinct reservation ID, in stacking
// order: room type, then start date, then reservation ID. A repeated ID keeps
// its first occurrence.
func (e *Engine) Layout(window calendar.Window, reservations []*domain.Reservation) []Placement {
	seen := make(map[string]struct{}, len(reservations))
	unique := make([]*domain.Reservation, 0, len(reservations))
	for _, r := range reservations {
		if r == nil {
			continue
		}
		if _, dup := seen[r.ID]; dup {
			continue
		}
		seen[r.ID] = struct{}{}
		unique = append(unique, r)
	}

	sort.SliceStable(unique, func(i, j int) bool {
		a, b := unique[i], unique[j]
		if a.RoomTypeID != b.RoomTypeID {
			return a.RoomTypeID < b.RoomTypeID
		}
		if !a.StartDate.Equal(b.StartDate) {
			return a.StartDate.Before(b.StartDate)
		}
		return a.ID < b.ID
	})

	lanes := make(map[string]*laneSet)
	out := make([]Placement, 0, len(unique))
	for _, r := range unique {
		p := Placement{ReservationID: r.ID}
		if span, ok := Clip(window, r); ok && r.OccupiesInventory() {
			ls, exists := lanes[r.RoomTypeID]
			if !exists {
				ls = &laneSet{}
				lanes[r.RoomTypeID] = ls
			}
			span.Lane = ls.assign(span.ColumnStart, span.ColumnStart+span.ColumnCount)
			p.Span = &span
		}
		out = append(out, p)
	}
	return out
}

// Clip returns the span of r inside window, or false when the stay does not
// intersect it. Lane is left at zero.
func Clip(window calendar.Window, r *domain.Reservation) (Span, bool) {
	if window.Len() == 0 || r.Nights < 1 {
		return Span{}, false
	}

	visibleStart := latest(domain.Day(r.StartDate), window.Start)
	visibleEnd := earliest(r.EndDate(), window.End())
	if !visibleStart.Before(visibleEnd) {
		return Span{}, false
	}

	col, _ := window.IndexOf(visibleStart)
	return Span{
		ReservationID: r.ID,
		RoomTypeID:    r.RoomTypeID,
		ColumnStart:   col,
		ColumnCount:   domain.DaysBetween(visibleStart, visibleEnd),
		Attention:     r.NeedsAttention(),
	}, true
}

// laneSet tracks the first free column of each lane of one room type.
// Spans arrive in start order, so a lane is free once its last span ended.
type laneSet struct {
	freeFrom []int
}

func (l *laneSet) assign(start, end int) int {
	for i, free := range l.freeFrom {
		if free <= start {
			l.freeFrom[i] = end
			return i
		}
	}
	l.freeFrom = append(l.freeFrom, end)
	return len(l.freeFrom) - 1
}

func latest(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func earliest(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
