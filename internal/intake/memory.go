package intake

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Youmanvi/roomledger/internal/domain"
	"github.com/Youmanvi/roomledger/internal/pkg/errors"
)

// MemoryRepository is an in-process Repository
type MemoryRepository struct {
	mu           sync.RWMutex
	reservations map[string]domain.Reservation
}

// NewMemoryRepository creates an empty repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{reservations: make(map[string]domain.Reservation)}
}

func (m *MemoryRepository) Save(_ context.Context, r *domain.Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.reservations[r.ID]; exists {
		return fmt.Errorf("reservation %s already exists", r.ID)
	}
	m.reservations[r.ID] = *r
	return nil
}

func (m *MemoryRepository) Update(_ context.Context, r *domain.Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.reservations[r.ID]; !exists {
		return errors.NewPermanentError(errors.CodeReservationNotFound, "reservation "+r.ID+" not found", nil)
	}
	m.reservations[r.ID] = *r
	return nil
}

func (m *MemoryRepository) Get(_ context.Context, id string) (*domain.Reservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.reservations[id]
	if !ok {
		return nil, errors.NewPermanentError(errors.CodeReservationNotFound, "reservation "+id+" not found", nil)
	}
	return &r, nil
}

func (m *MemoryRepository) ListIntersecting(_ context.Context, roomTypeID string, from, to time.Time) ([]*domain.Reservation, error) {
	return m.list(func(r *domain.Reservation) bool {
		return (roomTypeID == "" || r.RoomTypeID == roomTypeID) && r.Intersects(from, to)
	}), nil
}

func (m *MemoryRepository) ListHoldingInventory(_ context.Context) ([]*domain.Reservation, error) {
	return m.list(func(r *domain.Reservation) bool {
		return r.OccupiesInventory() && r.TokenID != ""
	}), nil
}

func (m *MemoryRepository) list(keep func(*domain.Reservation) bool) []*domain.Reservation {
	m.mu.RLock()
	out := make([]*domain.Reservation, 0)
	for _, r := range m.reservations {
		r := r
		if keep(&r) {
			out = append(out, &r)
		}
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.RoomTypeID != b.RoomTypeID {
			return a.RoomTypeID < b.RoomTypeID
		}
		if !a.StartDate.Equal(b.StartDate) {
			return a.StartDate.Before(b.StartDate)
		}
		return a.ID < b.ID
	})
	return out
}
