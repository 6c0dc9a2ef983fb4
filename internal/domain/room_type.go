package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// RoomType is a sellable category of room with a fixed physical capacity
type RoomType struct {
	ID        string
	Name      string
	Capacity  int
	BasePrice decimal.Decimal
}

// NewRoomType creates a new room type
func NewRoomType(id, name string, capacity int, basePrice decimal.Decimal) (*RoomType, error) {
	if id == "" {
		return nil, fmt.Errorf("room type ID cannot be empty")
	}
	if capacity < 0 {
		return nil, fmt.Errorf("capacity cannot be negative for room type %s", id)
	}
	if basePrice.IsNegative() {
		return nil, fmt.Errorf("base price cannot be negative for room type %s", id)
	}
	if name == "" {
		name = id
	}

	return &RoomType{
		ID:        id,
		Name:      name,
		Capacity:  capacity,
		BasePrice: basePrice,
	}, nil
}
