package fixtures

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Youmanvi/roomledger/internal/domain"
	"github.com/Youmanvi/roomledger/internal/intake"
)

// DeluxeRoomTypeID is the room type seeded by the fixtures
const DeluxeRoomTypeID = "deluxe"

// DeluxeRoomType returns a room type with the given capacity priced at 300.00
func DeluxeRoomType(capacity int) domain.RoomType {
	rt, err := domain.NewRoomType(DeluxeRoomTypeID, "Deluxe King", capacity, decimal.RequireFromString("300.00"))
	if err != nil {
		panic(err)
	}
	return *rt
}

// StayRequest creates a valid intake request for the deluxe room type
func StayRequest(start string, nights, quantity int) intake.CreateRequest {
	return intake.CreateRequest{
		RoomTypeID: DeluxeRoomTypeID,
		GuestID:    fmt.Sprintf("GUEST-%d", time.Now().UnixNano()),
		StartDate:  start,
		Nights:     nights,
		Quantity:   quantity,
	}
}

// InvalidSpanRequest creates a request for a zero-night stay
func InvalidSpanRequest(start string) intake.CreateRequest {
	req := StayRequest(start, 1, 1)
	req.Nights = 0
	return req
}

// UnknownRoomTypeRequest creates a request for a room type nobody registered
func UnknownRoomTypeRequest(start string) intake.CreateRequest {
	req := StayRequest(start, 1, 1)
	req.RoomTypeID = "penthouse"
	return req
}
