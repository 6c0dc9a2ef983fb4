package stock

import (
	"context"
	"encoding/json"

	"github.com/Youmanvi/roomledger/internal/pkg/errors"
)

// CapacityChanger changes the physical room count of a room type
type CapacityChanger interface {
	ChangeCapacity(ctx context.Context, roomTypeID string, capacity int) error
}

// CapacityInput is the input for a room type capacity change
type CapacityInput struct {
	RoomTypeID string `json:"room_type_id"`
	Capacity   int    `json:"capacity"`
}

// CapacityOutput is empty on success and carries the refusal otherwise
type CapacityOutput struct {
	Rejection *Rejection `json:"rejection,omitempty"`
}

// ChangeCapacityActivity changes a room type's capacity. The value is
// absolute, so replays are safe.
func ChangeCapacityActivity(changer CapacityChanger) func(ctx context.Context, input []byte) ([]byte, error) {
	return func(ctx context.Context, input []byte) ([]byte, error) {
		var inp CapacityInput
		if err := json.Unmarshal(input, &inp); err != nil {
			return nil, errors.NewPermanentError("INVALID_INPUT", "failed to unmarshal capacity input", err)
		}

		var output CapacityOutput
		if err := changer.ChangeCapacity(ctx, inp.RoomTypeID, inp.Capacity); err != nil {
			rejection := RejectionFrom(err)
			if rejection == nil {
				return nil, err
			}
			output.Rejection = rejection
		}

		return marshal(output)
	}
}
