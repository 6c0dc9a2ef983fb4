package stock

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Youmanvi/roomledger/internal/ledger"
	"github.com/Youmanvi/roomledger/internal/pkg/errors"
)

// Rejection is an expected, non-retryable refusal. Date is set for
// inventory-safety refusals.
type Rejection struct {
	Code    string     `json:"code"`
	Message string     `json:"message"`
	Date    *time.Time `json:"date,omitempty"`
}

// RejectionFrom converts a permanent classified error into a rejection. It
// returns nil for transient or unclassified errors, which must be retried.
func RejectionFrom(err error) *Rejection {
	customErr, ok := errors.As(err)
	if !ok || customErr.IsTransient() || customErr.IsTimeout() {
		return nil
	}
	r := &Rejection{Code: customErr.Code, Message: customErr.Error()}
	if customErr.HasDate() {
		d := customErr.Date
		r.Date = &d
	}
	return r
}

// ReserveInput is the input for holding ledger rooms. HoldID keys the hold,
// so a re-run of the activity returns the rooms it already took.
type ReserveInput struct {
	HoldID     string    `json:"hold_id"`
	RoomTypeID string    `json:"room_type_id"`
	StartDate  time.Time `json:"start_date"`
	Nights     int       `json:"nights"`
	Quantity   int       `json:"quantity"`
}

// ReserveOutput carries either the token or the rejection
type ReserveOutput struct {
	Token     *ledger.ReservationToken `json:"token,omitempty"`
	Rejection *Rejection               `json:"rejection,omitempty"`
}

// Holder reserves ledger rooms under a caller-chosen hold id
type Holder interface {
	ReserveHold(ctx context.Context, holdID, roomTypeID string, startDate time.Time, nights, qty int) (ledger.ReservationToken, error)
}

// ReserveActivity holds rooms on every night of a stay or none of them.
// Lock timeouts are returned as errors so the retry middleware sees them.
func ReserveActivity(holder Holder) func(ctx context.Context, input []byte) ([]byte, error) {
	return func(ctx context.Context, input []byte) ([]byte, error) {
		var inp ReserveInput
		if err := json.Unmarshal(input, &inp); err != nil {
			return nil, errors.NewPermanentError("INVALID_INPUT", "failed to unmarshal reserve input", err)
		}
		if inp.HoldID == "" {
			return nil, errors.NewPermanentError("MISSING_HOLD_ID", "hold ID is required", nil)
		}

		var output ReserveOutput
		token, err := holder.ReserveHold(ctx, inp.HoldID, inp.RoomTypeID, inp.StartDate, inp.Nights, inp.Quantity)
		if err != nil {
			rejection := RejectionFrom(err)
			if rejection == nil {
				return nil, err
			}
			output.Rejection = rejection
		} else {
			output.Token = &token
		}

		return marshal(output)
	}
}

func marshal(v any) ([]byte, error) {
	result, err := json.Marshal(v)
	if err != nil {
		return nil, errors.NewPermanentError("SERIALIZATION_ERROR", "failed to marshal activity output", err)
	}
	return result, nil
}
