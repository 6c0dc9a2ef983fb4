package reservation

import (
	"context"
	"encoding/json"

	"github.com/Youmanvi/roomledger/internal/activities/stock"
	"github.com/Youmanvi/roomledger/internal/domain"
	"github.com/Youmanvi/roomledger/internal/intake"
	"github.com/Youmanvi/roomledger/internal/ledger"
	"github.com/Youmanvi/roomledger/internal/pkg/errors"
)

// Intake is the reservation side of the intake service
type Intake interface {
	Draft(req intake.CreateRequest) (*domain.Reservation, error)
	Record(ctx context.Context, res *domain.Reservation) error
	Transition(ctx context.Context, id string, to domain.ReservationStatus) (*domain.Reservation, error)
	AbandonHold(ctx context.Context, token ledger.ReservationToken) error
}

// DraftOutput carries the validated reservation or the rejection
type DraftOutput struct {
	Reservation *domain.Reservation `json:"reservation,omitempty"`
	Rejection   *stock.Rejection    `json:"rejection,omitempty"`
}

// RecordOutput is the output of recording a reservation
type RecordOutput struct {
	ReservationID string `json:"reservation_id"`
}

// TransitionInput moves a reservation to a new status
type TransitionInput struct {
	ReservationID string                   `json:"reservation_id"`
	Status        domain.ReservationStatus `json:"status"`
}

// TransitionOutput carries the updated reservation or the rejection
type TransitionOutput struct {
	Reservation *domain.Reservation `json:"reservation,omitempty"`
	Rejection   *stock.Rejection    `json:"rejection,omitempty"`
}

// DraftActivity validates an intake request and assigns the reservation id.
// Running it as an activity keeps id generation out of orchestrator replays.
func DraftActivity(svc Intake) func(ctx context.Context, input []byte) ([]byte, error) {
	return func(ctx context.Context, input []byte) ([]byte, error) {
		var req intake.CreateRequest
		if err := json.Unmarshal(input, &req); err != nil {
			return nil, errors.NewPermanentError("INVALID_INPUT", "failed to unmarshal intake request", err)
		}

		var output DraftOutput
		res, err := svc.Draft(req)
		if err != nil {
			output.Rejection = stock.RejectionFrom(err)
			if output.Rejection == nil {
				return nil, err
			}
		} else {
			output.Reservation = res
		}
		return marshal(output)
	}
}

// RecordActivity stores a held reservation
func RecordActivity(svc Intake) func(ctx context.Context, input []byte) ([]byte, error) {
	return func(ctx context.Context, input []byte) ([]byte, error) {
		var res domain.Reservation
		if err := json.Unmarshal(input, &res); err != nil {
			return nil, errors.NewPermanentError("INVALID_INPUT", "failed to unmarshal reservation", err)
		}
		if res.ID == "" || res.TokenID == "" {
			return nil, errors.NewPermanentError("MISSING_RESERVATION_ID", "reservation ID and token are required", nil)
		}

		if err := svc.Record(ctx, &res); err != nil {
			if _, classified := errors.As(err); !classified {
				return nil, errors.NewTransientError("RECORD_FAILED", "failed to record reservation", err)
			}
			return nil, err
		}
		return marshal(RecordOutput{ReservationID: res.ID})
	}
}

// TransitionActivity changes a reservation status, releasing its ledger hold
// when the new status frees inventory.
func TransitionActivity(svc Intake) func(ctx context.Context, input []byte) ([]byte, error) {
	return func(ctx context.Context, input []byte) ([]byte, error) {
		var inp TransitionInput
		if err := json.Unmarshal(input, &inp); err != nil {
			return nil, errors.NewPermanentError("INVALID_INPUT", "failed to unmarshal transition input", err)
		}

		var output TransitionOutput
		res, err := svc.Transition(ctx, inp.ReservationID, inp.Status)
		if err != nil {
			output.Rejection = stock.RejectionFrom(err)
			if output.Rejection == nil {
				return nil, err
			}
		} else {
			output.Reservation = res
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
