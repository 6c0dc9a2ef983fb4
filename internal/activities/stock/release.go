package stock

import (
	"context"
	"encoding/json"

	"github.com/Youmanvi/roomledger/internal/ledger"
	"github.com/Youmanvi/roomledger/internal/pkg/errors"
)

// Abandoner returns the rooms of a hold whose reservation was never stored
type Abandoner interface {
	AbandonHold(ctx context.Context, token ledger.ReservationToken) error
}

// ReleaseInput is the input for releasing a ledger hold
type ReleaseInput struct {
	Token ledger.ReservationToken `json:"token"`
}

// ReleaseOutput is the output of releasing a ledger hold
type ReleaseOutput struct {
	Status string `json:"status"`
}

// AbandonActivity returns the rooms of a hold that no stored reservation
// owns. Release is idempotent, so replays after a crash are harmless.
func AbandonActivity(abandoner Abandoner) func(ctx context.Context, input []byte) ([]byte, error) {
	return func(ctx context.Context, input []byte) ([]byte, error) {
		var inp ReleaseInput
		if err := json.Unmarshal(input, &inp); err != nil {
			return nil, errors.NewPermanentError("INVALID_INPUT", "failed to unmarshal release input", err)
		}

		if inp.Token.ID == "" {
			return nil, errors.NewPermanentError("MISSING_TOKEN_ID", "token ID is required", nil)
		}

		if err := abandoner.AbandonHold(ctx, inp.Token); err != nil {
			return nil, err
		}

		return marshal(ReleaseOutput{Status: "released"})
	}
}
