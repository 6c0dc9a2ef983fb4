package stock

import (
	"context"
	"encoding/json"

	"github.com/Youmanvi/roomledger/internal/batch"
	"github.com/Youmanvi/roomledger/internal/pkg/errors"
)

// BatchApplier runs operator batch edits
type BatchApplier interface {
	Apply(ctx context.Context, req batch.Request) (batch.Result, error)
}

// BatchOutput carries the per-day result, or the call-level rejection
type BatchOutput struct {
	Result    *batch.Result `json:"result,omitempty"`
	Rejection *Rejection    `json:"rejection,omitempty"`
}

// BatchApplyActivity applies one operator batch. Per-day failures are part of
// the result; replays are safe since every mutation sets an absolute value.
func BatchApplyActivity(applier BatchApplier) func(ctx context.Context, input []byte) ([]byte, error) {
	return func(ctx context.Context, input []byte) ([]byte, error) {
		var req batch.Request
		if err := json.Unmarshal(input, &req); err != nil {
			return nil, errors.NewPermanentError("INVALID_INPUT", "failed to unmarshal batch request", err)
		}

		var output BatchOutput
		result, err := applier.Apply(ctx, req)
		if err != nil {
			rejection := RejectionFrom(err)
			if rejection == nil {
				return nil, err
			}
			output.Rejection = rejection
		} else {
			output.Result = &result
		}

		return marshal(output)
	}
}
