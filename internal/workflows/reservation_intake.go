package workflows

import (
	"fmt"

	"github.com/microsoft/durabletask-go/task"

	"github.com/Youmanvi/roomledger/internal/activities"
	"github.com/Youmanvi/roomledger/internal/activities/reservation"
	"github.com/Youmanvi/roomledger/internal/activities/stock"
	"github.com/Youmanvi/roomledger/internal/intake"
	"github.com/Youmanvi/roomledger/internal/ledger"
)

// Outcome statuses of the reservation orchestrations
const (
	StatusConfirmed = "confirmed"
	StatusRejected  = "rejected"
	StatusFailed    = "failed"
)

// ReservationIntakeOutput is the output of the reservation intake orchestrator
type ReservationIntakeOutput struct {
	Status        string           `json:"status"`
	ReservationID string           `json:"reservation_id,omitempty"`
	TokenID       string           `json:"token_id,omitempty"`
	Rejection     *stock.Rejection `json:"rejection,omitempty"`
	Message       string           `json:"message,omitempty"`
}

// ReservationIntakeOrchestrator turns one external sale into a ledger hold
// and a stored reservation. The input is an intake.CreateRequest. A hold
// whose reservation cannot be stored is released again.
func ReservationIntakeOrchestrator(ctx *task.OrchestrationContext) (any, error) {
	var req intake.CreateRequest
	if err := ctx.GetInput(&req); err != nil {
		return nil, fmt.Errorf("failed to unmarshal reservation intake input: %w", err)
	}

	output := ReservationIntakeOutput{ReservationID: req.ReservationID}

	// Step 1: Validate the request and assign the reservation id
	var draft reservation.DraftOutput
	if err := callActivity(ctx, activities.ReservationDraft, req, &draft); err != nil {
		output.Status = StatusFailed
		output.Message = fmt.Sprintf("request validation failed: %v", err)
		return output, nil
	}
	if draft.Rejection != nil {
		output.Status = StatusRejected
		output.Rejection = draft.Rejection
		output.Message = draft.Rejection.Message
		return output, nil
	}
	res := draft.Reservation
	output.ReservationID = res.ID

	// Step 2: Hold every night of the stay in the ledger, keyed by the
	// reservation id so a re-run never books twice
	reserveInput := stock.ReserveInput{
		HoldID:     res.ID,
		RoomTypeID: res.RoomTypeID,
		StartDate:  res.StartDate,
		Nights:     res.Nights,
		Quantity:   res.Quantity,
	}
	var reserveOutput stock.ReserveOutput
	if err := callActivity(ctx, activities.LedgerReserve, reserveInput, &reserveOutput); err != nil {
		// A timed out attempt may still commit; abandoning by id waits for it
		hold := ledger.ReservationToken{
			ID:         res.ID,
			RoomTypeID: res.RoomTypeID,
			StartDate:  res.StartDate,
			Nights:     res.Nights,
			Quantity:   res.Quantity,
		}
		if relErr := callActivity(ctx, activities.LedgerAbandon, stock.ReleaseInput{Token: hold}, nil); relErr != nil {
			output.Status = StatusFailed
			output.Message = fmt.Sprintf("ledger hold failed: %v; releasing hold failed: %v", err, relErr)
			return output, nil
		}
		output.Status = StatusFailed
		output.Message = fmt.Sprintf("ledger hold failed: %v", err)
		return output, nil
	}
	if reserveOutput.Rejection != nil {
		output.Status = StatusRejected
		output.Rejection = reserveOutput.Rejection
		output.Message = reserveOutput.Rejection.Message
		return output, nil
	}
	token := *reserveOutput.Token
	res.TokenID = token.ID
	output.TokenID = token.ID

	// Step 3: Store the reservation
	if err := callActivity(ctx, activities.ReservationRecord, res, nil); err != nil {
		// Compensate by returning the rooms
		if relErr := callActivity(ctx, activities.LedgerAbandon, stock.ReleaseInput{Token: token}, nil); relErr != nil {
			output.Message = fmt.Sprintf("recording reservation failed: %v; releasing hold failed: %v", err, relErr)
		} else {
			output.Message = fmt.Sprintf("recording reservation failed: %v", err)
		}
		output.Status = StatusFailed
		output.TokenID = ""
		return output, nil
	}

	output.Status = StatusConfirmed
	output.Message = "reservation confirmed"
	return output, nil
}
