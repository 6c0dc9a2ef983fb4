package workflows

import (
	"fmt"

	"github.com/microsoft/durabletask-go/task"

	"github.com/Youmanvi/roomledger/internal/activities"
	"github.com/Youmanvi/roomledger/internal/activities/reservation"
	"github.com/Youmanvi/roomledger/internal/activities/stock"
	"github.com/Youmanvi/roomledger/internal/domain"
)

// ReservationStatusOutput is the output of the reservation status orchestrator
type ReservationStatusOutput struct {
	Status        string                   `json:"status"`
	ReservationID string                   `json:"reservation_id"`
	NewStatus     domain.ReservationStatus `json:"new_status,omitempty"`
	Rejection     *stock.Rejection         `json:"rejection,omitempty"`
	Message       string                   `json:"message,omitempty"`
}

// ReservationStatusOrchestrator applies a status change such as a
// cancellation. The input is a reservation.TransitionInput.
func ReservationStatusOrchestrator(ctx *task.OrchestrationContext) (any, error) {
	var inp reservation.TransitionInput
	if err := ctx.GetInput(&inp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal reservation status input: %w", err)
	}

	output := ReservationStatusOutput{ReservationID: inp.ReservationID}

	var transition reservation.TransitionOutput
	if err := callActivity(ctx, activities.ReservationTransition, inp, &transition); err != nil {
		output.Status = StatusFailed
		output.Message = fmt.Sprintf("status change failed: %v", err)
		return output, nil
	}
	if transition.Rejection != nil {
		output.Status = StatusRejected
		output.Rejection = transition.Rejection
		output.Message = transition.Rejection.Message
		return output, nil
	}

	output.Status = StatusConfirmed
	output.NewStatus = transition.Reservation.Status
	output.Message = fmt.Sprintf("reservation is now %s", transition.Reservation.Status)
	return output, nil
}
