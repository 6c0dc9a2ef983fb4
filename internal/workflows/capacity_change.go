package workflows

import (
	"fmt"

	"github.com/microsoft/durabletask-go/task"

	"github.com/Youmanvi/roomledger/internal/activities"
	"github.com/Youmanvi/roomledger/internal/activities/stock"
)

// CapacityChangeOutput is the output of the capacity change orchestrator
type CapacityChangeOutput struct {
	Status     string           `json:"status"`
	RoomTypeID string           `json:"room_type_id"`
	Capacity   int              `json:"capacity"`
	Rejection  *stock.Rejection `json:"rejection,omitempty"`
	Message    string           `json:"message,omitempty"`
}

// CapacityChangeOrchestrator changes the physical room count of a room type.
// The input is a stock.CapacityInput. Days whose total exceeds the new
// capacity reject the change; the rejection names the first of them.
func CapacityChangeOrchestrator(ctx *task.OrchestrationContext) (any, error) {
	var req stock.CapacityInput
	if err := ctx.GetInput(&req); err != nil {
		return nil, fmt.Errorf("failed to unmarshal capacity change input: %w", err)
	}

	output := CapacityChangeOutput{RoomTypeID: req.RoomTypeID, Capacity: req.Capacity}
	var changed stock.CapacityOutput
	if err := callActivity(ctx, activities.RoomTypeCapacity, req, &changed); err != nil {
		output.Status = StatusFailed
		output.Message = fmt.Sprintf("capacity change failed: %v", err)
		return output, nil
	}
	if changed.Rejection != nil {
		output.Status = StatusRejected
		output.Rejection = changed.Rejection
		output.Message = changed.Rejection.Message
		return output, nil
	}

	output.Status = StatusConfirmed
	output.Message = fmt.Sprintf("capacity of %s set to %d", req.RoomTypeID, req.Capacity)
	return output, nil
}
