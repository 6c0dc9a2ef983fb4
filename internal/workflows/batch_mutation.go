package workflows

import (
	"fmt"

	"github.com/microsoft/durabletask-go/task"

	"github.com/Youmanvi/roomledger/internal/activities"
	"github.com/Youmanvi/roomledger/internal/activities/stock"
	"github.com/Youmanvi/roomledger/internal/batch"
)

// BatchMutationOutput is the output of the batch mutation orchestrator
type BatchMutationOutput struct {
	Status    string           `json:"status"`
	Result    *batch.Result    `json:"result,omitempty"`
	Rejection *stock.Rejection `json:"rejection,omitempty"`
	Message   string           `json:"message,omitempty"`
}

// BatchMutationOrchestrator runs one operator batch edit. The input is a
// batch.Request. A batch with per-day rejections still completes; the
// rejected days are listed in the result.
func BatchMutationOrchestrator(ctx *task.OrchestrationContext) (any, error) {
	var req batch.Request
	if err := ctx.GetInput(&req); err != nil {
		return nil, fmt.Errorf("failed to unmarshal batch mutation input: %w", err)
	}

	var output BatchMutationOutput
	var applied stock.BatchOutput
	if err := callActivity(ctx, activities.InventoryBatchApply, req, &applied); err != nil {
		output.Status = StatusFailed
		output.Message = fmt.Sprintf("batch apply failed: %v", err)
		return output, nil
	}
	if applied.Rejection != nil {
		output.Status = StatusRejected
		output.Rejection = applied.Rejection
		output.Message = applied.Rejection.Message
		return output, nil
	}

	output.Status = StatusConfirmed
	output.Result = applied.Result
	output.Message = fmt.Sprintf("%d days applied, %d rejected", len(applied.Result.Applied), len(applied.Result.Rejected))
	return output, nil
}
