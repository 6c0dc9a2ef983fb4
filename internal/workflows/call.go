package workflows

import (
	"encoding/json"
	"fmt"

	"github.com/microsoft/durabletask-go/task"
)

// callActivity runs a byte-in/byte-out activity and decodes its output
// into out. out may be nil.
func callActivity(ctx *task.OrchestrationContext, name string, input any, out any) error {
	inputBytes, err := json.Marshal(input)
	if err != nil {
		return fmt.Errorf("failed to marshal %s input: %w", name, err)
	}

	var raw []byte
	if err := ctx.CallActivity(name, task.WithActivityInput(inputBytes)).Await(&raw); err != nil {
		return err
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to unmarshal %s output: %w", name, err)
	}
	return nil
}
