package workflows

import (
	"github.com/microsoft/durabletask-go/task"
)

// Orchestrator names
const (
	ReservationIntake = "reservation_intake"
	ReservationStatus = "reservation_status"
	BatchMutation     = "batch_mutation"
	CapacityChange    = "room_type_capacity"
)

// NewWorkflowRegistry creates and registers all workflow orchestrators
func NewWorkflowRegistry() *task.TaskRegistry {
	registry := task.NewTaskRegistry()
	AddOrchestrators(registry)
	return registry
}

// AddOrchestrators registers every orchestrator on an existing registry
func AddOrchestrators(registry *task.TaskRegistry) {
	registry.AddOrchestratorN(ReservationIntake, ReservationIntakeOrchestrator)
	registry.AddOrchestratorN(ReservationStatus, ReservationStatusOrchestrator)
	registry.AddOrchestratorN(BatchMutation, BatchMutationOrchestrator)
	registry.AddOrchestratorN(CapacityChange, CapacityChangeOrchestrator)
}
