package activities

import (
	"time"

	"github.com/microsoft/durabletask-go/task"

	"github.com/Youmanvi/roomledger/internal/activities/reservation"
	"github.com/Youmanvi/roomledger/internal/activities/stock"
	"github.com/Youmanvi/roomledger/internal/infrastructure/observability"
	"github.com/Youmanvi/roomledger/internal/middleware"
)

// Activity names shared with the orchestrators
const (
	LedgerReserve         = "ledger:reserve"
	LedgerAbandon         = "ledger:abandon_hold"
	InventoryBatchApply   = "inventory:batch_apply"
	RoomTypeCapacity      = "inventory:change_capacity"
	ReservationDraft      = "reservation:draft"
	ReservationRecord     = "reservation:record"
	ReservationTransition = "reservation:transition"
)

// ActivityDeps contains dependencies for all activities
type ActivityDeps struct {
	Logger           *observability.Logger
	Metrics          *observability.Metrics
	Ledger           stock.Holder
	Batch            stock.BatchApplier
	Capacity         stock.CapacityChanger
	Intake           reservation.Intake
	Events           observability.ActivityEventWriter
	RetryPolicy      middleware.RetryPolicy
	TimeoutDuration  time.Duration
	BreakerThreshold float64
	BreakerTimeout   time.Duration
}

// NewActivityRegistry creates and registers all activities with middleware
func NewActivityRegistry(deps *ActivityDeps) *task.TaskRegistry {
	registry := task.NewTaskRegistry()
	AddActivities(registry, deps)
	return registry
}

// AddActivities registers every activity on an existing registry, so one
// executor can serve both orchestrators and activities.
func AddActivities(registry *task.TaskRegistry, deps *ActivityDeps) {
	// Ledger activities
	registerActivity(registry, LedgerReserve, stock.ReserveActivity(deps.Ledger), deps)
	registerActivity(registry, InventoryBatchApply, stock.BatchApplyActivity(deps.Batch), deps)
	registerActivity(registry, RoomTypeCapacity, stock.ChangeCapacityActivity(deps.Capacity), deps)

	// Reservation activities touch the reservation store
	storageBreaker := middleware.WithCircuitBreaker(deps.Logger, "reservation-store", deps.BreakerThreshold, deps.BreakerTimeout)
	registerActivity(registry, ReservationDraft, reservation.DraftActivity(deps.Intake), deps)
	registerActivity(registry, ReservationRecord, reservation.RecordActivity(deps.Intake), deps, storageBreaker)
	registerActivity(registry, ReservationTransition, reservation.TransitionActivity(deps.Intake), deps, storageBreaker)
	registerActivity(registry, LedgerAbandon, stock.AbandonActivity(deps.Intake), deps, storageBreaker)
}

// registerActivity registers an activity with middleware
func registerActivity(registry *task.TaskRegistry, name string, activity middleware.ActivityFunc, deps *ActivityDeps, extra ...middleware.ActivityMiddleware) {
	// Outermost first: one log line per activity call, retries inside it
	wrapped := middleware.ApplyMiddleware(
		activity,
		middleware.WithLogging(deps.Logger, deps.Metrics, name),
		middleware.WithEventRecording(deps.Events, deps.Logger, name),
		middleware.WithRetry(deps.Logger, deps.RetryPolicy),
		// gRPC error handling before the attempt so transient errors are classified
		middleware.WithGRPCErrorHandling(),
		middleware.WithTimeout(deps.TimeoutDuration),
		middleware.Chain(extra...),
	)

	// Adapt middleware.ActivityFunc to task.Activity
	taskActivity := func(ctx task.ActivityContext) (any, error) {
		var input []byte
		if err := ctx.GetInput(&input); err != nil {
			return nil, err
		}
		return wrapped(ctx.Context(), input)
	}

	registry.AddActivityN(name, taskActivity)
}
