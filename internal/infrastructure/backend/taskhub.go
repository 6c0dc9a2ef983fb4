package backend

import (
	"context"
	"fmt"

	"github.com/microsoft/durabletask-go/backend"
	"github.com/microsoft/durabletask-go/task"
)

// TaskHub runs orchestrations and activities against one backend
type TaskHub struct {
	Worker backend.TaskHubWorker
	Client backend.TaskHubClient
}

// StartTaskHub starts a worker executing registry and returns it with a
// client bound to the same backend.
func StartTaskHub(ctx context.Context, be backend.Backend, registry *task.TaskRegistry, logger backend.Logger) (*TaskHub, error) {
	executor := task.NewTaskExecutor(registry)
	orchestrationWorker := backend.NewOrchestrationWorker(be, executor, logger)
	activityWorker := backend.NewActivityTaskWorker(be, executor, logger)
	worker := backend.NewTaskHubWorker(be, orchestrationWorker, activityWorker, logger)

	if err := worker.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start task hub worker: %w", err)
	}

	return &TaskHub{
		Worker: worker,
		Client: backend.NewTaskHubClient(be),
	}, nil
}

// Shutdown stops the worker, letting in-flight work items finish
func (h *TaskHub) Shutdown(ctx context.Context) error {
	return h.Worker.Shutdown(ctx)
}
