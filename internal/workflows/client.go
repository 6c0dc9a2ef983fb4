package workflows

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/microsoft/durabletask-go/api"
	"github.com/microsoft/durabletask-go/backend"

	"github.com/Youmanvi/roomledger/internal/activities/reservation"
	"github.com/Youmanvi/roomledger/internal/activities/stock"
	"github.com/Youmanvi/roomledger/internal/batch"
	"github.com/Youmanvi/roomledger/internal/domain"
	"github.com/Youmanvi/roomledger/internal/intake"
)

// Client schedules the reservation orchestrations and waits for their output
type Client struct {
	hub backend.TaskHubClient
}

// NewClient creates a client over a task hub client
func NewClient(hub backend.TaskHubClient) *Client {
	return &Client{hub: hub}
}

// SubmitReservation runs the intake orchestration for one sale
func (c *Client) SubmitReservation(ctx context.Context, req intake.CreateRequest) (*ReservationIntakeOutput, error) {
	var output ReservationIntakeOutput
	if err := c.run(ctx, ReservationIntake, req, &output); err != nil {
		return nil, err
	}
	return &output, nil
}

// ChangeStatus runs the status orchestration, for example a cancellation
func (c *Client) ChangeStatus(ctx context.Context, reservationID string, to domain.ReservationStatus) (*ReservationStatusOutput, error) {
	var output ReservationStatusOutput
	input := reservation.TransitionInput{ReservationID: reservationID, Status: to}
	if err := c.run(ctx, ReservationStatus, input, &output); err != nil {
		return nil, err
	}
	return &output, nil
}

// ApplyBatch runs the batch mutation orchestration
func (c *Client) ApplyBatch(ctx context.Context, req batch.Request) (*BatchMutationOutput, error) {
	var output BatchMutationOutput
	if err := c.run(ctx, BatchMutation, req, &output); err != nil {
		return nil, err
	}
	return &output, nil
}

// ChangeCapacity runs the room type capacity orchestration
func (c *Client) ChangeCapacity(ctx context.Context, roomTypeID string, capacity int) (*CapacityChangeOutput, error) {
	var output CapacityChangeOutput
	input := stock.CapacityInput{RoomTypeID: roomTypeID, Capacity: capacity}
	if err := c.run(ctx, CapacityChange, input, &output); err != nil {
		return nil, err
	}
	return &output, nil
}

func (c *Client) run(ctx context.Context, orchestrator string, input any, out any) error {
	id, err := c.hub.ScheduleNewOrchestration(ctx, orchestrator, api.WithInput(input))
	if err != nil {
		return fmt.Errorf("failed to schedule %s: %w", orchestrator, err)
	}

	metadata, err := c.hub.WaitForOrchestrationCompletion(ctx, id)
	if err != nil {
		return fmt.Errorf("failed waiting for %s %s: %w", orchestrator, id, err)
	}
	if metadata.FailureDetails != nil {
		return fmt.Errorf("%s %s failed: %s", orchestrator, id, metadata.FailureDetails.GetErrorMessage())
	}
	if err := json.Unmarshal([]byte(metadata.SerializedOutput), out); err != nil {
		return fmt.Errorf("failed to unmarshal %s output: %w", orchestrator, err)
	}
	return nil
}
