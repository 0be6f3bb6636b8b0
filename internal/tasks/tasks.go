package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// TypePreviousDueSettle adjusts a customer's carried balance after an order save.
const TypePreviousDueSettle = "order:settle_previous_due"

// PreviousDueSettlePayload carries the balance delta derived at save time.
type PreviousDueSettlePayload struct {
	OrderID    uuid.UUID `json:"orderId"`
	CustomerID uuid.UUID `json:"customerId"`
	Delta      int64     `json:"delta"`
}

// NewPreviousDueSettleTask builds the asynq task for a settlement.
func NewPreviousDueSettleTask(p PreviousDueSettlePayload) (*asynq.Task, error) {
	if p.CustomerID == uuid.Nil {
		return nil, errors.New("tasks: customer id is required")
	}
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("tasks: encode payload: %w", err)
	}
	return asynq.NewTask(TypePreviousDueSettle, payload, asynq.MaxRetry(5)), nil
}

// Enqueuer submits background tasks to the configured queue.
type Enqueuer struct {
	Client *asynq.Client
	Queue  string
}

// Enqueue submits the task, defaulting to the configured queue.
func (e Enqueuer) Enqueue(ctx context.Context, task *asynq.Task) error {
	if e.Client == nil {
		return errors.New("tasks: client not configured")
	}
	opts := []asynq.Option{}
	if e.Queue != "" {
		opts = append(opts, asynq.Queue(e.Queue))
	}
	_, err := e.Client.EnqueueContext(ctx, task, opts...)
	return err
}
