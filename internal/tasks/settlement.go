package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-pos/internal/customer"
	"github.com/noah-isme/backend-pos/internal/events"
	"github.com/noah-isme/backend-pos/internal/obs"
)

// SettlementHandler applies previous-due deltas to customer profiles. A zero
// delta is acknowledged without touching the balance.
type SettlementHandler struct {
	Customers customer.Store
	Events    *events.Bus
	Logger    zerolog.Logger
}

// ProcessTask implements asynq.Handler for TypePreviousDueSettle.
func (h SettlementHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	if h.Customers == nil {
		return errors.New("tasks: customer store not configured")
	}
	var p PreviousDueSettlePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		countSettlement("malformed")
		// malformed payloads can never succeed; skip retries
		return fmt.Errorf("decode settlement payload: %v: %w", err, asynq.SkipRetry)
	}
	if p.Delta == 0 {
		countSettlement("noop")
		return nil
	}
	balance, err := h.Customers.AdjustPreviousDue(ctx, p.CustomerID, p.Delta)
	if err != nil {
		if errors.Is(err, customer.ErrNotFound) {
			countSettlement("missing_customer")
			h.Logger.Warn().
				Str("customer_id", p.CustomerID.String()).
				Str("order_id", p.OrderID.String()).
				Msg("settlement for missing customer dropped")
			return nil
		}
		countSettlement("error")
		return fmt.Errorf("adjust previous due: %w", err)
	}
	countSettlement("applied")
	h.Logger.Info().
		Str("customer_id", p.CustomerID.String()).
		Str("order_id", p.OrderID.String()).
		Int64("delta", p.Delta).
		Int64("balance", balance).
		Msg("previous due settled")
	if h.Events != nil {
		_, _ = h.Events.Emit(ctx, events.TopicPreviousDueSettled, p.CustomerID, map[string]any{
			"orderId": p.OrderID,
			"delta":   p.Delta,
			"balance": balance,
		})
	}
	return nil
}

func countSettlement(result string) {
	if obs.SettlementTasksTotal != nil {
		obs.SettlementTasksTotal.WithLabelValues(result).Inc()
	}
}
