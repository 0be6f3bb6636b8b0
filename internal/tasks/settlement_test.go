package tasks

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-pos/internal/customer"
)

type stubCustomers struct {
	balances map[uuid.UUID]int64
	err      error
}

func (s *stubCustomers) Get(_ context.Context, id uuid.UUID) (customer.Customer, error) {
	balance, ok := s.balances[id]
	if !ok {
		return customer.Customer{}, customer.ErrNotFound
	}
	return customer.Customer{ID: id, PreviousDue: balance}, nil
}

func (s *stubCustomers) Search(context.Context, string, int) ([]customer.Customer, error) {
	return nil, nil
}

func (s *stubCustomers) AdjustPreviousDue(_ context.Context, id uuid.UUID, delta int64) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	balance, ok := s.balances[id]
	if !ok {
		return 0, customer.ErrNotFound
	}
	balance += delta
	s.balances[id] = balance
	return balance, nil
}

func TestSettlementAppliesDelta(t *testing.T) {
	custID := uuid.New()
	store := &stubCustomers{balances: map[uuid.UUID]int64{custID: 2000}}
	h := SettlementHandler{Customers: store, Logger: zerolog.Nop()}

	task, err := NewPreviousDueSettleTask(PreviousDueSettlePayload{
		OrderID:    uuid.New(),
		CustomerID: custID,
		Delta:      5000,
	})
	if err != nil {
		t.Fatalf("build task: %v", err)
	}
	if err := h.ProcessTask(context.Background(), task); err != nil {
		t.Fatalf("process: %v", err)
	}
	if store.balances[custID] != 7000 {
		t.Fatalf("expected balance 7000, got %d", store.balances[custID])
	}
}

func TestSettlementZeroDeltaIsNoop(t *testing.T) {
	custID := uuid.New()
	store := &stubCustomers{balances: map[uuid.UUID]int64{custID: 2000}}
	h := SettlementHandler{Customers: store, Logger: zerolog.Nop()}

	task, err := NewPreviousDueSettleTask(PreviousDueSettlePayload{
		OrderID:    uuid.New(),
		CustomerID: custID,
	})
	if err != nil {
		t.Fatalf("build task: %v", err)
	}
	if err := h.ProcessTask(context.Background(), task); err != nil {
		t.Fatalf("process: %v", err)
	}
	if store.balances[custID] != 2000 {
		t.Fatalf("zero delta changed balance: %d", store.balances[custID])
	}
}

func TestSettlementMissingCustomerDropped(t *testing.T) {
	store := &stubCustomers{balances: map[uuid.UUID]int64{}}
	h := SettlementHandler{Customers: store, Logger: zerolog.Nop()}

	task, err := NewPreviousDueSettleTask(PreviousDueSettlePayload{
		OrderID:    uuid.New(),
		CustomerID: uuid.New(),
		Delta:      100,
	})
	if err != nil {
		t.Fatalf("build task: %v", err)
	}
	if err := h.ProcessTask(context.Background(), task); err != nil {
		t.Fatalf("missing customer should be dropped, not retried: %v", err)
	}
}

func TestSettlementMalformedPayloadSkipsRetry(t *testing.T) {
	store := &stubCustomers{balances: map[uuid.UUID]int64{}}
	h := SettlementHandler{Customers: store, Logger: zerolog.Nop()}

	task := asynq.NewTask(TypePreviousDueSettle, []byte("not json"))
	err := h.ProcessTask(context.Background(), task)
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected SkipRetry for malformed payload, got %v", err)
	}
}

func TestSettlementStoreErrorRetries(t *testing.T) {
	custID := uuid.New()
	store := &stubCustomers{balances: map[uuid.UUID]int64{custID: 0}, err: errors.New("db down")}
	h := SettlementHandler{Customers: store, Logger: zerolog.Nop()}

	task, err := NewPreviousDueSettleTask(PreviousDueSettlePayload{
		OrderID:    uuid.New(),
		CustomerID: custID,
		Delta:      100,
	})
	if err != nil {
		t.Fatalf("build task: %v", err)
	}
	err = h.ProcessTask(context.Background(), task)
	if err == nil || errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected retryable error, got %v", err)
	}
}

func TestNewPreviousDueSettleTaskRequiresCustomer(t *testing.T) {
	if _, err := NewPreviousDueSettleTask(PreviousDueSettlePayload{OrderID: uuid.New()}); err == nil {
		t.Fatalf("expected error without customer id")
	}
}
