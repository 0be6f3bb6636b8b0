package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

type memStore struct {
	inserted []Event
	err      error
}

func (m *memStore) Insert(_ context.Context, topic string, aggregateID uuid.UUID, payload []byte) (Event, error) {
	if m.err != nil {
		return Event{}, m.err
	}
	e := Event{ID: uuid.New(), Topic: topic, AggregateID: aggregateID, Payload: payload, CreatedAt: time.Now()}
	m.inserted = append(m.inserted, e)
	return e, nil
}

type recordingNotifier struct {
	seen []Event
	err  error
}

func (n *recordingNotifier) Notify(_ context.Context, event Event) error {
	n.seen = append(n.seen, event)
	return n.err
}

func TestEmitPersistsAndNotifies(t *testing.T) {
	store := &memStore{}
	notifier := &recordingNotifier{}
	bus := &Bus{Store: store, Notifiers: []Notifier{notifier}}

	aggregate := uuid.New()
	event, err := bus.Emit(context.Background(), TopicOrderSaved, aggregate, map[string]any{"total": 9450})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	if len(store.inserted) != 1 {
		t.Fatalf("expected one persisted event, got %d", len(store.inserted))
	}
	if len(notifier.seen) != 1 || notifier.seen[0].ID != event.ID {
		t.Fatalf("notifier did not receive the event")
	}
	if event.Topic != TopicOrderSaved || event.AggregateID != aggregate {
		t.Fatalf("event fields wrong: %+v", event)
	}
}

func TestEmitNotifierFailureDoesNotFailEmit(t *testing.T) {
	store := &memStore{}
	notifier := &recordingNotifier{err: errors.New("webhook down")}
	var reported error
	bus := &Bus{
		Store:     store,
		Notifiers: []Notifier{notifier},
		OnError:   func(_ string, err error) { reported = err },
	}

	if _, err := bus.Emit(context.Background(), TopicPreviousDueSettled, uuid.New(), nil); err != nil {
		t.Fatalf("emit should succeed despite notifier failure: %v", err)
	}
	if reported == nil {
		t.Fatalf("notifier error not reported")
	}
}

func TestEmitStoreFailure(t *testing.T) {
	store := &memStore{err: errors.New("db down")}
	notifier := &recordingNotifier{}
	bus := &Bus{Store: store, Notifiers: []Notifier{notifier}}

	if _, err := bus.Emit(context.Background(), TopicOrderSaved, uuid.New(), nil); err == nil {
		t.Fatalf("expected emit to fail when persistence fails")
	}
	if len(notifier.seen) != 0 {
		t.Fatalf("notifier ran for unpersisted event")
	}
}

func TestEmitValidation(t *testing.T) {
	bus := &Bus{Store: &memStore{}}
	if _, err := bus.Emit(context.Background(), "  ", uuid.New(), nil); err == nil {
		t.Fatalf("expected error for blank topic")
	}
	if _, err := bus.Emit(context.Background(), TopicOrderSaved, uuid.Nil, nil); err == nil {
		t.Fatalf("expected error for nil aggregate")
	}
}
