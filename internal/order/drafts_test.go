package order

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/backend-pos/internal/ledger"
)

func newTestDraftStore(t *testing.T) (*DraftStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return &DraftStore{R: client, TTL: time.Hour}, mr
}

func TestDraftStoreRoundTrip(t *testing.T) {
	store, _ := newTestDraftStore(t)
	ctx := context.Background()

	o := ledger.New()
	if _, err := o.AddItem(ledger.ItemInput{
		ProductID:     uuid.New(),
		Qty:           2,
		UnitSellPrice: 5000,
		UnitBuyPrice:  3000,
	}, 10); err != nil {
		t.Fatalf("add item: %v", err)
	}

	if err := store.Put(ctx, o); err != nil {
		t.Fatalf("put draft: %v", err)
	}

	loaded, err := store.Get(ctx, o.ID)
	if err != nil {
		t.Fatalf("get draft: %v", err)
	}
	if loaded.Totals != o.Totals {
		t.Fatalf("totals changed over round trip: %+v vs %+v", loaded.Totals, o.Totals)
	}
	if len(loaded.Items) != 1 || loaded.Items[0].Qty != 2 {
		t.Fatalf("items lost over round trip: %+v", loaded.Items)
	}
}

func TestDraftStoreMissing(t *testing.T) {
	store, _ := newTestDraftStore(t)
	_, err := store.Get(context.Background(), uuid.New())
	if !errors.Is(err, ErrDraftNotFound) {
		t.Fatalf("expected ErrDraftNotFound, got %v", err)
	}
}

func TestDraftStoreRederivesTotals(t *testing.T) {
	store, mr := newTestDraftStore(t)
	ctx := context.Background()

	o := ledger.New()
	if _, err := o.AddItem(ledger.ItemInput{
		ProductID:     uuid.New(),
		Qty:           1,
		UnitSellPrice: 10000,
		UnitBuyPrice:  6000,
	}, 5); err != nil {
		t.Fatalf("add item: %v", err)
	}
	if err := store.Put(ctx, o); err != nil {
		t.Fatalf("put draft: %v", err)
	}

	// corrupt the stored totals snapshot directly
	raw, err := mr.Get("order:draft:" + o.ID.String())
	if err != nil {
		t.Fatalf("read raw draft: %v", err)
	}
	var tampered ledger.Order
	if err := json.Unmarshal([]byte(raw), &tampered); err != nil {
		t.Fatalf("decode raw draft: %v", err)
	}
	tampered.Totals.Total = 1
	data, _ := json.Marshal(&tampered)
	mr.Set("order:draft:"+o.ID.String(), string(data))

	loaded, err := store.Get(ctx, o.ID)
	if err != nil {
		t.Fatalf("get draft: %v", err)
	}
	if loaded.Totals.Total != 10000 {
		t.Fatalf("expected re-derived total 10000, got %d", loaded.Totals.Total)
	}
}

func TestDraftStoreDeleteIsIdempotent(t *testing.T) {
	store, _ := newTestDraftStore(t)
	if err := store.Delete(context.Background(), uuid.New()); err != nil {
		t.Fatalf("delete missing draft: %v", err)
	}
}

func TestDraftStoreSlidingTTL(t *testing.T) {
	store, mr := newTestDraftStore(t)
	ctx := context.Background()

	o := ledger.New()
	if err := store.Put(ctx, o); err != nil {
		t.Fatalf("put draft: %v", err)
	}

	mr.FastForward(30 * time.Minute)
	if err := store.Put(ctx, o); err != nil {
		t.Fatalf("refresh draft: %v", err)
	}
	mr.FastForward(45 * time.Minute)

	if _, err := store.Get(ctx, o.ID); err != nil {
		t.Fatalf("draft expired despite refreshed TTL: %v", err)
	}
}
