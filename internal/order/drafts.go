package order

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/backend-pos/internal/ledger"
	"github.com/noah-isme/backend-pos/internal/obs"
)

// ErrDraftNotFound indicates the draft has expired or never existed.
var ErrDraftNotFound = errors.New("order: draft not found")

// DraftStore keeps active order drafts in Redis. A draft belongs to a single
// editing session and disappears after the TTL; the TTL slides on every write
// so an active editor never loses work mid-session.
type DraftStore struct {
	R   *redis.Client
	TTL time.Duration
}

func draftKey(id uuid.UUID) string {
	return "order:draft:" + id.String()
}

func (s *DraftStore) ttl() time.Duration {
	if s == nil || s.TTL <= 0 {
		return 24 * time.Hour
	}
	return s.TTL
}

// Put serialises the draft and stores it with a fresh TTL.
func (s *DraftStore) Put(ctx context.Context, o *ledger.Order) error {
	if s == nil || s.R == nil {
		return errors.New("draft store not configured")
	}
	data, err := json.Marshal(o)
	if err != nil {
		return err
	}
	return s.R.Set(ctx, draftKey(o.ID), data, s.ttl()).Err()
}

// Get loads a draft. Totals are re-derived on every load so a tampered or
// stale serialised snapshot can never reach a caller.
func (s *DraftStore) Get(ctx context.Context, id uuid.UUID) (*ledger.Order, error) {
	if s == nil || s.R == nil {
		return nil, errors.New("draft store not configured")
	}
	data, err := s.R.Get(ctx, draftKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrDraftNotFound
		}
		return nil, err
	}
	var o ledger.Order
	if err := json.Unmarshal(data, &o); err != nil {
		return nil, err
	}
	start := time.Now()
	o.Totals = ledger.Recompute(o)
	if obs.RecomputeDuration != nil {
		obs.RecomputeDuration.Observe(time.Since(start).Seconds())
	}
	return &o, nil
}

// Delete discards a draft. Missing drafts are not an error.
func (s *DraftStore) Delete(ctx context.Context, id uuid.UUID) error {
	if s == nil || s.R == nil {
		return errors.New("draft store not configured")
	}
	return s.R.Del(ctx, draftKey(id)).Err()
}
