package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shashiranjanraj/giftkart/pkg/apperr"
	"github.com/shashiranjanraj/giftkart/pkg/cache"
	"github.com/shashiranjanraj/giftkart/pkg/logger"
)

const (
	idempotencyTTL    = 24 * time.Hour
	maxIdempotencyKey = 128
)

// Replay is a stored response for a repeated Idempotency-Key.
type Replay struct {
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body,omitempty"`
	Done   bool            `json:"done"`
}

// Idempotency remembers the first successful response per (user, key).
// Without redis every request runs normally.
type Idempotency struct {
	store *cache.Store
	ttl   time.Duration
}

func NewIdempotency(store *cache.Store) *Idempotency {
	return &Idempotency{store: store, ttl: idempotencyTTL}
}

func idempotencyKey(userID uint, key string) string {
	return fmt.Sprintf("idem:%d:%s", userID, key)
}

// Begin claims key for userID. It returns a non-nil Replay when a finished
// response is already stored, and Conflict while the first request is
// still running. ok is false when no claim was taken and the caller must not
// call Complete or Abort.
func (i *Idempotency) Begin(ctx context.Context, userID uint, key string) (replay *Replay, ok bool, err error) {
	key = strings.TrimSpace(key)
	if key == "" || !i.store.Enabled() {
		return nil, false, nil
	}
	if len(key) > maxIdempotencyKey {
		return nil, false, apperr.Validation("Idempotency-Key must be at most %d characters", maxIdempotencyKey)
	}

	k := idempotencyKey(userID, key)
	claimed, err := i.store.SetNX(ctx, k, Replay{}, i.ttl)
	if err != nil {
		// Redis trouble must not block checkout.
		logger.WithCtx(ctx).Warn("idempotency: claim failed", "error", err)
		return nil, false, nil
	}
	if claimed {
		return nil, true, nil
	}

	var prev Replay
	if i.store.Get(ctx, k, &prev) && prev.Done {
		return &prev, false, nil
	}
	return nil, false, apperr.Conflict("A request with this Idempotency-Key is already in progress")
}

// Complete stores the response so retries replay it.
func (i *Idempotency) Complete(ctx context.Context, userID uint, key string, status int, body any) {
	raw, err := json.Marshal(body)
	if err == nil {
		err = i.store.Set(ctx, idempotencyKey(userID, strings.TrimSpace(key)), Replay{Status: status, Body: raw, Done: true}, i.ttl)
	}
	if err != nil {
		logger.WithCtx(ctx).Warn("idempotency: store failed", "error", err)
	}
}

// Abort releases the claim after a failed request so the client may retry.
func (i *Idempotency) Abort(ctx context.Context, userID uint, key string) {
	if err := i.store.Del(ctx, idempotencyKey(userID, strings.TrimSpace(key))); err != nil {
		logger.WithCtx(ctx).Warn("idempotency: release failed", "error", err)
	}
}
