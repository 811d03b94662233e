package repository

import (
	"context"
	"errors"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"

	"github.com/maxviazov/youth-hoops-tracker/internal/config"
	"github.com/maxviazov/youth-hoops-tracker/internal/model"
)

// retryStore decorates a StatEventStore with exponential backoff.
// Only ErrUnavailable is retried, and inserts only when the server can dedupe them by ClientRef.
type retryStore struct {
	inner StatEventStore
	cfg   config.RetryConfig
	log   zerolog.Logger
}

// WithRetry wraps store so transient failures are retried with capped, jittered backoff.
// MaxAttempts of one or less disables retries.
func WithRetry(store StatEventStore, cfg config.RetryConfig, logger zerolog.Logger) StatEventStore {
	if cfg.MaxAttempts <= 1 {
		return store
	}
	l := logger.With().Str("module", "repository").Str("component", "retry").Logger()
	return &retryStore{inner: store, cfg: cfg, log: l}
}

func (r *retryStore) Insert(ctx context.Context, in model.StatEventInput) (model.StatEvent, error) {
	if in.ClientRef == "" {
		// without an idempotency key a replay could double-count
		return r.inner.Insert(ctx, in)
	}
	return retry(ctx, r, "insert", func() (model.StatEvent, error) { return r.inner.Insert(ctx, in) })
}

func (r *retryStore) Delete(ctx context.Context, id string) error {
	_, err := retry(ctx, r, "delete", func() (struct{}, error) { return struct{}{}, r.inner.Delete(ctx, id) })
	return err
}

func (r *retryStore) ListByGame(ctx context.Context, gameID int64) ([]model.StatEvent, error) {
	return retry(ctx, r, "list_by_game", func() ([]model.StatEvent, error) { return r.inner.ListByGame(ctx, gameID) })
}

func retry[T any](ctx context.Context, r *retryStore, op string, fn func() (T, error)) (T, error) {
	attempt := 0
	operation := func() (T, error) {
		attempt++
		out, err := fn()
		if err == nil {
			return out, nil
		}
		if !errors.Is(err, ErrUnavailable) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return out, backoff.Permanent(err)
		}
		r.log.Warn().Err(err).Str("op", op).Int("attempt", attempt).Msg("transient store failure")
		return out, err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.cfg.InitialWait
	b.MaxInterval = r.cfg.MaxWait
	b.Multiplier = r.cfg.Multiplier
	b.RandomizationFactor = 0.2

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(r.cfg.MaxAttempts)),
	)
}

var _ StatEventStore = (*retryStore)(nil)
