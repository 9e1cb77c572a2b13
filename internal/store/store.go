// Package store wraps the shared gorm handle with the atomic-unit primitive
// every multi-step mutation runs through.
package store

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"time"

	"viktor/internal/observability"

	"gorm.io/gorm"
)

// RetryPolicy bounds how often a contended atomic unit is re-run.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// DefaultRetryPolicy is used when no policy is configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 5,
		BaseDelay:  10 * time.Millisecond,
		MaxDelay:   500 * time.Millisecond,
	}
}

// Backoff returns the jittered delay before retry number attempt (0-based):
// exponential growth from BaseDelay, capped at MaxDelay, scaled into [d/2, d].
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if p.BaseDelay <= 0 {
		return 0
	}
	d := p.BaseDelay << uint(min(attempt, 16))
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	half := d / 2
	return half + time.Duration(rand.Int63n(int64(half)+1))
}

// Store is the transactional resource shared by all repositories.
type Store struct {
	db    *gorm.DB
	retry RetryPolicy
	now   func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithRetryPolicy overrides the contention retry policy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(s *Store) { s.retry = p }
}

// WithClock overrides the time source used for createdDate/sentDate.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New returns a Store over db.
func New(db *gorm.DB, opts ...Option) *Store {
	s := &Store{
		db:    db,
		retry: DefaultRetryPolicy(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DB returns the handle for single-statement reads and writes.
func (s *Store) DB(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

// Now returns the current time in UTC.
func (s *Store) Now() time.Time {
	return s.now().UTC()
}

type txOptions struct {
	retryOnConflict bool
}

// TxOption tunes a single Atomic call.
type TxOption func(*txOptions)

// RetryOnConflict re-runs the unit when the driver reports a unique
// violation, for units that resolve such races by re-reading.
func RetryOnConflict() TxOption {
	return func(o *txOptions) { o.retryOnConflict = true }
}

// Atomic runs fn inside one transaction. All reads and writes inside fn must
// go through tx. Contention failures re-run the whole unit under the retry
// policy; the final error is classified into the models error taxonomy.
func (s *Store) Atomic(ctx context.Context, op string, fn func(tx *gorm.DB) error, opts ...TxOption) error {
	var o txOptions
	for _, opt := range opts {
		opt(&o)
	}

	for attempt := 0; ; attempt++ {
		err := s.db.WithContext(ctx).Transaction(fn)
		if err == nil {
			return nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return Classify(errors.Join(ctxErr, err))
		}

		retryable := IsContention(err) || (o.retryOnConflict && IsUniqueViolation(err))
		if !retryable || attempt >= s.retry.MaxRetries {
			if retryable {
				observability.GlobalLogger.ErrorContext(ctx, "atomic unit gave up after retries",
					slog.String("operation", op),
					slog.Int("attempts", attempt+1),
					slog.String("error", err.Error()),
				)
			}
			return Classify(err)
		}

		observability.TxRetries.WithLabelValues(op).Inc()
		observability.GlobalLogger.DebugContext(ctx, "retrying atomic unit",
			slog.String("operation", op),
			slog.Int("attempt", attempt+1),
			slog.String("error", err.Error()),
		)

		timer := time.NewTimer(s.retry.Backoff(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return Classify(errors.Join(ctx.Err(), err))
		case <-timer.C:
		}
	}
}
