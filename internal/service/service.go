// Package service is the entry point the chat adapter talks to. Every
// mutating call runs inside the account's coordinator section, loads a fresh
// snapshot, asks the ledger engine for the transition and writes it back with
// a version check. Conflicts and store faults are retried a bounded number of
// times before surfacing as ledger.ErrUnavailable.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"partnershib-bot/internal/coordinator"
	"partnershib-bot/internal/ledger"
	"partnershib-bot/internal/metrics"
	"partnershib-bot/internal/store"
)

// Ledger is the core-facing interface used by the chat adapter.
type Ledger interface {
	RegisterOrSkip(ctx context.Context, userID int64) (RegisterResult, error)
	RegisterWithReferral(ctx context.Context, userID int64, code string) (RegisterResult, error)
	BindWallet(ctx context.Context, userID int64, address string) (BindResult, error)
	Tap(ctx context.Context, userID int64) (TapResult, error)
	Dashboard(ctx context.Context, userID int64) (DashboardResult, error)
	ReferralInfo(ctx context.Context, userID int64) (ReferralInfo, error)
}

type Options struct {
	// StoreTimeout bounds a single attempt, lock wait included.
	StoreTimeout   time.Duration
	MaxRetries     uint64
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Clock          func() time.Time
}

func DefaultOptions() Options {
	return Options{
		StoreTimeout:   5 * time.Second,
		MaxRetries:     3,
		InitialBackoff: 50 * time.Millisecond,
		MaxBackoff:     time.Second,
		Clock:          time.Now,
	}
}

type Service struct {
	store  store.Store
	engine *ledger.Engine
	locks  *coordinator.Coordinator
	logger *zap.Logger
	opts   Options
}

func New(st store.Store, engine *ledger.Engine, locks *coordinator.Coordinator, logger *zap.Logger, opts Options) *Service {
	defaults := DefaultOptions()
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = defaults.StoreTimeout
	}
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = defaults.InitialBackoff
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = defaults.MaxBackoff
	}
	if opts.Clock == nil {
		opts.Clock = defaults.Clock
	}

	return &Service{
		store:  st,
		engine: engine,
		locks:  locks,
		logger: logger,
		opts:   opts,
	}
}

func (s *Service) now() time.Time {
	return s.opts.Clock().UTC()
}

func retryable(err error) bool {
	return errors.Is(err, ledger.ErrConflict) || errors.Is(err, ledger.ErrUnavailable)
}

// retry runs fn until it succeeds, fails permanently, or MaxRetries is spent.
// Every attempt gets its own StoreTimeout deadline.
func (s *Service) retry(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.opts.InitialBackoff
	b.MaxInterval = s.opts.MaxBackoff
	b.MaxElapsedTime = 0

	attempt := 0
	err := backoff.Retry(func() error {
		if attempt > 0 {
			metrics.StoreRetries.WithLabelValues(op).Inc()
		}
		attempt++

		attemptCtx, cancel := context.WithTimeout(ctx, s.opts.StoreTimeout)
		defer cancel()

		err := fn(attemptCtx)
		if err == nil || retryable(err) {
			return err
		}
		return backoff.Permanent(err)
	}, backoff.WithContext(backoff.WithMaxRetries(b, s.opts.MaxRetries), ctx))

	switch {
	case err == nil:
		return nil
	case errors.Is(err, ledger.ErrUnavailable):
		return err
	case errors.Is(err, ledger.ErrConflict),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %s gave up after %d attempts: %w", ledger.ErrUnavailable, op, attempt, err)
	default:
		return err
	}
}

func observe(op string, start time.Time) {
	metrics.OperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
