package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"partnershib-bot/internal/ledger"
)

type Store interface {
	ListExhausted(ctx context.Context, maxTaps int, from, to time.Time) ([]ledger.Account, error)
}

type Notifier interface {
	RefillReady(ctx context.Context, userID int64) error
}

// Claimer remembers which reminders were already sent.
type Claimer interface {
	Claim(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

// Checker reminds users whose daily taps became available again.
type Checker struct {
	Store    Store
	Dedup    Claimer
	Notifier Notifier
	Policy   ledger.Policy
	Lookback time.Duration
	Logger   *zap.Logger
	Clock    func() time.Time

	cron *cron.Cron
}

func NewChecker(st Store, dedup Claimer, notifier Notifier, policy ledger.Policy, lookback time.Duration, logger *zap.Logger) *Checker {
	return &Checker{
		Store:    st,
		Dedup:    dedup,
		Notifier: notifier,
		Policy:   policy,
		Lookback: lookback,
		Logger:   logger,
		Clock:    time.Now,
	}
}

// Start runs a check immediately and then on schedule until Stop.
func (c *Checker) Start(ctx context.Context, schedule string) error {
	c.cron = cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger)))

	run := func() {
		runCtx, cancel := context.WithTimeout(ctx, time.Minute)
		defer cancel()
		if _, err := c.CheckRefills(runCtx); err != nil {
			c.Logger.Error("Refill check failed", zap.Error(err))
		}
	}

	if _, err := c.cron.AddFunc(schedule, run); err != nil {
		return fmt.Errorf("invalid reminder schedule %q: %w", schedule, err)
	}

	go run()
	c.cron.Start()
	c.Logger.Info("Refill reminder worker started", zap.String("schedule", schedule))
	return nil
}

func (c *Checker) Stop() {
	if c.cron != nil {
		<-c.cron.Stop().Done()
	}
}

// CheckRefills notifies every account whose tap window reopened within the
// last Lookback. It returns the number of reminders sent.
func (c *Checker) CheckRefills(ctx context.Context) (int, error) {
	now := c.Clock().UTC()
	to := now.Add(-c.Policy.TapWindow)
	from := to.Add(-c.Lookback)

	accounts, err := c.Store.ListExhausted(ctx, c.Policy.MaxTapsPerDay, from, to)
	if err != nil {
		return 0, fmt.Errorf("failed to list exhausted accounts: %w", err)
	}

	sent := 0
	for _, acc := range accounts {
		if ctx.Err() != nil {
			return sent, ctx.Err()
		}

		// one reminder per exhausted window
		key := fmt.Sprintf("%d:%d", acc.UserID, acc.TapTimestamp.Unix())
		first, err := c.Dedup.Claim(ctx, key)
		if err != nil {
			c.Logger.Warn("Reminder dedup unavailable, skipping user", zap.Int64("user_id", acc.UserID), zap.Error(err))
			continue
		}
		if !first {
			continue
		}

		if err := c.Notifier.RefillReady(ctx, acc.UserID); err != nil {
			c.Logger.Warn("Failed to send refill reminder", zap.Int64("user_id", acc.UserID), zap.Error(err))
			if err := c.Dedup.Release(ctx, key); err != nil {
				c.Logger.Warn("Failed to release reminder key", zap.String("key", key), zap.Error(err))
			}
			continue
		}
		sent++
	}

	if sent > 0 {
		c.Logger.Info("Refill reminders sent", zap.Int("count", sent))
	}
	return sent, nil
}
