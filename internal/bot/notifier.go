package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	"go.uber.org/zap"

	"partnershib-bot/internal/metrics"
)

// Sender is the part of *telego.Bot used for outbound messages.
type Sender interface {
	SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error)
}

// Notifier delivers messages the user didn't ask for. Referral notices go
// through a bounded, non-blocking worker pool: when its queue is full the
// notice is dropped and logged instead of holding up the tap.
type Notifier struct {
	sender  Sender
	pool    pond.Pool
	logger  *zap.Logger
	timeout time.Duration
}

func NewNotifier(sender Sender, workers int, logger *zap.Logger) *Notifier {
	return &Notifier{
		sender:  sender,
		pool:    pond.NewPool(workers, pond.WithQueueSize(workers*64), pond.WithNonBlocking(true)),
		logger:  logger,
		timeout: 10 * time.Second,
	}
}

// ReferralBonus queues a notice to the referrer.
func (n *Notifier) ReferralBonus(referrerID, amount int64) {
	err := n.pool.Go(func() {
		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		defer cancel()

		if err := n.send(ctx, "referral_bonus", referrerID, RenderReferralNotice(amount)); err != nil {
			n.logger.Warn("Failed to notify referrer",
				zap.Int64("referrer_id", referrerID),
				zap.Error(err))
		}
	})
	if err != nil {
		metrics.NotificationsTotal.WithLabelValues("referral_bonus", "dropped").Inc()
		n.logger.Warn("Referral notice dropped",
			zap.Int64("referrer_id", referrerID),
			zap.Error(err))
	}
}

// RefillReady tells userID that taps are available again. It is synchronous
// so the caller can decide whether to retry.
func (n *Notifier) RefillReady(ctx context.Context, userID int64) error {
	return n.send(ctx, "refill", userID, RenderRefillReminder())
}

func (n *Notifier) send(ctx context.Context, kind string, userID int64, text string) error {
	msg := tu.Message(tu.ID(userID), text)
	if kind == "refill" {
		msg = msg.WithReplyMarkup(tapAgain())
	}

	if _, err := n.sender.SendMessage(ctx, msg); err != nil {
		metrics.NotificationsTotal.WithLabelValues(kind, "failed").Inc()
		return fmt.Errorf("send %s notification to %d: %w", kind, userID, err)
	}
	metrics.NotificationsTotal.WithLabelValues(kind, "sent").Inc()
	return nil
}

// Stop waits for queued notices to be delivered.
func (n *Notifier) Stop() {
	n.pool.StopAndWait()
}
