package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"partnershib-bot/internal/ledger"
	"partnershib-bot/internal/metrics"
	"partnershib-bot/internal/store"
)

// Tap commits the tap on the caller's account first. The referral bonus, if
// any, is credited afterwards under the referrer's own section; a failed
// credit is logged and never undoes the tap.
func (s *Service) Tap(ctx context.Context, userID int64) (TapResult, error) {
	defer observe("tap", time.Now())

	var (
		res   TapResult
		bonus *ledger.Event
	)
	err := s.retry(ctx, "tap", func(ctx context.Context) error {
		res, bonus = TapResult{}, nil
		return s.locks.Do(ctx, userID, func() error {
			acc, err := s.store.GetAccount(ctx, userID)
			if errors.Is(err, store.ErrNotFound) {
				res = TapResult{Outcome: TapRejected, Reason: ledger.ReasonNotRegistered}
				return nil
			}
			if err != nil {
				return err
			}

			next, events := s.engine.Tap(acc, s.now())
			res.Account = acc
			for i := range events {
				switch ev := events[i]; ev.Kind {
				case ledger.EventTapped:
					res.Outcome = Tapped
					res.Reward = ev.Amount
				case ledger.EventTapRejected:
					res.Outcome = TapRejected
					res.Reason = ev.Reason
				case ledger.EventReferralBonus:
					bonus = &ev
				}
			}
			if res.Outcome != Tapped {
				return nil
			}

			saved, err := s.store.UpdateAccount(ctx, next, acc.Version)
			if err != nil {
				return err
			}
			res.Account = saved
			return nil
		})
	})
	if err != nil {
		metrics.TapsTotal.WithLabelValues("error").Inc()
		return TapResult{}, err
	}

	if res.Outcome == TapRejected {
		metrics.TapsTotal.WithLabelValues(res.Reason.String()).Inc()
		return res, nil
	}

	metrics.TapsTotal.WithLabelValues("tapped").Inc()
	metrics.TokensMinted.WithLabelValues("tap").Add(float64(res.Reward))

	if bonus != nil && bonus.Amount > 0 {
		res.Referral = s.creditReferrer(ctx, userID, *bonus)
	}
	return res, nil
}

// creditReferrer applies a ReferralBonus event. It holds only the referrer's
// section, never the referee's.
func (s *Service) creditReferrer(ctx context.Context, refereeID int64, bonus ledger.Event) *ReferralCredit {
	logger := s.logger.With(
		zap.Int64("referee_id", refereeID),
		zap.String("referrer_code", bonus.ReferrerCode),
		zap.Int64("amount", bonus.Amount),
	)

	var credited ledger.Account
	err := s.retry(ctx, "referral_credit", func(ctx context.Context) error {
		referrer, err := s.store.GetAccountByReferralCode(ctx, bonus.ReferrerCode)
		if err != nil {
			return err
		}
		return s.locks.Do(ctx, referrer.UserID, func() error {
			credited, err = s.store.CreditByReferralCode(ctx, bonus.ReferrerCode, bonus.Amount, refereeID)
			return err
		})
	})

	switch {
	case err == nil:
		metrics.ReferralCreditsTotal.WithLabelValues("credited").Inc()
		metrics.TokensMinted.WithLabelValues("referral").Add(float64(bonus.Amount))
		logger.Debug("Referral bonus credited", zap.Int64("referrer_id", credited.UserID))
		return &ReferralCredit{ReferrerID: credited.UserID, Amount: bonus.Amount}
	case errors.Is(err, store.ErrNotFound):
		metrics.ReferralCreditsTotal.WithLabelValues("referrer_not_found").Inc()
		logger.Warn("Referral bonus skipped", zap.Error(ledger.ErrReferrerNotFound))
	default:
		metrics.ReferralCreditsTotal.WithLabelValues("failed").Inc()
		logger.Error("Referral bonus credit failed", zap.Error(err))
	}
	return nil
}
