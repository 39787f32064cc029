package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const serviceName = "LedgerService"

// logService wraps Ledger with logging of every call.
type logService struct {
	svc    Ledger
	logger *zap.Logger
}

// NewLog creates a logging decorator for the Ledger. Each call gets an op_id
// so the entry and exit lines can be correlated.
func NewLog(svc Ledger, logger *zap.Logger) Ledger {
	return &logService{
		svc:    svc,
		logger: logger,
	}
}

func (ls *logService) begin(method string, userID int64) (*zap.Logger, time.Time) {
	logger := ls.logger.With(
		zap.String("service", serviceName),
		zap.String("method", method),
		zap.String("op_id", uuid.NewString()),
		zap.Int64("user_id", userID),
	)
	logger.Debug(method + " started")
	return logger, time.Now()
}

func (ls *logService) end(logger *zap.Logger, method string, start time.Time, err error, fields ...zap.Field) {
	fields = append(fields, zap.Duration("duration", time.Since(start)))
	if err != nil {
		logger.Error(method+" failed", append(fields, zap.Error(err))...)
		return
	}
	logger.Info(method+" completed", fields...)
}

func (ls *logService) RegisterOrSkip(ctx context.Context, userID int64) (res RegisterResult, err error) {
	logger, start := ls.begin("RegisterOrSkip", userID)
	defer func() {
		ls.end(logger, "RegisterOrSkip", start, err, zap.Bool("created", res.Created))
	}()

	return ls.svc.RegisterOrSkip(ctx, userID)
}

func (ls *logService) RegisterWithReferral(ctx context.Context, userID int64, code string) (res RegisterResult, err error) {
	logger, start := ls.begin("RegisterWithReferral", userID)
	defer func() {
		ls.end(logger, "RegisterWithReferral", start, err,
			zap.Bool("created", res.Created),
			zap.String("referral_code", code),
			zap.Stringer("referral", res.Referral))
	}()

	return ls.svc.RegisterWithReferral(ctx, userID, code)
}

func (ls *logService) BindWallet(ctx context.Context, userID int64, address string) (res BindResult, err error) {
	logger, start := ls.begin("BindWallet", userID)
	defer func() {
		ls.end(logger, "BindWallet", start, err,
			zap.String("wallet", address),
			zap.Stringer("outcome", res.Outcome),
			zap.Bool("created", res.Created))
	}()

	return ls.svc.BindWallet(ctx, userID, address)
}

func (ls *logService) Tap(ctx context.Context, userID int64) (res TapResult, err error) {
	logger, start := ls.begin("Tap", userID)
	defer func() {
		fields := []zap.Field{
			zap.Int64("reward", res.Reward),
			zap.Int("taps", res.Account.Taps),
		}
		if res.Outcome == TapRejected {
			fields = append(fields, zap.Stringer("rejected", res.Reason))
		}
		if res.Referral != nil {
			fields = append(fields,
				zap.Int64("referrer_id", res.Referral.ReferrerID),
				zap.Int64("referral_bonus", res.Referral.Amount))
		}
		ls.end(logger, "Tap", start, err, fields...)
	}()

	return ls.svc.Tap(ctx, userID)
}

func (ls *logService) Dashboard(ctx context.Context, userID int64) (res DashboardResult, err error) {
	logger, start := ls.begin("Dashboard", userID)
	defer func() {
		ls.end(logger, "Dashboard", start, err, zap.Bool("registered", res.Registered))
	}()

	return ls.svc.Dashboard(ctx, userID)
}

func (ls *logService) ReferralInfo(ctx context.Context, userID int64) (res ReferralInfo, err error) {
	logger, start := ls.begin("ReferralInfo", userID)
	defer func() {
		ls.end(logger, "ReferralInfo", start, err, zap.Int("referral_count", res.Count))
	}()

	return ls.svc.ReferralInfo(ctx, userID)
}
