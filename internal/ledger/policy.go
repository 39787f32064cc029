package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	MaxTapsPerDay           = 10
	TapReward               = 1000
	InitialMiningPower      = 100
	TotalMiningTokens       = 5_000_000_000_000
	BonusTokens             = 500_000
	TelegramTwitterBonus    = 200_000
	MaxReferralUses         = 9
	ReferralBonusPercentage = "0.10"
	TapWindow               = 24 * time.Hour
)

// Policy holds the reward rules. Values are fixed per deployment.
type Policy struct {
	MaxTapsPerDay           int
	TapReward               int64
	InitialMiningPower      int64
	TotalMiningTokens       int64
	BonusTokens             int64
	TelegramTwitterBonus    int64
	MaxReferralUses         int
	ReferralBonusPercentage decimal.Decimal
	TapWindow               time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		MaxTapsPerDay:           MaxTapsPerDay,
		TapReward:               TapReward,
		InitialMiningPower:      InitialMiningPower,
		TotalMiningTokens:       TotalMiningTokens,
		BonusTokens:             BonusTokens,
		TelegramTwitterBonus:    TelegramTwitterBonus,
		MaxReferralUses:         MaxReferralUses,
		ReferralBonusPercentage: decimal.RequireFromString(ReferralBonusPercentage),
		TapWindow:               TapWindow,
	}
}
