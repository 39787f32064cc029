package models

import (
	"time"
)

// Account is a row of the accounts table.
type Account struct {
	UserID          int64   `gorm:"primaryKey;autoIncrement:false"`
	WalletAddress   *string `gorm:"size:42;uniqueIndex:idx_accounts_wallet_address"`
	Taps            int     `gorm:"not null;default:0"`
	MiningPower     int64   `gorm:"not null;default:100"`
	ReferralCode    string  `gorm:"size:32;not null;uniqueIndex:idx_accounts_referral_code"`
	ReferredBy      *string `gorm:"size:32;index"`
	ReferralCount   int     `gorm:"not null;default:0"`
	TapTimestamp    time.Time
	JoinedTelegram  bool  `gorm:"not null;default:false"`
	FollowedTwitter bool  `gorm:"not null;default:false"`
	TokenBalance    int64 `gorm:"not null;default:0"`
	Version         int64 `gorm:"not null;default:1"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
