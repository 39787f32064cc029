package models

import (
	"time"
)

// ReferralCredit records one referral bonus paid to a referrer.
type ReferralCredit struct {
	ID         uint  `gorm:"primaryKey"`
	ReferrerID int64 `gorm:"not null;index"`
	RefereeID  int64 `gorm:"not null;index"`
	Amount     int64 `gorm:"not null"`
	CreatedAt  time.Time
}
