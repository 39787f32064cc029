package ledger

import (
	"fmt"
	"time"
)

// Account is the ledger's view of a registered user.
type Account struct {
	UserID          int64
	WalletAddress   string
	Taps            int
	MiningPower     int64
	ReferralCode    string
	ReferredBy      string
	ReferralCount   int
	TapTimestamp    time.Time
	JoinedTelegram  bool
	FollowedTwitter bool
	TokenBalance    int64
	Version         int64
}

func (a Account) HasWallet() bool {
	return a.WalletAddress != ""
}

func (a Account) IsReferred() bool {
	return a.ReferredBy != ""
}

// ReferralCodeFor derives the public referral code of a user.
func ReferralCodeFor(userID int64) string {
	return fmt.Sprintf("ref_%d", userID)
}
