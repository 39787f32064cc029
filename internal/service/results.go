package service

import (
	"partnershib-bot/internal/ledger"
)

var _ Ledger = (*Service)(nil)

// ReferralStatus describes what happened to a referral code supplied at registration.
type ReferralStatus int

const (
	ReferralNone ReferralStatus = iota
	ReferralApplied
	ReferralUnknownCode
	ReferralSelf
	ReferralLimitReached
	// ReferralIgnored means the account already existed; referred_by never changes after registration.
	ReferralIgnored
)

func (s ReferralStatus) String() string {
	switch s {
	case ReferralApplied:
		return "applied"
	case ReferralUnknownCode:
		return "unknown_code"
	case ReferralSelf:
		return "self"
	case ReferralLimitReached:
		return "limit_reached"
	case ReferralIgnored:
		return "ignored"
	default:
		return "none"
	}
}

type RegisterResult struct {
	Created  bool
	Account  ledger.Account
	Referral ReferralStatus
}

type BindOutcome int

const (
	WalletBound BindOutcome = iota + 1
	DuplicateWallet
)

func (o BindOutcome) String() string {
	switch o {
	case WalletBound:
		return "wallet_bound"
	case DuplicateWallet:
		return "duplicate_wallet"
	default:
		return "unknown"
	}
}

type BindResult struct {
	Outcome BindOutcome
	// Created is set when the bind registered the account implicitly.
	Created bool
	Account ledger.Account
}

type TapOutcome int

const (
	Tapped TapOutcome = iota + 1
	TapRejected
)

// ReferralCredit is the referrer side of a successful tap.
type ReferralCredit struct {
	ReferrerID int64
	Amount     int64
}

type TapResult struct {
	Outcome TapOutcome
	Reward  int64
	Reason  ledger.RejectReason
	// Account is the snapshot after the tap (or unchanged on rejection; zero if not registered).
	Account ledger.Account
	// Referral is nil when the account has no referrer or the credit could not be applied.
	Referral *ReferralCredit
}

type DashboardResult struct {
	Registered bool
	Dashboard  ledger.Dashboard
}

type ReferralInfo struct {
	Registered bool
	Code       string
	Count      int
	MaxUses    int
	Earned     int64
}
