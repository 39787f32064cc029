// Package ledger holds the tap-to-earn reward rules. Everything here is pure:
// functions take an account snapshot and the current time and return the next
// snapshot plus the events the transition produced. Persistence and locking
// live in the store and coordinator packages.
package ledger

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Engine struct {
	policy Policy
}

func NewEngine(policy Policy) *Engine {
	return &Engine{policy: policy}
}

func (e *Engine) Policy() Policy {
	return e.policy
}

// NewAccount returns the snapshot of a freshly registered user: the welcome
// bonus on the balance and an empty tap window opened at now.
func (e *Engine) NewAccount(userID int64, now time.Time) (Account, []Event) {
	acc := Account{
		UserID:       userID,
		MiningPower:  e.policy.InitialMiningPower,
		ReferralCode: ReferralCodeFor(userID),
		TapTimestamp: now.UTC(),
		TokenBalance: e.policy.BonusTokens,
	}
	return acc, []Event{{Kind: EventRegistered, UserID: userID, Amount: e.policy.BonusTokens}}
}

// BindWallet sets the wallet on the snapshot. Uniqueness across accounts is
// enforced by the store.
func (e *Engine) BindWallet(acc Account, address string) (Account, []Event) {
	acc.WalletAddress = address
	return acc, []Event{{Kind: EventWalletBound, UserID: acc.UserID, Wallet: address}}
}

func (e *Engine) windowExpired(acc Account, now time.Time) bool {
	return now.Sub(acc.TapTimestamp) > e.policy.TapWindow
}

// CanTap reports whether a tap at now is allowed and, if not, why.
func (e *Engine) CanTap(acc Account, now time.Time) (bool, RejectReason) {
	if acc.Taps >= e.policy.MaxTapsPerDay && !e.windowExpired(acc, now) {
		return false, ReasonDailyLimitReached
	}
	reward, ok := e.reward(acc)
	if !ok || acc.TokenBalance > e.policy.TotalMiningTokens-reward {
		return false, ReasonSupplyExhausted
	}
	return true, ReasonNone
}

// reward is TapReward * MiningPower. ok is false when the product cannot fit
// under the total supply.
func (e *Engine) reward(acc Account) (int64, bool) {
	if acc.MiningPower <= 0 || e.policy.TapReward <= 0 {
		return 0, true
	}
	if acc.MiningPower > e.policy.TotalMiningTokens/e.policy.TapReward {
		return 0, false
	}
	return e.policy.TapReward * acc.MiningPower, true
}

// Tap applies one tap. A rejected tap returns the snapshot unchanged with a
// single TapRejected event. An accepted tap on a referred account also emits a
// ReferralBonus event; the caller credits the referrer separately.
func (e *Engine) Tap(acc Account, now time.Time) (Account, []Event) {
	ok, reason := e.CanTap(acc, now)
	if !ok {
		return acc, []Event{{Kind: EventTapRejected, UserID: acc.UserID, Reason: reason}}
	}

	if e.windowExpired(acc, now) {
		acc.Taps = 1
	} else {
		acc.Taps++
	}

	reward, _ := e.reward(acc)
	acc.TokenBalance += reward
	acc.TapTimestamp = now.UTC()

	events := []Event{{Kind: EventTapped, UserID: acc.UserID, Amount: reward}}
	if acc.IsReferred() {
		events = append(events, Event{
			Kind:         EventReferralBonus,
			UserID:       acc.UserID,
			Amount:       e.ReferralBonus(reward),
			ReferrerCode: acc.ReferredBy,
		})
	}
	return acc, events
}

// ReferralBonus is reward * ReferralBonusPercentage rounded half up to whole tokens.
func (e *Engine) ReferralBonus(reward int64) int64 {
	return decimal.NewFromInt(reward).Mul(e.policy.ReferralBonusPercentage).Round(0).IntPart()
}

// ApplyReferral links acc to referrer. referred_by is immutable, so an account
// that already has a referrer is rejected.
func (e *Engine) ApplyReferral(acc, referrer Account) (Account, []Event, error) {
	switch {
	case acc.UserID == referrer.UserID:
		return acc, nil, ErrSelfReferral
	case acc.IsReferred():
		return acc, nil, ErrAlreadyReferred
	case referrer.ReferralCount >= e.policy.MaxReferralUses:
		return acc, nil, ErrReferralLimit
	}

	acc.ReferredBy = referrer.ReferralCode
	return acc, []Event{{Kind: EventReferralApplied, UserID: acc.UserID, ReferrerCode: referrer.ReferralCode}}, nil
}

// Dashboard is the read-only projection shown to the user.
type Dashboard struct {
	UserID          int64
	WalletAddress   string
	MiningPower     int64
	TokenBalance    int64
	ReferralCode    string
	ReferralCount   int
	JoinedTelegram  bool
	FollowedTwitter bool
	TapsRemaining   int
	// NextRefill is zero while taps remain in the current window.
	NextRefill time.Time
}

func (e *Engine) Dashboard(acc Account, now time.Time) Dashboard {
	d := Dashboard{
		UserID:          acc.UserID,
		WalletAddress:   acc.WalletAddress,
		MiningPower:     acc.MiningPower,
		TokenBalance:    acc.TokenBalance,
		ReferralCode:    acc.ReferralCode,
		ReferralCount:   acc.ReferralCount,
		JoinedTelegram:  acc.JoinedTelegram,
		FollowedTwitter: acc.FollowedTwitter,
	}

	switch {
	case e.windowExpired(acc, now):
		d.TapsRemaining = e.policy.MaxTapsPerDay
	case acc.Taps < e.policy.MaxTapsPerDay:
		d.TapsRemaining = e.policy.MaxTapsPerDay - acc.Taps
	default:
		d.NextRefill = acc.TapTimestamp.Add(e.policy.TapWindow)
	}
	return d
}

// IsReferralCode reports whether s looks like a code produced by ReferralCodeFor.
func IsReferralCode(s string) bool {
	return strings.HasPrefix(s, "ref_") && len(s) > len("ref_")
}
