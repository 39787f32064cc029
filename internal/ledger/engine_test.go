package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestEngine() *Engine {
	return NewEngine(DefaultPolicy())
}

func TestEngine_NewAccount(t *testing.T) {
	e := newTestEngine()

	acc, events := e.NewAccount(42, t0)

	assert.Equal(t, int64(42), acc.UserID)
	assert.Equal(t, int64(BonusTokens), acc.TokenBalance)
	assert.Equal(t, int64(InitialMiningPower), acc.MiningPower)
	assert.Equal(t, 0, acc.Taps)
	assert.Equal(t, t0, acc.TapTimestamp)
	assert.Equal(t, "ref_42", acc.ReferralCode)
	assert.False(t, acc.HasWallet())
	assert.False(t, acc.IsReferred())

	require.Len(t, events, 1)
	assert.Equal(t, EventRegistered, events[0].Kind)
	assert.Equal(t, int64(BonusTokens), events[0].Amount)
}

func TestEngine_TenTapsThenRejected(t *testing.T) {
	e := newTestEngine()
	acc, _ := e.NewAccount(1, t0)
	acc.TokenBalance = 0

	now := t0
	for i := 0; i < MaxTapsPerDay; i++ {
		now = now.Add(time.Minute)
		var events []Event
		acc, events = e.Tap(acc, now)
		require.Len(t, events, 1)
		require.Equal(t, EventTapped, events[0].Kind)
		assert.Equal(t, int64(TapReward*InitialMiningPower), events[0].Amount)
	}

	assert.Equal(t, MaxTapsPerDay, acc.Taps)
	assert.Equal(t, int64(1_000_000), acc.TokenBalance)

	before := acc
	acc, events := e.Tap(acc, now.Add(time.Hour))
	require.Len(t, events, 1)
	assert.Equal(t, EventTapRejected, events[0].Kind)
	assert.Equal(t, ReasonDailyLimitReached, events[0].Reason)
	assert.Equal(t, before, acc)
}

func TestEngine_WindowRollover(t *testing.T) {
	e := newTestEngine()
	acc, _ := e.NewAccount(1, t0)
	acc.Taps = MaxTapsPerDay
	acc.TapTimestamp = t0

	ok, reason := e.CanTap(acc, t0.Add(TapWindow))
	assert.False(t, ok, "exactly 24h is still inside the window")
	assert.Equal(t, ReasonDailyLimitReached, reason)

	now := t0.Add(TapWindow + time.Second)
	next, events := e.Tap(acc, now)
	require.Equal(t, EventTapped, events[0].Kind)
	assert.Equal(t, 1, next.Taps)
	assert.Equal(t, now, next.TapTimestamp)
	assert.Equal(t, acc.TokenBalance+TapReward*InitialMiningPower, next.TokenBalance)
}

func TestEngine_ExpiredWindowResetsPartialCount(t *testing.T) {
	e := newTestEngine()
	acc, _ := e.NewAccount(1, t0)
	acc.Taps = 4

	next, _ := e.Tap(acc, t0.Add(48*time.Hour))
	assert.Equal(t, 1, next.Taps)
}

func TestEngine_TapRewardScalesWithMiningPower(t *testing.T) {
	e := newTestEngine()
	acc, _ := e.NewAccount(1, t0)
	acc.MiningPower = 250

	next, events := e.Tap(acc, t0.Add(time.Second))
	assert.Equal(t, int64(250_000), events[0].Amount)
	assert.Equal(t, acc.TokenBalance+250_000, next.TokenBalance)
}

func TestEngine_TapEmitsReferralBonus(t *testing.T) {
	e := newTestEngine()
	acc, _ := e.NewAccount(2, t0)
	acc.ReferredBy = "ref_1"

	_, events := e.Tap(acc, t0.Add(time.Second))
	require.Len(t, events, 2)
	assert.Equal(t, EventReferralBonus, events[1].Kind)
	assert.Equal(t, "ref_1", events[1].ReferrerCode)
	assert.Equal(t, int64(10_000), events[1].Amount)
}

func TestEngine_ReferralBonusRounding(t *testing.T) {
	p := DefaultPolicy()
	p.ReferralBonusPercentage = decimal.RequireFromString("0.15")
	e := NewEngine(p)

	assert.Equal(t, int64(2), e.ReferralBonus(13))  // 1.95
	assert.Equal(t, int64(2), e.ReferralBonus(10))  // 1.5 rounds up
	assert.Equal(t, int64(1), e.ReferralBonus(9))   // 1.35
	assert.Equal(t, int64(0), e.ReferralBonus(0))
	assert.Equal(t, int64(15_000), e.ReferralBonus(100_000))
}

func TestEngine_SupplyExhausted(t *testing.T) {
	e := newTestEngine()
	acc, _ := e.NewAccount(1, t0)
	acc.TokenBalance = TotalMiningTokens - 1

	next, events := e.Tap(acc, t0.Add(time.Second))
	require.Len(t, events, 1)
	assert.Equal(t, ReasonSupplyExhausted, events[0].Reason)
	assert.Equal(t, acc, next)

	acc.TokenBalance = 0
	acc.MiningPower = 1 << 60
	_, events = e.Tap(acc, t0.Add(time.Second))
	assert.Equal(t, ReasonSupplyExhausted, events[0].Reason)
}

func TestEngine_BindWallet(t *testing.T) {
	e := newTestEngine()
	acc, _ := e.NewAccount(1, t0)

	next, events := e.BindWallet(acc, "0x52908400098527886E0F7030069857D2E4169EE7")
	assert.True(t, next.HasWallet())
	assert.Equal(t, acc.TokenBalance, next.TokenBalance)
	require.Len(t, events, 1)
	assert.Equal(t, EventWalletBound, events[0].Kind)
}

func TestEngine_ApplyReferral(t *testing.T) {
	e := newTestEngine()
	referrer, _ := e.NewAccount(1, t0)
	acc, _ := e.NewAccount(2, t0)

	t.Run("self", func(t *testing.T) {
		_, _, err := e.ApplyReferral(referrer, referrer)
		assert.ErrorIs(t, err, ErrSelfReferral)
	})

	t.Run("limit", func(t *testing.T) {
		full := referrer
		full.ReferralCount = MaxReferralUses
		_, _, err := e.ApplyReferral(acc, full)
		assert.ErrorIs(t, err, ErrReferralLimit)
	})

	t.Run("already referred", func(t *testing.T) {
		referred := acc
		referred.ReferredBy = "ref_9"
		_, _, err := e.ApplyReferral(referred, referrer)
		assert.ErrorIs(t, err, ErrAlreadyReferred)
	})

	t.Run("ok", func(t *testing.T) {
		next, events, err := e.ApplyReferral(acc, referrer)
		require.NoError(t, err)
		assert.Equal(t, "ref_1", next.ReferredBy)
		require.Len(t, events, 1)
		assert.Equal(t, EventReferralApplied, events[0].Kind)
	})
}

func TestEngine_Dashboard(t *testing.T) {
	e := newTestEngine()
	acc, _ := e.NewAccount(1, t0)
	acc.Taps = 3

	d := e.Dashboard(acc, t0.Add(time.Hour))
	assert.Equal(t, MaxTapsPerDay-3, d.TapsRemaining)
	assert.True(t, d.NextRefill.IsZero())

	acc.Taps = MaxTapsPerDay
	d = e.Dashboard(acc, t0.Add(time.Hour))
	assert.Equal(t, 0, d.TapsRemaining)
	assert.Equal(t, t0.Add(TapWindow), d.NextRefill)

	d = e.Dashboard(acc, t0.Add(25*time.Hour))
	assert.Equal(t, MaxTapsPerDay, d.TapsRemaining)
}

func TestIsReferralCode(t *testing.T) {
	assert.True(t, IsReferralCode("ref_12"))
	assert.False(t, IsReferralCode("ref_"))
	assert.False(t, IsReferralCode("hello"))
}
