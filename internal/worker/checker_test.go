package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"partnershib-bot/internal/ledger"
)

var now = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

type fakeStore struct {
	accounts []ledger.Account
	from, to time.Time
	maxTaps  int
}

func (f *fakeStore) ListExhausted(_ context.Context, maxTaps int, from, to time.Time) ([]ledger.Account, error) {
	f.maxTaps, f.from, f.to = maxTaps, from, to
	var out []ledger.Account
	for _, acc := range f.accounts {
		if acc.Taps >= maxTaps && !acc.TapTimestamp.Before(from) && acc.TapTimestamp.Before(to) {
			out = append(out, acc)
		}
	}
	return out, nil
}

type fakeClaimer struct {
	mu   sync.Mutex
	keys map[string]bool
}

func (f *fakeClaimer) Claim(_ context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.keys[key] {
		return false, nil
	}
	f.keys[key] = true
	return true, nil
}

func (f *fakeClaimer) Release(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.keys, key)
	return nil
}

type fakeNotifier struct {
	sent []int64
	fail map[int64]bool
}

func (f *fakeNotifier) RefillReady(_ context.Context, userID int64) error {
	if f.fail[userID] {
		return errors.New("blocked")
	}
	f.sent = append(f.sent, userID)
	return nil
}

func newChecker(st *fakeStore, n *fakeNotifier) (*Checker, *fakeClaimer) {
	claims := &fakeClaimer{keys: map[string]bool{}}
	c := NewChecker(st, claims, n, ledger.DefaultPolicy(), time.Hour, zap.NewNop())
	c.Clock = func() time.Time { return now }
	return c, claims
}

func TestChecker_RemindsOnlyReopenedWindows(t *testing.T) {
	st := &fakeStore{accounts: []ledger.Account{
		{UserID: 1, Taps: 10, TapTimestamp: now.Add(-24*time.Hour - 10*time.Minute)}, // reopened 10m ago
		{UserID: 2, Taps: 10, TapTimestamp: now.Add(-23 * time.Hour)},                // still locked
		{UserID: 3, Taps: 10, TapTimestamp: now.Add(-26 * time.Hour)},                // reopened long ago
		{UserID: 4, Taps: 5, TapTimestamp: now.Add(-24*time.Hour - 10*time.Minute)},  // never exhausted
	}}
	n := &fakeNotifier{}
	c, _ := newChecker(st, n)

	sent, err := c.CheckRefills(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, sent)
	assert.Equal(t, []int64{1}, n.sent)
	assert.Equal(t, ledger.MaxTapsPerDay, st.maxTaps)
	assert.Equal(t, now.Add(-25*time.Hour), st.from)
	assert.Equal(t, now.Add(-24*time.Hour), st.to)
}

func TestChecker_DoesNotRepeatReminders(t *testing.T) {
	st := &fakeStore{accounts: []ledger.Account{
		{UserID: 1, Taps: 10, TapTimestamp: now.Add(-24*time.Hour - time.Minute)},
	}}
	n := &fakeNotifier{}
	c, _ := newChecker(st, n)

	for i := 0; i < 3; i++ {
		_, err := c.CheckRefills(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, []int64{1}, n.sent)
}

func TestChecker_RetriesFailedSends(t *testing.T) {
	st := &fakeStore{accounts: []ledger.Account{
		{UserID: 1, Taps: 10, TapTimestamp: now.Add(-24*time.Hour - time.Minute)},
	}}
	n := &fakeNotifier{fail: map[int64]bool{1: true}}
	c, claims := newChecker(st, n)

	sent, err := c.CheckRefills(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sent)
	assert.Empty(t, claims.keys)

	n.fail = nil
	sent, err = c.CheckRefills(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
}

func TestChecker_StartRejectsBadSchedule(t *testing.T) {
	c, _ := newChecker(&fakeStore{}, &fakeNotifier{})
	assert.Error(t, c.Start(context.Background(), "not a schedule"))
}
