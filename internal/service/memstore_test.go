package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"partnershib-bot/internal/ledger"
	"partnershib-bot/internal/store"
)

// memStore is an in-memory store.Store with the same version and uniqueness
// rules as the postgres store. The hook fields inject faults before the real
// operation runs; returning a non-nil error short-circuits it.
type memStore struct {
	mu       sync.Mutex
	accounts map[int64]ledger.Account
	credits  map[int64]int64

	BeforeCreate func(ctx context.Context, acc ledger.Account) error
	BeforeUpdate func(acc ledger.Account) error
	BeforeCredit func(code string) error
	BeforeGet    func(userID int64) error
}

var _ store.Store = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{
		accounts: make(map[int64]ledger.Account),
		credits:  make(map[int64]int64),
	}
}

func (m *memStore) put(acc ledger.Account) ledger.Account {
	m.mu.Lock()
	defer m.mu.Unlock()
	if acc.Version == 0 {
		acc.Version = 1
	}
	m.accounts[acc.UserID] = acc
	return acc
}

func (m *memStore) get(userID int64) ledger.Account {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.accounts[userID]
}

func (m *memStore) byCode(code string) (ledger.Account, bool) {
	for _, acc := range m.accounts {
		if acc.ReferralCode == code {
			return acc, true
		}
	}
	return ledger.Account{}, false
}

func (m *memStore) GetAccount(_ context.Context, userID int64) (ledger.Account, error) {
	if m.BeforeGet != nil {
		if err := m.BeforeGet(userID); err != nil {
			return ledger.Account{}, err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.accounts[userID]
	if !ok {
		return ledger.Account{}, store.ErrNotFound
	}
	return acc, nil
}

func (m *memStore) GetAccountByReferralCode(_ context.Context, code string) (ledger.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.byCode(code)
	if !ok {
		return ledger.Account{}, store.ErrNotFound
	}
	return acc, nil
}

func (m *memStore) CreateAccount(ctx context.Context, acc ledger.Account) (ledger.Account, error) {
	if m.BeforeCreate != nil {
		if err := m.BeforeCreate(ctx, acc); err != nil {
			return ledger.Account{}, err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insert(acc)
}

// insert must be called with mu held.
func (m *memStore) insert(acc ledger.Account) (ledger.Account, error) {
	if _, ok := m.accounts[acc.UserID]; ok {
		return ledger.Account{}, ledger.ErrAlreadyExists
	}
	if acc.WalletAddress != "" {
		for _, other := range m.accounts {
			if other.WalletAddress == acc.WalletAddress {
				return ledger.Account{}, ledger.ErrDuplicateWallet
			}
		}
	}
	acc.Version = 1
	m.accounts[acc.UserID] = acc
	return acc, nil
}

func (m *memStore) UpdateAccount(_ context.Context, acc ledger.Account, expectedVersion int64) (ledger.Account, error) {
	if m.BeforeUpdate != nil {
		if err := m.BeforeUpdate(acc); err != nil {
			return ledger.Account{}, err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.accounts[acc.UserID]
	if !ok {
		return ledger.Account{}, store.ErrNotFound
	}
	if cur.Version != expectedVersion {
		return ledger.Account{}, ledger.ErrConflict
	}
	acc.Version = expectedVersion + 1
	m.accounts[acc.UserID] = acc
	return acc, nil
}

func (m *memStore) BindWallet(_ context.Context, userID int64, address string) (ledger.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.accounts[userID]
	if !ok {
		return ledger.Account{}, store.ErrNotFound
	}
	for id, other := range m.accounts {
		if id != userID && other.WalletAddress == address {
			return ledger.Account{}, ledger.ErrDuplicateWallet
		}
	}
	acc.WalletAddress = address
	acc.Version++
	m.accounts[userID] = acc
	return acc, nil
}

func (m *memStore) CreditByReferralCode(_ context.Context, code string, amount int64, _ int64) (ledger.Account, error) {
	if m.BeforeCredit != nil {
		if err := m.BeforeCredit(code); err != nil {
			return ledger.Account{}, err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.byCode(code)
	if !ok {
		return ledger.Account{}, store.ErrNotFound
	}
	acc.TokenBalance += amount
	acc.Version++
	m.accounts[acc.UserID] = acc
	m.credits[acc.UserID] += amount
	return acc, nil
}

func (m *memStore) CreateReferredAccount(ctx context.Context, acc ledger.Account, maxUses int) (ledger.Account, error) {
	if m.BeforeCreate != nil {
		if err := m.BeforeCreate(ctx, acc); err != nil {
			return ledger.Account{}, err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	referrer, ok := m.byCode(acc.ReferredBy)
	if !ok {
		return ledger.Account{}, store.ErrNotFound
	}
	if referrer.ReferralCount >= maxUses {
		return ledger.Account{}, ledger.ErrReferralLimit
	}
	created, err := m.insert(acc)
	if err != nil {
		return ledger.Account{}, err
	}
	referrer.ReferralCount++
	referrer.Version++
	m.accounts[referrer.UserID] = referrer
	return created, nil
}

func (m *memStore) ReferralEarnings(_ context.Context, userID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.credits[userID], nil
}

func (m *memStore) ListExhausted(_ context.Context, maxTaps int, from, to time.Time) ([]ledger.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []ledger.Account
	for _, acc := range m.accounts {
		if acc.Taps >= maxTaps && !acc.TapTimestamp.Before(from) && acc.TapTimestamp.Before(to) {
			out = append(out, acc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}
