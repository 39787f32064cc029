// Package store persists ledger accounts in PostgreSQL.
package store

import (
	"context"
	"errors"
	"time"

	"partnershib-bot/internal/ledger"
)

// ErrNotFound is returned when no account matches the lookup.
var ErrNotFound = errors.New("account not found")

// Store is the durable account table. All writes are atomic per account and
// bump the account version.
type Store interface {
	GetAccount(ctx context.Context, userID int64) (ledger.Account, error)
	GetAccountByReferralCode(ctx context.Context, code string) (ledger.Account, error)

	// CreateAccount inserts the snapshot. Fails with ledger.ErrAlreadyExists if
	// the user is present and ledger.ErrDuplicateWallet if the snapshot carries
	// a wallet held by another account.
	CreateAccount(ctx context.Context, acc ledger.Account) (ledger.Account, error)

	// UpdateAccount writes the snapshot if the stored version still equals
	// expectedVersion, otherwise ledger.ErrConflict.
	UpdateAccount(ctx context.Context, acc ledger.Account, expectedVersion int64) (ledger.Account, error)

	// BindWallet fails with ledger.ErrDuplicateWallet if another account holds address.
	BindWallet(ctx context.Context, userID int64, address string) (ledger.Account, error)

	// CreditByReferralCode adds amount to the account owning code and records the credit.
	CreditByReferralCode(ctx context.Context, code string, amount int64, refereeID int64) (ledger.Account, error)

	// CreateReferredAccount inserts acc and increments referral_count of the
	// owner of acc.ReferredBy in one transaction. It fails with
	// ledger.ErrReferralLimit when the owner already has maxUses referrals and
	// with ErrNotFound when the code has no owner; nothing is written then.
	CreateReferredAccount(ctx context.Context, acc ledger.Account, maxUses int) (ledger.Account, error)

	// ReferralEarnings sums all referral credits paid to userID.
	ReferralEarnings(ctx context.Context, userID int64) (int64, error)

	// ListExhausted returns accounts that used at least maxTaps with their last
	// tap in [from, to).
	ListExhausted(ctx context.Context, maxTaps int, from, to time.Time) ([]ledger.Account, error)
}
