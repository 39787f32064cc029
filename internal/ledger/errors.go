package ledger

import "errors"

var (
	ErrNotRegistered     = errors.New("account not registered")
	ErrAlreadyExists     = errors.New("account already exists")
	ErrDuplicateWallet   = errors.New("wallet address already bound to another account")
	ErrDailyLimitReached = errors.New("daily tap limit reached")
	ErrSupplyExhausted   = errors.New("mining supply exhausted")

	// ErrConflict is a version mismatch on update. Callers reload and retry.
	ErrConflict = errors.New("account version conflict")

	// ErrUnavailable marks store or transport faults. Retryable, but only a bounded number of times.
	ErrUnavailable = errors.New("ledger store unavailable")

	ErrReferrerNotFound = errors.New("referrer not found")
	ErrReferralLimit    = errors.New("referral code has no uses left")
	ErrSelfReferral     = errors.New("cannot use own referral code")
	ErrAlreadyReferred  = errors.New("account already has a referrer")
)
