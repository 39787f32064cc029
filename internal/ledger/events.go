package ledger

type EventKind int

const (
	EventRegistered EventKind = iota + 1
	EventWalletBound
	EventTapped
	EventTapRejected
	EventReferralApplied
	EventReferralBonus
)

func (k EventKind) String() string {
	switch k {
	case EventRegistered:
		return "registered"
	case EventWalletBound:
		return "wallet_bound"
	case EventTapped:
		return "tapped"
	case EventTapRejected:
		return "tap_rejected"
	case EventReferralApplied:
		return "referral_applied"
	case EventReferralBonus:
		return "referral_bonus"
	default:
		return "unknown"
	}
}

type RejectReason int

const (
	ReasonNone RejectReason = iota
	ReasonNotRegistered
	ReasonDailyLimitReached
	ReasonSupplyExhausted
)

func (r RejectReason) String() string {
	switch r {
	case ReasonNotRegistered:
		return "not_registered"
	case ReasonDailyLimitReached:
		return "daily_limit_reached"
	case ReasonSupplyExhausted:
		return "supply_exhausted"
	default:
		return "none"
	}
}

// Err returns the sentinel matching the reason, nil for ReasonNone.
func (r RejectReason) Err() error {
	switch r {
	case ReasonNotRegistered:
		return ErrNotRegistered
	case ReasonDailyLimitReached:
		return ErrDailyLimitReached
	case ReasonSupplyExhausted:
		return ErrSupplyExhausted
	default:
		return nil
	}
}

// Event is emitted by an engine transition. Only the fields relevant to Kind are set.
type Event struct {
	Kind         EventKind
	UserID       int64
	Amount       int64
	Reason       RejectReason
	ReferrerCode string
	Wallet       string
}
