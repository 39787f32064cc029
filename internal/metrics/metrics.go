package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TapsTotal counts tap requests by outcome (tapped, daily_limit_reached, not_registered, supply_exhausted).
	TapsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_taps_total",
			Help: "Total number of tap requests by outcome",
		},
		[]string{"outcome"},
	)

	TokensMinted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_tokens_minted_total",
			Help: "Tokens credited to ledger balances by source",
		},
		[]string{"source"},
	)

	RegistrationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_registrations_total",
			Help: "Register requests split by whether an account was created",
		},
		[]string{"created"},
	)

	WalletBindsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_wallet_binds_total",
			Help: "Wallet bind requests by outcome",
		},
		[]string{"outcome"},
	)

	ReferralCreditsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_referral_credits_total",
			Help: "Referral bonus credits by status",
		},
		[]string{"status"},
	)

	// StoreRetries counts retries after conflicts or store faults.
	StoreRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_store_retries_total",
			Help: "Retried ledger operations",
		},
		[]string{"operation"},
	)

	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ledger_operation_duration_seconds",
			Help:    "Ledger operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_notifications_total",
			Help: "Outbound notifications by kind and status",
		},
		[]string{"kind", "status"},
	)
)
