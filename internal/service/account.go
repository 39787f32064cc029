package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"partnershib-bot/internal/ledger"
	"partnershib-bot/internal/metrics"
	"partnershib-bot/internal/store"
)

// RegisterOrSkip creates the account with the welcome bonus. Calling it for an
// existing account is a no-op that reports Created=false.
func (s *Service) RegisterOrSkip(ctx context.Context, userID int64) (RegisterResult, error) {
	defer observe("register", time.Now())
	return s.register(ctx, userID, "")
}

// RegisterWithReferral registers the account and links it to the owner of
// code. The code only takes effect for brand-new accounts.
func (s *Service) RegisterWithReferral(ctx context.Context, userID int64, code string) (RegisterResult, error) {
	defer observe("register", time.Now())
	return s.register(ctx, userID, strings.TrimSpace(code))
}

func (s *Service) register(ctx context.Context, userID int64, code string) (RegisterResult, error) {
	var res RegisterResult
	err := s.retry(ctx, "register", func(ctx context.Context) error {
		res = RegisterResult{}
		return s.locks.Do(ctx, userID, func() error {
			var err error
			res, err = s.registerLocked(ctx, userID, code)
			return err
		})
	})
	if err != nil {
		return RegisterResult{}, err
	}

	metrics.RegistrationsTotal.WithLabelValues(strconv.FormatBool(res.Created)).Inc()
	if res.Created {
		metrics.TokensMinted.WithLabelValues("welcome_bonus").Add(float64(res.Account.TokenBalance))
	}
	return res, nil
}

// registerLocked must run inside the section of userID.
func (s *Service) registerLocked(ctx context.Context, userID int64, code string) (RegisterResult, error) {
	existing, err := s.store.GetAccount(ctx, userID)
	if err == nil {
		res := RegisterResult{Account: existing}
		if code != "" {
			res.Referral = ReferralIgnored
		}
		return res, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return RegisterResult{}, err
	}

	acc, _ := s.engine.NewAccount(userID, s.now())
	status := ReferralNone
	if code != "" {
		acc, status, err = s.attachReferral(ctx, acc, code)
		if err != nil {
			return RegisterResult{}, err
		}
	}

	created, status, err := s.create(ctx, acc, status)
	if errors.Is(err, ledger.ErrAlreadyExists) {
		// registered concurrently by another process
		existing, err = s.store.GetAccount(ctx, userID)
		if err != nil {
			return RegisterResult{}, err
		}
		return RegisterResult{Account: existing, Referral: ReferralIgnored}, nil
	}
	if err != nil {
		return RegisterResult{}, err
	}

	return RegisterResult{Created: true, Account: created, Referral: status}, nil
}

// create inserts acc. A referred account claims one of the referrer's uses in
// the same store transaction; if the claim is refused at commit time the
// account is created without a referrer.
func (s *Service) create(ctx context.Context, acc ledger.Account, status ReferralStatus) (ledger.Account, ReferralStatus, error) {
	if status != ReferralApplied {
		created, err := s.store.CreateAccount(ctx, acc)
		return created, status, err
	}

	created, err := s.store.CreateReferredAccount(ctx, acc, s.engine.Policy().MaxReferralUses)
	switch {
	case errors.Is(err, ledger.ErrReferralLimit):
		status = ReferralLimitReached
	case errors.Is(err, store.ErrNotFound):
		status = ReferralUnknownCode
	default:
		return created, status, err
	}

	acc.ReferredBy = ""
	created, err = s.store.CreateAccount(ctx, acc)
	return created, status, err
}

// attachReferral validates code against its owner. Rule violations come back
// as a status, not an error. The use itself is claimed when the account is
// created.
func (s *Service) attachReferral(ctx context.Context, acc ledger.Account, code string) (ledger.Account, ReferralStatus, error) {
	if !ledger.IsReferralCode(code) {
		return acc, ReferralUnknownCode, nil
	}

	referrer, err := s.store.GetAccountByReferralCode(ctx, code)
	if errors.Is(err, store.ErrNotFound) {
		return acc, ReferralUnknownCode, nil
	}
	if err != nil {
		return acc, ReferralNone, err
	}

	next, _, err := s.engine.ApplyReferral(acc, referrer)
	switch {
	case errors.Is(err, ledger.ErrSelfReferral):
		return acc, ReferralSelf, nil
	case errors.Is(err, ledger.ErrReferralLimit):
		return acc, ReferralLimitReached, nil
	case err != nil:
		return acc, ReferralNone, err
	}
	return next, ReferralApplied, nil
}

// BindWallet binds a pre-validated address, registering the account first if
// needed. A wallet held by another account yields DuplicateWallet and leaves
// this account unchanged; an unregistered user stays unregistered.
func (s *Service) BindWallet(ctx context.Context, userID int64, address string) (BindResult, error) {
	defer observe("bind_wallet", time.Now())
	address = strings.TrimSpace(address)

	var res BindResult
	err := s.retry(ctx, "bind_wallet", func(ctx context.Context) error {
		res = BindResult{}
		return s.locks.Do(ctx, userID, func() error {
			var err error
			res, err = s.bindLocked(ctx, userID, address)
			return err
		})
	})
	if err != nil {
		metrics.WalletBindsTotal.WithLabelValues("error").Inc()
		return BindResult{}, err
	}

	if res.Created {
		metrics.RegistrationsTotal.WithLabelValues("true").Inc()
		metrics.TokensMinted.WithLabelValues("welcome_bonus").Add(float64(s.engine.Policy().BonusTokens))
	}
	metrics.WalletBindsTotal.WithLabelValues(res.Outcome.String()).Inc()
	return res, nil
}

// bindLocked must run inside the section of userID. A new account is inserted
// with the wallet already set, so a taken address never creates it.
func (s *Service) bindLocked(ctx context.Context, userID int64, address string) (BindResult, error) {
	acc, err := s.store.GetAccount(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		fresh, _ := s.engine.NewAccount(userID, s.now())
		next, _ := s.engine.BindWallet(fresh, address)

		created, err := s.store.CreateAccount(ctx, next)
		switch {
		case errors.Is(err, ledger.ErrDuplicateWallet):
			return BindResult{Outcome: DuplicateWallet}, nil
		case errors.Is(err, ledger.ErrAlreadyExists):
			// registered concurrently by another process; bind on the next attempt
			return BindResult{}, ledger.ErrConflict
		case err != nil:
			return BindResult{}, err
		}
		return BindResult{Outcome: WalletBound, Created: true, Account: created}, nil
	}
	if err != nil {
		return BindResult{}, err
	}

	next, _ := s.engine.BindWallet(acc, address)
	saved, err := s.store.BindWallet(ctx, userID, next.WalletAddress)
	if errors.Is(err, ledger.ErrDuplicateWallet) {
		return BindResult{Outcome: DuplicateWallet, Account: acc}, nil
	}
	if err != nil {
		return BindResult{}, err
	}
	return BindResult{Outcome: WalletBound, Account: saved}, nil
}

// Dashboard is a read-only projection; it takes no section.
func (s *Service) Dashboard(ctx context.Context, userID int64) (DashboardResult, error) {
	defer observe("dashboard", time.Now())

	var res DashboardResult
	err := s.retry(ctx, "dashboard", func(ctx context.Context) error {
		acc, err := s.store.GetAccount(ctx, userID)
		if errors.Is(err, store.ErrNotFound) {
			res = DashboardResult{}
			return nil
		}
		if err != nil {
			return err
		}
		res = DashboardResult{Registered: true, Dashboard: s.engine.Dashboard(acc, s.now())}
		return nil
	})
	if err != nil {
		return DashboardResult{}, err
	}
	return res, nil
}

func (s *Service) ReferralInfo(ctx context.Context, userID int64) (ReferralInfo, error) {
	var res ReferralInfo
	err := s.retry(ctx, "referral_info", func(ctx context.Context) error {
		acc, err := s.store.GetAccount(ctx, userID)
		if errors.Is(err, store.ErrNotFound) {
			res = ReferralInfo{}
			return nil
		}
		if err != nil {
			return err
		}

		earned, err := s.store.ReferralEarnings(ctx, userID)
		if err != nil {
			return err
		}
		res = ReferralInfo{
			Registered: true,
			Code:       acc.ReferralCode,
			Count:      acc.ReferralCount,
			MaxUses:    s.engine.Policy().MaxReferralUses,
			Earned:     earned,
		}
		return nil
	})
	if err != nil {
		return ReferralInfo{}, err
	}
	return res, nil
}
