package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"partnershib-bot/internal/ledger"
	"partnershib-bot/internal/models"
)

const (
	uniqueViolation = "23505"

	walletConstraint       = "idx_accounts_wallet_address"
	referralCodeConstraint = "idx_accounts_referral_code"
)

type PGStore struct {
	db *gorm.DB
}

// NewStore creates a postgres implementation of the account store.
func NewStore(db *gorm.DB) *PGStore {
	return &PGStore{db: db}
}

// classify maps driver errors onto ledger sentinels. Anything unrecognised is
// treated as a store fault.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.As(err, &pgErr) && pgErr.Code == uniqueViolation:
		if pgErr.ConstraintName == walletConstraint {
			return ledger.ErrDuplicateWallet
		}
		return fmt.Errorf("%w: %s", ledger.ErrAlreadyExists, pgErr.ConstraintName)
	default:
		return fmt.Errorf("%w: %w", ledger.ErrUnavailable, err)
	}
}

func (s *PGStore) GetAccount(ctx context.Context, userID int64) (ledger.Account, error) {
	var row models.Account
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&row).Error; err != nil {
		return ledger.Account{}, classify(err)
	}
	return toAccount(&row), nil
}

func (s *PGStore) GetAccountByReferralCode(ctx context.Context, code string) (ledger.Account, error) {
	var row models.Account
	if err := s.db.WithContext(ctx).Where("referral_code = ?", code).First(&row).Error; err != nil {
		return ledger.Account{}, classify(err)
	}
	return toAccount(&row), nil
}

func (s *PGStore) CreateAccount(ctx context.Context, acc ledger.Account) (ledger.Account, error) {
	row := toRow(acc)
	row.Version = 1

	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return ledger.Account{}, classify(err)
	}
	return toAccount(row), nil
}

func (s *PGStore) UpdateAccount(ctx context.Context, acc ledger.Account, expectedVersion int64) (ledger.Account, error) {
	var row models.Account
	res := s.db.WithContext(ctx).
		Model(&row).
		Clauses(clause.Returning{}).
		Where("user_id = ? AND version = ?", acc.UserID, expectedVersion).
		Updates(map[string]interface{}{
			"wallet_address":   nullable(acc.WalletAddress),
			"taps":             acc.Taps,
			"mining_power":     acc.MiningPower,
			"referred_by":      nullable(acc.ReferredBy),
			"referral_count":   acc.ReferralCount,
			"tap_timestamp":    acc.TapTimestamp.UTC(),
			"joined_telegram":  acc.JoinedTelegram,
			"followed_twitter": acc.FollowedTwitter,
			"token_balance":    acc.TokenBalance,
			"version":          expectedVersion + 1,
		})
	if res.Error != nil {
		return ledger.Account{}, classify(res.Error)
	}
	if res.RowsAffected == 0 {
		if _, err := s.GetAccount(ctx, acc.UserID); err != nil {
			return ledger.Account{}, err
		}
		return ledger.Account{}, ledger.ErrConflict
	}
	return toAccount(&row), nil
}

func (s *PGStore) BindWallet(ctx context.Context, userID int64, address string) (ledger.Account, error) {
	var row models.Account
	res := s.db.WithContext(ctx).
		Model(&row).
		Clauses(clause.Returning{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"wallet_address": address,
			"version":        gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return ledger.Account{}, classify(res.Error)
	}
	if res.RowsAffected == 0 {
		return ledger.Account{}, ErrNotFound
	}
	return toAccount(&row), nil
}

func (s *PGStore) CreditByReferralCode(ctx context.Context, code string, amount int64, refereeID int64) (ledger.Account, error) {
	var row models.Account
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&row).
			Clauses(clause.Returning{}).
			Where("referral_code = ?", code).
			Updates(map[string]interface{}{
				"token_balance": gorm.Expr("token_balance + ?", amount),
				"version":       gorm.Expr("version + 1"),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		return tx.Create(&models.ReferralCredit{
			ReferrerID: row.UserID,
			RefereeID:  refereeID,
			Amount:     amount,
		}).Error
	})
	if err != nil {
		return ledger.Account{}, classify(err)
	}
	return toAccount(&row), nil
}

func (s *PGStore) CreateReferredAccount(ctx context.Context, acc ledger.Account, maxUses int) (ledger.Account, error) {
	row := toRow(acc)
	row.Version = 1

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Account{}).
			Where("referral_code = ? AND referral_count < ?", acc.ReferredBy, maxUses).
			Updates(map[string]interface{}{
				"referral_count": gorm.Expr("referral_count + 1"),
				"version":        gorm.Expr("version + 1"),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var owners int64
			if err := tx.Model(&models.Account{}).Where("referral_code = ?", acc.ReferredBy).Count(&owners).Error; err != nil {
				return err
			}
			if owners == 0 {
				return gorm.ErrRecordNotFound
			}
			return ledger.ErrReferralLimit
		}

		return tx.Create(row).Error
	})
	if errors.Is(err, ledger.ErrReferralLimit) {
		return ledger.Account{}, err
	}
	if err != nil {
		return ledger.Account{}, classify(err)
	}
	return toAccount(row), nil
}

func (s *PGStore) ReferralEarnings(ctx context.Context, userID int64) (int64, error) {
	var total int64
	err := s.db.WithContext(ctx).
		Model(&models.ReferralCredit{}).
		Where("referrer_id = ?", userID).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, classify(err)
	}
	return total, nil
}

func (s *PGStore) ListExhausted(ctx context.Context, maxTaps int, from, to time.Time) ([]ledger.Account, error) {
	var rows []models.Account
	err := s.db.WithContext(ctx).
		Where("taps >= ? AND tap_timestamp >= ? AND tap_timestamp < ?", maxTaps, from.UTC(), to.UTC()).
		Order("tap_timestamp").
		Find(&rows).Error
	if err != nil {
		return nil, classify(err)
	}

	accounts := make([]ledger.Account, len(rows))
	for i := range rows {
		accounts[i] = toAccount(&rows[i])
	}
	return accounts, nil
}
