package store

import (
	"partnershib-bot/internal/ledger"
	"partnershib-bot/internal/models"
)

func toRow(acc ledger.Account) *models.Account {
	row := &models.Account{
		UserID:          acc.UserID,
		Taps:            acc.Taps,
		MiningPower:     acc.MiningPower,
		ReferralCode:    acc.ReferralCode,
		ReferralCount:   acc.ReferralCount,
		TapTimestamp:    acc.TapTimestamp.UTC(),
		JoinedTelegram:  acc.JoinedTelegram,
		FollowedTwitter: acc.FollowedTwitter,
		TokenBalance:    acc.TokenBalance,
		Version:         acc.Version,
	}
	if acc.WalletAddress != "" {
		row.WalletAddress = &acc.WalletAddress
	}
	if acc.ReferredBy != "" {
		row.ReferredBy = &acc.ReferredBy
	}
	return row
}

func toAccount(row *models.Account) ledger.Account {
	acc := ledger.Account{
		UserID:          row.UserID,
		Taps:            row.Taps,
		MiningPower:     row.MiningPower,
		ReferralCode:    row.ReferralCode,
		ReferralCount:   row.ReferralCount,
		TapTimestamp:    row.TapTimestamp.UTC(),
		JoinedTelegram:  row.JoinedTelegram,
		FollowedTwitter: row.FollowedTwitter,
		TokenBalance:    row.TokenBalance,
		Version:         row.Version,
	}
	if row.WalletAddress != nil {
		acc.WalletAddress = *row.WalletAddress
	}
	if row.ReferredBy != nil {
		acc.ReferredBy = *row.ReferredBy
	}
	return acc
}

// nullable maps "" to SQL NULL for map-based updates.
func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
