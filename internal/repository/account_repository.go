package repository

import (
	"context"
	"time"

	"referral-ledger/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GetAccount retrieves an account by ID
func (r *Repository) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	var account models.Account
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&account).Error
	if err != nil {
		return nil, translate(err)
	}
	return &account, nil
}

// CreateAccountIfAbsent inserts the account unless a row with the same ID exists.
// It reports whether this call created the row.
func (r *Repository) CreateAccountIfAbsent(ctx context.Context, account *models.Account) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(account)
	if result.Error != nil {
		return false, translate(result.Error)
	}
	return result.RowsAffected == 1, nil
}

// AddBalance credits an account atomically
func (r *Repository) AddBalance(ctx context.Context, id string, amount int64) error {
	result := r.db.WithContext(ctx).Model(&models.Account{}).
		Where("id = ?", id).
		Update("balance", gorm.Expr("balance + ?", amount))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SubtractBalance debits an account only if the balance covers the amount.
// A false result means nothing was changed.
func (r *Repository) SubtractBalance(ctx context.Context, id string, amount int64) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.Account{}).
		Where("id = ? AND balance >= ?", id, amount).
		Update("balance", gorm.Expr("balance - ?", amount))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// ApplyWithdrawal debits amount and rolls the daily counter in one statement.
// The WHERE clause re-checks both the balance and the quota for today, so a
// stale read by the caller can never push either past its bound.
func (r *Repository) ApplyWithdrawal(ctx context.Context, id string, amount int64, today string, dailyLimit int) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.Account{}).
		Where("id = ? AND balance >= ?", id, amount).
		Where("last_withdraw_date IS NULL OR last_withdraw_date <> ? OR withdraw_count_today < ?", today, dailyLimit).
		Updates(map[string]interface{}{
			"balance": gorm.Expr("balance - ?", amount),
			"withdraw_count_today": gorm.Expr(
				"CASE WHEN last_withdraw_date = ? THEN withdraw_count_today + 1 ELSE 1 END", today),
			"last_withdraw_date": today,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// AdjustReferralCount moves total_referrals by delta without letting it drop below zero
func (r *Repository) AdjustReferralCount(ctx context.Context, id string, delta int) error {
	q := r.db.WithContext(ctx).Model(&models.Account{}).Where("id = ?", id)
	if delta < 0 {
		q = q.Where("total_referrals >= ?", -delta)
	}
	result := q.Update("total_referrals", gorm.Expr("total_referrals + ?", delta))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetDevice records the canonical fingerprint and verification flag
func (r *Repository) SetDevice(ctx context.Context, id string, deviceID string, verified bool) error {
	result := r.db.WithContext(ctx).Model(&models.Account{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"device_id": deviceID,
			"verified":  verified,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) TouchLastSeen(ctx context.Context, id string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.Account{}).
		Where("id = ?", id).
		UpdateColumn("last_seen_at", at).Error
}
