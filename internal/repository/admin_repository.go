package repository

import (
	"context"

	"referral-ledger/internal/models"

	"gorm.io/gorm/clause"
)

const quotaMarkerID = 1

// GetQuotaMarker returns the persisted reset marker, or nil if the resetter has never run
func (r *Repository) GetQuotaMarker(ctx context.Context) (*models.QuotaResetMarker, error) {
	var markers []models.QuotaResetMarker
	if err := r.db.WithContext(ctx).Where("id = ?", quotaMarkerID).Limit(1).Find(&markers).Error; err != nil {
		return nil, err
	}
	if len(markers) == 0 {
		return nil, nil
	}
	return &markers[0], nil
}

func (r *Repository) SaveQuotaMarker(ctx context.Context, date string) error {
	marker := models.QuotaResetMarker{ID: quotaMarkerID, LastResetDate: date}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"last_reset_date", "updated_at"}),
		}).
		Create(&marker).Error
}

// ResetStaleQuotaCounters zeroes the daily counter of every account that has not withdrawn today
func (r *Repository) ResetStaleQuotaCounters(ctx context.Context, today string) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.Account{}).
		Where("withdraw_count_today <> 0").
		Where("last_withdraw_date IS NULL OR last_withdraw_date <> ?", today).
		UpdateColumn("withdraw_count_today", 0)
	return result.RowsAffected, result.Error
}

// LedgerStats aggregates the admin dashboard numbers
func (r *Repository) LedgerStats(ctx context.Context) (*models.LedgerStats, error) {
	var stats models.LedgerStats
	db := r.db.WithContext(ctx)

	if err := db.Model(&models.Account{}).Count(&stats.UserCount).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Account{}).
		Select("COALESCE(SUM(balance), 0)").
		Scan(&stats.TotalOutstanding).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.ReferralEdge{}).
		Where("valid = ?", true).
		Count(&stats.TotalReferrals).Error; err != nil {
		return nil, err
	}

	var rows []struct {
		Status models.WithdrawalStatus
		Count  int64
	}
	if err := db.Model(&models.WithdrawalRequest{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		switch row.Status {
		case models.WithdrawalStatusPending:
			stats.PendingWithdrawals = row.Count
		case models.WithdrawalStatusApproved:
			stats.ApprovedWithdrawals = row.Count
		case models.WithdrawalStatusRejected:
			stats.RejectedWithdrawals = row.Count
		}
	}

	return &stats, nil
}

func (r *Repository) CreateAdminLog(ctx context.Context, entry *models.AdminLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// ListAdminLogs returns the audit trail, newest first
func (r *Repository) ListAdminLogs(ctx context.Context, limit, offset int) ([]models.AdminLog, error) {
	var logs []models.AdminLog
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&logs).Error
	return logs, err
}
