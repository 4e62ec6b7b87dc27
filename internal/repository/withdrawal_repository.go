package repository

import (
	"context"
	"time"

	"referral-ledger/internal/models"

	"github.com/google/uuid"
)

// CreateWithdrawal inserts a new withdrawal request
func (r *Repository) CreateWithdrawal(ctx context.Context, req *models.WithdrawalRequest) error {
	return r.db.WithContext(ctx).Create(req).Error
}

// GetWithdrawal retrieves a withdrawal request by ID
func (r *Repository) GetWithdrawal(ctx context.Context, id uuid.UUID) (*models.WithdrawalRequest, error) {
	var req models.WithdrawalRequest
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&req).Error
	if err != nil {
		return nil, translate(err)
	}
	return &req, nil
}

// ResolveWithdrawal moves a PENDING request to its terminal status. A false
// result means the request was no longer pending.
func (r *Repository) ResolveWithdrawal(
	ctx context.Context,
	id uuid.UUID,
	status models.WithdrawalStatus,
	at time.Time,
	refunded bool,
) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.WithdrawalRequest{}).
		Where("id = ? AND status = ?", id, models.WithdrawalStatusPending).
		Updates(map[string]interface{}{
			"status":       status,
			"processed_at": at,
			"refunded":     refunded,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// ListWithdrawals returns an account's requests, newest first
func (r *Repository) ListWithdrawals(ctx context.Context, accountID string, limit int) ([]models.WithdrawalRequest, error) {
	var reqs []models.WithdrawalRequest
	err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at DESC").
		Limit(limit).
		Find(&reqs).Error
	return reqs, err
}

// ListPendingWithdrawals returns the oldest pending requests first, the order an admin works through them
func (r *Repository) ListPendingWithdrawals(ctx context.Context, limit int) ([]models.WithdrawalRequest, error) {
	var reqs []models.WithdrawalRequest
	err := r.db.WithContext(ctx).
		Where("status = ?", models.WithdrawalStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&reqs).Error
	return reqs, err
}
