package repository

import (
	"context"
	"time"

	"referral-ledger/internal/models"
)

// CreateReferralEdge inserts an edge. The unique index on referred_id turns a
// second edge for the same identity into ErrDuplicate.
func (r *Repository) CreateReferralEdge(ctx context.Context, edge *models.ReferralEdge) error {
	return translate(r.db.WithContext(ctx).Create(edge).Error)
}

func (r *Repository) GetReferralEdgeByReferred(ctx context.Context, referredID string) (*models.ReferralEdge, error) {
	var edge models.ReferralEdge
	err := r.db.WithContext(ctx).Where("referred_id = ?", referredID).First(&edge).Error
	if err != nil {
		return nil, translate(err)
	}
	return &edge, nil
}

// DeviceBacksValidEdge reports whether the fingerprint was already used to claim a still-valid referral
func (r *Repository) DeviceBacksValidEdge(ctx context.Context, fingerprint string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ReferralEdge{}).
		Where("device_id = ? AND valid = ?", fingerprint, true).
		Count(&count).Error
	return count > 0, err
}

// ListReferralEdges returns every edge naming the referrer, newest first
func (r *Repository) ListReferralEdges(ctx context.Context, referrerID string) ([]models.ReferralEdge, error) {
	var edges []models.ReferralEdge
	err := r.db.WithContext(ctx).
		Where("referrer_id = ?", referrerID).
		Order("created_at DESC").
		Find(&edges).Error
	return edges, err
}

// InvalidateReferralEdge flips a valid edge to invalid. A false result means the
// edge was already invalid.
func (r *Repository) InvalidateReferralEdge(ctx context.Context, referredID string, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.ReferralEdge{}).
		Where("referred_id = ? AND valid = ?", referredID, true).
		Updates(map[string]interface{}{
			"valid":          false,
			"invalidated_at": at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *Repository) CountValidEdges(ctx context.Context, referrerID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ReferralEdge{}).
		Where("referrer_id = ? AND valid = ?", referrerID, true).
		Count(&count).Error
	return count, err
}
