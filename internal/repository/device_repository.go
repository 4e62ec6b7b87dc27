package repository

import (
	"context"
	"time"

	"referral-ledger/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm/clause"
)

// EnsureDeviceBinding records that the account has presented the fingerprint.
// An existing binding is left untouched so first_seen_at keeps its original value.
func (r *Repository) EnsureDeviceBinding(ctx context.Context, binding *models.DeviceBinding) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "account_id"}, {Name: "fingerprint"}},
			DoNothing: true,
		}).
		Create(binding).Error
}

func (r *Repository) MarkDeviceBindingVerified(ctx context.Context, accountID, fingerprint string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.DeviceBinding{}).
		Where("account_id = ? AND fingerprint = ?", accountID, fingerprint).
		Update("verified_at", at).Error
}

func (r *Repository) CreateChallenge(ctx context.Context, challenge *models.VerificationChallenge) error {
	return r.db.WithContext(ctx).Create(challenge).Error
}

// LatestChallenge returns the most recently issued challenge for the pair, used or not
func (r *Repository) LatestChallenge(ctx context.Context, accountID, fingerprint string) (*models.VerificationChallenge, error) {
	var challenge models.VerificationChallenge
	err := r.db.WithContext(ctx).
		Where("account_id = ? AND fingerprint = ?", accountID, fingerprint).
		Order("created_at DESC").
		First(&challenge).Error
	if err != nil {
		return nil, translate(err)
	}
	return &challenge, nil
}

// ConsumeChallenge marks an unused challenge used. A false result means another
// caller consumed it first.
func (r *Repository) ConsumeChallenge(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.VerificationChallenge{}).
		Where("id = ? AND used = ?", id, false).
		Update("used", true)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
