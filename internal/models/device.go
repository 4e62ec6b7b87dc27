package models

import (
	"time"

	"github.com/google/uuid"
)

// DeviceBinding links an account to a device fingerprint it has presented.
type DeviceBinding struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	AccountID   string     `gorm:"size:64;not null;uniqueIndex:idx_device_account_fp" json:"account_id"`
	Fingerprint string     `gorm:"size:255;not null;uniqueIndex:idx_device_account_fp;index" json:"fingerprint"`
	FirstSeenAt time.Time  `gorm:"not null" json:"first_seen_at"`
	VerifiedAt  *time.Time `json:"verified_at,omitempty"`
}

func (DeviceBinding) TableName() string {
	return "device_bindings"
}

// VerificationChallenge is a single-use code proving control of a device.
type VerificationChallenge struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	AccountID   string    `gorm:"size:64;not null;index:idx_challenge_lookup" json:"account_id"`
	Fingerprint string    `gorm:"size:255;not null;index:idx_challenge_lookup" json:"fingerprint"`
	Code        string    `gorm:"size:16;not null" json:"-"`
	Used        bool      `gorm:"not null;default:false" json:"used"`
	ExpiresAt   time.Time `gorm:"not null" json:"expires_at"`
	CreatedAt   time.Time `json:"created_at"`
}

func (VerificationChallenge) TableName() string {
	return "verification_challenges"
}

// Expired reports whether the challenge window has closed at the given instant.
func (c *VerificationChallenge) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}
