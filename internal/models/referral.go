package models

import (
	"time"
)

// ReferralEdge records that ReferrerID brought in ReferredID. An identity can be
// referred at most once, so ReferredID carries a unique index.
type ReferralEdge struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	ReferrerID    string     `gorm:"size:64;not null;index" json:"referrer_id"`
	ReferredID    string     `gorm:"size:64;not null;uniqueIndex" json:"referred_id"`
	DeviceID      *string    `gorm:"size:255;index" json:"device_id,omitempty"`
	Valid         bool       `gorm:"not null;default:true;index" json:"valid"`
	BonusAmount   int64      `gorm:"not null;default:0" json:"bonus_amount"`
	CreatedAt     time.Time  `json:"created_at"`
	InvalidatedAt *time.Time `json:"invalidated_at,omitempty"`
}

func (ReferralEdge) TableName() string {
	return "referral_edges"
}
