package models

import (
	"time"

	"github.com/google/uuid"
)

type WithdrawalStatus string

const (
	WithdrawalStatusPending  WithdrawalStatus = "PENDING"
	WithdrawalStatusApproved WithdrawalStatus = "APPROVED"
	WithdrawalStatusRejected WithdrawalStatus = "REJECTED"
)

// Terminal reports whether no further transition is allowed.
func (s WithdrawalStatus) Terminal() bool {
	return s == WithdrawalStatusApproved || s == WithdrawalStatusRejected
}

// WithdrawalRequest is created PENDING when balance is debited and resolved once by an admin.
type WithdrawalRequest struct {
	ID           uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	AccountID    string           `gorm:"size:64;not null;index" json:"account_id"`
	Amount       int64            `gorm:"not null" json:"amount"`
	PayoutTarget string           `gorm:"size:128;not null" json:"payout_target"`
	Status       WithdrawalStatus `gorm:"size:20;not null;default:PENDING;index" json:"status"`
	Refunded     bool             `gorm:"not null;default:false" json:"refunded"`
	CreatedAt    time.Time        `gorm:"index" json:"created_at"`
	ProcessedAt  *time.Time       `json:"processed_at,omitempty"`
}

func (WithdrawalRequest) TableName() string {
	return "withdrawal_requests"
}

// QuotaResetMarker remembers the last date the daily counters were tidied.
type QuotaResetMarker struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	LastResetDate string    `gorm:"size:10;not null" json:"last_reset_date"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (QuotaResetMarker) TableName() string {
	return "quota_reset_markers"
}
