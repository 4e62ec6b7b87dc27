package models

import (
	"time"
)

// Account is the per-user ledger record. Balance is kept in minor currency units.
type Account struct {
	ID                 string     `gorm:"primaryKey;size:64" json:"id"`
	Balance            int64      `gorm:"not null;default:0" json:"balance"`
	TotalReferrals     int        `gorm:"not null;default:0" json:"total_referrals"`
	DeviceID           *string    `gorm:"size:255;index" json:"device_id,omitempty"`
	Verified           bool       `gorm:"not null;default:false" json:"verified"`
	LastWithdrawDate   *string    `gorm:"size:10;index" json:"last_withdraw_date,omitempty"` // YYYY-MM-DD
	WithdrawCountToday int        `gorm:"not null;default:0" json:"withdraw_count_today"`
	LastSeenAt         *time.Time `json:"last_seen_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// TableName specifies the table name for Account model
func (Account) TableName() string {
	return "accounts"
}

// WithdrawnOn reports whether the last withdrawal happened on the given date.
func (a *Account) WithdrawnOn(date string) bool {
	return a.LastWithdrawDate != nil && *a.LastWithdrawDate == date
}

// WithdrawalsOn returns the number of withdrawals counted for the given date.
func (a *Account) WithdrawalsOn(date string) int {
	if !a.WithdrawnOn(date) {
		return 0
	}
	return a.WithdrawCountToday
}
