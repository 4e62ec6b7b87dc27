package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// JSONB for PostgreSQL JSON support
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return nil
	}
	return json.Unmarshal(bytes, j)
}

// AdminLog records admin actions for audit trail
type AdminLog struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Actor        string    `gorm:"size:100;not null" json:"actor"`
	Action       string    `gorm:"size:100;not null" json:"action"` // RESOLVE_WITHDRAWAL, INVALIDATE_REFERRAL
	ResourceType string    `gorm:"size:50" json:"resource_type"`
	ResourceID   string    `gorm:"size:64;index" json:"resource_id"`
	Details      JSONB     `gorm:"type:jsonb" json:"details"`
	CreatedAt    time.Time `json:"created_at"`
}

func (AdminLog) TableName() string {
	return "admin_logs"
}

// LedgerStats is the aggregate view served to the admin surface.
type LedgerStats struct {
	UserCount           int64  `json:"user_count"`
	TotalOutstanding    int64  `json:"total_outstanding"`
	OutstandingDisplay  string `json:"outstanding_display"`
	TotalReferrals      int64  `json:"total_referrals"`
	PendingWithdrawals  int64  `json:"pending_withdrawals"`
	ApprovedWithdrawals int64  `json:"approved_withdrawals"`
	RejectedWithdrawals int64  `json:"rejected_withdrawals"`
}
