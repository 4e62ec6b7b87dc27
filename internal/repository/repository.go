package repository

import (
	"context"
	"errors"
	"time"

	"referral-ledger/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when an insert violates a unique constraint.
	ErrDuplicate = errors.New("duplicate record")
)

// Store is the storage surface the ledger services depend on. Every method that
// mutates a balance or counter is a single conditional statement, so callers get
// the invariant from the database even without the in-process locks.
type Store interface {
	// Transaction runs fn against a Store bound to one database transaction.
	// Returning an error from fn rolls everything back.
	Transaction(ctx context.Context, fn func(tx Store) error) error

	GetAccount(ctx context.Context, id string) (*models.Account, error)
	CreateAccountIfAbsent(ctx context.Context, account *models.Account) (bool, error)
	AddBalance(ctx context.Context, id string, amount int64) error
	SubtractBalance(ctx context.Context, id string, amount int64) (bool, error)
	ApplyWithdrawal(ctx context.Context, id string, amount int64, today string, dailyLimit int) (bool, error)
	AdjustReferralCount(ctx context.Context, id string, delta int) error
	SetDevice(ctx context.Context, id string, deviceID string, verified bool) error
	TouchLastSeen(ctx context.Context, id string, at time.Time) error

	CreateReferralEdge(ctx context.Context, edge *models.ReferralEdge) error
	GetReferralEdgeByReferred(ctx context.Context, referredID string) (*models.ReferralEdge, error)
	DeviceBacksValidEdge(ctx context.Context, fingerprint string) (bool, error)
	ListReferralEdges(ctx context.Context, referrerID string) ([]models.ReferralEdge, error)
	InvalidateReferralEdge(ctx context.Context, referredID string, at time.Time) (bool, error)
	CountValidEdges(ctx context.Context, referrerID string) (int64, error)

	EnsureDeviceBinding(ctx context.Context, binding *models.DeviceBinding) error
	MarkDeviceBindingVerified(ctx context.Context, accountID, fingerprint string, at time.Time) error
	CreateChallenge(ctx context.Context, challenge *models.VerificationChallenge) error
	LatestChallenge(ctx context.Context, accountID, fingerprint string) (*models.VerificationChallenge, error)
	ConsumeChallenge(ctx context.Context, id uuid.UUID) (bool, error)

	CreateWithdrawal(ctx context.Context, req *models.WithdrawalRequest) error
	GetWithdrawal(ctx context.Context, id uuid.UUID) (*models.WithdrawalRequest, error)
	ResolveWithdrawal(ctx context.Context, id uuid.UUID, status models.WithdrawalStatus, at time.Time, refunded bool) (bool, error)
	ListWithdrawals(ctx context.Context, accountID string, limit int) ([]models.WithdrawalRequest, error)
	ListPendingWithdrawals(ctx context.Context, limit int) ([]models.WithdrawalRequest, error)

	GetQuotaMarker(ctx context.Context) (*models.QuotaResetMarker, error)
	SaveQuotaMarker(ctx context.Context, date string) error
	ResetStaleQuotaCounters(ctx context.Context, today string) (int64, error)

	LedgerStats(ctx context.Context) (*models.LedgerStats, error)
	CreateAdminLog(ctx context.Context, entry *models.AdminLog) error
	ListAdminLogs(ctx context.Context, limit, offset int) ([]models.AdminLog, error)
}

// Repository is the gorm-backed Store.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Transaction implements Store.
func (r *Repository) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repository{db: tx})
	})
}

// translate maps gorm errors onto the package sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	}
	return err
}
