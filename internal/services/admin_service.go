package services

import (
	"context"
	"fmt"
	"log"

	"referral-ledger/internal/models"
	"referral-ledger/internal/repository"
)

type AdminService struct {
	store repository.Store
}

func NewAdminService(store repository.Store) *AdminService {
	return &AdminService{
		store: store,
	}
}

// Stats returns the aggregate ledger numbers for the admin dashboard
func (s *AdminService) Stats(ctx context.Context) (*models.LedgerStats, error) {
	stats, err := s.store.LedgerStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compute stats: %w", err)
	}
	stats.OutstandingDisplay = models.FormatMinor(stats.TotalOutstanding)
	return stats, nil
}

// PendingWithdrawals returns the requests waiting on an admin decision
func (s *AdminService) PendingWithdrawals(ctx context.Context, limit int) ([]models.WithdrawalRequest, error) {
	if limit <= 0 || limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	reqs, err := s.store.ListPendingWithdrawals(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending withdrawals: %w", err)
	}
	return reqs, nil
}

// LogAdminAction logs an admin action. The audit trail is best effort and
// never fails the action it describes.
func (s *AdminService) LogAdminAction(ctx context.Context, actor, action, resourceType, resourceID string,
	details map[string]interface{}) {

	adminLog := models.AdminLog{
		Actor:        actor,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Details:      models.JSONB(details),
	}

	if err := s.store.CreateAdminLog(ctx, &adminLog); err != nil {
		log.Printf("[AdminService] Failed to log %s on %s %s: %v", action, resourceType, resourceID, err)
	}
}

// GetAdminLogs returns admin activity logs
func (s *AdminService) GetAdminLogs(ctx context.Context, limit int, offset int) ([]models.AdminLog, error) {
	if limit <= 0 || limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.ListAdminLogs(ctx, limit, offset)
}
