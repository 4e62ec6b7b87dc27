package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"referral-ledger/internal/config"
	"referral-ledger/internal/events"
	"referral-ledger/internal/metrics"
	"referral-ledger/internal/models"
	"referral-ledger/internal/repository"
)

type ReferralService struct {
	store    repository.Store
	locks    *KeyedLocker
	sink     events.Sink
	refBonus int64
	now      func() time.Time
}

func NewReferralService(store repository.Store, locks *KeyedLocker, sink events.Sink, rewards config.RewardsConfig) *ReferralService {
	return &ReferralService{
		store:    store,
		locks:    locks,
		sink:     sink,
		refBonus: rewards.ReferralBonus,
		now:      time.Now,
	}
}

// ClaimReferral records that referrerID brought in referredID and credits the
// referrer. fingerprint is the device the referred identity signed up from and
// may be empty when the front-end could not collect one.
func (s *ReferralService) ClaimReferral(ctx context.Context, referredID, referrerID, fingerprint string) (edge *models.ReferralEdge, err error) {
	defer func() { observe("claim_referral", err) }()

	if referredID == "" || referrerID == "" {
		return nil, fmt.Errorf("%w: referred and referrer ids", ErrMissingField)
	}

	// Cannot refer yourself
	if referrerID == referredID {
		return nil, ErrSelfReferral
	}

	// The fingerprint joins the lock set so two identities on one device
	// cannot both pass the duplicate-device check
	keys := []string{referrerID, referredID}
	if fingerprint != "" {
		keys = append(keys, deviceLockKey(fingerprint))
	}
	unlock := s.locks.Lock(keys...)
	defer unlock()

	var balance int64
	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		referrer, err := tx.GetAccount(ctx, referrerID)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUnknownReferrer
		}
		if err != nil {
			return fmt.Errorf("failed to load referrer: %w", err)
		}

		// Check if already referred
		if _, err := tx.GetReferralEdgeByReferred(ctx, referredID); err == nil {
			return ErrAlreadyReferred
		} else if !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("failed to check existing referral: %w", err)
		}

		var deviceID *string
		if fingerprint != "" {
			if referrer.DeviceID != nil && *referrer.DeviceID == fingerprint {
				return fmt.Errorf("%w: referred device belongs to the referrer", ErrSelfReferral)
			}
			used, err := tx.DeviceBacksValidEdge(ctx, fingerprint)
			if err != nil {
				return fmt.Errorf("failed to check device: %w", err)
			}
			if used {
				return ErrDuplicateDevice
			}
			deviceID = &fingerprint
		}

		edge = &models.ReferralEdge{
			ReferrerID:  referrerID,
			ReferredID:  referredID,
			DeviceID:    deviceID,
			Valid:       true,
			BonusAmount: s.refBonus,
			CreatedAt:   s.now(),
		}
		if err := tx.CreateReferralEdge(ctx, edge); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return ErrAlreadyReferred
			}
			return fmt.Errorf("failed to create referral: %w", err)
		}

		if s.refBonus > 0 {
			if err := tx.AddBalance(ctx, referrerID, s.refBonus); err != nil {
				return fmt.Errorf("failed to credit referrer: %w", err)
			}
		}
		if err := tx.AdjustReferralCount(ctx, referrerID, 1); err != nil {
			return fmt.Errorf("failed to update referral count: %w", err)
		}

		balance = referrer.Balance + s.refBonus
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrUnknownReferrer) {
			log.Printf("[ReferralService] Unknown referrer %s for %s", referrerID, referredID)
		}
		return nil, err
	}

	log.Printf("[ReferralService] %s referred by %s, credited %d", referredID, referrerID, s.refBonus)
	metrics.CreditedTotal.WithLabelValues("referral_bonus").Add(float64(s.refBonus))
	s.sink.Emit(events.Event{
		Type:       events.ReferralEarned,
		AccountID:  referrerID,
		ReferrerID: referrerID,
		ReferredID: referredID,
		Amount:     s.refBonus,
		Balance:    balance,
		OccurredAt: s.now(),
	})

	return edge, nil
}

// ListReferrals returns every edge naming the referrer, newest first
func (s *ReferralService) ListReferrals(ctx context.Context, referrerID string) ([]models.ReferralEdge, error) {
	edges, err := s.store.ListReferralEdges(ctx, referrerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list referrals: %w", err)
	}
	return edges, nil
}

// InvalidateReferral marks a referral as fraudulent. The referrer's count drops
// by one; the bonus already credited stays. Invalidating twice is a no-op.
func (s *ReferralService) InvalidateReferral(ctx context.Context, referredID string) (edge *models.ReferralEdge, err error) {
	defer func() { observe("invalidate_referral", err) }()

	existing, err := s.store.GetReferralEdgeByReferred(ctx, referredID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrReferralNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load referral: %w", err)
	}

	unlock := s.locks.Lock(existing.ReferrerID)
	defer unlock()

	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		flipped, err := tx.InvalidateReferralEdge(ctx, referredID, s.now())
		if err != nil {
			return fmt.Errorf("failed to invalidate referral: %w", err)
		}
		if flipped {
			if err := tx.AdjustReferralCount(ctx, existing.ReferrerID, -1); err != nil {
				return fmt.Errorf("failed to update referral count: %w", err)
			}
			log.Printf("[ReferralService] Invalidated referral of %s by %s", referredID, existing.ReferrerID)
		}
		edge, err = tx.GetReferralEdgeByReferred(ctx, referredID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return edge, nil
}

func deviceLockKey(fingerprint string) string {
	return "device:" + fingerprint
}
