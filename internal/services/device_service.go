package services

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"log"
	"time"

	"referral-ledger/internal/events"
	"referral-ledger/internal/models"
	"referral-ledger/internal/repository"

	"github.com/google/uuid"
	"github.com/mr-tron/base58"
)

const (
	challengeTTL       = 10 * time.Minute
	challengeCodeChars = 6
)

// DeviceService binds accounts to device fingerprints and runs the
// challenge/verify flow when a new device shows up.
type DeviceService struct {
	store repository.Store
	locks *KeyedLocker
	sink  events.Sink
	now   func() time.Time
}

func NewDeviceService(store repository.Store, locks *KeyedLocker, sink events.Sink) *DeviceService {
	return &DeviceService{
		store: store,
		locks: locks,
		sink:  sink,
		now:   time.Now,
	}
}

// RegisterDevice records the fingerprint presented by the account and returns
// the challenge the user must answer, or nil when the device is already the
// verified one.
func (s *DeviceService) RegisterDevice(ctx context.Context, accountID, fingerprint string) (challenge *models.VerificationChallenge, err error) {
	defer func() { observe("register_device", err) }()

	if accountID == "" || fingerprint == "" {
		return nil, fmt.Errorf("%w: account id and fingerprint", ErrMissingField)
	}

	unlock := s.locks.Lock(accountID)
	defer unlock()

	now := s.now()
	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		account, err := tx.GetAccount(ctx, accountID)
		if err != nil {
			return accountErr(err)
		}

		if err := tx.EnsureDeviceBinding(ctx, &models.DeviceBinding{
			AccountID:   accountID,
			Fingerprint: fingerprint,
			FirstSeenAt: now,
		}); err != nil {
			return fmt.Errorf("failed to record device: %w", err)
		}

		switch {
		case account.DeviceID == nil:
			// First device: bind tentatively until verified
			if err := tx.SetDevice(ctx, accountID, fingerprint, false); err != nil {
				return fmt.Errorf("failed to bind device: %w", err)
			}
		case *account.DeviceID == fingerprint && account.Verified:
			return nil
		case *account.DeviceID == fingerprint:
			// Same device, still unverified: issue a fresh challenge
		default:
			// New device: the bound device stays canonical and verified until
			// the new one answers its challenge
			log.Printf("[DeviceService] New device detected for %s", accountID)
		}

		code, err := generateChallengeCode()
		if err != nil {
			return fmt.Errorf("failed to generate code: %w", err)
		}
		challenge = &models.VerificationChallenge{
			ID:          uuid.New(),
			AccountID:   accountID,
			Fingerprint: fingerprint,
			Code:        code,
			ExpiresAt:   now.Add(challengeTTL),
			CreatedAt:   now,
		}
		if err := tx.CreateChallenge(ctx, challenge); err != nil {
			return fmt.Errorf("failed to create challenge: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if challenge != nil {
		s.sink.Emit(events.Event{
			Type:        events.VerificationRequested,
			AccountID:   accountID,
			Fingerprint: fingerprint,
			Code:        challenge.Code,
			OccurredAt:  now,
		})
	}
	return challenge, nil
}

// Verify consumes the newest challenge for the account and fingerprint. On
// success the fingerprint becomes the account's canonical device.
func (s *DeviceService) Verify(ctx context.Context, accountID, fingerprint, code string) (account *models.Account, err error) {
	defer func() { observe("verify_device", err) }()

	if accountID == "" || fingerprint == "" || code == "" {
		return nil, fmt.Errorf("%w: account id, fingerprint and code", ErrMissingField)
	}

	unlock := s.locks.Lock(accountID)
	defer unlock()

	now := s.now()
	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		if _, err := tx.GetAccount(ctx, accountID); err != nil {
			return accountErr(err)
		}

		challenge, err := tx.LatestChallenge(ctx, accountID, fingerprint)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrChallengeNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to load challenge: %w", err)
		}
		if subtle.ConstantTimeCompare([]byte(challenge.Code), []byte(code)) != 1 {
			return ErrChallengeNotFound
		}
		if challenge.Used {
			return ErrChallengeAlreadyUsed
		}
		if challenge.Expired(now) {
			return ErrChallengeExpired
		}

		consumed, err := tx.ConsumeChallenge(ctx, challenge.ID)
		if err != nil {
			return fmt.Errorf("failed to consume challenge: %w", err)
		}
		if !consumed {
			return ErrChallengeAlreadyUsed
		}

		if err := tx.SetDevice(ctx, accountID, fingerprint, true); err != nil {
			return fmt.Errorf("failed to bind device: %w", err)
		}
		if err := tx.MarkDeviceBindingVerified(ctx, accountID, fingerprint, now); err != nil {
			return fmt.Errorf("failed to mark binding verified: %w", err)
		}

		account, err = tx.GetAccount(ctx, accountID)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[DeviceService] Verified device for %s", accountID)
	return account, nil
}

// generateChallengeCode returns a short code over the base58 alphabet, which
// leaves out look-alike characters.
func generateChallengeCode() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	encoded := base58.Encode(b)
	return encoded[len(encoded)-challengeCodeChars:], nil
}
