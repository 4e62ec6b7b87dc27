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

// AccountService owns account creation and raw balance movements
type AccountService struct {
	store     repository.Store
	locks     *KeyedLocker
	sink      events.Sink
	joinBonus int64
	now       func() time.Time
}

// NewAccountService creates a new AccountService
func NewAccountService(store repository.Store, locks *KeyedLocker, sink events.Sink, rewards config.RewardsConfig) *AccountService {
	return &AccountService{
		store:     store,
		locks:     locks,
		sink:      sink,
		joinBonus: rewards.JoinBonus,
		now:       time.Now,
	}
}

// GetOrCreate returns the account, creating it with the join bonus on first contact.
// created is true only for the call that inserted the row.
func (s *AccountService) GetOrCreate(ctx context.Context, accountID string) (account *models.Account, created bool, err error) {
	defer func() { observe("get_or_create", err) }()

	if accountID == "" {
		return nil, false, fmt.Errorf("%w: account id", ErrMissingField)
	}

	unlock := s.locks.Lock(accountID)
	defer unlock()

	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		var txErr error
		created, txErr = tx.CreateAccountIfAbsent(ctx, &models.Account{
			ID:        accountID,
			Balance:   s.joinBonus,
			CreatedAt: s.now(),
		})
		if txErr != nil {
			return fmt.Errorf("failed to create account: %w", txErr)
		}
		account, txErr = tx.GetAccount(ctx, accountID)
		if txErr != nil {
			return fmt.Errorf("failed to load account: %w", txErr)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	if created {
		log.Printf("[AccountService] Registered %s with join bonus %d", accountID, s.joinBonus)
		metrics.CreditedTotal.WithLabelValues("join_bonus").Add(float64(s.joinBonus))
		s.sink.Emit(events.Event{
			Type:       events.Registered,
			AccountID:  accountID,
			Amount:     s.joinBonus,
			Balance:    account.Balance,
			OccurredAt: s.now(),
		})
	}

	return account, created, nil
}

// Get retrieves an account by ID
func (s *AccountService) Get(ctx context.Context, accountID string) (*models.Account, error) {
	account, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return nil, accountErr(err)
	}
	return account, nil
}

// Balance returns the current balance in minor units
func (s *AccountService) Balance(ctx context.Context, accountID string) (int64, error) {
	account, err := s.Get(ctx, accountID)
	if err != nil {
		return 0, err
	}
	return account.Balance, nil
}

// Credit adds amount to the account balance
func (s *AccountService) Credit(ctx context.Context, accountID string, amount int64) (err error) {
	defer func() { observe("credit", err) }()

	if amount <= 0 {
		return ErrInvalidAmount
	}

	unlock := s.locks.Lock(accountID)
	defer unlock()

	if err := s.store.AddBalance(ctx, accountID, amount); err != nil {
		return accountErr(err)
	}
	metrics.CreditedTotal.WithLabelValues("manual").Add(float64(amount))
	return nil
}

// Debit removes amount from the account balance, refusing to go below zero
func (s *AccountService) Debit(ctx context.Context, accountID string, amount int64) (err error) {
	defer func() { observe("debit", err) }()

	if amount <= 0 {
		return ErrInvalidAmount
	}

	unlock := s.locks.Lock(accountID)
	defer unlock()

	return s.store.Transaction(ctx, func(tx repository.Store) error {
		ok, err := tx.SubtractBalance(ctx, accountID, amount)
		if err != nil {
			return fmt.Errorf("failed to debit account: %w", err)
		}
		if ok {
			return nil
		}

		account, err := tx.GetAccount(ctx, accountID)
		if err != nil {
			return accountErr(err)
		}
		return fmt.Errorf("%w: balance %d, need %d", ErrInsufficientBalance, account.Balance, amount)
	})
}

// TouchLastSeen records activity. Failures are logged and otherwise ignored.
func (s *AccountService) TouchLastSeen(ctx context.Context, accountID string) {
	if err := s.store.TouchLastSeen(ctx, accountID, s.now()); err != nil {
		log.Printf("[AccountService] Failed to touch last seen for %s: %v", accountID, err)
	}
}

func accountErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrAccountNotFound
	}
	return fmt.Errorf("account store: %w", err)
}
