package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"referral-ledger/internal/config"
	"referral-ledger/internal/events"
	"referral-ledger/internal/metrics"
	"referral-ledger/internal/models"
	"referral-ledger/internal/repository"

	"github.com/google/uuid"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
	dateLayout          = "2006-01-02"
)

// payoutTargetPattern accepts UPI-style handles such as "name.surname@bank"
var payoutTargetPattern = regexp.MustCompile(`^[A-Za-z0-9._-]{2,49}@[A-Za-z]{2,}$`)

// WithdrawalLimits is what the front-end shows the user before they withdraw
type WithdrawalLimits struct {
	MinWithdraw int64 `json:"min_withdraw"`
	MaxWithdraw int64 `json:"max_withdraw"`
	Amount      int64 `json:"amount"`
	DailyLimit  int   `json:"daily_limit"`
}

// WithdrawalService runs the withdrawal request state machine
type WithdrawalService struct {
	store   repository.Store
	locks   *KeyedLocker
	sink    events.Sink
	rewards config.RewardsConfig
	policy  config.PolicyConfig
	now     func() time.Time
}

func NewWithdrawalService(
	store repository.Store,
	locks *KeyedLocker,
	sink events.Sink,
	rewards config.RewardsConfig,
	policy config.PolicyConfig,
) *WithdrawalService {
	if rewards.Timezone == nil {
		rewards.Timezone = time.UTC
	}
	return &WithdrawalService{
		store:   store,
		locks:   locks,
		sink:    sink,
		rewards: rewards,
		policy:  policy,
		now:     time.Now,
	}
}

// ValidatePayoutTarget checks the localpart@domain grammar
func ValidatePayoutTarget(target string) error {
	if !payoutTargetPattern.MatchString(target) {
		return ErrInvalidPayoutFormat
	}
	return nil
}

// Limits returns the configured withdrawal bounds
func (s *WithdrawalService) Limits() WithdrawalLimits {
	return WithdrawalLimits{
		MinWithdraw: s.rewards.MinWithdraw,
		MaxWithdraw: s.rewards.MaxWithdraw,
		Amount:      s.rewards.WithdrawAmount,
		DailyLimit:  s.rewards.DailyWithdrawLimit,
	}
}

func (s *WithdrawalService) today() string {
	return s.now().In(s.rewards.Timezone).Format(dateLayout)
}

// RequestWithdrawal debits the fixed withdraw amount and files a PENDING request
func (s *WithdrawalService) RequestWithdrawal(ctx context.Context, accountID, payoutTarget string) (req *models.WithdrawalRequest, err error) {
	defer func() { observe("request_withdrawal", err) }()

	if accountID == "" {
		return nil, fmt.Errorf("%w: account id", ErrMissingField)
	}
	payoutTarget = strings.TrimSpace(payoutTarget)
	if err := ValidatePayoutTarget(payoutTarget); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(accountID)
	defer unlock()

	amount := s.rewards.WithdrawAmount
	today := s.today()
	now := s.now()
	var balance int64

	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		account, err := tx.GetAccount(ctx, accountID)
		if err != nil {
			return accountErr(err)
		}
		if err := s.checkWithdrawable(account, today, amount); err != nil {
			return err
		}

		applied, err := tx.ApplyWithdrawal(ctx, accountID, amount, today, s.rewards.DailyWithdrawLimit)
		if err != nil {
			return fmt.Errorf("failed to debit account: %w", err)
		}
		if !applied {
			// Another writer got in between the read and the update
			current, err := tx.GetAccount(ctx, accountID)
			if err != nil {
				return accountErr(err)
			}
			if err := s.checkWithdrawable(current, today, amount); err != nil {
				return err
			}
			return fmt.Errorf("withdrawal guard refused account %s", accountID)
		}

		req = &models.WithdrawalRequest{
			ID:           uuid.New(),
			AccountID:    accountID,
			Amount:       amount,
			PayoutTarget: payoutTarget,
			Status:       models.WithdrawalStatusPending,
			CreatedAt:    now,
		}
		if err := tx.CreateWithdrawal(ctx, req); err != nil {
			return fmt.Errorf("failed to create withdrawal request: %w", err)
		}

		balance = account.Balance - amount
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[WithdrawalService] %s requested %d to %s (request %s)", accountID, amount, payoutTarget, req.ID)
	metrics.WithdrawnTotal.Add(float64(amount))
	s.sink.Emit(events.Event{
		Type:         events.WithdrawalSubmitted,
		AccountID:    accountID,
		RequestID:    req.ID.String(),
		PayoutTarget: payoutTarget,
		Amount:       amount,
		Balance:      balance,
		OccurredAt:   now,
	})

	return req, nil
}

func (s *WithdrawalService) checkWithdrawable(account *models.Account, today string, amount int64) error {
	if s.policy.RequireVerifiedDevice && !account.Verified {
		return ErrDeviceUnverified
	}
	if account.WithdrawalsOn(today) >= s.rewards.DailyWithdrawLimit {
		return fmt.Errorf("%w: %d of %d used today", ErrDailyLimitExceeded,
			account.WithdrawalsOn(today), s.rewards.DailyWithdrawLimit)
	}
	if account.Balance < amount {
		return fmt.Errorf("%w: balance %d, need %d", ErrInsufficientBalance, account.Balance, amount)
	}
	return nil
}

// ResolveWithdrawal moves a PENDING request to APPROVED or REJECTED. With
// refund-on-reject enabled a rejection credits the amount back in the same transaction.
func (s *WithdrawalService) ResolveWithdrawal(
	ctx context.Context,
	requestID uuid.UUID,
	decision models.WithdrawalStatus,
) (req *models.WithdrawalRequest, err error) {
	defer func() { observe("resolve_withdrawal", err) }()

	if !decision.Terminal() {
		return nil, ErrInvalidDecision
	}

	existing, err := s.store.GetWithdrawal(ctx, requestID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrRequestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load withdrawal request: %w", err)
	}

	unlock := s.locks.Lock(existing.AccountID)
	defer unlock()

	refund := decision == models.WithdrawalStatusRejected && s.policy.RefundOnReject
	now := s.now()

	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		resolved, err := tx.ResolveWithdrawal(ctx, requestID, decision, now, refund)
		if err != nil {
			return fmt.Errorf("failed to resolve withdrawal request: %w", err)
		}
		if !resolved {
			return ErrInvalidTransition
		}
		if refund {
			if err := tx.AddBalance(ctx, existing.AccountID, existing.Amount); err != nil {
				return fmt.Errorf("failed to refund withdrawal: %w", err)
			}
		}
		req, err = tx.GetWithdrawal(ctx, requestID)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[WithdrawalService] Request %s %s (refunded=%v)", requestID, decision, refund)
	if refund {
		metrics.CreditedTotal.WithLabelValues("refund").Add(float64(req.Amount))
	}
	s.sink.Emit(events.Event{
		Type:       events.WithdrawalResolved,
		AccountID:  req.AccountID,
		RequestID:  req.ID.String(),
		Amount:     req.Amount,
		Decision:   string(decision),
		Refunded:   refund,
		OccurredAt: now,
	})

	return req, nil
}

// History returns the account's most recent requests, newest first
func (s *WithdrawalService) History(ctx context.Context, accountID string, limit int) ([]models.WithdrawalRequest, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	reqs, err := s.store.ListWithdrawals(ctx, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list withdrawals: %w", err)
	}
	return reqs, nil
}
