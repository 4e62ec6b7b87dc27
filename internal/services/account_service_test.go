package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"referral-ledger/internal/events"
	"referral-ledger/internal/models"
)

func TestGetOrCreateSeedsJoinBonus(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t, testRewards(), testPolicy())

	account, created, err := l.accounts.GetOrCreate(ctx, "1001")
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	if !created {
		t.Error("first call should create the account")
	}
	if account.Balance != 10 {
		t.Errorf("expected balance 10, got %d", account.Balance)
	}

	// Second call returns the record unchanged
	l.db.Model(&models.Account{}).Where("id = ?", "1001").Update("balance", 42)
	account, created, err = l.accounts.GetOrCreate(ctx, "1001")
	if err != nil {
		t.Fatalf("second GetOrCreate failed: %v", err)
	}
	if created {
		t.Error("second call should not create")
	}
	if account.Balance != 42 {
		t.Errorf("existing balance should be untouched, got %d", account.Balance)
	}

	if got := l.sink.count(events.Registered); got != 1 {
		t.Errorf("expected exactly 1 Registered event, got %d", got)
	}
}

func TestGetOrCreateConcurrentFirstContact(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t, testRewards(), testPolicy())

	const callers = 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	createdCount := 0

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, created, err := l.accounts.GetOrCreate(ctx, "racer")
			if err != nil {
				t.Errorf("GetOrCreate failed: %v", err)
				return
			}
			if created {
				mu.Lock()
				createdCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if createdCount != 1 {
		t.Errorf("expected exactly one creating call, got %d", createdCount)
	}
	if balance := l.account(t, "racer").Balance; balance != 10 {
		t.Errorf("join bonus applied more than once, balance %d", balance)
	}
}

func TestGetOrCreateRequiresID(t *testing.T) {
	l := newTestLedger(t, testRewards(), testPolicy())
	_, _, err := l.accounts.GetOrCreate(context.Background(), "")
	if !errors.Is(err, ErrMissingField) {
		t.Errorf("expected ErrMissingField, got %v", err)
	}
}

func TestDebitInsufficientLeavesBalance(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t, testRewards(), testPolicy())
	l.seedAccount(t, "a", 10, false)

	err := l.accounts.Debit(ctx, "a", 11)
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if !strings.Contains(err.Error(), "balance 10") {
		t.Errorf("error should include current balance: %v", err)
	}
	if balance := l.account(t, "a").Balance; balance != 10 {
		t.Errorf("balance changed to %d", balance)
	}
}

func TestCreditAndDebit(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t, testRewards(), testPolicy())
	l.seedAccount(t, "a", 0, false)

	if err := l.accounts.Credit(ctx, "a", 25); err != nil {
		t.Fatalf("Credit failed: %v", err)
	}
	if err := l.accounts.Debit(ctx, "a", 20); err != nil {
		t.Fatalf("Debit failed: %v", err)
	}
	balance, err := l.accounts.Balance(ctx, "a")
	if err != nil {
		t.Fatalf("Balance failed: %v", err)
	}
	if balance != 5 {
		t.Errorf("expected balance 5, got %d", balance)
	}

	if err := l.accounts.Credit(ctx, "a", 0); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("expected ErrInvalidAmount, got %v", err)
	}
	if err := l.accounts.Credit(ctx, "ghost", 5); !errors.Is(err, ErrAccountNotFound) {
		t.Errorf("expected ErrAccountNotFound, got %v", err)
	}
	if _, err := l.accounts.Get(ctx, "ghost"); !errors.Is(err, ErrAccountNotFound) {
		t.Errorf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestConcurrentDebitsNeverGoNegative(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t, testRewards(), testPolicy())
	l.seedAccount(t, "a", 100, false)

	const debits = 30
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0

	for i := 0; i < debits; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := l.accounts.Debit(ctx, "a", 10)
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			if !errors.Is(err, ErrInsufficientBalance) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded != 10 {
		t.Errorf("expected 10 successful debits, got %d", succeeded)
	}
	if balance := l.account(t, "a").Balance; balance != 0 {
		t.Errorf("expected balance 0, got %d", balance)
	}
}

func TestTouchLastSeen(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t, testRewards(), testPolicy())
	l.seedAccount(t, "a", 0, false)

	l.accounts.TouchLastSeen(ctx, "a")
	// Unknown accounts are ignored
	l.accounts.TouchLastSeen(ctx, "ghost")

	account := l.account(t, "a")
	if account.LastSeenAt == nil || !account.LastSeenAt.Equal(l.clock.Now()) {
		t.Errorf("last seen not recorded: %v", account.LastSeenAt)
	}
}
