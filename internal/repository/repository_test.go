package repository

import (
	"context"
	"errors"
	"testing"

	"referral-ledger/internal/database"
	"referral-ledger/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := database.Open(sqlite.Open(":memory:"), logger.Discard)
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}
	return db
}

func strPtr(s string) *string { return &s }

func TestCreateAccountIfAbsent(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(setupTestDB(t))

	created, err := repo.CreateAccountIfAbsent(ctx, &models.Account{ID: "a", Balance: 10})
	if err != nil || !created {
		t.Fatalf("first create: created=%v err=%v", created, err)
	}

	created, err = repo.CreateAccountIfAbsent(ctx, &models.Account{ID: "a", Balance: 99})
	if err != nil {
		t.Fatalf("second create failed: %v", err)
	}
	if created {
		t.Error("second create should not report creation")
	}

	account, err := repo.GetAccount(ctx, "a")
	if err != nil {
		t.Fatalf("GetAccount failed: %v", err)
	}
	if account.Balance != 10 {
		t.Errorf("expected balance 10, got %d", account.Balance)
	}

	if _, err := repo.GetAccount(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSubtractBalanceIsConditional(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(setupTestDB(t))
	repo.CreateAccountIfAbsent(ctx, &models.Account{ID: "a", Balance: 30})

	ok, err := repo.SubtractBalance(ctx, "a", 40)
	if err != nil {
		t.Fatalf("SubtractBalance failed: %v", err)
	}
	if ok {
		t.Fatal("debit larger than balance should not apply")
	}

	ok, _ = repo.SubtractBalance(ctx, "a", 30)
	if !ok {
		t.Fatal("exact debit should apply")
	}
	account, _ := repo.GetAccount(ctx, "a")
	if account.Balance != 0 {
		t.Errorf("expected balance 0, got %d", account.Balance)
	}
}

func TestApplyWithdrawalRollsCounter(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(setupTestDB(t))
	repo.CreateAccountIfAbsent(ctx, &models.Account{
		ID:                 "a",
		Balance:            200,
		LastWithdrawDate:   strPtr("2026-01-01"),
		WithdrawCountToday: 2,
	})

	// New day: counter restarts at 1 even though yesterday hit the limit
	ok, err := repo.ApplyWithdrawal(ctx, "a", 50, "2026-01-02", 2)
	if err != nil || !ok {
		t.Fatalf("first withdrawal: ok=%v err=%v", ok, err)
	}
	account, _ := repo.GetAccount(ctx, "a")
	if account.WithdrawCountToday != 1 || *account.LastWithdrawDate != "2026-01-02" || account.Balance != 150 {
		t.Fatalf("unexpected account after rollover: %+v", account)
	}

	ok, _ = repo.ApplyWithdrawal(ctx, "a", 50, "2026-01-02", 2)
	if !ok {
		t.Fatal("second withdrawal within limit should apply")
	}

	ok, _ = repo.ApplyWithdrawal(ctx, "a", 50, "2026-01-02", 2)
	if ok {
		t.Fatal("third withdrawal should be refused by the quota guard")
	}

	account, _ = repo.GetAccount(ctx, "a")
	if account.Balance != 100 || account.WithdrawCountToday != 2 {
		t.Errorf("refused withdrawal mutated account: %+v", account)
	}
}

func TestCreateReferralEdgeDuplicate(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(setupTestDB(t))

	if err := repo.CreateReferralEdge(ctx, &models.ReferralEdge{ReferrerID: "a", ReferredID: "b", Valid: true}); err != nil {
		t.Fatalf("first edge failed: %v", err)
	}
	err := repo.CreateReferralEdge(ctx, &models.ReferralEdge{ReferrerID: "c", ReferredID: "b", Valid: true})
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestResetStaleQuotaCounters(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(setupTestDB(t))
	repo.CreateAccountIfAbsent(ctx, &models.Account{ID: "old", LastWithdrawDate: strPtr("2026-01-01"), WithdrawCountToday: 1})
	repo.CreateAccountIfAbsent(ctx, &models.Account{ID: "today", LastWithdrawDate: strPtr("2026-01-02"), WithdrawCountToday: 1})

	n, err := repo.ResetStaleQuotaCounters(ctx, "2026-01-02")
	if err != nil {
		t.Fatalf("reset failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 row reset, got %d", n)
	}

	old, _ := repo.GetAccount(ctx, "old")
	today, _ := repo.GetAccount(ctx, "today")
	if old.WithdrawCountToday != 0 {
		t.Errorf("stale counter not reset: %d", old.WithdrawCountToday)
	}
	if today.WithdrawCountToday != 1 {
		t.Errorf("today's counter should be kept, got %d", today.WithdrawCountToday)
	}
}

func TestTransactionRollsBack(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(setupTestDB(t))
	repo.CreateAccountIfAbsent(ctx, &models.Account{ID: "a", Balance: 10})

	sentinel := errors.New("boom")
	err := repo.Transaction(ctx, func(tx Store) error {
		if err := tx.AddBalance(ctx, "a", 5); err != nil {
			return err
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel error, got %v", err)
	}

	account, _ := repo.GetAccount(ctx, "a")
	if account.Balance != 10 {
		t.Errorf("rollback failed, balance %d", account.Balance)
	}
}

func TestQuotaMarkerUpsert(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(setupTestDB(t))

	marker, err := repo.GetQuotaMarker(ctx)
	if err != nil || marker != nil {
		t.Fatalf("expected no marker, got %+v err=%v", marker, err)
	}

	if err := repo.SaveQuotaMarker(ctx, "2026-01-01"); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := repo.SaveQuotaMarker(ctx, "2026-01-02"); err != nil {
		t.Fatalf("second save failed: %v", err)
	}

	marker, _ = repo.GetQuotaMarker(ctx)
	if marker == nil || marker.LastResetDate != "2026-01-02" {
		t.Errorf("unexpected marker: %+v", marker)
	}
}
