package services

import (
	"sync"
	"testing"
	"time"

	"referral-ledger/internal/config"
	"referral-ledger/internal/database"
	"referral-ledger/internal/events"
	"referral-ledger/internal/models"
	"referral-ledger/internal/repository"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t testing.TB) *gorm.DB {
	db, err := database.Open(sqlite.Open(":memory:"), logger.Discard)
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}
	return db
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingSink struct {
	mu     sync.Mutex
	events []events.Event
}

func (s *recordingSink) Emit(e events.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func (s *recordingSink) count(typ events.Type) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.events {
		if e.Type == typ {
			n++
		}
	}
	return n
}

func (s *recordingSink) last(typ events.Type) (events.Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.events) - 1; i >= 0; i-- {
		if s.events[i].Type == typ {
			return s.events[i], true
		}
	}
	return events.Event{}, false
}

func testRewards() config.RewardsConfig {
	return config.RewardsConfig{
		JoinBonus:          10,
		ReferralBonus:      5,
		MinWithdraw:        50,
		MaxWithdraw:        500,
		WithdrawAmount:     50,
		DailyWithdrawLimit: 1,
		Timezone:           time.UTC,
		QuotaResetInterval: time.Hour,
	}
}

func testPolicy() config.PolicyConfig {
	return config.PolicyConfig{RequireVerifiedDevice: true}
}

type testLedger struct {
	db          *gorm.DB
	store       *repository.Repository
	sink        *recordingSink
	clock       *testClock
	accounts    *AccountService
	referrals   *ReferralService
	devices     *DeviceService
	withdrawals *WithdrawalService
	admin       *AdminService
}

func newTestLedger(t testing.TB, rewards config.RewardsConfig, policy config.PolicyConfig) *testLedger {
	db := setupTestDB(t)
	store := repository.NewRepository(db)
	locks := NewKeyedLocker(64)
	sink := &recordingSink{}
	clock := &testClock{now: time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)}

	l := &testLedger{
		db:          db,
		store:       store,
		sink:        sink,
		clock:       clock,
		accounts:    NewAccountService(store, locks, sink, rewards),
		referrals:   NewReferralService(store, locks, sink, rewards),
		devices:     NewDeviceService(store, locks, sink),
		withdrawals: NewWithdrawalService(store, locks, sink, rewards, policy),
		admin:       NewAdminService(store),
	}
	l.accounts.now = clock.Now
	l.referrals.now = clock.Now
	l.devices.now = clock.Now
	l.withdrawals.now = clock.Now
	return l
}

// seedAccount inserts an account directly, bypassing the join bonus
func (l *testLedger) seedAccount(t *testing.T, id string, balance int64, verified bool) {
	t.Helper()
	account := models.Account{ID: id, Balance: balance, Verified: verified}
	if verified {
		device := "device-" + id
		account.DeviceID = &device
	}
	if err := l.db.Create(&account).Error; err != nil {
		t.Fatalf("failed to seed account %s: %v", id, err)
	}
}

func (l *testLedger) account(t *testing.T, id string) *models.Account {
	t.Helper()
	var account models.Account
	if err := l.db.First(&account, "id = ?", id).Error; err != nil {
		t.Fatalf("failed to load account %s: %v", id, err)
	}
	return &account
}

func (l *testLedger) countRows(t *testing.T, model interface{}, query string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	q := l.db.Model(model)
	if query != "" {
		q = q.Where(query, args...)
	}
	if err := q.Count(&n).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	return n
}
