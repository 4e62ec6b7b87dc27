package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"referral-ledger/internal/metrics"
	"referral-ledger/internal/repository"

	"github.com/go-co-op/gocron/v2"
)

// QuotaResetter zeroes stale daily withdrawal counters once per date. The
// withdrawal path already rolls counters lazily; this keeps dormant accounts
// from displaying yesterday's count.
type QuotaResetter struct {
	store     repository.Store
	interval  time.Duration
	location  *time.Location
	now       func() time.Time
	scheduler gocron.Scheduler
}

// NewQuotaResetter creates a new quota resetter job
func NewQuotaResetter(store repository.Store, interval time.Duration, location *time.Location) *QuotaResetter {
	if location == nil {
		location = time.UTC
	}
	return &QuotaResetter{
		store:    store,
		interval: interval,
		location: location,
		now:      time.Now,
	}
}

// Start schedules the reset every interval, with the first run immediately
func (qr *QuotaResetter) Start() error {
	sched, err := gocron.NewScheduler(gocron.WithLocation(qr.location))
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	_, err = sched.NewJob(
		gocron.DurationJob(qr.interval),
		gocron.NewTask(func() {
			if _, err := qr.RunOnce(context.Background()); err != nil {
				log.Printf("[QuotaResetter] Reset failed: %v", err)
			}
		}),
		gocron.WithStartAt(gocron.WithStartImmediately()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule quota reset: %w", err)
	}

	qr.scheduler = sched
	sched.Start()
	log.Printf("[QuotaResetter] Starting quota reset job (interval: %v, timezone: %s)", qr.interval, qr.location)
	return nil
}

// Stop shuts the scheduler down, waiting for a running reset to finish
func (qr *QuotaResetter) Stop() {
	if qr.scheduler == nil {
		return
	}
	if err := qr.scheduler.Shutdown(); err != nil {
		log.Printf("[QuotaResetter] Shutdown error: %v", err)
	}
	log.Println("[QuotaResetter] Stopped quota reset job")
}

// RunOnce performs one reset pass and reports how many accounts were touched.
// Running it again on the same date changes nothing.
func (qr *QuotaResetter) RunOnce(ctx context.Context) (int64, error) {
	today := qr.now().In(qr.location).Format("2006-01-02")

	var reset int64
	err := qr.store.Transaction(ctx, func(tx repository.Store) error {
		marker, err := tx.GetQuotaMarker(ctx)
		if err != nil {
			return fmt.Errorf("failed to read reset marker: %w", err)
		}
		if marker != nil && marker.LastResetDate == today {
			return nil
		}

		reset, err = tx.ResetStaleQuotaCounters(ctx, today)
		if err != nil {
			return fmt.Errorf("failed to reset counters: %w", err)
		}
		return tx.SaveQuotaMarker(ctx, today)
	})
	if err != nil {
		return 0, err
	}

	if reset > 0 {
		metrics.QuotaResets.Add(float64(reset))
		log.Printf("[QuotaResetter] Reset daily withdrawal counters for %d accounts (%s)", reset, today)
	}
	return reset, nil
}
