package notify

import (
	"context"
	"log"

	"referral-ledger/internal/events"
)

// Log writes events to the process log. Used when no outside channel is configured.
type Log struct{}

func (Log) Name() string { return "log" }

func (Log) Notify(ctx context.Context, e events.Event) error {
	log.Printf("[Notify] %s account=%s amount=%d request=%s", e.Type, e.AccountID, e.Amount, e.RequestID)
	return nil
}
