package events

import (
	"context"
	"log"
	"sync"
	"time"

	"referral-ledger/internal/metrics"
)

type Type string

const (
	Registered            Type = "registered"
	ReferralEarned        Type = "referral_earned"
	WithdrawalSubmitted   Type = "withdrawal_submitted"
	WithdrawalResolved    Type = "withdrawal_resolved"
	VerificationRequested Type = "verification_requested"
)

// Event is a ledger fact published after the transaction that produced it committed.
type Event struct {
	Type         Type      `json:"type"`
	AccountID    string    `json:"account_id"`
	ReferrerID   string    `json:"referrer_id,omitempty"`
	ReferredID   string    `json:"referred_id,omitempty"`
	RequestID    string    `json:"request_id,omitempty"`
	PayoutTarget string    `json:"payout_target,omitempty"`
	Amount       int64     `json:"amount,omitempty"`
	Balance      int64     `json:"balance,omitempty"`
	Decision     string    `json:"decision,omitempty"`
	Refunded     bool      `json:"refunded,omitempty"`
	Fingerprint  string    `json:"fingerprint,omitempty"`
	Code         string    `json:"code,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// Sink accepts events without blocking the caller.
type Sink interface {
	Emit(e Event)
}

// Notifier delivers one event to an outside channel.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, e Event) error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Emit(Event) {}

const deliveryTimeout = 10 * time.Second

// Emitter fans events out to notifiers from a bounded queue. Emit never blocks:
// when the queue is full the event is dropped and counted.
type Emitter struct {
	queue     chan Event
	notifiers []Notifier
	workers   int

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewEmitter(queueSize, workers int, notifiers ...Notifier) *Emitter {
	if queueSize <= 0 {
		queueSize = 1
	}
	if workers <= 0 {
		workers = 1
	}
	return &Emitter{
		queue:     make(chan Event, queueSize),
		notifiers: notifiers,
		workers:   workers,
	}
}

// Start launches the delivery workers
func (e *Emitter) Start() {
	for i := 0; i < e.workers; i++ {
		e.wg.Add(1)
		go e.run()
	}
	log.Printf("[Emitter] Started %d workers for %d notifiers", e.workers, len(e.notifiers))
}

// Emit implements Sink.
func (e *Emitter) Emit(ev Event) {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now()
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		metrics.EventsDropped.WithLabelValues(string(ev.Type)).Inc()
		log.Printf("[Emitter] Dropped %s for %s: emitter closed", ev.Type, ev.AccountID)
		return
	}

	select {
	case e.queue <- ev:
		metrics.EventsEmitted.WithLabelValues(string(ev.Type)).Inc()
	default:
		metrics.EventsDropped.WithLabelValues(string(ev.Type)).Inc()
		log.Printf("[Emitter] Queue full, dropped %s for %s", ev.Type, ev.AccountID)
	}
}

// Close stops accepting events and waits for queued ones to be delivered
func (e *Emitter) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	close(e.queue)
	e.mu.Unlock()

	e.wg.Wait()
	log.Println("[Emitter] Stopped")
}

func (e *Emitter) run() {
	defer e.wg.Done()
	for ev := range e.queue {
		e.deliver(ev)
	}
}

func (e *Emitter) deliver(ev Event) {
	for _, n := range e.notifiers {
		ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
		err := n.Notify(ctx, ev)
		cancel()
		if err != nil {
			metrics.NotifyFailures.WithLabelValues(n.Name()).Inc()
			log.Printf("[Emitter] %s failed to deliver %s for %s: %v", n.Name(), ev.Type, ev.AccountID, err)
		}
	}
}
