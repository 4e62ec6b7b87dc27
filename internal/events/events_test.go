package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []Event
	err    error
	block  chan struct{}
}

func (n *recordingNotifier) Name() string { return "recording" }

func (n *recordingNotifier) Notify(ctx context.Context, e Event) error {
	if n.block != nil {
		<-n.block
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
	return n.err
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.events)
}

func TestEmitterDeliversToAllNotifiers(t *testing.T) {
	a := &recordingNotifier{}
	b := &recordingNotifier{err: errors.New("telegram down")}
	emitter := NewEmitter(8, 2, a, b)
	emitter.Start()

	emitter.Emit(Event{Type: Registered, AccountID: "1"})
	emitter.Emit(Event{Type: ReferralEarned, AccountID: "2", Amount: 5})
	emitter.Close()

	if a.count() != 2 {
		t.Errorf("expected 2 events on first notifier, got %d", a.count())
	}
	// A failing notifier still receives every event and does not stop the others
	if b.count() != 2 {
		t.Errorf("expected 2 events on failing notifier, got %d", b.count())
	}
}

func TestEmitterDropsWhenFull(t *testing.T) {
	block := make(chan struct{})
	n := &recordingNotifier{block: block}
	emitter := NewEmitter(1, 1, n)
	emitter.Start()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			emitter.Emit(Event{Type: WithdrawalSubmitted, AccountID: "1"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Emit blocked on a full queue")
	}

	close(block)
	emitter.Close()

	// One event in flight plus one queued at most
	if got := n.count(); got < 1 || got > 2 {
		t.Errorf("expected 1 or 2 delivered events, got %d", got)
	}
}

func TestEmitAfterCloseIsDropped(t *testing.T) {
	n := &recordingNotifier{}
	emitter := NewEmitter(4, 1, n)
	emitter.Start()
	emitter.Close()

	emitter.Emit(Event{Type: Registered, AccountID: "1"})
	emitter.Close()

	if n.count() != 0 {
		t.Errorf("expected no delivery after close, got %d", n.count())
	}
}
