package notify

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"referral-ledger/internal/events"

	"github.com/go-redis/redis/v8"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type fakeSender struct {
	sent []tgbotapi.MessageConfig
	err  error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, msg)
	}
	return tgbotapi.Message{}, f.err
}

func TestTelegramWithdrawalSubmitted(t *testing.T) {
	fake := &fakeSender{}
	tg := &Telegram{bot: fake, adminChatID: 999}

	err := tg.Notify(context.Background(), events.Event{
		Type:      events.WithdrawalSubmitted,
		AccountID: "12345",
		Amount:       5000,
		RequestID:    "req-1",
		PayoutTarget: "alice@bank",
	})
	if err != nil {
		t.Fatalf("Notify failed: %v", err)
	}

	if len(fake.sent) != 2 {
		t.Fatalf("expected admin and user messages, got %d", len(fake.sent))
	}
	if fake.sent[0].ChatID != 999 || !strings.Contains(fake.sent[0].Text, "50.00") {
		t.Errorf("unexpected admin message: %+v", fake.sent[0])
	}
	if !strings.Contains(fake.sent[0].Text, "alice@bank") {
		t.Errorf("admin message should carry the payout target: %q", fake.sent[0].Text)
	}
	if fake.sent[1].ChatID != 12345 || fake.sent[1].ParseMode != tgbotapi.ModeHTML {
		t.Errorf("unexpected user message: %+v", fake.sent[1])
	}
}

func TestTelegramSkipsNonNumericAccounts(t *testing.T) {
	fake := &fakeSender{}
	tg := &Telegram{bot: fake}

	err := tg.Notify(context.Background(), events.Event{
		Type:      events.VerificationRequested,
		AccountID: "web-user",
		Code:      "abc123",
	})
	if err != nil {
		t.Fatalf("Notify failed: %v", err)
	}
	if len(fake.sent) != 0 {
		t.Errorf("expected no messages, got %d", len(fake.sent))
	}
}

func TestTelegramReturnsSendError(t *testing.T) {
	fake := &fakeSender{err: errors.New("blocked by user")}
	tg := &Telegram{bot: fake, adminChatID: 1}

	err := tg.Notify(context.Background(), events.Event{Type: events.Registered, AccountID: "5"})
	if err == nil {
		t.Fatal("expected send error")
	}
}

type fakePublisher struct {
	channel string
	payload []byte
	err     error
}

func (f *fakePublisher) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	f.channel = channel
	f.payload, _ = message.([]byte)
	return redis.NewIntResult(1, f.err)
}

func TestRedisPublisherStripsCode(t *testing.T) {
	fake := &fakePublisher{}
	p := &RedisPublisher{client: fake, channel: "referral-events"}

	err := p.Notify(context.Background(), events.Event{
		Type:      events.VerificationRequested,
		AccountID: "1",
		Code:      "secret",
	})
	if err != nil {
		t.Fatalf("Notify failed: %v", err)
	}
	if fake.channel != "referral-events" {
		t.Errorf("published on %q", fake.channel)
	}

	var decoded events.Event
	if err := json.Unmarshal(fake.payload, &decoded); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if decoded.Type != events.VerificationRequested || decoded.Code != "" {
		t.Errorf("unexpected payload: %+v", decoded)
	}
}

func TestRedisPublisherError(t *testing.T) {
	fake := &fakePublisher{err: errors.New("connection refused")}
	p := &RedisPublisher{client: fake, channel: "c"}

	if err := p.Notify(context.Background(), events.Event{Type: events.Registered}); err == nil {
		t.Error("expected publish error")
	}
}
