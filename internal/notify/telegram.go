package notify

import (
	"context"
	"fmt"
	"html"
	"strconv"

	"referral-ledger/internal/events"
	"referral-ledger/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram delivers ledger events as bot messages. Admin-facing events go to
// adminChatID; user-facing ones go to the account, whose ID is its Telegram user ID.
type Telegram struct {
	bot         sender
	adminChatID int64
}

func NewTelegram(token string, adminChatID int64) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return &Telegram{bot: bot, adminChatID: adminChatID}, nil
}

func (t *Telegram) Name() string { return "telegram" }

type outgoing struct {
	chatID int64
	text   string
}

// Notify implements events.Notifier.
func (t *Telegram) Notify(ctx context.Context, e events.Event) error {
	var firstErr error
	for _, m := range t.messages(e) {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		msg := tgbotapi.NewMessage(m.chatID, m.text)
		msg.ParseMode = tgbotapi.ModeHTML
		if _, err := t.bot.Send(msg); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("send to %d: %w", m.chatID, err)
		}
	}
	return firstErr
}

func (t *Telegram) messages(e events.Event) []outgoing {
	account := html.EscapeString(e.AccountID)
	var out []outgoing
	admin := func(text string) {
		if t.adminChatID != 0 {
			out = append(out, outgoing{t.adminChatID, text})
		}
	}
	user := func(id, text string) {
		if chatID, err := strconv.ParseInt(id, 10, 64); err == nil {
			out = append(out, outgoing{chatID, text})
		}
	}

	switch e.Type {
	case events.Registered:
		admin(fmt.Sprintf("🆕 <b>New user</b>\nID: <code>%s</code>\nBonus: %s", account, models.FormatMinor(e.Amount)))
	case events.ReferralEarned:
		admin(fmt.Sprintf("🤝 <b>Referral</b>\n<code>%s</code> referred <code>%s</code>",
			account, html.EscapeString(e.ReferredID)))
		user(e.ReferrerID, fmt.Sprintf("🎉 You earned <b>%s</b> for a new referral!\nBalance: %s",
			models.FormatMinor(e.Amount), models.FormatMinor(e.Balance)))
	case events.WithdrawalSubmitted:
		admin(fmt.Sprintf("💸 <b>Withdrawal request</b>\nUser: <code>%s</code>\nAmount: %s\nPay to: <code>%s</code>\nRequest: <code>%s</code>",
			account, models.FormatMinor(e.Amount), html.EscapeString(e.PayoutTarget), e.RequestID))
		user(e.AccountID, fmt.Sprintf("✅ Withdrawal of <b>%s</b> submitted. It will be processed soon.",
			models.FormatMinor(e.Amount)))
	case events.WithdrawalResolved:
		text := fmt.Sprintf("Your withdrawal of <b>%s</b> was <b>%s</b>.", models.FormatMinor(e.Amount), e.Decision)
		if e.Refunded {
			text += "\nThe amount was returned to your balance."
		}
		user(e.AccountID, text)
	case events.VerificationRequested:
		user(e.AccountID, fmt.Sprintf("🔐 Your verification code is <code>%s</code>. It expires in 10 minutes.",
			html.EscapeString(e.Code)))
	}
	return out
}
