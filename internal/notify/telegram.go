package notify

import (
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Notifier pushes operator alerts to a Telegram ops chat. A nil Notifier is
// valid and drops alerts, so callers never need to branch on configuration.
type Notifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	log    *slog.Logger
}

// NewTelegramNotifier returns nil when the token or chat id is unset.
func NewTelegramNotifier(token string, chatID int64, log *slog.Logger) (*Notifier, error) {
	if token == "" || chatID == 0 {
		return nil, nil
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram ops bot: %w", err)
	}
	return &Notifier{bot: bot, chatID: chatID, log: log}, nil
}

// Alert sends a message to the ops chat. Delivery failures are logged, never
// propagated: alerting must not disturb the flow that raised the alert.
func (n *Notifier) Alert(text string) {
	if n == nil {
		return
	}
	msg := tgbotapi.NewMessage(n.chatID, text)
	if _, err := n.bot.Send(msg); err != nil && n.log != nil {
		n.log.Error("ops alert delivery failed", "err", err)
	}
}
