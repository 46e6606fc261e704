// Package chat wraps the Telegram bot used for both Dispatcher channels
// (price updates and signals): a long-polling bot with structured-logged
// sends, keyed by chat ID rather than by user since the Dispatcher
// addresses messages to two fixed channel IDs rather than individual
// recipients. A flood-wait response is honoured before the send error is
// returned, so a 429-equivalent doesn't get hammered again immediately.
package chat

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	tb "gopkg.in/telebot.v3"

	"github.com/cryptopulse/signalpipe/internal/libs/logger"
)

// Sender is the narrow interface the Dispatcher depends on, so tests can
// substitute a fake without standing up a real bot.
type Sender interface {
	Send(ctx context.Context, chatID int64, message string) error
	Stop()
}

type Bot struct {
	log *logger.Logger
	bot *tb.Bot
}

func New(log *logger.Logger, token string) (*Bot, error) {
	settings := tb.Settings{
		Token:  token,
		Poller: &tb.LongPoller{Timeout: 10 * time.Second},
	}

	bot, err := tb.NewBot(settings)
	if err != nil {
		log.Error("failed to start chat bot", zap.Error(err))
		return nil, err
	}

	go bot.Start()

	return &Bot{bot: bot, log: log}, nil
}

// floodWait reports the retry-after duration carried by a Telegram
// flood-wait (429-equivalent) error, if err is one.
func floodWait(err error) (time.Duration, bool) {
	var flood *tb.FloodError
	if !errors.As(err, &flood) {
		return 0, false
	}
	return time.Duration(flood.RetryAfter) * time.Second, true
}

// Send delivers an HTML-formatted message to chatID using the provider's
// standard HTML subset. On a flood-wait (429-equivalent) response it
// honours the server-provided retry-after before returning the error, so
// the caller's retry wrapper doesn't immediately hammer a rate-limited
// endpoint again.
func (b *Bot) Send(ctx context.Context, chatID int64, message string) error {
	recipient := &tb.Chat{ID: chatID}

	msg, err := b.bot.Send(recipient, message, tb.ModeHTML)
	if err != nil {
		if wait, ok := floodWait(err); ok {
			b.log.Warn("chat send flood-limited, honouring retry-after",
				zap.Int64("chat_id", chatID), zap.Duration("retry_after", wait))
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		b.log.Error("chat send failed", zap.Int64("chat_id", chatID), zap.Error(err))
		return err
	}

	b.log.Info("chat send succeeded", zap.Int64("chat_id", chatID), zap.Int("message_id", msg.ID))
	return nil
}

func (b *Bot) Stop() {
	b.bot.Stop()
}
