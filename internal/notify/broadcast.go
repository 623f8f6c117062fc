package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/errgroup"

	"automarket/internal/metrics"
	"automarket/internal/storage"
)

type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type SubscriberProvider interface {
	Subscribers(ctx context.Context) ([]storage.Subscriber, error)
}

// Broadcaster рассылает сообщение всем подписчикам. Ошибка отправки в один чат не прерывает рассылку.
type Broadcaster struct {
	log     *slog.Logger
	sender  Sender
	subs    SubscriberProvider
	metrics *metrics.Metrics
	limit   int
}

func NewBroadcaster(log *slog.Logger, sender Sender, subs SubscriberProvider, m *metrics.Metrics, limit int) *Broadcaster {
	if limit <= 0 {
		limit = 8
	}
	return &Broadcaster{log: log, sender: sender, subs: subs, metrics: m, limit: limit}
}

func newHTMLMessage(chatID int64, text string) tgbotapi.MessageConfig {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	return msg
}

// Broadcast возвращает число чатов, в которые сообщение ушло успешно.
func (b *Broadcaster) Broadcast(ctx context.Context, text string) (int, error) {
	const op = "notify.Broadcast"

	if b.sender == nil {
		return 0, nil
	}

	subs, err := b.subs.Subscribers(ctx)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	var sent atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.limit)

	for _, sub := range subs {
		sub := sub
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			_, err := b.sender.Send(newHTMLMessage(sub.ChatID, text))
			b.metrics.Broadcast(err)
			if err != nil {
				b.log.Warn("не удалось отправить сообщение подписчику",
					slog.String("op", op),
					slog.Int64("chat_id", sub.ChatID),
					slog.String("error", err.Error()),
				)
				return nil
			}
			sent.Add(1)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return int(sent.Load()), fmt.Errorf("%s: %w", op, err)
	}
	return int(sent.Load()), nil
}

// Reply ответ в конкретный чат, например на /start.
func (b *Broadcaster) Reply(ctx context.Context, chatID int64, text string) error {
	const op = "notify.Reply"

	if b.sender == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if _, err := b.sender.Send(newHTMLMessage(chatID, text)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
