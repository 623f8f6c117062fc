package mysql

import (
	"context"
	"fmt"

	"automarket/internal/storage"
)

const maxPayloadRunes = 2000

// AddSubscriber подписывает чат на уведомления. Повторная подписка ничего не меняет.
func (s *Storage) AddSubscriber(ctx context.Context, chatID int64, username string) (bool, error) {
	const op = "storage.mysql.AddSubscriber"

	res, err := s.db.ExecContext(ctx, `INSERT IGNORE INTO subscribers (chat_id, username) VALUES (?, ?)`, chatID, username)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return n > 0, nil
}

func (s *Storage) Subscribers(ctx context.Context) ([]storage.Subscriber, error) {
	const op = "storage.mysql.Subscribers"

	var subs []storage.Subscriber
	err := s.db.SelectContext(ctx, &subs, `SELECT chat_id, username, subscribed_at FROM subscribers ORDER BY subscribed_at`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return subs, nil
}

// ImportSubscribers переносит подписчиков из старой таблицы.
func (s *Storage) ImportSubscribers(ctx context.Context, subs []storage.Subscriber) (int, error) {
	const op = "storage.mysql.ImportSubscribers"

	added := 0
	for _, sub := range subs {
		ok, err := s.AddSubscriber(ctx, sub.ChatID, sub.Username)
		if err != nil {
			return added, fmt.Errorf("%s: %w", op, err)
		}
		if ok {
			added++
		}
	}
	return added, nil
}

// LogAction пишет запись в журнал действий. Полезная нагрузка обрезается.
func (s *Storage) LogAction(ctx context.Context, logType, message, payload string) error {
	const op = "storage.mysql.LogAction"

	if r := []rune(payload); len(r) > maxPayloadRunes {
		payload = string(r[:maxPayloadRunes])
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO action_logs (type, message, payload) VALUES (?, ?, ?)`, logType, message, payload)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ActionLogs последние записи журнала, новые сверху.
func (s *Storage) ActionLogs(ctx context.Context, limit int) ([]storage.ActionLog, error) {
	const op = "storage.mysql.ActionLogs"

	if limit <= 0 {
		limit = 100
	}
	var logs []storage.ActionLog
	err := s.db.SelectContext(ctx, &logs, `SELECT id, created_at, type, message, payload FROM action_logs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return logs, nil
}
