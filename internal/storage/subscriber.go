package storage

import "time"

type Subscriber struct {
	ChatID       int64     `json:"chatId" db:"chat_id"`
	Username     string    `json:"username" db:"username"`
	SubscribedAt time.Time `json:"subscribedAt" db:"subscribed_at"`
}

const (
	LogRequest = "REQUEST"
	LogDebug   = "DEBUG"
	LogError   = "ERROR"
	LogInfo    = "INFO"
)

type ActionLog struct {
	ID        int64     `json:"id" db:"id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	Type      string    `json:"type" db:"type"`
	Message   string    `json:"message" db:"message"`
	Payload   string    `json:"payload" db:"payload"`
}
