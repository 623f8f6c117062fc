package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

type Type string

const (
	OrderCreated      Type = "order.created"
	OfferCreated      Type = "offer.created"
	RankUpdated       Type = "order.rank_updated"
	QuoteFormed       Type = "order.quote_formed"
	PurchaseConfirmed Type = "order.purchase_confirmed"
	OrderRefused      Type = "order.refused"
	OrderAnnulled     Type = "order.annulled"
	StatusChanged     Type = "order.status_changed"
	ItemsUpdated      Type = "order.items_updated"
	OrderClosed       Type = "order.closed"
)

type Event struct {
	ID         string    `json:"id"`
	Type       Type      `json:"type"`
	OrderID    int64     `json:"orderId"`
	OfferID    string    `json:"offerId,omitempty"`
	State      string    `json:"state,omitempty"`
	Version    int       `json:"version"`
	OccurredAt time.Time `json:"occurredAt"`
}

func New(t Type, orderID int64) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       t,
		OrderID:    orderID,
		OccurredAt: time.Now().UTC(),
	}
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher публикует события жизненного цикла заказа, ключ сообщения номер заказа.
type KafkaPublisher struct {
	w messageWriter
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 50 * time.Millisecond,
		},
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, ev Event) error {
	const op = "events.Publish"

	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	err = p.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatInt(ev.OrderID, 10)),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(ev.Type)},
		},
		Time: ev.OccurredAt,
	})
	if err != nil {
		return fmt.Errorf("%s: %s: %w", op, ev.Type, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.w.Close()
}

// Discard используется, когда брокер не настроен.
type Discard struct{}

func (Discard) Publish(context.Context, Event) error { return nil }
