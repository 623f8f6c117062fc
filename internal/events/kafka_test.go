package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcKafka "github.com/testcontainers/testcontainers-go/modules/kafka"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestKafkaPublisher_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaPublisher{w: w}

	ev := New(QuoteFormed, 77)
	ev.State = "КП отправлено"
	ev.Version = 5

	require.NoError(t, p.Publish(context.Background(), ev))

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, "77", string(msg.Key))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "event_type", msg.Headers[0].Key)
	assert.Equal(t, "order.quote_formed", string(msg.Headers[0].Value))
	assert.Equal(t, ev.OccurredAt, msg.Time)

	var got Event
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, ev.ID, got.ID)
	assert.Equal(t, QuoteFormed, got.Type)
	assert.Equal(t, int64(77), got.OrderID)
	assert.Equal(t, "КП отправлено", got.State)
	assert.Equal(t, 5, got.Version)
}

func TestKafkaPublisher_PublishError(t *testing.T) {
	p := &KafkaPublisher{w: &fakeWriter{err: errors.New("broker down")}}

	err := p.Publish(context.Background(), New(OrderClosed, 1))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "order.closed")
	assert.Contains(t, err.Error(), "broker down")
}

func TestKafkaPublisher_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Пропускаем интеграционный тест в short режиме")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	container, err := tcKafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tcKafka.WithClusterID("market-test"))
	defer func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("не удалось остановить kafka: %v", err)
		}
	}()
	if err != nil {
		t.Skipf("kafka в docker недоступна: %v", err)
	}

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)

	const topic = "market-events-test"
	conn, err := kafka.DialLeader(ctx, "tcp", brokers[0], topic, 0)
	require.NoError(t, err)
	conn.Close()

	pub := NewKafkaPublisher(brokers, topic)
	defer pub.Close()

	ev := New(OrderCreated, 501)
	require.NoError(t, pub.Publish(ctx, ev))

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:   brokers,
		Topic:     topic,
		Partition: 0,
		MinBytes:  1,
		MaxBytes:  1 << 20,
	})
	defer reader.Close()

	msg, err := reader.ReadMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, "501", string(msg.Key))

	var got Event
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, ev.ID, got.ID)
	assert.Equal(t, OrderCreated, got.Type)
}
