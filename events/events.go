package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/kevinaaaquil/bookswap/logger"
	"github.com/segmentio/kafka-go"
)

// Event types published by the accounts and listings components.
const (
	UserRegistered = "user.registered"
	UserLocked     = "user.locked"
	UserDeleted    = "user.deleted"
	BookCreated    = "book.created"
	BookDeleted    = "book.deleted"
)

type Event struct {
	Type    string            `json:"type"`
	Subject string            `json:"subject"`
	At      time.Time         `json:"at"`
	Data    map[string]string `json:"data,omitempty"`
}

func New(typ, subject string, data map[string]string) Event {
	return Event{Type: typ, Subject: subject, At: time.Now().UTC(), Data: data}
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Nop discards events. Used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events to a topic keyed by subject, so events about one
// user or listing land on the same partition in order.
type KafkaPublisher struct {
	w messageWriter
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{w: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		Async:                  true,
		BatchTimeout:           50 * time.Millisecond,
		Completion:             logDeliveryFailure,
	}}
}

// logDeliveryFailure reports batches the async writer could not deliver. WriteMessages
// returns before delivery, so this is the only place such failures surface.
func logDeliveryFailure(msgs []kafka.Message, err error) {
	if err == nil {
		return
	}
	for _, m := range msgs {
		logger.Log.Warnw("event delivery failed", "topic", m.Topic, "key", string(m.Key), "error", err)
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, e Event) error {
	value, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return p.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(e.Subject),
		Value: value,
		Time:  e.At,
	})
}

func (p *KafkaPublisher) Close() error {
	return p.w.Close()
}
