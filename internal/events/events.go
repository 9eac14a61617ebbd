package events

import (
	"context"
	"strings"
	"time"

	"leelaaverse/internal/metrics"

	"github.com/goccy/go-json"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

const (
	TypeGenerationCompleted = "generation.completed"
	TypeGenerationFailed    = "generation.failed"
	TypePostPublished       = "post.published"
	TypePostDeleted         = "post.deleted"
)

// Event is a domain event written to the bus.
type Event struct {
	Type       string         `json:"type"`
	Key        string         `json:"key"`
	UserID     uint           `json:"user_id,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
	Data       map[string]any `json:"data,omitempty"`
}

// Publisher emits domain events. Delivery is best effort.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }

// KafkaPublisher writes events as JSON messages keyed by Event.Key.
type KafkaPublisher struct {
	writer *kafka.Writer
}

// New returns a Kafka publisher when brokers are configured, otherwise Nop.
func New(brokers []string, topic string) Publisher {
	cleaned := make([]string, 0, len(brokers))
	for _, b := range brokers {
		if b = strings.TrimSpace(b); b != "" {
			cleaned = append(cleaned, b)
		}
	}
	if len(cleaned) == 0 || strings.TrimSpace(topic) == "" {
		logrus.Info("event bus disabled")
		return Nop{}
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cleaned...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		Async:                  true,
		AllowAutoTopicCreation: true,
		BatchTimeout:           50 * time.Millisecond,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logrus.WithError(err).WithField("messages", len(messages)).Warn("kafka write failed")
			}
		},
	}
	logrus.WithFields(logrus.Fields{"brokers": cleaned, "topic": topic}).Info("event bus enabled")
	return &KafkaPublisher{writer: writer}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event Event) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	msg, err := encode(event)
	if err != nil {
		metrics.EventsPublished.WithLabelValues(event.Type, "error").Inc()
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		metrics.EventsPublished.WithLabelValues(event.Type, "error").Inc()
		return err
	}
	metrics.EventsPublished.WithLabelValues(event.Type, "ok").Inc()
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func encode(event Event) (kafka.Message, error) {
	value, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{
		Key:   []byte(event.Key),
		Value: value,
		Time:  event.OccurredAt,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(event.Type)},
		},
	}, nil
}
