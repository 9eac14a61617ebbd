package events

import (
	"context"
	"testing"
	"time"

	"github.com/goccy/go-json"
)

func TestNewWithoutBrokersIsNop(t *testing.T) {
	tests := []struct {
		name    string
		brokers []string
		topic   string
	}{
		{name: "no brokers", brokers: nil, topic: "t"},
		{name: "blank brokers", brokers: []string{" ", ""}, topic: "t"},
		{name: "no topic", brokers: []string{"localhost:9092"}, topic: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(tt.brokers, tt.topic)
			if _, ok := p.(Nop); !ok {
				t.Fatalf("got %T, want Nop", p)
			}
			if err := p.Publish(context.Background(), Event{Type: TypePostPublished}); err != nil {
				t.Fatalf("Nop publish: %v", err)
			}
		})
	}
}

func TestNewWithBrokers(t *testing.T) {
	p := New([]string{"localhost:9092", " "}, "leelaaverse.events")
	kp, ok := p.(*KafkaPublisher)
	if !ok {
		t.Fatalf("got %T, want *KafkaPublisher", p)
	}
	if kp.writer.Topic != "leelaaverse.events" {
		t.Fatalf("topic = %q", kp.writer.Topic)
	}
	_ = kp.Close()
}

func TestEncode(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	msg, err := encode(Event{
		Type:       TypeGenerationCompleted,
		Key:        "job-1",
		UserID:     9,
		OccurredAt: at,
		Data:       map[string]any{"image_url": "https://cdn/x.png"},
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if string(msg.Key) != "job-1" || !msg.Time.Equal(at) {
		t.Fatalf("unexpected message %+v", msg)
	}
	if len(msg.Headers) != 1 || string(msg.Headers[0].Value) != TypeGenerationCompleted {
		t.Fatalf("headers = %+v", msg.Headers)
	}

	var decoded Event
	if err := json.Unmarshal(msg.Value, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Type != TypeGenerationCompleted || decoded.UserID != 9 || decoded.Data["image_url"] != "https://cdn/x.png" {
		t.Fatalf("decoded = %+v", decoded)
	}
}
