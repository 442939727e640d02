package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/authelia/authelia-sub004/internal/platform/kafka/producer"
)

// MessageProducer is the slice of the kafka producer the stream needs; the
// noop producer satisfies it too.
type MessageProducer interface {
	ProduceAsync(msg *producer.Message) error
}

// KafkaStream publishes events to a kafka topic keyed by user, so one
// user's trail lands in order on a single partition.
type KafkaStream struct {
	producer MessageProducer
	topic    string
}

func NewKafkaStream(p MessageProducer, topic string) *KafkaStream {
	return &KafkaStream{producer: p, topic: topic}
}

func (s *KafkaStream) Publish(_ context.Context, event Event) error {
	payload, err := json.Marshal(streamRecord{
		Timestamp: event.Timestamp.UTC().Format(time.RFC3339Nano),
		UserID:    event.UserID,
		SessionID: event.SessionID,
		Factor:    event.Factor,
		Action:    string(event.Action),
		Outcome:   event.Outcome,
	})
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	return s.producer.ProduceAsync(&producer.Message{
		Topic: s.topic,
		Key:   []byte(event.UserID),
		Value: payload,
	})
}

type streamRecord struct {
	Timestamp string `json:"timestamp"`
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
	Factor    string `json:"factor"`
	Action    string `json:"action"`
	Outcome   string `json:"outcome"`
}
