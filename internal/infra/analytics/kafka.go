package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/xavierca1/ligue-quotes/internal/entity"
)

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaStore publishes funnel events for downstream consumers. Messages are keyed
// by form id so the events of one session stay ordered within a partition.
type KafkaStore struct {
	writer messageWriter
}

func NewKafkaStore(cfg KafkaConfig) *KafkaStore {
	return &KafkaStore{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.Topic,
			Balancer:     &kafka.Hash{},
			BatchSize:    100,
			BatchTimeout: 50 * time.Millisecond,
			RequiredAcks: kafka.RequireOne,
		},
	}
}

func (s *KafkaStore) Append(ctx context.Context, e *entity.FunnelEvent) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode funnel event: %w", err)
	}

	key := e.FormID
	if key == "" {
		key = e.ID
	}

	err = s.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(e.EventType)},
		},
	})
	if err != nil {
		return fmt.Errorf("publish funnel event: %w", err)
	}
	return nil
}

func (s *KafkaStore) Close() error {
	return s.writer.Close()
}
