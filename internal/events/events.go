package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// ForecastEvent is emitted after every successful forecast.
type ForecastEvent struct {
	ID         string             `json:"id"`
	EntityID   string             `json:"entity_id"`
	Timestamp  time.Time          `json:"timestamp"`
	Prediction map[string]float64 `json:"prediction"`
	Index      float64            `json:"aqi"`
	Category   string             `json:"aqi_category"`
}

// NewForecastEvent stamps a fresh event id.
func NewForecastEvent(entityID string, ts time.Time, prediction map[string]float64, index float64, category string) ForecastEvent {
	return ForecastEvent{
		ID:         uuid.NewString(),
		EntityID:   entityID,
		Timestamp:  ts,
		Prediction: prediction,
		Index:      index,
		Category:   category,
	}
}

// Publisher delivers forecast events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, ev ForecastEvent) error
	Close() error
}

// NopPublisher discards events.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, ForecastEvent) error { return nil }
func (NopPublisher) Close() error                                { return nil }

// messageWriter is the subset of *kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events keyed by entity id, so one entity's events stay ordered
// within a partition.
type KafkaPublisher struct {
	w messageWriter
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{w: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}}
}

func (p *KafkaPublisher) Publish(ctx context.Context, ev ForecastEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode forecast event: %w", err)
	}
	return p.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.EntityID),
		Value: payload,
		Time:  ev.Timestamp,
	})
}

func (p *KafkaPublisher) Close() error {
	return p.w.Close()
}
