package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
)

type recordingWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func TestKafkaPublisherKeysByEntity(t *testing.T) {
	w := &recordingWriter{}
	p := &KafkaPublisher{w: w}

	ts := time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)
	ev := NewForecastEvent("Dhaka", ts, map[string]float64{"PM10_AGRABAD": 40}, 80, "Satisfactory")
	if ev.ID == "" {
		t.Fatal("expected event id to be set")
	}

	if err := p.Publish(context.Background(), ev); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(w.msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(w.msgs))
	}

	msg := w.msgs[0]
	if string(msg.Key) != "Dhaka" {
		t.Fatalf("expected key Dhaka, got %q", msg.Key)
	}
	if !msg.Time.Equal(ts) {
		t.Fatalf("expected message time %v, got %v", ts, msg.Time)
	}

	var decoded ForecastEvent
	if err := json.Unmarshal(msg.Value, &decoded); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if decoded.ID != ev.ID || decoded.Category != "Satisfactory" || decoded.Index != 80 {
		t.Fatalf("unexpected payload: %+v", decoded)
	}
}

func TestKafkaPublisherPropagatesWriteError(t *testing.T) {
	boom := errors.New("broker down")
	p := &KafkaPublisher{w: &recordingWriter{err: boom}}

	err := p.Publish(context.Background(), NewForecastEvent("x", time.Now(), nil, 0, "Good"))
	if !errors.Is(err, boom) {
		t.Fatalf("expected broker error, got %v", err)
	}
}
