package messaging

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/deltaforge/smartdine/internal/config"
)

// RecommendationEvent is the analytics record emitted once per served
// recommendation.
type RecommendationEvent struct {
	EventID   uuid.UUID `json:"event_id"`
	SessionID string    `json:"session_id"`
	City      string    `json:"city"`
	Query     string    `json:"query,omitempty"`
	Mood      string    `json:"mood"`
	Surprise  bool      `json:"surprise"`
	ItemNames []string  `json:"item_names"`
	Timestamp time.Time `json:"timestamp"`
}

// EventPublisher writes served-recommendation events to kafka. Publishing is
// asynchronous and best-effort: a broker outage degrades to a warning, never
// a failed recommendation. With kafka disabled the publisher is a no-op.
type EventPublisher struct {
	writer *kafka.Writer
	logger *logrus.Logger
}

func NewEventPublisher(cfg config.KafkaConfig, logger *logrus.Logger) *EventPublisher {
	publisher := &EventPublisher{logger: logger}
	if !cfg.Enabled {
		return publisher
	}

	publisher.writer = &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{}, // key by city so a city's events stay ordered
		RequiredAcks: kafka.RequireOne,
		Async:        true,
		BatchTimeout: 10 * time.Millisecond,
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			logger.Warnf("kafka: "+msg, args...)
		}),
	}

	return publisher
}

// PublishRecommendation enqueues one event. Safe to call on a disabled
// publisher.
func (p *EventPublisher) PublishRecommendation(event RecommendationEvent) {
	if p.writer == nil {
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.WithError(err).Warn("Failed to marshal recommendation event")
		return
	}

	message := kafka.Message{
		Key:   []byte(event.City),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(event.EventID.String())},
			{Key: "timestamp", Value: []byte(event.Timestamp.Format(time.RFC3339))},
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := p.writer.WriteMessages(ctx, message); err != nil {
		p.logger.WithError(err).Warn("Failed to publish recommendation event")
	}
}

func (p *EventPublisher) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
