package events

import (
	"context"

	"labbook/pkg/kafka"
	kafka_config "labbook/pkg/kafka/config"
	kafka_middleware "labbook/pkg/kafka/middleware"
	"labbook/pkg/logger"
	"labbook/pkg/model"
)

// Publisher emits booking audit events. Publishing is best-effort: a
// failed publish is logged but never fails the booking operation that
// produced it.
type Publisher interface {
	PublishBookingEvent(ctx context.Context, event *model.BookingEvent) error
	Close() error
}

type kafkaPublisher struct {
	producer *kafka.Producer
	log      *logger.Logger
}

// NewPublisher builds a Kafka-backed publisher, or a no-op one when no
// brokers are configured.
func NewPublisher(cfg *kafka_config.Config, log *logger.Logger) (Publisher, error) {
	if !cfg.Enabled() {
		log.Info("Kafka brokers not configured, audit events disabled")
		return &noopPublisher{}, nil
	}

	producer, err := kafka.NewProducer(cfg, kafka_config.TopicBookingEvents, kafka_config.TopicBookingEventsDLQ, log)
	if err != nil {
		return nil, err
	}
	producer.Use(kafka_middleware.LoggingProducerMiddleware(log))

	return &kafkaPublisher{producer: producer, log: log}, nil
}

func (p *kafkaPublisher) PublishBookingEvent(ctx context.Context, event *model.BookingEvent) error {
	msg, err := kafka.NewMessage().
		WithKey(event.BookingID).
		WithValue(event).
		WithHeader(kafka.HeaderEventID, event.EventID).
		WithEventType(event.EventType).
		WithSource("bookings").
		Build()
	if err != nil {
		return err
	}

	return p.producer.Publish(ctx, msg)
}

func (p *kafkaPublisher) Close() error {
	return p.producer.Close()
}

type noopPublisher struct{}

func (*noopPublisher) PublishBookingEvent(context.Context, *model.BookingEvent) error { return nil }
func (*noopPublisher) Close() error                                                   { return nil }
