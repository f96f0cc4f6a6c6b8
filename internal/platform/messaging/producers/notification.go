package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/lendhub/loan-engine/internal/config"
	"github.com/lendhub/loan-engine/internal/domain/shared"
	"github.com/segmentio/kafka-go"
)

// NotificationProducer publishes delinquency reminders and capacity alerts
// to the notification topic. Delivery is fire and forget from the business
// flows' point of view; failures are the caller's to log, not to retry.
type NotificationProducer struct {
	logger *slog.Logger
	writer KafkaWriter
	topic  string
}

// NewNotificationProducer creates the producer and ensures the topic exists
func NewNotificationProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*NotificationProducer, error) {
	if cfg.NotificationTopic == "" {
		return nil, fmt.Errorf("kafka notification topic is not configured")
	}

	conn, err := kafka.Dial("tcp", cfg.Brokers)
	if err != nil {
		return nil, fmt.Errorf("failed to dial kafka for notification producer: %w", err)
	}
	defer conn.Close()

	err = createKafkaTopicIfNotExists(conn, cfg.NotificationTopic, cfg.NumPartitions, cfg.ReplicationFactor, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure notification topic %s exists: %w", cfg.NotificationTopic, err)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.NotificationTopic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		Async:        true,
		WriteTimeout: cfg.MaxWait,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Error("Failed to write notification messages asynchronously", "topic", cfg.NotificationTopic, "error", err, "count", len(messages))
			}
		},
	}

	return &NotificationProducer{
		logger: logger,
		writer: writer,
		topic:  cfg.NotificationTopic,
	}, nil
}

// PublishNotification sends a loan reminder notification keyed by loan ID.
func (p *NotificationProducer) PublishNotification(ctx context.Context, n *shared.Notification) error {
	return p.publish(ctx, n.LoanID.String(), "notification", n)
}

// PublishCapacityAlert sends a threshold utilization alert keyed by month.
func (p *NotificationProducer) PublishCapacityAlert(ctx context.Context, alert *shared.CapacityAlert) error {
	key := fmt.Sprintf("capacity/%d-%02d", alert.Year, alert.Month)
	return p.publish(ctx, key, "capacity_alert", alert)
}

func (p *NotificationProducer) publish(ctx context.Context, key, kind string, value interface{}) error {
	jsonValue, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s message: %w", kind, err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: jsonValue,
		Headers: []kafka.Header{
			{Key: "message-type", Value: []byte(kind)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish notification",
			"topic", p.topic,
			"key", key,
			"type", kind,
			"error", err,
		)
		return fmt.Errorf("failed to publish %s to %s: %w", kind, p.topic, err)
	}

	p.logger.Debug("Published notification", "topic", p.topic, "key", key, "type", kind)
	return nil
}

func (p *NotificationProducer) Close() error {
	p.logger.Info("Closing notification Kafka producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close notification kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}
