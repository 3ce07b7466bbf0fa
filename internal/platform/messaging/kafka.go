package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"clipledger/internal/shared/events"

	"github.com/segmentio/kafka-go"
)

// KafkaPublisher writes envelopes as JSON, keyed by partition key so events
// for one campaign stay ordered.
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka publisher requires at least one broker")
	}
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			RequiredAcks:           kafka.RequireAll,
			Balancer:               &kafka.Hash{},
			AllowAutoTopicCreation: true,
		},
	}, nil
}

func (p *KafkaPublisher) Publish(ctx context.Context, topic string, event events.Envelope) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode envelope %s: %w", event.EventID, err)
	}
	key := event.PartitionKey
	if key == "" {
		key = event.EventID
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: payload,
		Time:  event.OccurredAt.UTC(),
	})
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// KafkaSubscriber reads envelopes from a consumer group.
type KafkaSubscriber struct {
	brokers []string
	logger  *slog.Logger
}

func NewKafkaSubscriber(brokers []string, logger *slog.Logger) (*KafkaSubscriber, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka subscriber requires at least one broker")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &KafkaSubscriber{brokers: brokers, logger: logger}, nil
}

// Subscribe starts a reader goroutine that stops when ctx is done. Messages
// that are not valid envelopes are logged and committed.
func (s *KafkaSubscriber) Subscribe(ctx context.Context, topic string, consumerGroup string, handler Handler) error {
	if consumerGroup == "" {
		return fmt.Errorf("kafka subscriber requires group id")
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  s.brokers,
		GroupID:  consumerGroup,
		Topic:    topic,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  500 * time.Millisecond,
	})

	go func() {
		defer reader.Close()
		for {
			msg, err := reader.ReadMessage(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
					return
				}
				s.logger.Error("kafka read failed",
					"event", "kafka_read_failed",
					"module", "internal/platform/messaging",
					"layer", "platform",
					"topic", topic,
					"consumer_group", consumerGroup,
					"error", err.Error(),
				)
				continue
			}

			var event events.Envelope
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				s.logger.Warn("skipping undecodable message",
					"event", "kafka_message_undecodable",
					"module", "internal/platform/messaging",
					"layer", "platform",
					"topic", topic,
					"offset", msg.Offset,
					"error", err.Error(),
				)
				continue
			}
			if err := handler(ctx, event); err != nil {
				logConsumeFailure(s.logger, topic, consumerGroup, event, err)
			}
		}
	}()
	return nil
}
