package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/rl1809/oms/internal/core/domain"
)

type envelope struct {
	Name       string       `json:"name"`
	OccurredAt time.Time    `json:"occurred_at"`
	Payload    domain.Event `json:"payload"`
}

// KafkaNotifier mirrors every published domain event to a Kafka topic as
// JSON for external consumers (notification systems, projections). It is an
// optional fan-out target; the saga itself runs on the in-process bus.
type KafkaNotifier struct {
	writer *kafka.Writer
	logger *zap.Logger
}

func NewKafkaNotifier(brokers []string, topic string, logger *zap.Logger) *KafkaNotifier {
	writer := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	}
	return &KafkaNotifier{writer: writer, logger: logger}
}

func (n *KafkaNotifier) Publish(ctx context.Context, event domain.Event) error {
	value, err := json.Marshal(envelope{
		Name:       event.EventName(),
		OccurredAt: event.OccurredAt(),
		Payload:    event,
	})
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", event.EventName(), err)
	}

	err = n.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.EventName()),
		Value: value,
	})
	if err != nil {
		return fmt.Errorf("write event %s: %w", event.EventName(), err)
	}

	n.logger.Debug("event mirrored to kafka",
		zap.String("event", event.EventName()))
	return nil
}

func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}
