package records

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Compile-time check: *KafkaRecorder must satisfy Recorder.
var _ Recorder = (*KafkaRecorder)(nil)

// KafkaRecorder publishes settlement records to a Kafka topic, keyed by
// payer so per-account records stay ordered within a partition.
type KafkaRecorder struct {
	writer *kafka.Writer
}

func NewKafkaRecorder(brokers []string, topic string) *KafkaRecorder {
	return &KafkaRecorder{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
	}
}

func (r *KafkaRecorder) Record(ctx context.Context, record SettlementRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal settlement record: %w", err)
	}

	return r.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(record.Payer),
		Value: data,
	})
}

func (r *KafkaRecorder) Close() {
	if err := r.writer.Close(); err != nil {
		zap.L().Warn("Failed to close record writer", zap.Error(err))
	}
}
