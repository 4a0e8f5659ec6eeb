package publish

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"sshwatch/internal/config"
	"sshwatch/internal/model"
)

// KafkaPublisher forwards emitted snapshots to a Kafka topic. It is one
// concrete delivery-layer consumer; the collector only hands it frozen
// snapshots through Subscribe.
type KafkaPublisher struct {
	writer *kafka.Writer
	logger *slog.Logger
}

func NewKafka(cfg config.KafkaConfig, logger *slog.Logger) *KafkaPublisher {
	if !cfg.Enabled {
		if logger != nil {
			logger.Info("kafka publish disabled")
		}
		return nil
	}
	if logger != nil {
		logger.Info("kafka publish enabled", "brokers", cfg.Brokers, "topic", cfg.Topic)
	}
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(cfg.Brokers...),
			Topic:    cfg.Topic,
			Balancer: &kafka.LeastBytes{},
		},
		logger: logger,
	}
}

// Publish writes one snapshot. Broker trouble is logged and dropped; the
// collector's tick must never block on the transport.
func (p *KafkaPublisher) Publish(snap model.Snapshot) {
	payload, err := json.Marshal(snap)
	if err != nil {
		if p.logger != nil {
			p.logger.Warn("kafka encode error", "err", err)
		}
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(snap.GeneratedAt.UTC().Format(time.RFC3339)),
		Value: payload,
	}); err != nil && p.logger != nil {
		p.logger.Warn("kafka write error", "err", err)
	}
}

func (p *KafkaPublisher) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
