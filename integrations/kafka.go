package integrations

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"fencing-backend/models"

	"github.com/segmentio/kafka-go"
)

// KafkaAuditPublisher fans persisted audit rows out to a topic, keyed by entity.
type KafkaAuditPublisher struct {
	writer *kafka.Writer
}

func NewKafkaAuditPublisher(brokers []string, topic string) *KafkaAuditPublisher {
	return &KafkaAuditPublisher{writer: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		MaxAttempts:  3,
		WriteTimeout: 5 * time.Second,
		Async:        true,
	}}
}

func (p *KafkaAuditPublisher) PublishAudit(ctx context.Context, log models.AuditLog) error {
	value, err := json.Marshal(log)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	key := log.EntityType
	if log.EntityID != nil {
		key += ":" + *log.EntityID
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: value,
		Time:  log.CreatedAt,
	})
}

func (p *KafkaAuditPublisher) Close() error {
	return p.writer.Close()
}
