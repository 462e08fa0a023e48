package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ms-orders/internal/logger"
	"ms-orders/internal/models"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// Producer streams notifications to the notification service over Kafka.
// Delivery is fire-and-forget from the order engine's point of view.
type Producer struct {
	Writer *kafka.Writer
	Logger *logger.Logger
}

func NewProducer(brokers []string, topic string, log *logger.Logger) *Producer {
	writer := kafka.NewWriter(kafka.WriterConfig{
		Brokers: brokers,
		Topic:   topic,
	})
	return &Producer{Writer: writer, Logger: log}
}

func (p *Producer) Notify(ctx context.Context, n models.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}

	msgBytes, err := json.Marshal(n)
	if err != nil {
		return err
	}

	err = p.Writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(n.ID),
		Value: msgBytes,
	})
	if err != nil {
		return err
	}

	p.Logger.Info("KAFKA", fmt.Sprintf("published notification [%s] %s", n.Type, n.Title))
	return nil
}

func (p *Producer) Close() error {
	return p.Writer.Close()
}
