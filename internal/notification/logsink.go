package notification

import (
	"context"
	"fmt"

	"ms-orders/internal/logger"
	"ms-orders/internal/models"
)

// LogSink is the Notifier used when Kafka is disabled. Notifications land in
// the service log instead of the broker.
type LogSink struct {
	Logger *logger.Logger
}

func NewLogSink(log *logger.Logger) *LogSink {
	return &LogSink{Logger: log}
}

func (s *LogSink) Notify(_ context.Context, n models.Notification) error {
	s.Logger.Info("NOTIFY", fmt.Sprintf("[%s] %s: %s", n.Type, n.Title, n.Description))
	return nil
}
