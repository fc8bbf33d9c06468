package kafka

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	portssvc "github.com/civpoints/community_points_app/internal/core/ports/services"
)

// Publisher delivers engine notifications to a Kafka topic, keyed by
// recipient so one recipient's notifications stay ordered.
type Publisher struct {
	writer *kafka.Writer
}

// NewPublisher creates a notification publisher for the given brokers and topic.
func NewPublisher(brokers []string, topic string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
	}
}

// Ensure Publisher implements the portssvc.Notifier interface
var _ portssvc.Notifier = (*Publisher)(nil)

// Notify publishes one notification. The interaction token is stripped before
// publishing; it is a process-local capability and must not leave the engine.
func (p *Publisher) Notify(ctx context.Context, n portssvc.Notification) error {
	n.Token = nil
	data, err := json.Marshal(n)
	if err != nil {
		return err
	}

	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(n.CommunityID + "/" + n.RecipientID),
		Value: data,
	})
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
