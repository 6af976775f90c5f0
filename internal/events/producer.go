package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/example/ride-hailing/internal/models"
)

// Producer publishes JSON-encoded records to one Kafka topic.
type Producer struct {
	writer *kafka.Writer
}

func NewProducer(brokers []string, topic string) *Producer {
	w := kafka.NewWriter(kafka.WriterConfig{Brokers: brokers, Topic: topic, Balancer: &kafka.LeastBytes{}})
	return &Producer{writer: w}
}

// PublishRideEvent emits a ride lifecycle event keyed by ride id.
func (p *Producer) PublishRideEvent(ctx context.Context, e models.RideEvent) error {
	return p.publish(ctx, e.RideID, e)
}

// PublishAvailability emits a driver availability update keyed by user id,
// for the consumer that maintains the Redis driver index.
func (p *Producer) PublishAvailability(ctx context.Context, d models.Driver) error {
	return p.publish(ctx, d.UserID, d)
}

func (p *Producer) publish(ctx context.Context, key string, v any) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: b})
}

func (p *Producer) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
