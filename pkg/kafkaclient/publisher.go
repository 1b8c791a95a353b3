package kafkaclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaWriter is the subset of *kafka.Writer the Publisher uses.
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher writes keyed messages to a single topic. Messages with the same
// key land on the same partition.
type Publisher struct {
	writer KafkaWriter
}

// NewPublisher creates a Publisher for topic on broker.
func NewPublisher(topic, broker string) (*Publisher, error) {
	if topic == "" || broker == "" {
		return nil, errors.New("kafka publisher needs a topic and broker")
	}
	return NewPublisherWithWriter(&kafka.Writer{
		Addr:                   kafka.TCP(broker),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           50 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}), nil
}

func NewPublisherWithWriter(w KafkaWriter) *Publisher {
	return &Publisher{writer: w}
}

// Publish writes one message and waits for the broker acknowledgement.
func (p *Publisher) Publish(ctx context.Context, key, value []byte) error {
	if err := p.writer.WriteMessages(ctx, kafka.Message{Key: key, Value: value}); err != nil {
		return fmt.Errorf("publish message: %w", err)
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
