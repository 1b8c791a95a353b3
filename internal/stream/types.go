package stream

import (
	"context"

	"github.com/segmentio/kafka-go"
)

// MessageIterator is a source of Kafka messages with manual offset commits.
// Implementations own the lifecycle of the underlying consumer.
type MessageIterator interface {
	// Messages is closed by the implementation when the consumer stops.
	Messages() <-chan kafka.Message
	CommitOffset(ctx context.Context, msg kafka.Message) error
}

// DecodeFunc turns a message payload into a T.
type DecodeFunc[T any] func(ctx context.Context, msg kafka.Message) (T, error)

// Item pairs a decoded value with the message it came from.
type Item[T any] struct {
	Data    T
	Message kafka.Message
}
