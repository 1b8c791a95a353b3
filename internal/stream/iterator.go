// Package stream adapts a Kafka message source into a channel of decoded
// values.
package stream

import (
	"context"

	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"
)

// Iterator consumes messages from a MessageIterator, decodes each one with a
// DecodeFunc and yields the results on a channel. Messages that fail to decode
// are logged, committed and skipped so a poison message does not stall the
// partition.
type Iterator[T any] struct {
	msgIterator MessageIterator
	decode      DecodeFunc[T]
}

func NewIterator[T any](iterator MessageIterator, decode DecodeFunc[T]) *Iterator[T] {
	return &Iterator[T]{
		msgIterator: iterator,
		decode:      decode,
	}
}

// Items streams decoded values until the message source closes or ctx ends.
// A message's offset is committed once its item has been received from the
// returned channel.
func (it *Iterator[T]) Items(ctx context.Context) <-chan *Item[T] {
	out := make(chan *Item[T])
	go func() {
		defer close(out)

		messages := it.msgIterator.Messages()
		for {
			var msg kafka.Message
			select {
			case <-ctx.Done():
				return
			case m, ok := <-messages:
				if !ok {
					return
				}
				msg = m
			}

			data, err := it.decode(ctx, msg)
			if err != nil {
				log.WithError(err).WithFields(log.Fields{
					"topic":     msg.Topic,
					"partition": msg.Partition,
					"offset":    msg.Offset,
				}).Warn("Skipping undecodable message")
				it.commit(ctx, msg)
				continue
			}

			select {
			case out <- &Item[T]{Data: data, Message: msg}:
			case <-ctx.Done():
				return
			}
			it.commit(ctx, msg)
		}
	}()
	return out
}

func (it *Iterator[T]) commit(ctx context.Context, msg kafka.Message) {
	if err := it.msgIterator.CommitOffset(ctx, msg); err != nil {
		log.WithError(err).WithField("offset", msg.Offset).Warn("Failed to commit offset")
	}
}
