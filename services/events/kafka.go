package eventsvc

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"

	"github.com/darasa-lms/darasa/core"
)

// messageWriter is the part of *kafka.Writer used by the publisher.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes domain events as JSON messages keyed by the event key.
type KafkaPublisher struct {
	writer messageWriter
}

var _ core.EventPublisher = (*KafkaPublisher)(nil)

func NewKafkaPublisher(conf core.KafkaConfig) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(conf.Brokers...),
			Topic:                  conf.Topic,
			Balancer:               &kafka.LeastBytes{},
			AllowAutoTopicCreation: true,
		},
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, events ...core.Event) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, 0, len(events))
	for _, evt := range events {
		value, err := json.Marshal(evt)
		if err != nil {
			return errors.Wrapf(err, "marshalling event %s", evt.Name)
		}
		msgs = append(msgs, kafka.Message{
			Key:     []byte(evt.Key),
			Value:   value,
			Headers: []kafka.Header{{Key: "event", Value: []byte(evt.Name)}},
		})
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return errors.Wrap(err, "writing events")
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
