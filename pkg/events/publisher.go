package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmehra2102/prod-golang-projects/carepath/internal/config"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain"
	"github.com/segmentio/kafka-go"
)

// Publisher delivers committed domain events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, evts ...domain.Event) error
	Close() error
}

// New returns a Kafka publisher when enabled, otherwise a no-op.
func New(cfg config.KafkaConfig) Publisher {
	if !cfg.Enabled {
		return NopPublisher{}
	}
	return NewKafkaPublisher(cfg)
}

type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, ...domain.Event) error { return nil }

func (NopPublisher) Close() error { return nil }

type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(cfg config.KafkaConfig) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.Topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			BatchTimeout: 20 * time.Millisecond,
			WriteTimeout: 5 * time.Second,
		},
	}
}

// Publish writes the events keyed by patient so one patient's events stay ordered.
func (p *KafkaPublisher) Publish(ctx context.Context, evts ...domain.Event) error {
	if len(evts) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, 0, len(evts))
	for _, e := range evts {
		m, err := Encode(e)
		if err != nil {
			return err
		}
		msgs = append(msgs, m)
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("writing %d events: %w", len(msgs), err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func Encode(e domain.Event) (kafka.Message, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encoding event %s: %w", e.Type, err)
	}
	return kafka.Message{
		Key:   []byte(e.PatientID.String()),
		Value: body,
		Time:  e.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(e.Type)},
			{Key: "event-id", Value: []byte(e.ID.String())},
		},
	}, nil
}
