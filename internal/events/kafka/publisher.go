package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Reymilan15/milos-cuentas/internal/events"
)

type Publisher struct {
	writer *kafka.Writer
}

func NewPublisher(brokers []string, topic string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			WriteTimeout: 5 * time.Second,
		},
	}
}

func (p *Publisher) PublishLedgerUpdated(ctx context.Context, e events.LedgerUpdated) error {
	msg, err := ledgerUpdatedMessage(e)
	if err != nil {
		return fmt.Errorf("PublishLedgerUpdated: %w", err)
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("PublishLedgerUpdated: %w", err)
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// ledgerUpdatedMessage keys by user so one user's events stay ordered within
// a partition.
func ledgerUpdatedMessage(e events.LedgerUpdated) (kafka.Message, error) {
	if e.Type == "" {
		e.Type = events.TypeLedgerUpdated
	}
	data, err := json.Marshal(e)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode %s: %w", e.Type, err)
	}
	return kafka.Message{
		Key:   []byte(e.UserID.String()),
		Value: data,
		Time:  e.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(e.Type)},
		},
	}, nil
}
