package repository

import (
	"context"

	"SigmaSync/internal/domain/models"
	drepo "SigmaSync/internal/domain/repository"
)

// Publisher is the producer surface the Kafka sink needs.
type Publisher interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
}

// KafkaPublisher republishes accepted snapshots keyed by symbol, so a
// partition sees one symbol's snapshots in arrival order.
type KafkaPublisher struct {
	producer Publisher
	topic    string
}

func NewKafkaPublisher(producer Publisher, topic string) drepo.SnapshotSink {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (p *KafkaPublisher) Name() string { return "kafka" }

func (p *KafkaPublisher) Deliver(ctx context.Context, s models.Snapshot) error {
	var key []byte
	if s.Symbol != "" {
		key = []byte(s.Symbol)
	}
	return p.producer.Publish(ctx, p.topic, key, s)
}

// Close leaves the shared producer open; it also carries the log collector.
func (p *KafkaPublisher) Close() error { return nil }
