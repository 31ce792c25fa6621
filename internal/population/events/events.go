// Package events announces completed publications on a Kafka topic so
// downstream consumers can reload the relations of a level.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"acspop/internal/population/models"
)

// TypeRelationsPublished is the only event type emitted.
const TypeRelationsPublished = "relations_published"

// RelationsPublished is emitted once per level after its relations were
// published. It is keyed by level so a level's events stay ordered.
type RelationsPublished struct {
	Type        string         `json:"type"`
	RunID       string         `json:"run_id"`
	Level       models.Level   `json:"level"`
	Relations   []RelationInfo `json:"relations"`
	PublishedAt time.Time      `json:"published_at"`
}

type RelationInfo struct {
	Name string `json:"name"`
	Rows int    `json:"rows"`
}

// KafkaPublisher produces RelationsPublished events synchronously.
type KafkaPublisher struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

type Option func(*KafkaPublisher)

func WithLogger(logger *slog.Logger) Option {
	return func(p *KafkaPublisher) {
		p.logger = logger
	}
}

// NewKafkaPublisher connects a producer to brokers. Records wait for all
// in-sync replicas.
func NewKafkaPublisher(brokers []string, topic string, opts ...Option) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}
	if topic == "" {
		return nil, fmt.Errorf("kafka topic is required")
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	p := &KafkaPublisher{client: client, topic: topic, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// EnsureTopic creates the topic if it does not exist yet.
func (p *KafkaPublisher) EnsureTopic(ctx context.Context, partitions int32, replication int16) error {
	adm := kadm.NewClient(p.client)
	resp, err := adm.CreateTopic(ctx, partitions, replication, nil, p.topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", p.topic, err)
	}
	if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
		return fmt.Errorf("create topic %s: %w", p.topic, resp.Err)
	}
	return nil
}

func (p *KafkaPublisher) Publish(ctx context.Context, event RelationsPublished) error {
	if event.Type == "" {
		event.Type = TypeRelationsPublished
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event.Type, err)
	}
	rec := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(event.Level),
		Value: payload,
	}
	if err := p.client.ProduceSync(ctx, rec).FirstErr(); err != nil {
		return fmt.Errorf("produce %s event: %w", event.Type, err)
	}
	p.logger.DebugContext(ctx, "event produced",
		"topic", p.topic,
		"level", event.Level,
		"run_id", event.RunID,
	)
	return nil
}

func (p *KafkaPublisher) Close() {
	p.client.Close()
}
