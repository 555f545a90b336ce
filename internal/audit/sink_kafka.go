package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"
)

// KafkaSink mirrors audit events onto a Kafka topic for downstream
// consumers (compliance archive, alerting). Publishes are fire-and-forget;
// the postgres store stays authoritative.
type KafkaSink struct {
	client *kgo.Client
}

func NewKafkaSink(brokers []string, topic string) (*KafkaSink, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka client: %w", err)
	}
	return &KafkaSink{client: client}, nil
}

func (s *KafkaSink) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	record := &kgo.Record{
		Key:   []byte(event.SubjectID.String()),
		Value: payload,
	}
	// Keyed by subject so per-subject ordering survives partitioning.
	s.client.Produce(ctx, record, nil)
	return nil
}

func (s *KafkaSink) Close() {
	s.client.Close()
}
