// Package kafka publishes outbox entries to a Kafka topic with franz-go.
package kafka

import (
	"context"
	"errors"
	"fmt"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"recordshare/pkg/platform/audit/outbox"
)

// Sink produces outbox entries keyed by actor so one participant's events keep
// their relative order within a partition.
type Sink struct {
	client *kgo.Client
	topic  string
}

// NewSink wraps an existing client. The client's lifecycle belongs to the
// caller.
func NewSink(client *kgo.Client, topic string) *Sink {
	return &Sink{client: client, topic: topic}
}

// Publish produces entries one by one in order and stops at the first failure.
func (s *Sink) Publish(ctx context.Context, entries []outbox.Entry) (int, error) {
	for i, e := range entries {
		record := &kgo.Record{
			Topic: s.topic,
			Key:   []byte(e.AggregateID),
			Value: e.Payload,
			Headers: []kgo.RecordHeader{
				{Key: "event_type", Value: []byte(e.EventType)},
				{Key: "event_id", Value: []byte(e.ID)},
			},
			Timestamp: e.CreatedAt,
		}
		if err := s.client.ProduceSync(ctx, record).FirstErr(); err != nil {
			return i, fmt.Errorf("produce audit event %s: %w", e.ID, err)
		}
	}
	return len(entries), nil
}

// EnsureTopic creates topic if it does not exist yet.
func EnsureTopic(ctx context.Context, client *kgo.Client, topic string, partitions int32, replication int16) error {
	admin := kadm.NewClient(client)
	resp, err := admin.CreateTopics(ctx, partitions, replication, nil, topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", topic, err)
	}
	for _, r := range resp {
		if r.Err != nil && !errors.Is(r.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", r.Topic, r.Err)
		}
	}
	return nil
}
