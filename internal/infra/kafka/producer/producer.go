package producer

import (
	"context"
	"encoding/json"
	"fmt"

	wbfkafka "github.com/wb-go/wbf/kafka"
	"github.com/wb-go/wbf/retry"
)

// Producer publishes JSON events to a single Kafka topic.
type Producer struct {
	Client   *wbfkafka.Producer
	strategy retry.Strategy
}

// New creates a Producer bound to one topic.
// - brokers: Kafka broker addresses
// - topic: destination topic
// - s: retry strategy
func New(brokers []string, topic string, s retry.Strategy) *Producer {
	return &Producer{
		Client:   wbfkafka.NewProducer(brokers, topic),
		strategy: s,
	}
}

// Produce serializes the payload to JSON and sends it with retries.
// The key is used for partitioning and ordering.
func (p *Producer) Produce(ctx context.Context, key []byte, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %v", err)
	}

	if err = p.Client.SendWithRetry(ctx, p.strategy, key, data); err != nil {
		return fmt.Errorf("failed to send event: %v", err)
	}

	return nil
}
