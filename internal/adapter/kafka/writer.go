package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/region-choropleth/internal/config"
	"github.com/couchcryptid/region-choropleth/internal/domain"
)

// Publisher produces one message per region aggregate to a Kafka topic.
// It implements pipeline.AggregatePublisher.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the configured aggregate topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Publisher{writer: w, logger: logger}
}

// Publish writes every aggregate in a single WriteMessages call, in region
// order. Messages are keyed by region identifier so a compacted topic keeps
// the latest value per region.
func (p *Publisher) Publish(ctx context.Context, runID string, generatedAt time.Time, aggs domain.RegionAggregates) error {
	if len(aggs) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, 0, len(aggs))
	for _, id := range aggs.SortedIDs() {
		msg, err := serializeToMessage(aggs[id], runID, generatedAt)
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish %d aggregates: %w", len(msgs), err)
	}
	p.logger.Info("aggregates published", "topic", p.writer.Topic, "count", len(msgs), "run_id", runID)
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals a RegionAggregate into a Kafka message.
func serializeToMessage(agg domain.RegionAggregate, runID string, generatedAt time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(agg)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize region aggregate: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(agg.RegionID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "run_id", Value: []byte(runID)},
			{Key: "generated_at", Value: []byte(generatedAt.UTC().Format(time.RFC3339))},
		},
	}, nil
}
