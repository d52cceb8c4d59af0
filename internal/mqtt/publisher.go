package mqtt

import (
	"context"
	"encoding/json"
	"time"

	"github.com/tphakala/birdsound-go/internal/errors"
	"github.com/tphakala/birdsound-go/internal/logger"
	"github.com/tphakala/birdsound-go/internal/pipeline"
)

// Publisher sends classification results over a Client. It implements
// pipeline.Publisher.
type Publisher struct {
	client Client
	topic  string
	source string
	now    func() time.Time
}

// NewPublisher publishes to topic, tagging payloads with source.
func NewPublisher(c Client, topic, source string) *Publisher {
	if topic == "" {
		topic = DefaultConfig().Topic
	}
	return &Publisher{client: c, topic: topic, source: source, now: time.Now}
}

// Publish implements pipeline.Publisher.
func (p *Publisher) Publish(ctx context.Context, result pipeline.Result) error {
	payload, err := json.Marshal(NewResultDTO(&result, p.source, p.now()))
	if err != nil {
		return errors.New(err).
			Component("mqtt").
			Category(errors.CategoryMQTTPublish).
			Build()
	}

	if err := p.client.Publish(ctx, p.topic, payload); err != nil {
		return err
	}

	GetLogger().WithContext(ctx).Debug("result published",
		logger.String("topic", p.topic),
		logger.String("species", result.SpeciesName),
		logger.Int("bytes", len(payload)))
	return nil
}

// Close disconnects the underlying client.
func (p *Publisher) Close() {
	p.client.Disconnect()
}
