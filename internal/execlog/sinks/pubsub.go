package sinks

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/siteproof/linkaudit/internal/execlog"
)

// PubSubSink publishes execution-log entries as JSON messages to a Pub/Sub
// topic, for tenants that feed the log into an external pipeline.
type PubSubSink struct {
	client *pubsub.Client
	topic  *pubsub.Topic
	logger *zap.Logger
}

// NewPubSubSink creates the client and verifies the topic exists, failing
// fast on misconfiguration. Authentication uses Application Default
// Credentials unless overridden via opts.
func NewPubSubSink(ctx context.Context, projectID, topicID string, logger *zap.Logger, opts ...option.ClientOption) (*PubSubSink, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}
	topic := client.Topic(topicID)
	exists, err := topic.Exists(ctx)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("check pubsub topic %q: %w", topicID, err)
	}
	if !exists {
		_ = client.Close()
		return nil, fmt.Errorf("pubsub topic %q does not exist in project %q", topicID, projectID)
	}
	return &PubSubSink{client: client, topic: topic, logger: logger}, nil
}

// Append publishes each entry, then waits on the batch's results so publish
// failures surface instead of vanishing. Append runs on the log's background
// goroutine under its sink timeout, never on the webhook path.
func (s *PubSubSink) Append(ctx context.Context, batch []execlog.Entry) error {
	results := make([]*pubsub.PublishResult, 0, len(batch))
	for _, e := range batch {
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("encode execlog entry: %w", err)
		}
		results = append(results, s.topic.Publish(ctx, &pubsub.Message{
			Data:       data,
			Attributes: map[string]string{"level": string(e.Level), "action": e.Action},
		}))
	}
	var failed int
	for _, res := range results {
		if _, err := res.Get(ctx); err != nil {
			failed++
			s.logger.Warn("pubsub publish failed", zap.Error(err))
		}
	}
	if failed > 0 {
		return fmt.Errorf("publishing execlog batch: %d of %d entries failed", failed, len(results))
	}
	return nil
}

// Close flushes pending publishes and releases the client.
func (s *PubSubSink) Close(context.Context) error {
	s.topic.Stop()
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("close pubsub client: %w", err)
	}
	return nil
}
