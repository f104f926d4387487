// Package notify publishes sync outcomes to NSQ.
package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/sagerock/google-drive-to-qdrant/internal/config"
	"github.com/sagerock/google-drive-to-qdrant/internal/pipeline"
)

// EventPublisher is satisfied by *nsq.Producer.
type EventPublisher interface {
	Publish(topic string, body []byte) error
}

type CollectionEvent struct {
	RunID string `json:"run_id"`
	pipeline.CollectionResult
	PublishedAt time.Time `json:"published_at"`
}

// Notifier turns pipeline outcomes into NSQ messages. Publish failures are
// logged only.
type Notifier struct {
	pub EventPublisher
}

func NewNotifier(pub EventPublisher) *Notifier {
	return &Notifier{pub: pub}
}

func (n *Notifier) CollectionFinished(ctx context.Context, runID string, res pipeline.CollectionResult) {
	n.publish(ctx, config.TopicCollectionResult, CollectionEvent{
		RunID:            runID,
		CollectionResult: res,
		PublishedAt:      time.Now().UTC(),
	})
}

func (n *Notifier) RunFinished(ctx context.Context, res pipeline.RunResult) {
	n.publish(ctx, config.TopicRunResult, res)
}

func (n *Notifier) publish(ctx context.Context, topic string, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		slog.ErrorContext(ctx, "failed to marshal event", "topic", topic, "error", err)
		return
	}
	if err := n.pub.Publish(topic, body); err != nil {
		slog.WarnContext(ctx, "failed to publish event", "topic", topic, "error", err)
		return
	}
	slog.DebugContext(ctx, "event published", "topic", topic, "bytes", len(body))
}
