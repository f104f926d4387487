package notify_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/nsqio/go-nsq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagerock/google-drive-to-qdrant/internal/config"
	"github.com/sagerock/google-drive-to-qdrant/internal/notify"
	"github.com/sagerock/google-drive-to-qdrant/internal/pipeline"
	"github.com/sagerock/google-drive-to-qdrant/internal/testutils"
)

func TestNotifier_Integration(t *testing.T) {
	s := testutils.NewIntegrationSuite(t)
	s.SetupNSQ()

	received := make(chan []byte, 1)
	consumer, err := nsq.NewConsumer(config.TopicCollectionResult, "test", nsq.NewConfig())
	require.NoError(t, err)
	consumer.AddHandler(nsq.HandlerFunc(func(m *nsq.Message) error {
		received <- m.Body
		return nil
	}))
	defer consumer.Stop()

	n := notify.NewNotifier(s.NSQ)
	n.CollectionFinished(t.Context(), "run-1", pipeline.CollectionResult{Name: "docs", Target: "docs", OK: true, Chunks: 3})

	require.NoError(t, consumer.ConnectToNSQD(s.NSQDAddr))

	select {
	case body := <-received:
		var ev map[string]any
		require.NoError(t, json.Unmarshal(body, &ev))
		assert.Equal(t, "run-1", ev["run_id"])
		assert.Equal(t, "docs", ev["name"])
		assert.Equal(t, true, ev["success"])
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for collection event")
	}
}
