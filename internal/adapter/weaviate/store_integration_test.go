package weaviate_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	adapter "github.com/sagerock/google-drive-to-qdrant/internal/adapter/weaviate"
	"github.com/sagerock/google-drive-to-qdrant/internal/testutils"
	"github.com/sagerock/google-drive-to-qdrant/internal/vector"
)

func TestWeaviateStore_Integration(t *testing.T) {
	s := testutils.NewIntegrationSuite(t)
	s.SetupWeaviate()

	store := adapter.NewStoreWithClient(s.Weaviate)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, "DriveChunk", 3))
	// Second call only reconciles properties.
	require.NoError(t, store.Create(ctx, "DriveChunk", 3))

	info, err := store.Info(ctx, "DriveChunk")
	require.NoError(t, err)
	assert.Equal(t, int64(0), info.PointCount)
	assert.Equal(t, 0, info.Dimension)

	points := []vector.Point{
		{ID: uuid.NewString(), Vector: []float32{0.1, 0.2, 0.3}, Payload: map[string]any{
			"content": "Postgres is a database", "metadata": map[string]any{"fileId": "f1", "fileName": "db.txt"},
		}},
		{ID: uuid.NewString(), Vector: []float32{0.3, 0.2, 0.1}, Payload: map[string]any{
			"content": "Qdrant stores vectors", "metadata": map[string]any{"fileId": "f2", "fileName": "vec.txt"},
		}},
	}
	require.NoError(t, store.Upsert(ctx, "DriveChunk", points))

	info, err = store.Info(ctx, "DriveChunk")
	require.NoError(t, err)
	assert.Equal(t, int64(2), info.PointCount)
	assert.Equal(t, 3, info.Dimension)

	page, err := store.Scroll(ctx, "DriveChunk", vector.ScrollRequest{Limit: 10, WithPayload: true})
	require.NoError(t, err)
	require.Len(t, page.Points, 2)
	assert.Empty(t, page.Next)

	ids := []string{page.Points[0].ID, page.Points[1].ID}
	require.NoError(t, store.Delete(ctx, "DriveChunk", ids))

	info, err = store.Info(ctx, "DriveChunk")
	require.NoError(t, err)
	assert.Equal(t, int64(0), info.PointCount)
}
