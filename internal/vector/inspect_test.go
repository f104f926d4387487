package vector_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagerock/google-drive-to-qdrant/internal/vector"
)

func seed(t *testing.T, store *vector.MemoryStore, chunksPerFile map[string]int) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, "docs", 2))
	var points []vector.Point
	for file, n := range chunksPerFile {
		for i := 0; i < n; i++ {
			points = append(points, vector.Point{
				ID:     fmt.Sprintf("%s-%d", file, i),
				Vector: []float32{1, 0},
				Payload: map[string]any{
					"content":  "x",
					"metadata": map[string]any{"fileId": file, "fileName": file + ".txt", "mimeType": "text/plain"},
				},
			})
		}
	}
	require.NoError(t, store.Upsert(ctx, "docs", points))
}

func TestInspect(t *testing.T) {
	store := vector.NewMemoryStore()
	seed(t, store, map[string]int{"a": 3, "b": 5, "c": 1})

	res, err := vector.Inspect(context.Background(), store, "docs", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(9), res.Info.PointCount)
	assert.Equal(t, 9, res.Sampled)
	require.Len(t, res.Documents, 3)
	assert.Equal(t, "b.txt", res.Documents[0].FileName)
	assert.Equal(t, 5, res.Documents[0].Chunks)
	assert.Equal(t, "c", res.Documents[2].FileID)
}

func TestInspect_RespectsLimit(t *testing.T) {
	store := vector.NewMemoryStore()
	seed(t, store, map[string]int{"a": 10})

	res, err := vector.Inspect(context.Background(), store, "docs", 4)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Sampled)
	assert.Equal(t, int64(10), res.Info.PointCount)
}

func TestInspect_MissingCollection(t *testing.T) {
	_, err := vector.Inspect(context.Background(), vector.NewMemoryStore(), "nope", 0)
	assert.ErrorIs(t, err, vector.ErrCollectionNotFound)
}
