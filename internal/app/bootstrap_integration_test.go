package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagerock/google-drive-to-qdrant/features/history"
	"github.com/sagerock/google-drive-to-qdrant/internal/adapter/qdrant"
	"github.com/sagerock/google-drive-to-qdrant/internal/pipeline"
	"github.com/sagerock/google-drive-to-qdrant/internal/testutils"
	"github.com/sagerock/google-drive-to-qdrant/internal/vector"
)

func TestOpenDB_Integration(t *testing.T) {
	s := testutils.NewIntegrationSuite(t)
	s.SetupPostgres()
	ctx := context.Background()

	// Migrations already applied by the suite; a second run must be a no-op.
	db, err := OpenDB(ctx, s.DSN, 3, 100*time.Millisecond)
	require.NoError(t, err)
	defer db.Close()

	rec := history.NewRecorder(history.NewPostgresRepo(db))
	now := time.Now().UTC()
	rec.RunFinished(ctx, pipeline.RunResult{
		RunID:      "33333333-3333-3333-3333-333333333333",
		StartedAt:  now.Add(-time.Minute),
		FinishedAt: now,
		Collections: []pipeline.CollectionResult{
			{Name: "docs", Target: "docs", Store: "qdrant", State: vector.StateVerified, OK: true, Chunks: 2, Written: 2},
		},
		Succeeded: 1,
		Chunks:    2,
		Points:    2,
	})

	runs, err := history.NewPostgresRepo(db).List(ctx, 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 2, runs[0].Points)
}

func TestEnsureCollectionWithRetry_Qdrant(t *testing.T) {
	s := testutils.NewIntegrationSuite(t)
	s.SetupQdrant()

	store := qdrant.NewStoreWithClient(s.Qdrant)
	ctx := context.Background()
	require.NoError(t, EnsureCollectionWithRetry(ctx, store, "docs", 16, 3, 100*time.Millisecond))

	info, err := store.Info(ctx, "docs")
	require.NoError(t, err)
	assert.Equal(t, 16, info.Dimension)
}
