package history_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagerock/google-drive-to-qdrant/features/history"
)

func TestPostgresRepo_Save(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := history.NewPostgresRepo(db)
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	run := &history.Run{ID: "run-1", StartedAt: start, FinishedAt: start.Add(time.Minute), Succeeded: 1, Files: 2, Chunks: 5, Points: 5}
	cols := []history.CollectionRun{{
		Name: "docs", Target: "docs", Store: "qdrant", State: "verified", Success: true,
		Files: 2, Chunks: 5, Written: 5, Warnings: []string{"slow"}, DurationMS: 60000,
	}}

	t.Run("Success", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO sync_runs")).
			WithArgs("run-1", start, start.Add(time.Minute), 1, 0, 2, 5, 5).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO sync_collection_results")).
			WithArgs("run-1", "docs", "docs", "qdrant", "verified", true, "", 2, 5, 5, 0, pq.Array([]string{"slow"}), int64(60000)).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		err := repo.Save(context.Background(), run, cols)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("RollsBackOnError", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO sync_runs")).WillReturnError(errors.New("duplicate key"))
		mock.ExpectRollback()

		err := repo.Save(context.Background(), run, cols)
		assert.ErrorContains(t, err, "insert run")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresRepo_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := history.NewPostgresRepo(db)
	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "started_at", "finished_at", "succeeded", "failed", "files", "chunks", "points"}).
		AddRow("run-2", now, now, 2, 0, 4, 9, 9).
		AddRow("run-1", now.Add(-time.Hour), now.Add(-time.Hour), 1, 1, 1, 3, 3)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, started_at, finished_at, succeeded, failed, files, chunks, points FROM sync_runs ORDER BY started_at DESC LIMIT $1")).
		WithArgs(10).
		WillReturnRows(rows)

	runs, err := repo.List(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-2", runs[0].ID)
	assert.Equal(t, 1, runs[1].Failed)
}

func TestPostgresRepo_Collections(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := history.NewPostgresRepo(db)
	rows := sqlmock.NewRows([]string{"run_id", "name", "target", "store", "state", "success", "error", "files", "chunks", "written", "zero_vectors", "warnings", "duration_ms"}).
		AddRow("run-1", "docs", "docs", "qdrant", "failed", false, "no files found", 0, 0, 0, 0, "{}", 12)

	mock.ExpectQuery(regexp.QuoteMeta("FROM sync_collection_results WHERE run_id = $1")).
		WithArgs("run-1").
		WillReturnRows(rows)

	cols, err := repo.Collections(context.Background(), "run-1")
	require.NoError(t, err)
	require.Len(t, cols, 1)
	assert.False(t, cols[0].Success)
	assert.Equal(t, "no files found", cols[0].Error)
	assert.Empty(t, cols[0].Warnings)
}
