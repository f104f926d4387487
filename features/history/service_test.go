package history_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/sagerock/google-drive-to-qdrant/features/history"
	"github.com/sagerock/google-drive-to-qdrant/internal/pipeline"
	"github.com/sagerock/google-drive-to-qdrant/internal/vector"
)

type MockRepo struct {
	mock.Mock
}

func (m *MockRepo) Save(ctx context.Context, run *history.Run, cols []history.CollectionRun) error {
	return m.Called(ctx, run, cols).Error(0)
}

func (m *MockRepo) List(ctx context.Context, limit int) ([]history.Run, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]history.Run), args.Error(1)
}

func (m *MockRepo) Collections(ctx context.Context, runID string) ([]history.CollectionRun, error) {
	args := m.Called(ctx, runID)
	return args.Get(0).([]history.CollectionRun), args.Error(1)
}

func sampleResult() pipeline.RunResult {
	start := time.Now()
	return pipeline.RunResult{
		RunID:      "run-1",
		StartedAt:  start,
		FinishedAt: start.Add(time.Second),
		Collections: []pipeline.CollectionResult{
			{Name: "docs", Target: "docs", Store: "qdrant", State: vector.StateVerified, OK: true, FilesProcessed: 3, Chunks: 7, Written: 7, Duration: 1500 * time.Millisecond},
			{Name: "img", Target: "images", Store: "qdrant", State: vector.StateFailed, Error: "no files found"},
		},
		Succeeded: 1,
		Failed:    1,
		Files:     3,
		Chunks:    7,
		Points:    7,
	}
}

func TestFromResult(t *testing.T) {
	run, cols := history.FromResult(sampleResult())

	assert.Equal(t, "run-1", run.ID)
	assert.Equal(t, 1, run.Failed)
	assert.Len(t, cols, 2)
	assert.Equal(t, "verified", cols[0].State)
	assert.Equal(t, int64(1500), cols[0].DurationMS)
	assert.Equal(t, []string{}, cols[1].Warnings)
	assert.False(t, cols[1].Success)
}

func TestRecorder_RunFinished(t *testing.T) {
	repo := new(MockRepo)
	repo.On("Save", mock.Anything, mock.MatchedBy(func(r *history.Run) bool { return r.ID == "run-1" }), mock.Anything).Return(nil).Once()

	history.NewRecorder(repo).RunFinished(context.Background(), sampleResult())
	repo.AssertExpectations(t)
}

func TestRecorder_RunFinished_ErrorIsSwallowed(t *testing.T) {
	repo := new(MockRepo)
	repo.On("Save", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("db down")).Once()

	assert.NotPanics(t, func() {
		history.NewRecorder(repo).RunFinished(context.Background(), sampleResult())
	})
	repo.AssertExpectations(t)
}
