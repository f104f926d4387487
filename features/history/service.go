package history

import (
	"context"
	"log/slog"

	"github.com/sagerock/google-drive-to-qdrant/internal/pipeline"
)

// Recorder persists finished runs. Storage failures are logged and never
// affect the sync.
type Recorder struct {
	repo Repository
}

func NewRecorder(repo Repository) *Recorder {
	return &Recorder{repo: repo}
}

// CollectionFinished is a no-op; collection rows are written with the run.
func (r *Recorder) CollectionFinished(context.Context, string, pipeline.CollectionResult) {}

func (r *Recorder) RunFinished(ctx context.Context, res pipeline.RunResult) {
	run, cols := FromResult(res)
	if err := r.repo.Save(ctx, run, cols); err != nil {
		slog.ErrorContext(ctx, "failed to record sync run", "error", err)
		return
	}
	slog.DebugContext(ctx, "sync run recorded", "collections", len(cols))
}

// FromResult converts a pipeline result into history rows.
func FromResult(res pipeline.RunResult) (*Run, []CollectionRun) {
	run := &Run{
		ID:         res.RunID,
		StartedAt:  res.StartedAt,
		FinishedAt: res.FinishedAt,
		Succeeded:  res.Succeeded,
		Failed:     res.Failed,
		Files:      res.Files,
		Chunks:     res.Chunks,
		Points:     res.Points,
	}
	cols := make([]CollectionRun, len(res.Collections))
	for i, c := range res.Collections {
		warnings := c.Warnings
		if warnings == nil {
			warnings = []string{}
		}
		cols[i] = CollectionRun{
			RunID:       res.RunID,
			Name:        c.Name,
			Target:      c.Target,
			Store:       c.Store,
			State:       string(c.State),
			Success:     c.OK,
			Error:       c.Error,
			Files:       c.FilesProcessed,
			Chunks:      c.Chunks,
			Written:     c.Written,
			ZeroVectors: c.ZeroVectors,
			Warnings:    warnings,
			DurationMS:  c.Duration.Milliseconds(),
		}
	}
	return run, cols
}
