package pipeline

import (
	"time"

	"github.com/sagerock/google-drive-to-qdrant/internal/vector"
)

// CollectionResult is the outcome of syncing one configured collection.
type CollectionResult struct {
	Name   string       `json:"name"`
	Target string       `json:"target"`
	Store  string       `json:"store"`
	State  vector.State `json:"state"`
	OK     bool         `json:"success"`
	Error  string       `json:"error,omitempty"`
	Err    error        `json:"-"`

	FilesFound     int `json:"files_found"`
	FilesProcessed int `json:"files_processed"`
	FilesSkipped   int `json:"files_skipped"`
	FailedFolders  int `json:"failed_folders"`
	Chunks         int `json:"chunks"`

	EmbedBatches       int `json:"embed_batches"`
	FailedEmbedBatches int `json:"failed_embed_batches"`
	ZeroVectors        int `json:"zero_vectors"`

	PointsBefore       int64 `json:"points_before"`
	Deleted            int   `json:"deleted"`
	Undeleted          int   `json:"undeleted"`
	Written            int   `json:"written"`
	Dropped            int   `json:"dropped"`
	FailedWriteBatches int   `json:"failed_write_batches"`
	PointsAfter        int64 `json:"points_after"`

	Warnings  []string      `json:"warnings,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration_ns"`
}

func (r *CollectionResult) warn(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

func (r *CollectionResult) fail(err error) {
	r.OK = false
	r.Err = err
	r.Error = err.Error()
	if r.State != vector.StateFailed {
		r.State = vector.StateFailed
	}
}

// RunResult aggregates every collection of one run, in configuration order.
type RunResult struct {
	RunID       string             `json:"run_id"`
	StartedAt   time.Time          `json:"started_at"`
	FinishedAt  time.Time          `json:"finished_at"`
	Collections []CollectionResult `json:"collections"`
	Succeeded   int                `json:"succeeded"`
	Failed      int                `json:"failed"`
	Files       int                `json:"files"`
	Chunks      int                `json:"chunks"`
	Points      int                `json:"points"`
}

func (r *RunResult) tally() {
	r.Succeeded, r.Failed, r.Files, r.Chunks, r.Points = 0, 0, 0, 0, 0
	for _, c := range r.Collections {
		if c.OK {
			r.Succeeded++
		} else {
			r.Failed++
		}
		r.Files += c.FilesProcessed
		r.Chunks += c.Chunks
		r.Points += c.Written
	}
}

// OK reports whether every collection succeeded.
func (r RunResult) OK() bool { return r.Failed == 0 }
