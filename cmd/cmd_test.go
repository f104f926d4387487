package cmd

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagerock/google-drive-to-qdrant/features/history"
	"github.com/sagerock/google-drive-to-qdrant/internal/drive"
	"github.com/sagerock/google-drive-to-qdrant/internal/pipeline"
	"github.com/sagerock/google-drive-to-qdrant/internal/vector"
)

func TestWriteReport(t *testing.T) {
	start := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	res := pipeline.RunResult{
		RunID:      "run-1",
		StartedAt:  start,
		FinishedAt: start.Add(3 * time.Second),
		Collections: []pipeline.CollectionResult{
			{Name: "docs", Target: "docs_v1", OK: true, FilesProcessed: 4, Chunks: 12, PointsAfter: 12, Warnings: []string{"1 folders could not be listed"}},
			{Name: "images", Target: "Images", Error: "no files found"},
		},
		Succeeded: 1,
		Failed:    1,
		Files:     4,
		Chunks:    12,
		Points:    12,
	}

	var buf bytes.Buffer
	writeReport(&buf, res)
	out := buf.String()
	assert.Contains(t, out, "docs -> docs_v1: 4 files, 12 chunks, 12 points")
	assert.Contains(t, out, "images -> Images: no files found")
	assert.Contains(t, out, "1 folders could not be listed")
	assert.Contains(t, out, "1 succeeded, 1 failed")
}

func TestWriteInspection(t *testing.T) {
	res := vector.Inspection{
		Info:    vector.CollectionInfo{Name: "docs_v1", PointCount: 2000, Dimension: 1536},
		Sampled: 1000,
		Documents: []vector.DocumentStats{
			{FileID: "f1", FileName: "handbook.pdf", MimeType: "application/pdf", Chunks: 900},
			{FileID: "f2", FileName: "notes.md", MimeType: "text/markdown", Chunks: 100},
		},
	}

	var buf bytes.Buffer
	writeInspection(&buf, "docs", res, false)
	assert.Contains(t, buf.String(), "points:     2000")
	assert.Contains(t, buf.String(), "sampled 1000 points")
	assert.NotContains(t, buf.String(), "handbook.pdf")

	buf.Reset()
	writeInspection(&buf, "docs", res, true)
	assert.Contains(t, buf.String(), "handbook.pdf")
	assert.Contains(t, buf.String(), "notes.md")
}

type fakeLister struct {
	names map[string]string
}

func (f fakeLister) ListChildren(_ context.Context, id string) ([]drive.Item, []drive.Folder, error) {
	if _, ok := f.names[id]; !ok {
		return nil, nil, errors.New("not found")
	}
	return []drive.Item{{ID: "a"}, {ID: "b"}}, []drive.Folder{{ID: "sub"}}, nil
}

func (f fakeLister) FolderName(_ context.Context, id string) (string, error) {
	name, ok := f.names[id]
	if !ok {
		return "", errors.New("File not found: " + id)
	}
	return name, nil
}

func TestCheckFolder(t *testing.T) {
	lister := fakeLister{names: map[string]string{"folder-1": "Handbooks"}}

	var buf bytes.Buffer
	require.NoError(t, checkFolder(context.Background(), &buf, lister, "folder-1"))
	assert.Contains(t, buf.String(), "Handbooks (folder-1): 2 files, 1 subfolders")

	err := checkFolder(context.Background(), &buf, lister, "missing")
	assert.ErrorContains(t, err, "File not found")
}

func TestWriteRuns(t *testing.T) {
	var buf bytes.Buffer
	writeRuns(&buf, nil)
	assert.Contains(t, buf.String(), "no runs recorded")

	buf.Reset()
	start := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	writeRuns(&buf, []history.Run{{ID: "run-1", StartedAt: start, FinishedAt: start.Add(time.Minute), Succeeded: 2, Chunks: 40}})
	assert.Contains(t, buf.String(), "run-1")
	assert.Contains(t, buf.String(), "2 ok / 0 failed, 40 chunks, 1m0s")
}

func TestCollectionArg(t *testing.T) {
	assert.Equal(t, "", collectionArg(nil))
	assert.Equal(t, "docs", collectionArg([]string{"docs"}))
}
