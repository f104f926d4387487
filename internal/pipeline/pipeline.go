// Package pipeline syncs configured Drive folders into vector collections.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/sagerock/google-drive-to-qdrant/internal/config"
	"github.com/sagerock/google-drive-to-qdrant/internal/correlation"
	"github.com/sagerock/google-drive-to-qdrant/internal/drive"
	"github.com/sagerock/google-drive-to-qdrant/internal/embedding"
	"github.com/sagerock/google-drive-to-qdrant/internal/extract"
	"github.com/sagerock/google-drive-to-qdrant/internal/text"
	"github.com/sagerock/google-drive-to-qdrant/internal/vector"
)

var (
	ErrNoFiles           = errors.New("no files found")
	ErrNoChunks          = errors.New("no chunks created")
	ErrCollectionsFailed = errors.New("one or more collections failed")
)

// Source lists and downloads Drive items.
type Source interface {
	drive.Lister
	Download(ctx context.Context, item drive.Item) ([]byte, error)
}

// Target holds the per-collection components. Close releases them.
type Target struct {
	Extractor *extract.Extractor
	Chunker   *text.Chunker
	Batcher   *embedding.Batcher
	Store     vector.Store
	Close     func()
}

// Builder constructs the components for one collection.
type Builder func(ctx context.Context, col config.Collection) (*Target, error)

// Observer is told about outcomes as they happen. Implementations must not
// block for long and must tolerate concurrent calls.
type Observer interface {
	CollectionFinished(ctx context.Context, runID string, res CollectionResult)
	RunFinished(ctx context.Context, res RunResult)
}

// Progress receives per-file progress for one collection.
type Progress interface {
	Start(collection string, total int)
	Advance()
	Finish()
}

type Pipeline struct {
	source      Source
	build       Builder
	concurrency int
	loaderOpts  []vector.LoaderOption
	observers   []Observer
	progress    Progress
}

type Option func(*Pipeline) error

// WithConcurrency syncs up to n collections at once.
func WithConcurrency(n int) Option {
	return func(p *Pipeline) error {
		if n > 0 {
			p.concurrency = n
		}
		return nil
	}
}

func WithLoaderOptions(opts ...vector.LoaderOption) Option {
	return func(p *Pipeline) error {
		p.loaderOpts = append(p.loaderOpts, opts...)
		return nil
	}
}

func WithObserver(o Observer) Option {
	return func(p *Pipeline) error {
		if o == nil {
			return fmt.Errorf("observer is nil")
		}
		p.observers = append(p.observers, o)
		return nil
	}
}

func WithProgress(pr Progress) Option {
	return func(p *Pipeline) error {
		p.progress = pr
		return nil
	}
}

func New(source Source, build Builder, opts ...Option) (*Pipeline, error) {
	p := &Pipeline{source: source, build: build, concurrency: 1}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Run syncs every collection and returns ErrCollectionsFailed if any failed.
// A failing collection never stops the others.
func (p *Pipeline) Run(ctx context.Context, cols []config.Collection) (RunResult, error) {
	if correlation.GetRunID(ctx) == "unknown" {
		ctx = correlation.WithRunID(ctx, correlation.NewRunID())
	}
	res := RunResult{
		RunID:       correlation.GetRunID(ctx),
		StartedAt:   time.Now(),
		Collections: make([]CollectionResult, len(cols)),
	}
	slog.InfoContext(ctx, "starting sync run", "collections", len(cols), "concurrency", p.concurrency)

	if p.concurrency <= 1 || len(cols) <= 1 {
		for i, col := range cols {
			res.Collections[i] = p.syncAndNotify(ctx, res.RunID, col)
		}
	} else if err := p.runConcurrent(ctx, res.RunID, cols, res.Collections); err != nil {
		return res, err
	}

	res.FinishedAt = time.Now()
	res.tally()
	// Observers still record interrupted runs.
	octx := context.WithoutCancel(ctx)
	for _, o := range p.observers {
		o.RunFinished(octx, res)
	}

	slog.InfoContext(ctx, "sync run finished", "succeeded", res.Succeeded, "failed", res.Failed,
		"chunks", res.Chunks, "duration", res.FinishedAt.Sub(res.StartedAt))
	if res.Failed > 0 {
		return res, fmt.Errorf("%w: %d of %d", ErrCollectionsFailed, res.Failed, len(cols))
	}
	return res, nil
}

func (p *Pipeline) runConcurrent(ctx context.Context, runID string, cols []config.Collection, out []CollectionResult) error {
	pool, err := ants.NewPool(p.concurrency)
	if err != nil {
		return fmt.Errorf("create collection pool: %w", err)
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for i, col := range cols {
		wg.Add(1)
		task := func() {
			defer wg.Done()
			out[i] = p.syncAndNotify(ctx, runID, col)
		}
		if err := pool.Submit(task); err != nil {
			task()
		}
	}
	wg.Wait()
	return nil
}

func (p *Pipeline) syncAndNotify(ctx context.Context, runID string, col config.Collection) CollectionResult {
	ctx = correlation.WithCollection(ctx, col.Name)
	r := p.SyncCollection(ctx, col)
	octx := context.WithoutCancel(ctx)
	for _, o := range p.observers {
		o.CollectionFinished(octx, runID, r)
	}
	return r
}

// SyncCollection runs walk, extract, chunk, embed and load for one collection.
func (p *Pipeline) SyncCollection(ctx context.Context, col config.Collection) (r CollectionResult) {
	r = CollectionResult{
		Name:      col.Name,
		Target:    col.StoreCollection(),
		Store:     col.Store,
		State:     vector.StatePending,
		StartedAt: time.Now(),
	}
	defer func() {
		r.Duration = time.Since(r.StartedAt)
		if r.OK {
			slog.InfoContext(ctx, "collection completed successfully", "target", r.Target, "files", r.FilesProcessed,
				"chunks", r.Chunks, "points", r.PointsAfter, "duration", r.Duration)
		} else {
			slog.ErrorContext(ctx, "collection failed", "target", r.Target, "error", r.Error, "duration", r.Duration)
		}
	}()

	slog.InfoContext(ctx, "processing collection", "folders", len(col.Folders), "target", r.Target, "store", col.Store)

	t, err := p.build(ctx, col)
	if err != nil {
		r.fail(fmt.Errorf("initialise components: %w", err))
		return r
	}
	if t.Close != nil {
		defer t.Close()
	}

	if info, err := t.Store.Info(ctx, r.Target); err == nil {
		slog.InfoContext(ctx, "initial collection stats", "points", info.PointCount, "dimension", info.Dimension)
	}

	walker := drive.NewWalker(p.source,
		drive.WithSubfolders(col.IncludeSubfolders),
		drive.WithExclude(col.Exclude),
	)
	walked := walker.WalkAll(ctx, col.Folders)
	r.FilesFound = len(walked.Items)
	r.FailedFolders = walked.FailedFolders
	if walked.FailedFolders > 0 {
		r.warn(fmt.Sprintf("%d folders could not be listed", walked.FailedFolders))
	}
	if err := ctx.Err(); err != nil {
		r.fail(err)
		return r
	}
	if len(walked.Items) == 0 {
		r.fail(ErrNoFiles)
		return r
	}

	chunks, err := p.chunkItems(ctx, t, walked.Items, &r)
	if err != nil {
		r.fail(err)
		return r
	}
	r.Chunks = len(chunks)
	if len(chunks) == 0 {
		r.fail(ErrNoChunks)
		return r
	}
	slog.InfoContext(ctx, "created chunks", "chunks", len(chunks), "documents", r.FilesProcessed)

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, stats, err := t.Batcher.EmbedBatch(ctx, texts)
	r.EmbedBatches = stats.Batches
	r.FailedEmbedBatches = stats.FailedBatches
	r.ZeroVectors = stats.Empty
	if err != nil {
		r.fail(fmt.Errorf("generate embeddings: %w", err))
		return r
	}
	if stats.FailedBatches > 0 {
		r.ZeroVectors += stats.Degraded
		r.warn(fmt.Sprintf("%d embedding batches fell back to zero vectors", stats.FailedBatches))
	}
	slog.InfoContext(ctx, "generated embeddings", "chunks", len(vectors), "failed_batches", stats.FailedBatches)

	records := make([]vector.Record, len(chunks))
	for i, c := range chunks {
		records[i] = vector.Record{Text: c.Text, Metadata: c.Metadata, Vector: vectors[i]}
	}
	p.load(ctx, t, records, &r)
	return r
}

func (p *Pipeline) chunkItems(ctx context.Context, t *Target, items []drive.Item, r *CollectionResult) ([]text.Chunk, error) {
	if p.progress != nil {
		p.progress.Start(r.Name, len(items))
		defer p.progress.Finish()
	}

	var chunks []text.Chunk
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if p.progress != nil {
			p.progress.Advance()
		}

		slog.DebugContext(ctx, "processing file", "file", item.Name, "mime_type", item.MimeType)
		raw, err := p.source.Download(ctx, item)
		if err != nil {
			slog.WarnContext(ctx, "skipping file that could not be downloaded", "file", item.Name, "error", err)
			r.FilesSkipped++
			continue
		}
		if len(raw) == 0 {
			slog.WarnContext(ctx, "skipping file with no content", "file", item.Name)
			r.FilesSkipped++
			continue
		}

		doc := t.Extractor.Extract(ctx, item, raw)
		r.FilesProcessed++
		if doc.Empty() {
			continue
		}

		cs, err := t.Chunker.Chunk(ctx, doc.Text, item.Metadata())
		if err != nil {
			slog.WarnContext(ctx, "failed to chunk document", "file", item.Name, "error", err)
			continue
		}
		chunks = append(chunks, cs...)
	}
	return chunks, nil
}

func (p *Pipeline) load(ctx context.Context, t *Target, records []vector.Record, r *CollectionResult) {
	dim := t.Batcher.Dimension()
	loader := vector.NewLoader(t.Store, r.Target, dim, p.loaderOpts...)
	defer func() { r.State = loader.State() }()

	info, err := loader.Verify(ctx)
	if err != nil {
		r.fail(err)
		return
	}
	r.PointsBefore = info.PointCount

	cleared, err := loader.Clear(ctx)
	r.Deleted = cleared.Deleted
	r.Undeleted = cleared.Undeleted
	if err != nil {
		r.fail(fmt.Errorf("clear collection: %w", err))
		return
	}
	if cleared.Undeleted > 0 {
		r.warn(fmt.Sprintf("%d existing points could not be deleted", cleared.Undeleted))
	}

	up, err := loader.Upsert(ctx, records)
	r.Written = up.Written
	r.Dropped = up.Dropped
	r.FailedWriteBatches = up.FailedBatches
	r.PointsAfter = up.FinalCount
	if err != nil {
		r.fail(fmt.Errorf("upsert chunks: %w", err))
		return
	}
	if up.FailedBatches > 0 {
		r.warn(fmt.Sprintf("%d upsert batches failed", up.FailedBatches))
	}
	if up.Dropped > 0 {
		r.warn(fmt.Sprintf("%d chunks dropped for invalid vectors", up.Dropped))
	}
	if up.CountMismatch {
		r.warn(fmt.Sprintf("expected %d points, collection reports %d", up.Written, up.FinalCount))
	}
	r.OK = true
}
