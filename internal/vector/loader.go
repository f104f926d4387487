package vector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sagerock/google-drive-to-qdrant/internal/retry"
)

const (
	DefaultUpsertBatchSize = 100
	DefaultClearPageSize   = 1000
	DefaultDeleteRetries   = 3
)

type State string

const (
	StatePending   State = "pending"
	StateVerifying State = "verifying"
	StateClearing  State = "clearing"
	StateUpserting State = "upserting"
	StateVerified  State = "verified"
	StateFailed    State = "failed"
)

// Record is one embedded chunk ready to be written.
type Record struct {
	Text     string
	Metadata map[string]any
	Vector   []float32
}

type ClearStats struct {
	Before    int64
	Pages     int
	Deleted   int
	Undeleted int
}

type UpsertStats struct {
	Submitted     int
	Dropped       int
	Written       int
	FailedBatches int
	FinalCount    int64
	CountMismatch bool
}

// Loader owns one collection of one store for the duration of a sync.
type Loader struct {
	store      Store
	collection string
	dimension  int

	batchSize     int
	pageSize      int
	deleteRetries int
	retryDelay    time.Duration

	state State
}

type LoaderOption func(*Loader)

func WithUpsertBatchSize(n int) LoaderOption {
	return func(l *Loader) {
		if n > 0 {
			l.batchSize = n
		}
	}
}

func WithClearPageSize(n int) LoaderOption {
	return func(l *Loader) {
		if n > 0 {
			l.pageSize = n
		}
	}
}

func WithDeleteRetry(attempts int, delay time.Duration) LoaderOption {
	return func(l *Loader) {
		if attempts > 0 {
			l.deleteRetries = attempts
		}
		if delay >= 0 {
			l.retryDelay = delay
		}
	}
}

func NewLoader(store Store, collection string, dimension int, opts ...LoaderOption) *Loader {
	l := &Loader{
		store:         store,
		collection:    collection,
		dimension:     dimension,
		batchSize:     DefaultUpsertBatchSize,
		pageSize:      DefaultClearPageSize,
		deleteRetries: DefaultDeleteRetries,
		retryDelay:    time.Second,
		state:         StatePending,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Loader) State() State { return l.state }

func (l *Loader) Collection() string { return l.collection }

func (l *Loader) fail(err error) error {
	l.state = StateFailed
	return err
}

// Verify checks that the collection exists with the expected dimension.
func (l *Loader) Verify(ctx context.Context) (CollectionInfo, error) {
	l.state = StateVerifying
	info, err := l.store.Info(ctx, l.collection)
	if err != nil {
		if errors.Is(err, ErrCollectionNotFound) {
			return info, l.fail(fmt.Errorf("%w: %s", ErrCollectionNotFound, l.collection))
		}
		return info, l.fail(fmt.Errorf("get collection info %s: %w", l.collection, err))
	}

	switch {
	case info.Dimension == 0:
		slog.WarnContext(ctx, "collection dimension unknown, skipping dimension check", "target", l.collection)
	case info.Dimension != l.dimension:
		return info, l.fail(fmt.Errorf("%w: collection %s has %d, embeddings have %d",
			ErrDimensionMismatch, l.collection, info.Dimension, l.dimension))
	}

	slog.InfoContext(ctx, "collection verified", "target", l.collection, "points", info.PointCount, "dimension", info.Dimension)
	return info, nil
}

// Clear deletes every point page by page. Pages whose delete keeps failing are
// skipped and counted in Undeleted; a scroll failure aborts.
func (l *Loader) Clear(ctx context.Context) (ClearStats, error) {
	l.state = StateClearing
	var stats ClearStats

	info, err := l.store.Info(ctx, l.collection)
	if err != nil {
		return stats, l.fail(fmt.Errorf("get collection info %s: %w", l.collection, err))
	}
	stats.Before = info.PointCount
	if info.PointCount == 0 {
		slog.InfoContext(ctx, "collection already empty", "target", l.collection)
		return stats, nil
	}

	offset := ""
	for {
		if err := ctx.Err(); err != nil {
			return stats, l.fail(err)
		}

		page, err := l.store.Scroll(ctx, l.collection, ScrollRequest{Offset: offset, Limit: l.pageSize})
		if err != nil {
			return stats, l.fail(fmt.Errorf("scroll %s: %w", l.collection, err))
		}
		if len(page.Points) == 0 {
			break
		}
		stats.Pages++

		ids := make([]string, len(page.Points))
		for i, p := range page.Points {
			ids[i] = p.ID
		}

		_, err = retry.Do(ctx, l.deleteRetries, retry.Linear(l.retryDelay), func(ctx context.Context, _ int) error {
			return l.store.Delete(ctx, l.collection, ids)
		})
		if err != nil {
			if ctx.Err() != nil {
				return stats, l.fail(ctx.Err())
			}
			slog.ErrorContext(ctx, "failed to delete page of points, skipping", "target", l.collection, "page", stats.Pages, "count", len(ids), "error", err)
			stats.Undeleted += len(ids)
		} else {
			stats.Deleted += len(ids)
			slog.DebugContext(ctx, "deleted page of points", "target", l.collection, "page", stats.Pages, "count", len(ids))
		}

		if page.Next == "" {
			break
		}
		offset = page.Next
	}

	if stats.Undeleted > 0 {
		slog.WarnContext(ctx, "collection not fully cleared", "target", l.collection, "undeleted", stats.Undeleted)
	}
	slog.InfoContext(ctx, "collection cleared", "target", l.collection, "deleted", stats.Deleted)
	return stats, nil
}

// Upsert writes records in batches with fresh UUIDs, then reads the count
// back. It fails only when nothing could be written.
func (l *Loader) Upsert(ctx context.Context, records []Record) (UpsertStats, error) {
	l.state = StateUpserting
	stats := UpsertStats{Submitted: len(records)}

	points := make([]Point, 0, len(records))
	for i, r := range records {
		if len(r.Vector) != l.dimension {
			slog.ErrorContext(ctx, "dropping record with invalid vector", "target", l.collection, "index", i,
				"expected", l.dimension, "got", len(r.Vector))
			stats.Dropped++
			continue
		}
		points = append(points, Point{
			ID:     uuid.NewString(),
			Vector: r.Vector,
			Payload: map[string]any{
				"content":  r.Text,
				"metadata": r.Metadata,
			},
		})
	}

	for start := 0; start < len(points); start += l.batchSize {
		if err := ctx.Err(); err != nil {
			return stats, l.fail(err)
		}
		end := min(start+l.batchSize, len(points))
		batch := points[start:end]
		n := start/l.batchSize + 1

		if err := l.store.Upsert(ctx, l.collection, batch); err != nil {
			slog.ErrorContext(ctx, "failed to upsert batch", "target", l.collection, "batch", n, "size", len(batch),
				"error", fmt.Errorf("%w: %v", ErrWriteFailed, err))
			stats.FailedBatches++
			continue
		}
		stats.Written += len(batch)
		slog.DebugContext(ctx, "upserted batch", "target", l.collection, "batch", n, "size", len(batch))
	}

	if len(points) > 0 && stats.Written == 0 {
		return stats, l.fail(fmt.Errorf("%w: no batches written to %s", ErrWriteFailed, l.collection))
	}

	info, err := l.store.Info(ctx, l.collection)
	if err != nil {
		slog.WarnContext(ctx, "failed to read final point count", "target", l.collection, "error", err)
	} else {
		stats.FinalCount = info.PointCount
		if info.PointCount != int64(stats.Written) {
			stats.CountMismatch = true
			slog.WarnContext(ctx, "point count mismatch after upsert", "target", l.collection,
				"expected", stats.Written, "actual", info.PointCount)
		}
	}

	l.state = StateVerified
	return stats, nil
}
