// Package embedding turns chunk text into fixed-dimension vectors in batches,
// containing remote failures to zero vectors.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/sagerock/google-drive-to-qdrant/internal/retry"
)

var (
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	ErrBatchFailed       = errors.New("embedding batch failed")
)

const (
	DefaultBatchSize  = 100
	DefaultMaxRetries = 3
	DefaultRetryDelay = time.Second
)

// Embedder is a remote model producing one vector per input text.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Stats describes one EmbedBatch call.
type Stats struct {
	Texts         int
	Empty         int
	Batches       int
	FailedBatches int
	// Degraded counts non-empty texts that got a zero vector after a failure.
	Degraded      int
	Attempts      int
}

type Batcher struct {
	embedder   Embedder
	dimension  int
	batchSize  int
	maxRetries int
	retryDelay time.Duration
	pool       *ants.Pool
}

// Option configures a Batcher.
type Option func(*Batcher) error

func WithBatchSize(n int) Option {
	return func(b *Batcher) error {
		if n > 0 {
			b.batchSize = n
		}
		return nil
	}
}

func WithMaxRetries(n int) Option {
	return func(b *Batcher) error {
		if n > 0 {
			b.maxRetries = n
		}
		return nil
	}
}

func WithRetryDelay(d time.Duration) Option {
	return func(b *Batcher) error {
		if d >= 0 {
			b.retryDelay = d
		}
		return nil
	}
}

// WithConcurrency sends up to n batches at once. Results are written back by
// index, so output order always matches input order.
func WithConcurrency(n int) Option {
	return func(b *Batcher) error {
		if n <= 1 {
			return nil
		}
		if b.pool != nil {
			b.pool.Release()
		}
		pool, err := ants.NewPool(n)
		if err != nil {
			return err
		}
		b.pool = pool
		return nil
	}
}

func NewBatcher(embedder Embedder, dimension int, opts ...Option) (*Batcher, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("invalid embedding dimension %d", dimension)
	}
	b := &Batcher{
		embedder:   embedder,
		dimension:  dimension,
		batchSize:  DefaultBatchSize,
		maxRetries: DefaultMaxRetries,
		retryDelay: DefaultRetryDelay,
	}
	for _, opt := range opts {
		if err := opt(b); err != nil {
			b.Close()
			return nil, err
		}
	}
	return b, nil
}

// Close releases the worker pool, if any.
func (b *Batcher) Close() {
	if b.pool != nil {
		b.pool.Release()
		b.pool = nil
	}
}

func (b *Batcher) Dimension() int { return b.dimension }

// Normalize replaces newlines with spaces and trims the result.
func Normalize(text string) string {
	return strings.TrimSpace(strings.ReplaceAll(text, "\n", " "))
}

// Zero returns a fresh all-zero vector of the configured dimension.
func (b *Batcher) Zero() []float32 {
	return make([]float32, b.dimension)
}

// EmbedBatch returns exactly one vector per input text. Empty texts get a zero
// vector without a remote call; a batch that still fails after retries gets
// zero vectors for every position. The error is only set on cancellation, in
// which case unprocessed positions are zero.
func (b *Batcher) EmbedBatch(ctx context.Context, texts []string) ([][]float32, Stats, error) {
	out := make([][]float32, len(texts))
	stats := Stats{Texts: len(texts)}

	var pending []int
	normalized := make([]string, len(texts))
	for i, t := range texts {
		normalized[i] = Normalize(t)
		if normalized[i] == "" {
			out[i] = b.Zero()
			stats.Empty++
			continue
		}
		pending = append(pending, i)
	}

	var batches [][]int
	for start := 0; start < len(pending); start += b.batchSize {
		end := min(start+b.batchSize, len(pending))
		batches = append(batches, pending[start:end])
	}
	stats.Batches = len(batches)

	var mu sync.Mutex
	var wg sync.WaitGroup
	run := func(n int, idx []int) {
		defer wg.Done()
		attempts, failed := b.embedOneBatch(ctx, n, idx, normalized, out)
		mu.Lock()
		stats.Attempts += attempts
		if failed {
			stats.FailedBatches++
			stats.Degraded += len(idx)
		}
		mu.Unlock()
	}

	for n, idx := range batches {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		if b.pool == nil {
			run(n, idx)
			continue
		}
		n, idx := n, idx
		if err := b.pool.Submit(func() { run(n, idx) }); err != nil {
			run(n, idx)
		}
	}
	wg.Wait()

	for i := range out {
		if out[i] == nil {
			out[i] = b.Zero()
		}
	}
	if stats.FailedBatches > 0 {
		slog.WarnContext(ctx, "some embedding batches degraded to zero vectors", "failed_batches", stats.FailedBatches, "batches", stats.Batches)
	}
	return out, stats, ctx.Err()
}

// embedOneBatch fills out[idx...] and reports the attempts used and whether the
// batch degraded to zero vectors.
func (b *Batcher) embedOneBatch(ctx context.Context, n int, idx []int, normalized []string, out [][]float32) (int, bool) {
	inputs := make([]string, len(idx))
	for j, i := range idx {
		inputs[j] = normalized[i]
	}

	var vectors [][]float32
	attempts, err := retry.Do(ctx, b.maxRetries, retry.Linear(b.retryDelay), func(ctx context.Context, attempt int) error {
		got, err := b.embedder.EmbedTexts(ctx, inputs)
		if err != nil {
			return err
		}
		if len(got) != len(inputs) {
			return fmt.Errorf("expected %d embeddings, got %d", len(inputs), len(got))
		}
		for _, v := range got {
			if len(v) != b.dimension {
				return fmt.Errorf("%w: expected %d, got %d", ErrDimensionMismatch, b.dimension, len(v))
			}
		}
		vectors = got
		return nil
	})
	if err != nil {
		if ctx.Err() == nil {
			slog.ErrorContext(ctx, "failed to generate embeddings for batch", "batch", n+1, "size", len(idx), "attempts", attempts,
				"error", fmt.Errorf("%w: %v", ErrBatchFailed, err))
		}
		for _, i := range idx {
			out[i] = b.Zero()
		}
		return attempts, true
	}

	for j, i := range idx {
		out[i] = vectors[j]
	}
	slog.DebugContext(ctx, "generated embeddings for batch", "batch", n+1, "size", len(idx))
	return attempts, false
}

// EmbedOne embeds a single text with the same retry policy. Unlike EmbedBatch,
// a vector of the wrong dimension is returned as ErrDimensionMismatch.
func (b *Batcher) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	normalized := Normalize(text)
	if normalized == "" {
		return b.Zero(), nil
	}

	var vec []float32
	_, err := retry.Do(ctx, b.maxRetries, retry.Linear(b.retryDelay), func(ctx context.Context, _ int) error {
		got, err := b.embedder.EmbedTexts(ctx, []string{normalized})
		if err != nil {
			return err
		}
		if len(got) != 1 {
			return fmt.Errorf("expected 1 embedding, got %d", len(got))
		}
		if len(got[0]) != b.dimension {
			return retry.Permanent(fmt.Errorf("%w: expected %d, got %d", ErrDimensionMismatch, b.dimension, len(got[0])))
		}
		vec = got[0]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return vec, nil
}
