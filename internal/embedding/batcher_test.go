package embedding

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockEmbedder struct {
	mock.Mock
}

func (m *MockEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	args := m.Called(ctx, texts)
	if v := args.Get(0); v != nil {
		return v.([][]float32), args.Error(1)
	}
	return nil, args.Error(1)
}

// lengthEmbedder encodes each text's length into the first component so tests
// can check positions survive batching.
type lengthEmbedder struct {
	dim   int
	mu    sync.Mutex
	calls int
	fail  map[string]bool
}

func (e *lengthEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if e.fail[t] {
			return nil, fmt.Errorf("rejected %q", t)
		}
		v := make([]float32, e.dim)
		v[0] = float32(len(t))
		out[i] = v
	}
	return out, nil
}

func vec(dim int, first float32) []float32 {
	v := make([]float32, dim)
	v[0] = first
	return v
}

func TestEmbedBatch_WhitespaceGetsZeroVectorWithoutCall(t *testing.T) {
	m := new(MockEmbedder)
	b, err := NewBatcher(m, 4, WithRetryDelay(0))
	require.NoError(t, err)

	out, stats, err := b.EmbedBatch(context.Background(), []string{"   ", "\n\n", ""})
	require.NoError(t, err)
	require.Len(t, out, 3)
	for _, v := range out {
		assert.Equal(t, make([]float32, 4), v)
	}
	assert.Equal(t, 3, stats.Empty)
	assert.Equal(t, 0, stats.Batches)
	m.AssertNotCalled(t, "EmbedTexts", mock.Anything, mock.Anything)
}

func TestEmbedBatch_NormalizesNewlines(t *testing.T) {
	m := new(MockEmbedder)
	m.On("EmbedTexts", mock.Anything, []string{"a b", "c"}).Return([][]float32{vec(2, 1), vec(2, 2)}, nil).Once()

	b, err := NewBatcher(m, 2, WithRetryDelay(0))
	require.NoError(t, err)

	out, _, err := b.EmbedBatch(context.Background(), []string{" a\nb ", "", "c\n"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{vec(2, 1), make([]float32, 2), vec(2, 2)}, out)
	m.AssertExpectations(t)
}

func TestEmbedBatch_SucceedsOnThirdAttempt(t *testing.T) {
	m := new(MockEmbedder)
	m.On("EmbedTexts", mock.Anything, []string{"hello"}).Return(nil, errors.New("503")).Twice()
	m.On("EmbedTexts", mock.Anything, []string{"hello"}).Return([][]float32{vec(3, 7)}, nil).Once()

	b, err := NewBatcher(m, 3, WithRetryDelay(0))
	require.NoError(t, err)

	out, stats, err := b.EmbedBatch(context.Background(), []string{"hello"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{vec(3, 7)}, out)
	assert.Equal(t, 3, stats.Attempts)
	assert.Equal(t, 0, stats.FailedBatches)
	m.AssertNumberOfCalls(t, "EmbedTexts", 3)
}

func TestEmbedBatch_ExhaustedBatchBecomesZeroVectors(t *testing.T) {
	m := new(MockEmbedder)
	m.On("EmbedTexts", mock.Anything, mock.Anything).Return(nil, errors.New("down"))

	b, err := NewBatcher(m, 2, WithRetryDelay(0))
	require.NoError(t, err)

	out, stats, err := b.EmbedBatch(context.Background(), []string{"x", "y"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{0, 0}, {0, 0}}, out)
	assert.Equal(t, 1, stats.FailedBatches)
	m.AssertNumberOfCalls(t, "EmbedTexts", DefaultMaxRetries)
}

func TestEmbedBatch_WrongDimensionCountsAsFailure(t *testing.T) {
	m := new(MockEmbedder)
	m.On("EmbedTexts", mock.Anything, mock.Anything).Return([][]float32{{1, 2, 3}}, nil)

	b, err := NewBatcher(m, 2, WithRetryDelay(0), WithMaxRetries(2))
	require.NoError(t, err)

	out, stats, err := b.EmbedBatch(context.Background(), []string{"x"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{0, 0}}, out)
	assert.Equal(t, 1, stats.FailedBatches)
	m.AssertNumberOfCalls(t, "EmbedTexts", 2)
}

func TestEmbedBatch_FailureContainedToOneBatch(t *testing.T) {
	e := &lengthEmbedder{dim: 2, fail: map[string]bool{"bad": true}}
	b, err := NewBatcher(e, 2, WithBatchSize(2), WithRetryDelay(0))
	require.NoError(t, err)

	out, stats, err := b.EmbedBatch(context.Background(), []string{"aa", "bad", "cccc", "d"})
	require.NoError(t, err)
	require.Len(t, out, 4)
	assert.Equal(t, []float32{0, 0}, out[0])
	assert.Equal(t, []float32{0, 0}, out[1])
	assert.Equal(t, []float32{4, 0}, out[2])
	assert.Equal(t, []float32{1, 0}, out[3])
	assert.Equal(t, 2, stats.Batches)
	assert.Equal(t, 1, stats.FailedBatches)
}

func TestEmbedBatch_ConcurrentPreservesOrder(t *testing.T) {
	e := &lengthEmbedder{dim: 1}
	b, err := NewBatcher(e, 1, WithBatchSize(3), WithConcurrency(4), WithRetryDelay(0))
	require.NoError(t, err)
	defer b.Close()

	texts := make([]string, 50)
	for i := range texts {
		texts[i] = fmt.Sprintf("%0*d", i+1, 0)
	}

	out, stats, err := b.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, out, 50)
	for i, v := range out {
		assert.Equal(t, float32(i+1), v[0], "position %d", i)
	}
	assert.Equal(t, 17, stats.Batches)
	assert.Equal(t, 17, e.calls)
}

func TestEmbedBatch_CancelledContext(t *testing.T) {
	e := &lengthEmbedder{dim: 2}
	b, err := NewBatcher(e, 2)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, _, err := b.EmbedBatch(ctx, []string{"a", "b"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, out, 2)
	assert.Equal(t, 0, e.calls)
}

func TestEmbedOne(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		m := new(MockEmbedder)
		m.On("EmbedTexts", mock.Anything, []string{"q"}).Return([][]float32{{1, 2}}, nil).Once()
		b, err := NewBatcher(m, 2, WithRetryDelay(0))
		require.NoError(t, err)

		v, err := b.EmbedOne(context.Background(), "q\n")
		require.NoError(t, err)
		assert.Equal(t, []float32{1, 2}, v)
	})

	t.Run("empty text", func(t *testing.T) {
		m := new(MockEmbedder)
		b, err := NewBatcher(m, 2)
		require.NoError(t, err)

		v, err := b.EmbedOne(context.Background(), "  ")
		require.NoError(t, err)
		assert.Equal(t, []float32{0, 0}, v)
		m.AssertNotCalled(t, "EmbedTexts", mock.Anything, mock.Anything)
	})

	t.Run("dimension mismatch is not retried", func(t *testing.T) {
		m := new(MockEmbedder)
		m.On("EmbedTexts", mock.Anything, mock.Anything).Return([][]float32{{1, 2, 3}}, nil)
		b, err := NewBatcher(m, 2, WithRetryDelay(0))
		require.NoError(t, err)

		_, err = b.EmbedOne(context.Background(), "q")
		assert.ErrorIs(t, err, ErrDimensionMismatch)
		m.AssertNumberOfCalls(t, "EmbedTexts", 1)
	})
}

func TestNewBatcher_InvalidDimension(t *testing.T) {
	_, err := NewBatcher(new(MockEmbedder), 0)
	assert.Error(t, err)
}
