// Package vector loads embedded chunks into a vector collection with
// clear-then-upsert semantics.
package vector

import (
	"context"
	"errors"
)

var (
	ErrCollectionNotFound = errors.New("collection not found")
	ErrDimensionMismatch  = errors.New("vector dimension mismatch")
	ErrWriteFailed        = errors.New("vector write failed")
)

// Point is one stored vector. Payload is {"content": ..., "metadata": {...}}.
type Point struct {
	ID      string
	Vector  []float32
	Payload map[string]any
}

// CollectionInfo describes an existing collection. Dimension is 0 when the
// backend cannot report it.
type CollectionInfo struct {
	Name       string
	PointCount int64
	Dimension  int
}

type ScrollRequest struct {
	Offset      string
	Limit       int
	WithPayload bool
}

// ScrollPage holds one page of points; Next is empty when the scan is done.
type ScrollPage struct {
	Points []Point
	Next   string
}

// Store is the backend-neutral surface the loader and CLI need.
type Store interface {
	// Info returns ErrCollectionNotFound when the collection does not exist.
	Info(ctx context.Context, collection string) (CollectionInfo, error)
	Scroll(ctx context.Context, collection string, req ScrollRequest) (ScrollPage, error)
	Delete(ctx context.Context, collection string, ids []string) error
	// Upsert must not return before the write is applied.
	Upsert(ctx context.Context, collection string, points []Point) error
	// Create makes a cosine-distance collection of the given dimension.
	Create(ctx context.Context, collection string, dimension int) error
	Close() error
}
