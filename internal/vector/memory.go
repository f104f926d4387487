package vector

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"
	"strconv"
	"sync"
)

// MemoryStore is an in-process Store ordered by insertion, used by tests.
type MemoryStore struct {
	mu          sync.Mutex
	collections map[string]*memCollection
}

type memCollection struct {
	dimension int
	order     []string
	seq       map[string]int
	nextSeq   int
	points    map[string]Point
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]*memCollection)}
}

func (m *MemoryStore) get(name string) (*memCollection, error) {
	c, ok := m.collections[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}
	return c, nil
}

func (m *MemoryStore) Create(_ context.Context, collection string, dimension int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.collections[collection]; ok {
		return nil
	}
	m.collections[collection] = &memCollection{dimension: dimension, seq: make(map[string]int), points: make(map[string]Point)}
	return nil
}

func (m *MemoryStore) Info(_ context.Context, collection string) (CollectionInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, err := m.get(collection)
	if err != nil {
		return CollectionInfo{}, err
	}
	return CollectionInfo{Name: collection, PointCount: int64(len(c.points)), Dimension: c.dimension}, nil
}

// Scroll uses the insertion sequence number of the next point as the cursor,
// so deleting a page does not shift later pages.
func (m *MemoryStore) Scroll(_ context.Context, collection string, req ScrollRequest) (ScrollPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, err := m.get(collection)
	if err != nil {
		return ScrollPage{}, err
	}
	from := 0
	if req.Offset != "" {
		if from, err = strconv.Atoi(req.Offset); err != nil {
			return ScrollPage{}, fmt.Errorf("invalid offset %q", req.Offset)
		}
	}
	start := sort.Search(len(c.order), func(i int) bool { return c.seq[c.order[i]] >= from })
	if start >= len(c.order) {
		return ScrollPage{}, nil
	}
	end := min(start+req.Limit, len(c.order))

	var page ScrollPage
	for _, id := range c.order[start:end] {
		p := Point{ID: id}
		if req.WithPayload {
			p.Payload = maps.Clone(c.points[id].Payload)
		}
		page.Points = append(page.Points, p)
	}
	if end < len(c.order) {
		page.Next = strconv.Itoa(c.seq[c.order[end]])
	}
	return page, nil
}

func (m *MemoryStore) Delete(_ context.Context, collection string, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, err := m.get(collection)
	if err != nil {
		return err
	}
	for _, id := range ids {
		delete(c.points, id)
		delete(c.seq, id)
	}
	c.order = slices.DeleteFunc(c.order, func(id string) bool {
		_, ok := c.points[id]
		return !ok
	})
	return nil
}

func (m *MemoryStore) Upsert(_ context.Context, collection string, points []Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, err := m.get(collection)
	if err != nil {
		return err
	}
	for _, p := range points {
		if len(p.Vector) != c.dimension {
			return fmt.Errorf("%w: expected %d, got %d", ErrDimensionMismatch, c.dimension, len(p.Vector))
		}
	}
	for _, p := range points {
		if _, ok := c.points[p.ID]; !ok {
			c.order = append(c.order, p.ID)
			c.seq[p.ID] = c.nextSeq
			c.nextSeq++
		}
		c.points[p.ID] = p
	}
	return nil
}

// Points returns a snapshot of the collection in insertion order.
func (m *MemoryStore) Points(collection string) []Point {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.collections[collection]
	if !ok {
		return nil
	}
	out := make([]Point, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.points[id])
	}
	return out
}

func (m *MemoryStore) Close() error { return nil }
