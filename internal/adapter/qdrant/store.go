// Package qdrant implements vector.Store over the Qdrant gRPC API.
package qdrant

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/qdrant/go-client/qdrant"

	"github.com/sagerock/google-drive-to-qdrant/internal/vector"
)

const DefaultPort = 6334

type Config struct {
	// Host is a hostname or a URL; an https URL enables TLS.
	Host   string
	Port   int
	APIKey string
}

// ParseHost splits host into a hostname, a gRPC port and a TLS flag. A REST
// port (6333) in a URL is replaced with the gRPC default.
func ParseHost(host string, port int) (string, int, bool) {
	if port == 0 {
		port = DefaultPort
	}
	if !strings.Contains(host, "://") {
		if h, p, err := net.SplitHostPort(host); err == nil {
			if n, err := strconv.Atoi(p); err == nil && n != 6333 {
				port = n
			}
			return h, port, false
		}
		return host, port, false
	}

	u, err := url.Parse(host)
	if err != nil {
		return host, port, false
	}
	if p := u.Port(); p != "" {
		if n, err := strconv.Atoi(p); err == nil && n != 6333 {
			port = n
		}
	}
	return u.Hostname(), port, u.Scheme == "https"
}

type Store struct {
	client *qdrant.Client
}

func NewStore(cfg Config) (*Store, error) {
	host, port, tls := ParseHost(cfg.Host, cfg.Port)
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: cfg.APIKey,
		UseTLS: tls,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to qdrant at %s:%d: %w", host, port, err)
	}
	slog.Debug("qdrant client created", "host", host, "port", port, "tls", tls)
	return &Store{client: client}, nil
}

func NewStoreWithClient(client *qdrant.Client) *Store {
	return &Store{client: client}
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) Info(ctx context.Context, collection string) (vector.CollectionInfo, error) {
	exists, err := s.client.CollectionExists(ctx, collection)
	if err != nil {
		return vector.CollectionInfo{}, err
	}
	if !exists {
		return vector.CollectionInfo{}, fmt.Errorf("%w: %s", vector.ErrCollectionNotFound, collection)
	}

	info, err := s.client.GetCollectionInfo(ctx, collection)
	if err != nil {
		return vector.CollectionInfo{}, err
	}

	out := vector.CollectionInfo{
		Name:       collection,
		PointCount: int64(info.GetPointsCount()),
	}
	vc := info.GetConfig().GetParams().GetVectorsConfig()
	if p := vc.GetParams(); p != nil {
		out.Dimension = int(p.GetSize())
	}

	// points_count is approximate while segments optimise; prefer an exact count.
	if n, err := s.client.Count(ctx, &qdrant.CountPoints{CollectionName: collection, Exact: qdrant.PtrOf(true)}); err == nil {
		out.PointCount = int64(n)
	}
	return out, nil
}

func (s *Store) Create(ctx context.Context, collection string, dimension int) error {
	exists, err := s.client.CollectionExists(ctx, collection)
	if err != nil {
		return err
	}
	if exists {
		slog.InfoContext(ctx, "collection already exists", "target", collection)
		return nil
	}
	return s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dimension),
			Distance: qdrant.Distance_Cosine,
		}),
		OnDiskPayload: qdrant.PtrOf(true),
	})
}

func (s *Store) Scroll(ctx context.Context, collection string, req vector.ScrollRequest) (vector.ScrollPage, error) {
	sp := &qdrant.ScrollPoints{
		CollectionName: collection,
		Limit:          qdrant.PtrOf(uint32(req.Limit)),
		WithPayload:    qdrant.NewWithPayload(req.WithPayload),
		WithVectors:    qdrant.NewWithVectors(false),
	}
	if req.Offset != "" {
		sp.Offset = pointID(req.Offset)
	}

	resp, err := s.client.GetPointsClient().Scroll(ctx, sp)
	if err != nil {
		return vector.ScrollPage{}, err
	}

	var page vector.ScrollPage
	for _, p := range resp.GetResult() {
		pt := vector.Point{ID: idString(p.GetId())}
		if req.WithPayload {
			pt.Payload = fromValueMap(p.GetPayload())
		}
		page.Points = append(page.Points, pt)
	}
	if next := resp.GetNextPageOffset(); next != nil {
		page.Next = idString(next)
	}
	return page, nil
}

func (s *Store) Delete(ctx context.Context, collection string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	pids := make([]*qdrant.PointId, len(ids))
	for i, id := range ids {
		pids[i] = pointID(id)
	}
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: collection,
		Wait:           qdrant.PtrOf(true),
		Points:         qdrant.NewPointsSelector(pids...),
	})
	return err
}

func (s *Store) Upsert(ctx context.Context, collection string, points []vector.Point) error {
	if len(points) == 0 {
		return nil
	}
	structs := make([]*qdrant.PointStruct, len(points))
	for i, p := range points {
		payload, err := toPayload(p.ID, p.Payload)
		if err != nil {
			return err
		}
		structs[i] = &qdrant.PointStruct{
			Id:      pointID(p.ID),
			Vectors: qdrant.NewVectors(p.Vector...),
			Payload: payload,
		}
	}
	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Wait:           qdrant.PtrOf(true),
		Points:         structs,
	})
	return err
}

// pointID maps numeric ids to num ids and everything else to uuid ids.
func pointID(id string) *qdrant.PointId {
	if n, err := strconv.ParseUint(id, 10, 64); err == nil {
		return qdrant.NewIDNum(n)
	}
	return qdrant.NewID(id)
}

func idString(id *qdrant.PointId) string {
	if u := id.GetUuid(); u != "" {
		return u
	}
	return strconv.FormatUint(id.GetNum(), 10)
}
