// Package weaviate implements vector.Store over a Weaviate class.
package weaviate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/go-openapi/strfmt"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/auth"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/data/replication"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	"github.com/sagerock/google-drive-to-qdrant/internal/vector"
)

type Config struct {
	Host   string
	Scheme string
	APIKey string
}

type Store struct {
	client *weaviate.Client
}

func NewStore(cfg Config) (*Store, error) {
	wCfg := weaviate.Config{Host: cfg.Host, Scheme: cfg.Scheme}
	if wCfg.Scheme == "" {
		wCfg.Scheme = "http"
	}
	if cfg.APIKey != "" {
		wCfg.AuthConfig = auth.ApiKey{Value: cfg.APIKey}
	}
	client, err := weaviate.NewClient(wCfg)
	if err != nil {
		return nil, fmt.Errorf("weaviate client error: %w", err)
	}
	return &Store{client: client}, nil
}

func NewStoreWithClient(client *weaviate.Client) *Store {
	return &Store{client: client}
}

func (s *Store) Close() error { return nil }

func (s *Store) ClassExists(ctx context.Context, className string) (bool, error) {
	return s.client.Schema().ClassExistenceChecker().WithClassName(className).Do(ctx)
}

func (s *Store) CreateClass(ctx context.Context, class *models.Class) error {
	return s.client.Schema().ClassCreator().WithClass(class).Do(ctx)
}

func (s *Store) GetClass(ctx context.Context, className string) (*models.Class, error) {
	return s.client.Schema().ClassGetter().WithClassName(className).Do(ctx)
}

func (s *Store) AddProperty(ctx context.Context, className string, property *models.Property) error {
	return s.client.Schema().PropertyCreator().WithClassName(className).WithProperty(property).Do(ctx)
}

// Create ensures the class exists. Weaviate classes carry no fixed dimension,
// so dimension is only logged.
func (s *Store) Create(ctx context.Context, class string, dimension int) error {
	slog.InfoContext(ctx, "ensuring weaviate class", "class", class, "dimension", dimension)
	return vector.EnsureClass(ctx, s, class)
}

// Info samples one object's vector for the dimension; an empty class reports 0.
func (s *Store) Info(ctx context.Context, class string) (vector.CollectionInfo, error) {
	exists, err := s.ClassExists(ctx, class)
	if err != nil {
		return vector.CollectionInfo{}, err
	}
	if !exists {
		return vector.CollectionInfo{}, fmt.Errorf("%w: %s", vector.ErrCollectionNotFound, class)
	}

	count, err := s.count(ctx, class)
	if err != nil {
		return vector.CollectionInfo{}, err
	}
	info := vector.CollectionInfo{Name: class, PointCount: count}
	if count == 0 {
		return info, nil
	}

	objs, err := s.client.Data().ObjectsGetter().WithClassName(class).WithLimit(1).WithVector().Do(ctx)
	if err != nil {
		return vector.CollectionInfo{}, err
	}
	if len(objs) > 0 {
		info.Dimension = len(objs[0].Vector)
	}
	return info, nil
}

func (s *Store) count(ctx context.Context, class string) (int64, error) {
	res, err := s.client.GraphQL().Aggregate().
		WithClassName(class).
		WithFields(graphql.Field{Name: "meta", Fields: []graphql.Field{{Name: "count"}}}).
		Do(ctx)
	if err != nil {
		return 0, err
	}
	if len(res.Errors) > 0 {
		return 0, fmt.Errorf("graphql error: %v", res.Errors[0].Message)
	}

	agg, _ := res.Data["Aggregate"].(map[string]any)
	rows, _ := agg[class].([]any)
	if len(rows) == 0 {
		return 0, nil
	}
	row, _ := rows[0].(map[string]any)
	meta, _ := row["meta"].(map[string]any)
	n, _ := meta["count"].(float64)
	return int64(n), nil
}

// Scroll pages with the object cursor; the last id of a full page is the next
// cursor.
func (s *Store) Scroll(ctx context.Context, class string, req vector.ScrollRequest) (vector.ScrollPage, error) {
	getter := s.client.Data().ObjectsGetter().WithClassName(class).WithLimit(req.Limit)
	if req.Offset != "" {
		getter = getter.WithAfter(req.Offset)
	}
	objs, err := getter.Do(ctx)
	if err != nil {
		return vector.ScrollPage{}, err
	}

	var page vector.ScrollPage
	for _, o := range objs {
		p := vector.Point{ID: o.ID.String()}
		if req.WithPayload {
			p.Payload = fromProperties(o.Properties)
		}
		page.Points = append(page.Points, p)
	}
	if len(objs) == req.Limit && len(objs) > 0 {
		page.Next = objs[len(objs)-1].ID.String()
	}
	return page, nil
}

func (s *Store) Delete(ctx context.Context, class string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	res, err := s.client.Batch().ObjectsBatchDeleter().
		WithClassName(class).
		WithOutput("minimal").
		WithConsistencyLevel(replication.ConsistencyLevel.ALL).
		WithWhere(filters.Where().
			WithPath([]string{"id"}).
			WithOperator(filters.ContainsAny).
			WithValueText(ids...)).
		Do(ctx)
	if err != nil {
		return err
	}
	if res != nil && res.Results != nil && res.Results.Failed > 0 {
		return fmt.Errorf("%d of %d deletes failed", res.Results.Failed, len(ids))
	}
	return nil
}

func (s *Store) Upsert(ctx context.Context, class string, points []vector.Point) error {
	if len(points) == 0 {
		return nil
	}
	objs := make([]*models.Object, len(points))
	for i, p := range points {
		props, err := toProperties(p.Payload)
		if err != nil {
			return err
		}
		objs[i] = &models.Object{
			Class:      class,
			ID:         strfmt.UUID(p.ID),
			Properties: props,
			Vector:     p.Vector,
		}
	}

	resp, err := s.client.Batch().ObjectsBatcher().
		WithObjects(objs...).
		WithConsistencyLevel(replication.ConsistencyLevel.ALL).
		Do(ctx)
	if err != nil {
		return err
	}
	for _, r := range resp {
		if r.Result != nil && r.Result.Errors != nil && len(r.Result.Errors.Error) > 0 {
			return fmt.Errorf("object %s: %s", r.ID, r.Result.Errors.Error[0].Message)
		}
	}
	return nil
}

// toProperties stores metadata as JSON and copies the filterable fields.
func toProperties(payload map[string]any) (map[string]any, error) {
	props := map[string]any{"content": payload["content"]}
	meta, _ := payload["metadata"].(map[string]any)
	raw, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	props["metadata"] = string(raw)

	for prop, key := range map[string]string{
		"fileId":         "fileId",
		"fileName":       "fileName",
		"mimeType":       "mimeType",
		"source":         "source",
		"sourceFolderId": "source_folder_id",
	} {
		if v, ok := meta[key].(string); ok {
			props[prop] = v
		}
	}
	return props, nil
}

func fromProperties(props models.PropertySchema) map[string]any {
	m, _ := props.(map[string]any)
	out := map[string]any{"content": m["content"]}
	if raw, ok := m["metadata"].(string); ok {
		var meta map[string]any
		if err := json.Unmarshal([]byte(raw), &meta); err == nil {
			out["metadata"] = meta
		}
	}
	return out
}
