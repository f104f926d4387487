package vector

import (
	"context"

	"github.com/weaviate/weaviate/entities/models"
)

// SchemaClient is the subset of the Weaviate schema API needed to manage a
// chunk class.
type SchemaClient interface {
	ClassExists(ctx context.Context, className string) (bool, error)
	CreateClass(ctx context.Context, class *models.Class) error
	GetClass(ctx context.Context, className string) (*models.Class, error)
	AddProperty(ctx context.Context, className string, property *models.Property) error
}

// ChunkProperties are stored on every object. metadata holds the full
// metadata map as JSON; the rest are copies for filtering.
func ChunkProperties() []*models.Property {
	return []*models.Property{
		{Name: "content", DataType: []string{"text"}},
		{Name: "metadata", DataType: []string{"text"}},
		{Name: "fileId", DataType: []string{"string"}},
		{Name: "fileName", DataType: []string{"text"}},
		{Name: "mimeType", DataType: []string{"string"}},
		{Name: "source", DataType: []string{"string"}},
		{Name: "sourceFolderId", DataType: []string{"string"}},
	}
}

// EnsureClass creates className with externally supplied vectors, or adds any
// properties missing from an existing class.
func EnsureClass(ctx context.Context, client SchemaClient, className string) error {
	exists, err := client.ClassExists(ctx, className)
	if err != nil {
		return err
	}

	properties := ChunkProperties()
	if !exists {
		return client.CreateClass(ctx, &models.Class{
			Class:       className,
			Description: "A chunk of a Google Drive file",
			Vectorizer:  "none",
			VectorIndexConfig: map[string]any{
				"distance": "cosine",
			},
			Properties: properties,
		})
	}

	class, err := client.GetClass(ctx, className)
	if err != nil {
		return err
	}

	existing := make(map[string]bool)
	for _, p := range class.Properties {
		existing[p.Name] = true
	}
	for _, p := range properties {
		if !existing[p.Name] {
			if err := client.AddProperty(ctx, className, p); err != nil {
				return err
			}
		}
	}
	return nil
}
