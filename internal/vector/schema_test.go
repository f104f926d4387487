package vector

import (
	"context"
	"testing"

	"github.com/weaviate/weaviate/entities/models"
)

type MockSchemaClient struct {
	CreatedClass    *models.Class
	ExistingClass   *models.Class
	AddedProperties []*models.Property
}

func (m *MockSchemaClient) ClassExists(ctx context.Context, className string) (bool, error) {
	return m.ExistingClass != nil, nil
}

func (m *MockSchemaClient) CreateClass(ctx context.Context, class *models.Class) error {
	m.CreatedClass = class
	return nil
}

func (m *MockSchemaClient) GetClass(ctx context.Context, className string) (*models.Class, error) {
	return m.ExistingClass, nil
}

func (m *MockSchemaClient) AddProperty(ctx context.Context, className string, property *models.Property) error {
	m.AddedProperties = append(m.AddedProperties, property)
	return nil
}

func TestEnsureClass_CreatesClass(t *testing.T) {
	client := &MockSchemaClient{}
	if err := EnsureClass(context.Background(), client, "DriveChunk"); err != nil {
		t.Fatalf("EnsureClass failed: %v", err)
	}

	if client.CreatedClass == nil {
		t.Fatal("Class not created")
	}
	if client.CreatedClass.Class != "DriveChunk" {
		t.Errorf("unexpected class name %q", client.CreatedClass.Class)
	}
	if client.CreatedClass.Vectorizer != "none" {
		t.Errorf("expected vectorizer none, got %q", client.CreatedClass.Vectorizer)
	}

	expected := map[string]string{
		"content":  "text",
		"metadata": "text",
		"fileId":   "string",
	}
	for _, prop := range client.CreatedClass.Properties {
		if want, ok := expected[prop.Name]; ok {
			if len(prop.DataType) == 0 || prop.DataType[0] != want {
				t.Errorf("Property %s has wrong DataType: %v (expected %s)", prop.Name, prop.DataType, want)
			}
		}
	}
}

func TestEnsureClass_AddsMissingProperties(t *testing.T) {
	client := &MockSchemaClient{
		ExistingClass: &models.Class{
			Class: "DriveChunk",
			Properties: []*models.Property{
				{Name: "content", DataType: []string{"text"}},
				{Name: "metadata", DataType: []string{"text"}},
			},
		},
	}

	if err := EnsureClass(context.Background(), client, "DriveChunk"); err != nil {
		t.Fatalf("EnsureClass failed: %v", err)
	}
	if client.CreatedClass != nil {
		t.Fatal("Should not recreate class if it exists")
	}

	added := make(map[string]bool)
	for _, p := range client.AddedProperties {
		added[p.Name] = true
	}
	if !added["fileId"] {
		t.Error("Missing 'fileId' property")
	}
	if added["content"] {
		t.Error("Should not re-add existing 'content' property")
	}
	if len(client.AddedProperties) != len(ChunkProperties())-2 {
		t.Errorf("expected %d added properties, got %d", len(ChunkProperties())-2, len(client.AddedProperties))
	}
}
