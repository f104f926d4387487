package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

var ErrInvalidValue = errors.New("invalid configuration value")

const (
	StoreQdrant   = "qdrant"
	StoreWeaviate = "weaviate"

	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

const (
	DefaultOpenAIEmbeddingModel = "text-embedding-ada-002"
	DefaultGeminiEmbeddingModel = "gemini-embedding-001"
	DefaultOpenAIVisionModel    = "gpt-4o"
	DefaultGeminiVisionModel    = "gemini-2.0-flash"
	DefaultImagePrompt          = "Describe this image in detail, including any text, charts, diagrams, or important visual elements."
	DefaultOCRLanguage          = "eng"
	DefaultChunkSize            = 1000
	DefaultChunkOverlap         = 200
	DefaultQdrantPort           = 6334
	LegacyCollectionName        = "default"
)

// Collection is one fully resolved sync target.
type Collection struct {
	Name    string
	Folders []string
	Exclude []string

	Store            string
	QdrantHost       string
	QdrantPort       int
	QdrantAPIKey     string
	QdrantCollection string
	WeaviateHost     string
	WeaviateScheme   string
	WeaviateAPIKey   string
	WeaviateClass    string

	EmbeddingProvider  string
	OpenAIAPIKey       string
	GeminiAPIKey       string
	EmbeddingModel     string
	EmbeddingDimension int

	ChunkSize         int
	ChunkOverlap      int
	IncludeSubfolders bool

	EnableImageAnalysis    bool
	ImageAnalysisModel     string
	ImageDescriptionPrompt string
	EnableOCR              bool
	OCRLanguage            string
}

// StoreCollection is the name of the collection (or class) inside the vector store.
func (c Collection) StoreCollection() string {
	if c.Store == StoreWeaviate {
		return c.WeaviateClass
	}
	return c.QdrantCollection
}

func (c Collection) Validate() error {
	var missing []string
	if c.Name == "" {
		missing = append(missing, "name")
	}
	if len(c.Folders) == 0 {
		missing = append(missing, "folders")
	}

	switch c.Store {
	case StoreQdrant:
		if c.QdrantHost == "" {
			missing = append(missing, "qdrant_host")
		}
		if c.QdrantCollection == "" {
			missing = append(missing, "qdrant_collection")
		}
	case StoreWeaviate:
		if c.WeaviateHost == "" {
			missing = append(missing, "weaviate_host")
		}
		if c.WeaviateClass == "" {
			missing = append(missing, "weaviate_class")
		}
	default:
		return fmt.Errorf("%w: collection %q: store %q", ErrInvalidValue, c.Name, c.Store)
	}

	switch c.EmbeddingProvider {
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			missing = append(missing, "openai_api_key")
		}
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			missing = append(missing, "gemini_api_key")
		}
	default:
		return fmt.Errorf("%w: collection %q: embedding_provider %q", ErrInvalidValue, c.Name, c.EmbeddingProvider)
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: collection %q: %s", ErrMissingRequired, c.Name, strings.Join(missing, ", "))
	}
	if c.ChunkSize <= 0 || c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: collection %q: chunk_size %d / chunk_overlap %d", ErrInvalidValue, c.Name, c.ChunkSize, c.ChunkOverlap)
	}
	if c.EmbeddingDimension <= 0 {
		return fmt.Errorf("%w: collection %q: embedding_dimension %d", ErrInvalidValue, c.Name, c.EmbeddingDimension)
	}
	return nil
}

// collectionSpec is the user-facing shape of a collection in COLLECTIONS_CONFIG
// or COLLECTIONS_FILE. Unset fields fall back to Legacy env values and defaults.
type collectionSpec struct {
	Name    string   `json:"name" koanf:"name"`
	Folders []string `json:"folders" koanf:"folders"`
	Exclude []string `json:"exclude" koanf:"exclude"`

	Store            string `json:"store" koanf:"store"`
	QdrantHost       string `json:"qdrant_host" koanf:"qdrant_host"`
	QdrantPort       int    `json:"qdrant_port" koanf:"qdrant_port"`
	QdrantAPIKey     string `json:"qdrant_api_key" koanf:"qdrant_api_key"`
	QdrantCollection string `json:"qdrant_collection" koanf:"qdrant_collection"`
	WeaviateHost     string `json:"weaviate_host" koanf:"weaviate_host"`
	WeaviateScheme   string `json:"weaviate_scheme" koanf:"weaviate_scheme"`
	WeaviateAPIKey   string `json:"weaviate_api_key" koanf:"weaviate_api_key"`
	WeaviateClass    string `json:"weaviate_class" koanf:"weaviate_class"`

	EmbeddingProvider  string `json:"embedding_provider" koanf:"embedding_provider"`
	OpenAIAPIKey       string `json:"openai_api_key" koanf:"openai_api_key"`
	GeminiAPIKey       string `json:"gemini_api_key" koanf:"gemini_api_key"`
	EmbeddingModel     string `json:"embedding_model" koanf:"embedding_model"`
	EmbeddingDimension int    `json:"embedding_dimension" koanf:"embedding_dimension"`

	ChunkSize         *int  `json:"chunk_size" koanf:"chunk_size"`
	ChunkOverlap      *int  `json:"chunk_overlap" koanf:"chunk_overlap"`
	IncludeSubfolders *bool `json:"include_subfolders" koanf:"include_subfolders"`

	EnableImageAnalysis    *bool  `json:"enable_image_analysis" koanf:"enable_image_analysis"`
	ImageAnalysisModel     string `json:"image_analysis_model" koanf:"image_analysis_model"`
	ImageDescriptionPrompt string `json:"image_description_prompt" koanf:"image_description_prompt"`
	EnableOCR              *bool  `json:"enable_ocr" koanf:"enable_ocr"`
	OCRLanguage            string `json:"ocr_language" koanf:"ocr_language"`
}

// CollectionsJSON decodes the inline COLLECTIONS_CONFIG document
// {"collections": [...]}.
type CollectionsJSON []collectionSpec

func (c *CollectionsJSON) Decode(value string) error {
	var doc struct {
		Collections []collectionSpec `json:"collections"`
	}
	if err := json.Unmarshal([]byte(value), &doc); err != nil {
		return fmt.Errorf("%w: COLLECTIONS_CONFIG: %v", ErrInvalidValue, err)
	}
	*c = doc.Collections
	return nil
}

// Legacy holds the single-collection environment variables. They configure the
// "default" collection when no collection document is given, and act as
// fallbacks for connection settings otherwise.
type Legacy struct {
	FolderIDs         string `envconfig:"GOOGLE_DRIVE_FOLDER_IDS"`
	FolderID          string `envconfig:"GOOGLE_DRIVE_FOLDER_ID"`
	QdrantHost        string `envconfig:"QDRANT_HOST"`
	QdrantPort        int    `envconfig:"QDRANT_PORT" default:"6334"`
	QdrantAPIKey      string `envconfig:"QDRANT_API_KEY"`
	QdrantCollection  string `envconfig:"QDRANT_COLLECTION_NAME"`
	WeaviateHost      string `envconfig:"WEAVIATE_HOST"`
	WeaviateScheme    string `envconfig:"WEAVIATE_SCHEME" default:"http"`
	WeaviateAPIKey    string `envconfig:"WEAVIATE_API_KEY"`
	OpenAIAPIKey      string `envconfig:"OPENAI_API_KEY"`
	GeminiAPIKey      string `envconfig:"GEMINI_API_KEY"`
	EmbeddingProvider string `envconfig:"EMBEDDING_PROVIDER" default:"openai"`
	EmbeddingModel    string `envconfig:"EMBEDDING_MODEL"`
	ChunkSize         int    `envconfig:"CHUNK_SIZE" default:"1000"`
	ChunkOverlap      int    `envconfig:"CHUNK_OVERLAP" default:"200"`
	IncludeSubfolders bool   `envconfig:"INCLUDE_SUBFOLDERS" default:"true"`
}

func (l Legacy) folders() []string {
	raw := l.FolderIDs
	if raw == "" {
		raw = l.FolderID
	}
	var ids []string
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

func (c *Config) loadCollections() ([]Collection, error) {
	specs := []collectionSpec(c.CollectionsJSON)

	if c.CollectionsFile != "" {
		fromFile, err := LoadCollectionsFile(c.CollectionsFile)
		if err != nil {
			return nil, err
		}
		specs = fromFile
	}

	if len(specs) == 0 {
		folders := c.Legacy.folders()
		if len(folders) == 0 {
			return nil, nil
		}
		size, overlap, sub := c.Legacy.ChunkSize, c.Legacy.ChunkOverlap, c.Legacy.IncludeSubfolders
		specs = []collectionSpec{{
			Name:              LegacyCollectionName,
			Folders:           folders,
			QdrantCollection:  c.Legacy.QdrantCollection,
			EmbeddingModel:    c.Legacy.EmbeddingModel,
			ChunkSize:         &size,
			ChunkOverlap:      &overlap,
			IncludeSubfolders: &sub,
		}}
	}

	out := make([]Collection, 0, len(specs))
	for _, s := range specs {
		out = append(out, s.resolve(c.Legacy))
	}
	return out, nil
}

// LoadCollectionsFile reads a YAML (or JSON) document with a top-level
// "collections" list.
func LoadCollectionsFile(path string) ([]collectionSpec, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("read collections file %s: %w", path, err)
	}
	var specs []collectionSpec
	if err := k.Unmarshal("collections", &specs); err != nil {
		return nil, fmt.Errorf("%w: collections file %s: %v", ErrInvalidValue, path, err)
	}
	return specs, nil
}

func (s collectionSpec) resolve(l Legacy) Collection {
	c := Collection{
		Name:                   s.Name,
		Folders:                s.Folders,
		Exclude:                s.Exclude,
		Store:                  strings.ToLower(firstNonEmpty(s.Store, StoreQdrant)),
		QdrantHost:             firstNonEmpty(s.QdrantHost, l.QdrantHost),
		QdrantPort:             firstPositive(s.QdrantPort, l.QdrantPort, DefaultQdrantPort),
		QdrantAPIKey:           firstNonEmpty(s.QdrantAPIKey, l.QdrantAPIKey),
		QdrantCollection:       s.QdrantCollection,
		WeaviateHost:           firstNonEmpty(s.WeaviateHost, l.WeaviateHost),
		WeaviateScheme:         firstNonEmpty(s.WeaviateScheme, l.WeaviateScheme, "http"),
		WeaviateAPIKey:         firstNonEmpty(s.WeaviateAPIKey, l.WeaviateAPIKey),
		WeaviateClass:          s.WeaviateClass,
		EmbeddingProvider:      strings.ToLower(firstNonEmpty(s.EmbeddingProvider, l.EmbeddingProvider, ProviderOpenAI)),
		OpenAIAPIKey:           firstNonEmpty(s.OpenAIAPIKey, l.OpenAIAPIKey),
		GeminiAPIKey:           firstNonEmpty(s.GeminiAPIKey, l.GeminiAPIKey),
		ChunkSize:              intOr(s.ChunkSize, DefaultChunkSize),
		ChunkOverlap:           intOr(s.ChunkOverlap, DefaultChunkOverlap),
		IncludeSubfolders:      boolOr(s.IncludeSubfolders, true),
		EnableImageAnalysis:    boolOr(s.EnableImageAnalysis, true),
		ImageDescriptionPrompt: firstNonEmpty(s.ImageDescriptionPrompt, DefaultImagePrompt),
		EnableOCR:              boolOr(s.EnableOCR, true),
		OCRLanguage:            firstNonEmpty(s.OCRLanguage, DefaultOCRLanguage),
	}

	if c.EmbeddingProvider == ProviderGemini {
		c.EmbeddingModel = firstNonEmpty(s.EmbeddingModel, DefaultGeminiEmbeddingModel)
		c.EmbeddingDimension = firstPositive(s.EmbeddingDimension, 3072)
		c.ImageAnalysisModel = firstNonEmpty(s.ImageAnalysisModel, DefaultGeminiVisionModel)
	} else {
		c.EmbeddingModel = firstNonEmpty(s.EmbeddingModel, l.EmbeddingModel, DefaultOpenAIEmbeddingModel)
		c.EmbeddingDimension = firstPositive(s.EmbeddingDimension, openAIDimension(c.EmbeddingModel))
		c.ImageAnalysisModel = firstNonEmpty(s.ImageAnalysisModel, DefaultOpenAIVisionModel)
	}
	return c
}

func openAIDimension(model string) int {
	switch model {
	case "text-embedding-3-large":
		return 3072
	default:
		return 1536
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}

func intOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}
