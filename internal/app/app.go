package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sagerock/google-drive-to-qdrant/features/history"
	"github.com/sagerock/google-drive-to-qdrant/internal/adapter/gemini"
	"github.com/sagerock/google-drive-to-qdrant/internal/adapter/openai"
	"github.com/sagerock/google-drive-to-qdrant/internal/adapter/qdrant"
	"github.com/sagerock/google-drive-to-qdrant/internal/adapter/weaviate"
	"github.com/sagerock/google-drive-to-qdrant/internal/config"
	"github.com/sagerock/google-drive-to-qdrant/internal/embedding"
	"github.com/sagerock/google-drive-to-qdrant/internal/extract"
	"github.com/sagerock/google-drive-to-qdrant/internal/notify"
	"github.com/sagerock/google-drive-to-qdrant/internal/pipeline"
	"github.com/sagerock/google-drive-to-qdrant/internal/text"
	"github.com/sagerock/google-drive-to-qdrant/internal/vector"
)

// ModelClient embeds chunk text and describes images for one provider.
type ModelClient interface {
	embedding.Embedder
	extract.Describer
}

// OpenStore connects to the vector store a collection targets.
func OpenStore(col config.Collection) (vector.Store, error) {
	switch col.Store {
	case config.StoreWeaviate:
		return weaviate.NewStore(weaviate.Config{
			Host:   col.WeaviateHost,
			Scheme: col.WeaviateScheme,
			APIKey: col.WeaviateAPIKey,
		})
	case config.StoreQdrant, "":
		return qdrant.NewStore(qdrant.Config{
			Host:   col.QdrantHost,
			Port:   col.QdrantPort,
			APIKey: col.QdrantAPIKey,
		})
	default:
		return nil, fmt.Errorf("%w: store %q", config.ErrInvalidValue, col.Store)
	}
}

// OpenModel builds the embedding and vision client for a collection's provider.
// The returned close func is never nil.
func OpenModel(ctx context.Context, col config.Collection) (ModelClient, func(), error) {
	switch col.EmbeddingProvider {
	case config.ProviderGemini:
		c, err := gemini.NewClient(ctx, col.GeminiAPIKey, col.EmbeddingModel, col.ImageAnalysisModel)
		if err != nil {
			return nil, nil, err
		}
		return c, func() {
			if err := c.Close(); err != nil {
				slog.Warn("failed to close gemini client", "error", err)
			}
		}, nil
	case config.ProviderOpenAI, "":
		c, err := openai.NewClient(col.OpenAIAPIKey, col.EmbeddingModel, col.ImageAnalysisModel)
		if err != nil {
			return nil, nil, err
		}
		return c, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("%w: embedding provider %q", config.ErrInvalidValue, col.EmbeddingProvider)
	}
}

// NewExtractor wires OCR and vision into the default handler set. OCR is
// silently disabled when the tesseract binary is missing.
func NewExtractor(ctx context.Context, col config.Collection, vision extract.Describer) *extract.Extractor {
	opts := extract.Options{
		EnableOCR:    col.EnableOCR,
		OCRLanguage:  col.OCRLanguage,
		EnableVision: col.EnableImageAnalysis,
		VisionPrompt: col.ImageDescriptionPrompt,
		Vision:       vision,
	}
	if col.EnableOCR {
		if t := extract.NewTesseract(); t.Available() {
			opts.OCR = t
		} else {
			slog.WarnContext(ctx, "tesseract not found, OCR disabled")
		}
	}
	return extract.NewDefault(opts)
}

// Builder returns the per-collection component factory used by the pipeline.
func Builder(cfg *config.Config) pipeline.Builder {
	return func(ctx context.Context, col config.Collection) (*pipeline.Target, error) {
		model, closeModel, err := OpenModel(ctx, col)
		if err != nil {
			return nil, fmt.Errorf("embedding client: %w", err)
		}

		batcher, err := embedding.NewBatcher(model, col.EmbeddingDimension,
			embedding.WithBatchSize(cfg.EmbedBatchSize),
			embedding.WithMaxRetries(cfg.EmbedMaxRetries),
			embedding.WithRetryDelay(cfg.EmbedRetryDelay),
			embedding.WithConcurrency(cfg.EmbedConcurrency),
		)
		if err != nil {
			closeModel()
			return nil, err
		}

		store, err := OpenStore(col)
		if err != nil {
			batcher.Close()
			closeModel()
			return nil, fmt.Errorf("vector store: %w", err)
		}

		return &pipeline.Target{
			Extractor: NewExtractor(ctx, col, model),
			Chunker:   text.NewChunker(col.ChunkSize, col.ChunkOverlap),
			Batcher:   batcher,
			Store:     store,
			Close: func() {
				batcher.Close()
				if err := store.Close(); err != nil {
					slog.WarnContext(ctx, "failed to close vector store", "error", err)
				}
				closeModel()
			},
		}, nil
	}
}

// NewPipeline assembles the sync pipeline with history and notification
// observers for whichever dependencies were bootstrapped.
func NewPipeline(cfg *config.Config, deps *Dependencies, build pipeline.Builder, opts ...pipeline.Option) (*pipeline.Pipeline, error) {
	all := []pipeline.Option{
		pipeline.WithConcurrency(cfg.CollectionConcurrency),
		pipeline.WithLoaderOptions(
			vector.WithUpsertBatchSize(cfg.UpsertBatchSize),
			vector.WithClearPageSize(cfg.ClearPageSize),
			vector.WithDeleteRetry(vector.DefaultDeleteRetries, time.Second),
		),
	}
	if deps.DB != nil {
		all = append(all, pipeline.WithObserver(history.NewRecorder(history.NewPostgresRepo(deps.DB))))
	}
	if deps.NSQProducer != nil {
		all = append(all, pipeline.WithObserver(notify.NewNotifier(deps.NSQProducer)))
	}
	all = append(all, opts...)
	return pipeline.New(deps.Drive, build, all...)
}
