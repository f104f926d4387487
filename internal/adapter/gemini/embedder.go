package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

var ErrEmptyResponse = errors.New("gemini returned an empty response")

// Client wraps one genai client for both embeddings and image description.
type Client struct {
	client      *genai.Client
	model       string
	visionModel string
}

func NewClient(ctx context.Context, apiKey, embeddingModel, visionModel string, opts ...option.ClientOption) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key not configured")
	}
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{client: client, model: embeddingModel, visionModel: visionModel}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

// EmbedTexts sends all texts in one batchEmbedContents request.
func (c *Client) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	slog.DebugContext(ctx, "embedding batch", "provider", "gemini", "model", c.model, "count", len(texts))
	em := c.client.EmbeddingModel(c.model)
	batch := em.NewBatch()
	for _, t := range texts {
		batch.AddContent(genai.Text(t))
	}

	res, err := em.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("gemini embed: %w", err)
	}

	out := make([][]float32, len(res.Embeddings))
	for i, e := range res.Embeddings {
		if e == nil || len(e.Values) == 0 {
			return nil, fmt.Errorf("%w: embedding %d", ErrEmptyResponse, i)
		}
		out[i] = e.Values
	}
	return out, nil
}

// Describe asks the vision model for a description of a JPEG image.
func (c *Client) Describe(ctx context.Context, jpeg []byte, prompt string) (string, error) {
	model := c.client.GenerativeModel(c.visionModel)
	resp, err := model.GenerateContent(ctx, genai.ImageData("jpeg", jpeg), genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini vision: %w", err)
	}

	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				sb.WriteString(string(t))
			}
		}
		break
	}
	if sb.Len() == 0 {
		return "", ErrEmptyResponse
	}
	return sb.String(), nil
}
