package openai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"

	openai "github.com/sashabaranov/go-openai"
)

const visionMaxTokens = 1000

var ErrEmptyResponse = errors.New("openai returned an empty response")

// Client serves both embeddings and image description from one API key.
type Client struct {
	client      *openai.Client
	model       string
	visionModel string
}

func NewClient(apiKey, embeddingModel, visionModel string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai api key not configured")
	}
	return NewClientWithConfig(openai.DefaultConfig(apiKey), embeddingModel, visionModel)
}

// NewClientWithConfig allows overriding the base URL or HTTP client.
func NewClientWithConfig(cfg openai.ClientConfig, embeddingModel, visionModel string) (*Client, error) {
	return &Client{
		client:      openai.NewClientWithConfig(cfg),
		model:       embeddingModel,
		visionModel: visionModel,
	}, nil
}

// EmbedTexts returns one embedding per text, ordered like the input.
func (c *Client) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	slog.DebugContext(ctx, "embedding batch", "provider", "openai", "model", c.model, "count", len(texts))
	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(c.model),
	})
	if err != nil {
		return nil, fmt.Errorf("openai embedding request failed: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai returned %d embeddings, expected %d", len(resp.Data), len(texts))
	}

	out := make([][]float32, len(texts))
	for _, emb := range resp.Data {
		if emb.Index < 0 || emb.Index >= len(out) {
			return nil, fmt.Errorf("openai returned embedding index %d out of range", emb.Index)
		}
		out[emb.Index] = emb.Embedding
	}
	for i, v := range out {
		if len(v) == 0 {
			return nil, fmt.Errorf("%w: embedding %d", ErrEmptyResponse, i)
		}
	}
	return out, nil
}

// Describe sends the JPEG inline as a data URI with high detail.
func (c *Client) Describe(ctx context.Context, jpeg []byte, prompt string) (string, error) {
	uri := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(jpeg)
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     c.visionModel,
		MaxTokens: visionMaxTokens,
		Messages: []openai.ChatCompletionMessage{{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: prompt},
				{
					Type: openai.ChatMessagePartTypeImageURL,
					ImageURL: &openai.ChatMessageImageURL{
						URL:    uri,
						Detail: openai.ImageURLDetailHigh,
					},
				},
			},
		}},
	})
	if err != nil {
		return "", fmt.Errorf("openai vision request failed: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}
