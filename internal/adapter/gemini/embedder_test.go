package gemini_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/sagerock/google-drive-to-qdrant/internal/adapter/gemini"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, ":batchEmbedContents"):
			var req struct {
				Requests []json.RawMessage `json:"requests"`
			}
			_ = json.NewDecoder(r.Body).Decode(&req)
			embeddings := make([]map[string]any, len(req.Requests))
			for i := range req.Requests {
				embeddings[i] = map[string]any{"values": []float32{float32(i), 0.5, 0.25}}
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"embeddings": embeddings})
		case strings.HasSuffix(r.URL.Path, ":generateContent"):
			_ = json.NewEncoder(w).Encode(map[string]any{
				"candidates": []map[string]any{{
					"content": map[string]any{
						"role":  "model",
						"parts": []map[string]any{{"text": "A bar chart of revenue."}},
					},
				}},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestClient_EmbedTexts(t *testing.T) {
	ts := newServer(t)
	ctx := context.Background()

	c, err := gemini.NewClient(ctx, "test-key", "gemini-embedding-001", "gemini-2.0-flash", option.WithEndpoint(ts.URL))
	require.NoError(t, err)
	defer c.Close()

	vecs, err := c.EmbedTexts(ctx, []string{"first", "second"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.Equal(t, []float32{0, 0.5, 0.25}, vecs[0])
	assert.Equal(t, []float32{1, 0.5, 0.25}, vecs[1])
}

func TestClient_Describe(t *testing.T) {
	ts := newServer(t)
	ctx := context.Background()

	c, err := gemini.NewClient(ctx, "test-key", "gemini-embedding-001", "gemini-2.0-flash", option.WithEndpoint(ts.URL))
	require.NoError(t, err)
	defer c.Close()

	desc, err := c.Describe(ctx, []byte{0xff, 0xd8, 0xff}, "Describe this image")
	require.NoError(t, err)
	assert.Equal(t, "A bar chart of revenue.", desc)
}

func TestNewClient_MissingKey(t *testing.T) {
	_, err := gemini.NewClient(context.Background(), "", "m", "v")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "gemini api key not configured")
}
