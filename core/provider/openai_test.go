package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openai/openai-go/v3/option"
	"github.com/siherrmann/causemap/helper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAI(t *testing.T) {
	t.Run("Convert embeddings to float32", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/embeddings", r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"object": "list", "model": "text-embedding-3-small", "data": [{"object": "embedding", "index": 0, "embedding": [0.5, -0.25]}], "usage": {"prompt_tokens": 1, "total_tokens": 1}}`))
		}))
		defer server.Close()

		client := NewOpenAI("key", "text-embedding-3-small", "gpt-4o-mini", 2, option.WithBaseURL(server.URL), option.WithMaxRetries(0))
		vector, err := client.Embed(context.Background(), "text")
		require.NoError(t, err, "Expected no error embedding text")
		assert.Equal(t, []float32{0.5, -0.25}, vector)
	})

	t.Run("Report rate limits as transient", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error": {"message": "slow down", "type": "rate_limit"}}`))
		}))
		defer server.Close()

		client := NewOpenAI("key", "text-embedding-3-small", "gpt-4o-mini", 0, option.WithBaseURL(server.URL), option.WithMaxRetries(0))
		_, err := client.Complete(context.Background(), "hi")
		assert.ErrorIs(t, err, helper.ErrTransientService)
	})
}
