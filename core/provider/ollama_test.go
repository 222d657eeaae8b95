package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/siherrmann/causemap/helper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOllamaEmbed(t *testing.T) {
	t.Run("Return the first embedding", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/embed", r.URL.Path)
			assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

			var payload map[string]interface{}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			assert.Equal(t, "nomic-embed-text", payload["model"])
			assert.Equal(t, "clean water", payload["input"])

			_, _ = w.Write([]byte(`{"embeddings": [[0.1, 0.2, 0.3]]}`))
		}))
		defer server.Close()

		client := NewOllama(server.URL+"/", "secret", "nomic-embed-text", "llama3.2")
		vector, err := client.Embed(context.Background(), "clean water")
		require.NoError(t, err, "Expected no error embedding text")
		assert.Equal(t, []float32{0.1, 0.2, 0.3}, vector)
	})

	t.Run("Report an empty response as malformed", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"embeddings": []}`))
		}))
		defer server.Close()

		_, err := NewOllama(server.URL, "", "m", "c").Embed(context.Background(), "text")
		assert.ErrorIs(t, err, helper.ErrMalformedResponse)
	})

	t.Run("Report rate limits as transient", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer server.Close()

		_, err := NewOllama(server.URL, "", "m", "c").Embed(context.Background(), "text")
		assert.ErrorIs(t, err, helper.ErrTransientService)
	})

	t.Run("Do not mark client errors as transient", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
		}))
		defer server.Close()

		_, err := NewOllama(server.URL, "", "m", "c").Embed(context.Background(), "text")
		require.Error(t, err)
		assert.NotErrorIs(t, err, helper.ErrTransientService)
	})

	t.Run("Report unreachable servers as transient", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		url := server.URL
		server.Close()

		_, err := NewOllama(url, "", "m", "c").Embed(context.Background(), "text")
		assert.ErrorIs(t, err, helper.ErrTransientService)
	})
}

func TestOllamaComplete(t *testing.T) {
	t.Run("Request JSON output and return the message", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/chat", r.URL.Path)

			var payload map[string]interface{}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			assert.Equal(t, "json", payload["format"])
			assert.Equal(t, false, payload["stream"])

			_, _ = w.Write([]byte(`{"message": {"role": "assistant", "content": "{\"name\": \"Water\"}"}}`))
		}))
		defer server.Close()

		content, err := NewOllama(server.URL, "", "m", "llama3.2").Complete(context.Background(), "label this")
		require.NoError(t, err)
		assert.Equal(t, `{"name": "Water"}`, content)
	})

	t.Run("Report undecodable bodies as malformed", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`not json`))
		}))
		defer server.Close()

		_, err := NewOllama(server.URL, "", "m", "c").Complete(context.Background(), "label this")
		assert.ErrorIs(t, err, helper.ErrMalformedResponse)
	})
}
