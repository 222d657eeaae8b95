package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/siherrmann/causemap/helper"
)

// Ollama talks to the Ollama REST API, locally or in the cloud.
type Ollama struct {
	baseURL    string
	token      string
	embedModel string
	chatModel  string
	httpClient *http.Client
}

func NewOllama(baseURL, token, embedModel, chatModel string) *Ollama {
	return &Ollama{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		embedModel: embedModel,
		chatModel:  chatModel,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

// Embed generates a vector embedding for the given text.
func (o *Ollama) Embed(ctx context.Context, text string) ([]float32, error) {
	payload := map[string]interface{}{
		"model": o.embedModel,
		"input": text,
	}

	body, err := postJSON(ctx, o.httpClient, o.baseURL+"/api/embed", o.token, payload)
	if err != nil {
		return nil, fmt.Errorf("ollama embed: %w", err)
	}

	var resp struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("ollama embed decode: %w: %v", helper.ErrMalformedResponse, err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0]) == 0 {
		return nil, fmt.Errorf("ollama embed: %w: empty response", helper.ErrMalformedResponse)
	}

	return resp.Embeddings[0], nil
}

// Complete sends prompt as a single user message and asks for a JSON reply.
func (o *Ollama) Complete(ctx context.Context, prompt string) (string, error) {
	payload := map[string]interface{}{
		"model": o.chatModel,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"format": "json",
		"stream": false,
	}

	body, err := postJSON(ctx, o.httpClient, o.baseURL+"/api/chat", o.token, payload)
	if err != nil {
		return "", fmt.Errorf("ollama chat: %w", err)
	}

	var resp struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("ollama chat decode: %w: %v", helper.ErrMalformedResponse, err)
	}

	return resp.Message.Content, nil
}
