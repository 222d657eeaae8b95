package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/siherrmann/causemap/helper"
)

const openRouterURL = "https://openrouter.ai/api/v1/chat/completions"

// OpenRouter completes prompts through the OpenRouter chat completions API.
type OpenRouter struct {
	apiKey     string
	model      string
	url        string
	httpClient *http.Client
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func NewOpenRouter(apiKey, model string) *OpenRouter {
	return &OpenRouter{
		apiKey:     apiKey,
		model:      model,
		url:        openRouterURL,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

func (o *OpenRouter) Complete(ctx context.Context, prompt string) (string, error) {
	payload := chatRequest{
		Model:       o.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: 0.3,
	}

	body, err := postJSON(ctx, o.httpClient, o.url, o.apiKey, payload)
	if err != nil {
		return "", fmt.Errorf("openrouter chat: %w", err)
	}

	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("openrouter chat decode: %w: %v", helper.ErrMalformedResponse, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openrouter chat: %w: no choices", helper.ErrMalformedResponse)
	}

	return resp.Choices[0].Message.Content, nil
}
