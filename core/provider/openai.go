package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/siherrmann/causemap/helper"
)

// OpenAI uses the official SDK for embeddings and chat completions.
type OpenAI struct {
	client     openai.Client
	embedModel string
	chatModel  string
	dimension  int
}

func NewOpenAI(apiKey, embedModel, chatModel string, dimension int, opts ...option.RequestOption) *OpenAI {
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &OpenAI{
		client:     openai.NewClient(opts...),
		embedModel: embedModel,
		chatModel:  chatModel,
		dimension:  dimension,
	}
}

func (o *OpenAI) Embed(ctx context.Context, text string) ([]float32, error) {
	params := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
		Model: openai.EmbeddingModel(o.embedModel),
	}
	if o.dimension > 0 {
		params.Dimensions = openai.Int(int64(o.dimension))
	}

	resp, err := o.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai embed: %w", classify(err))
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("openai embed: %w: empty response", helper.ErrMalformedResponse)
	}

	vector := make([]float32, len(resp.Data[0].Embedding))
	for i, x := range resp.Data[0].Embedding {
		vector[i] = float32(x)
	}
	return vector, nil
}

func (o *OpenAI) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.chatModel),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai chat: %w", classify(err))
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai chat: %w: no choices", helper.ErrMalformedResponse)
	}

	return resp.Choices[0].Message.Content, nil
}

func classify(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500 {
			return fmt.Errorf("%w: %v", helper.ErrTransientService, err)
		}
		return err
	}
	return fmt.Errorf("%w: %v", helper.ErrTransientService, err)
}
