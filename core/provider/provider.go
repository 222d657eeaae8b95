package provider

import (
	"fmt"
	"time"

	"github.com/siherrmann/causemap/core/embedding"
	"github.com/siherrmann/causemap/core/labeling"
	"github.com/siherrmann/causemap/helper"
)

// EmbeddingCacheTTL bounds how long embeddings are reused by text.
var EmbeddingCacheTTL = 24 * time.Hour

// NewEmbedFunc builds the configured embedding service. The returned close
// function releases local model sessions and is never nil.
func NewEmbedFunc(config *helper.ServiceConfiguration) (embedding.EmbedFunc, func() error, error) {
	noop := func() error { return nil }

	switch config.EmbeddingProvider {
	case helper.ProviderOllama:
		client := NewOllama(config.OllamaURL, config.OllamaAPIKey, config.EmbeddingModel, config.LLMModel)
		return Cached(client.Embed, EmbeddingCacheTTL), noop, nil
	case helper.ProviderOpenAI:
		client := NewOpenAI(config.OpenAIAPIKey, config.EmbeddingModel, config.LLMModel, config.EmbeddingDimension)
		return Cached(client.Embed, EmbeddingCacheTTL), noop, nil
	case helper.ProviderHugot:
		embed, closeFn, err := embedding.NewHugotEmbedder(config.EmbeddingModel)
		if err != nil {
			return nil, nil, helper.NewError("create local embedder", err)
		}
		return Cached(embed, EmbeddingCacheTTL), closeFn, nil
	default:
		return nil, nil, helper.NewError("create embedder", fmt.Errorf("%w: unknown embedding provider %q", helper.ErrConfiguration, config.EmbeddingProvider))
	}
}

// NewCompleteFunc builds the configured language model service. It returns
// nil without error when labeling should use metadata only.
func NewCompleteFunc(config *helper.ServiceConfiguration) (labeling.CompleteFunc, error) {
	switch config.LLMProvider {
	case helper.ProviderNone:
		return nil, nil
	case helper.ProviderOllama:
		return NewOllama(config.OllamaURL, config.OllamaAPIKey, config.EmbeddingModel, config.LLMModel).Complete, nil
	case helper.ProviderOpenRouter:
		return NewOpenRouter(config.OpenRouterAPIKey, config.LLMModel).Complete, nil
	case helper.ProviderOpenAI:
		return NewOpenAI(config.OpenAIAPIKey, config.EmbeddingModel, config.LLMModel, config.EmbeddingDimension).Complete, nil
	default:
		return nil, helper.NewError("create language model", fmt.Errorf("%w: unknown llm provider %q", helper.ErrConfiguration, config.LLMProvider))
	}
}
