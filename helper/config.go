package helper

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	ProviderOllama     = "ollama"
	ProviderHugot      = "hugot"
	ProviderOpenRouter = "openrouter"
	ProviderOpenAI     = "openai"
	ProviderNone       = "none"
)

// ServiceConfiguration selects and configures the embedding and language model services.
type ServiceConfiguration struct {
	EmbeddingProvider  string
	EmbeddingModel     string
	EmbeddingDimension int
	OllamaURL          string
	OllamaAPIKey       string
	LLMProvider        string
	LLMModel           string
	OpenRouterAPIKey   string
	OpenAIAPIKey       string
}

// NewServiceConfiguration reads the service settings from the environment.
// Missing credentials for a selected provider are a configuration error.
func NewServiceConfiguration() (*ServiceConfiguration, error) {
	_ = godotenv.Load()

	dimension, err := envOrDefaultInt("EMBEDDING_DIMENSION", 768)
	if err != nil {
		return nil, NewError("service configuration", err)
	}

	config := &ServiceConfiguration{
		EmbeddingProvider:  strings.ToLower(envOrDefault("EMBEDDING_PROVIDER", ProviderOllama)),
		EmbeddingModel:     envOrDefault("EMBEDDING_MODEL", "nomic-embed-text"),
		EmbeddingDimension: dimension,
		OllamaURL:          envOrDefault("OLLAMA_URL", "http://localhost:11434"),
		OllamaAPIKey:       os.Getenv("OLLAMA_API_KEY"),
		LLMProvider:        strings.ToLower(envOrDefault("LLM_PROVIDER", ProviderOllama)),
		LLMModel:           envOrDefault("LLM_MODEL", "llama3.2"),
		OpenRouterAPIKey:   os.Getenv("OPENROUTER_API_KEY"),
		OpenAIAPIKey:       os.Getenv("OPENAI_API_KEY"),
	}

	if err := config.Validate(); err != nil {
		return nil, NewError("service configuration", err)
	}

	return config, nil
}

// Validate checks that every selected provider is known and has its credentials.
func (c *ServiceConfiguration) Validate() error {
	switch c.EmbeddingProvider {
	case ProviderOllama, ProviderHugot:
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("%w: OPENAI_API_KEY is required for the openai provider", ErrConfiguration)
		}
	default:
		return fmt.Errorf("%w: unknown embedding provider %q", ErrConfiguration, c.EmbeddingProvider)
	}

	switch c.LLMProvider {
	case ProviderOllama, ProviderNone:
	case ProviderOpenRouter:
		if c.OpenRouterAPIKey == "" {
			return fmt.Errorf("%w: OPENROUTER_API_KEY is required for the openrouter provider", ErrConfiguration)
		}
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("%w: OPENAI_API_KEY is required for the openai provider", ErrConfiguration)
		}
	default:
		return fmt.Errorf("%w: unknown llm provider %q", ErrConfiguration, c.LLMProvider)
	}

	if c.EmbeddingDimension <= 0 {
		return fmt.Errorf("%w: EMBEDDING_DIMENSION must be positive", ErrConfiguration)
	}

	return nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer: %v", ErrConfiguration, key, err)
	}
	return n, nil
}
