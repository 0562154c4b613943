package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"

	"github.com/xhad/paperchat/internal/types"
	"github.com/xhad/paperchat/pkg/errs"
	"github.com/xhad/paperchat/pkg/logging"
)

const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
	ProviderGemini = "gemini"
)

// EmbedderConfig represents the configuration for an embedding client.
type EmbedderConfig struct {
	Provider  string
	Model     string
	BaseURL   string
	APIKey    string
	RateLimit float64 // requests per second, 0 disables limiting
	CacheSize int
	CacheTTL  time.Duration
	Logger    *zap.Logger
}

// Embedder turns a piece of text into a single embedding vector through an
// external embedding service.
type Embedder struct {
	config EmbedderConfig
	embed  embeddings.Embedder
	logger *zap.Logger
}

func defaultEmbeddingModel(provider string) string {
	switch provider {
	case ProviderOllama:
		return "nomic-embed-text:latest"
	case ProviderGemini:
		return "text-embedding-004"
	default:
		return "text-embedding-ada-002"
	}
}

// NewEmbedderWithConfig builds the provider client named by config and wraps
// it with the optional rate limiter and cache.
func NewEmbedderWithConfig(config EmbedderConfig) (types.Embedder, error) {
	config.Provider = strings.ToLower(strings.TrimSpace(config.Provider))
	if config.Provider == "" {
		config.Provider = ProviderOpenAI
	}
	if config.Model == "" {
		config.Model = defaultEmbeddingModel(config.Provider)
	}

	client, err := newEmbedderClient(config)
	if err != nil {
		return nil, err
	}

	emb, err := NewEmbedder(client, config)
	if err != nil {
		return nil, err
	}

	var e types.Embedder = emb
	e = WrapRateLimit(e, config.RateLimit)
	e = WrapLRUCache(e, config.CacheSize, config.CacheTTL)
	return e, nil
}

func newEmbedderClient(config EmbedderConfig) (embeddings.EmbedderClient, error) {
	switch config.Provider {
	case ProviderOpenAI:
		if config.APIKey == "" {
			return nil, errs.Configuration(fmt.Errorf("openai embedder requires an api key"))
		}
		opts := []openai.Option{
			openai.WithToken(config.APIKey),
			openai.WithEmbeddingModel(config.Model),
		}
		if config.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(config.BaseURL))
		}
		client, err := openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize openai embedder: %w", err)
		}
		return client, nil
	case ProviderOllama:
		baseURL := config.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		client, err := ollama.New(ollama.WithModel(config.Model), ollama.WithServerURL(baseURL))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize ollama embedder: %w", err)
		}
		return client, nil
	case ProviderGemini:
		return newGeminiClient(config.APIKey, config.Model)
	default:
		return nil, errs.Configuration(fmt.Errorf("unsupported embedding provider: %s", config.Provider))
	}
}

// NewEmbedder wraps an already constructed embedding client.
func NewEmbedder(client embeddings.EmbedderClient, config EmbedderConfig) (*Embedder, error) {
	if client == nil {
		return nil, errs.Configuration(fmt.Errorf("embedding client is required"))
	}
	embed, err := embeddings.NewEmbedder(client)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	return &Embedder{
		config: config,
		embed:  embed,
		logger: logging.OrNop(config.Logger),
	}, nil
}

// Embed returns the embedding of text. Failures are EmbeddingErrors; a zero
// vector is never substituted.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.logger.Debug("generating embedding", zap.String("model", e.config.Model), zap.Int("chars", len(text)))

	vec, err := e.embed.EmbedQuery(ctx, text)
	if err != nil {
		return nil, errs.Embedding(err)
	}
	if len(vec) == 0 {
		return nil, errs.Embedding(fmt.Errorf("%s returned an empty embedding", e.config.Provider))
	}
	return vec, nil
}

func (e *Embedder) ModelName() string {
	return e.config.Model
}
