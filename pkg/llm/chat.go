package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"

	"github.com/xhad/paperchat/internal/models"
	"github.com/xhad/paperchat/pkg/errs"
	"github.com/xhad/paperchat/pkg/logging"
)

const (
	// NoContextMessage is returned without calling the model when retrieval found nothing.
	NoContextMessage = "I'm sorry, I couldn't find relevant contexts to answer your query."
	// GenerationFailedMessage is returned alongside the error when the model call fails.
	GenerationFailedMessage = "sorry, couldn't generate a response at this time."

	insufficientContext = "The provided context does not contain enough information to answer this question."
)

// ChatConfig represents the configuration for a chat engine.
type ChatConfig struct {
	Provider       string
	Model          string
	BaseURL        string
	APIKey         string
	Temperature    float64
	MaxTokens      int
	SystemTemplate string
	Logger         *zap.Logger
}

// ChatEngine is an engine that uses an LLM to answer questions from retrieved context.
type ChatEngine struct {
	config ChatConfig
	llm    llms.Model
	logger *zap.Logger
}

// NewWithConfig creates a new ChatEngine backed by the configured provider.
func NewWithConfig(config ChatConfig) (*ChatEngine, error) {
	config.Provider = strings.ToLower(strings.TrimSpace(config.Provider))
	if config.Provider == "" {
		config.Provider = ProviderOpenAI
	}

	var (
		model llms.Model
		err   error
	)
	switch config.Provider {
	case ProviderOpenAI:
		if config.APIKey == "" {
			return nil, errs.Configuration(fmt.Errorf("openai chat requires an api key"))
		}
		if config.Model == "" {
			config.Model = "gpt-3.5-turbo"
		}
		opts := []openai.Option{openai.WithToken(config.APIKey), openai.WithModel(config.Model)}
		if config.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(config.BaseURL))
		}
		model, err = openai.New(opts...)
	case ProviderOllama:
		if config.Model == "" {
			config.Model = "mistral"
		}
		if config.BaseURL == "" {
			config.BaseURL = "http://localhost:11434"
		}
		model, err = ollama.New(ollama.WithModel(config.Model), ollama.WithServerURL(config.BaseURL))
	default:
		return nil, errs.Configuration(fmt.Errorf("unsupported chat provider: %s", config.Provider))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM: %w", err)
	}

	return New(model, config)
}

// New creates a ChatEngine around an existing model.
func New(model llms.Model, config ChatConfig) (*ChatEngine, error) {
	if model == nil {
		return nil, fmt.Errorf("llm model is required")
	}
	if config.Temperature == 0 {
		config.Temperature = 0.2
	}
	if config.Temperature < 0 || config.Temperature > 2 {
		return nil, fmt.Errorf("temperature must be between 0 and 2")
	}
	if config.MaxTokens < 0 {
		return nil, fmt.Errorf("max tokens cannot be negative")
	} else if config.MaxTokens == 0 {
		config.MaxTokens = 500
	}
	if config.SystemTemplate == "" {
		config.SystemTemplate = "You are a helpful assistant."
	}

	return &ChatEngine{
		config: config,
		llm:    model,
		logger: logging.OrNop(config.Logger),
	}, nil
}

// GenerateResponse answers query using only the retrieved results.
func (ce *ChatEngine) GenerateResponse(ctx context.Context, query string, results []models.QueryResult) (string, error) {
	if len(results) == 0 {
		ce.logger.Warn("no contexts provided for response generation")
		return NoContextMessage, nil
	}

	resp, err := ce.llm.GenerateContent(ctx, ce.messages(query, results),
		llms.WithMaxTokens(ce.config.MaxTokens),
		llms.WithTemperature(ce.config.Temperature),
	)
	if err != nil {
		ce.logger.Error("error generating response", zap.Error(err))
		return GenerationFailedMessage, fmt.Errorf("chat error: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return GenerationFailedMessage, fmt.Errorf("chat error: empty response from model")
	}

	return strings.TrimSpace(resp.Choices[0].Content), nil
}

// ChatStream generates the same answer as GenerateResponse, delivered as a
// stream of text fragments. Errors are sent as a final "Error: ..." fragment.
func (ce *ChatEngine) ChatStream(ctx context.Context, query string, results []models.QueryResult) (<-chan string, error) {
	resultChan := make(chan string)

	go func() {
		defer close(resultChan)

		if len(results) == 0 {
			resultChan <- NoContextMessage
			return
		}

		_, err := ce.llm.GenerateContent(ctx, ce.messages(query, results),
			llms.WithMaxTokens(ce.config.MaxTokens),
			llms.WithTemperature(ce.config.Temperature),
			llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
				select {
				case resultChan <- string(chunk):
					return nil
				case <-ctx.Done():
					return ctx.Err()
				}
			}),
		)
		if err != nil {
			ce.logger.Error("error streaming response", zap.Error(err))
			resultChan <- fmt.Sprintf("Error: %v", err)
		}
	}()

	return resultChan, nil
}

func (ce *ChatEngine) messages(query string, results []models.QueryResult) []llms.MessageContent {
	return []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, ce.config.SystemTemplate),
		llms.TextParts(llms.ChatMessageTypeHuman, buildPrompt(combineContexts(results), query)),
	}
}

func combineContexts(results []models.QueryResult) string {
	parts := make([]string, len(results))
	for i, r := range results {
		parts[i] = fmt.Sprintf("Context %d: %s", i+1, r.Context)
	}
	return strings.Join(parts, "\n\n")
}

func buildPrompt(context, query string) string {
	return fmt.Sprintf(`
You are an intelligent assistant. Your task is to generate responses based strictly on the context provided. Use the information accurately without guessing or fabricating details. If the context does not contain enough information to answer the question, explicitly state: 
"%s"

### Context:
%s

### Question:
%s

### Response:
`, insufficientContext, context, query)
}

// FormatSources lists the distinct sources of results, in order.
func FormatSources(results []models.QueryResult) string {
	var sources []string
	seen := make(map[string]bool)

	for _, r := range results {
		if !seen[r.Source] {
			sources = append(sources, r.Source)
			seen[r.Source] = true
		}
	}

	if len(sources) == 0 {
		return ""
	}

	return fmt.Sprintf("\nSources:\n%s", strings.Join(sources, "\n"))
}
