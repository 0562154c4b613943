package config

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/xhad/paperchat/pkg/errs"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (c *Config) Validate() []ValidationError {
	var errors []ValidationError
	add := func(field, format string, args ...interface{}) {
		errors = append(errors, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	// Validate LLM config
	switch c.LLM.Provider {
	case "openai":
		if c.LLM.APIKey == "" {
			add("llm.api_key", "API key is required for the openai provider (set OPENAI_API_KEY)")
		}
	case "ollama":
		if _, err := url.ParseRequestURI(c.LLM.BaseURL); err != nil {
			add("llm.base_url", "invalid Ollama base URL")
		}
	default:
		add("llm.provider", "unknown provider %q", c.LLM.Provider)
	}

	if c.LLM.MaxTokens < 1 || c.LLM.MaxTokens > 4096 {
		add("llm.max_tokens", "max_tokens must be between 1 and 4096")
	}

	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		add("llm.temperature", "temperature must be between 0 and 2")
	}

	// Validate Embedder config
	switch c.Embedder.Provider {
	case "openai", "gemini":
		if c.Embedder.APIKey == "" {
			add("embedder.api_key", "API key is required for the %s provider", c.Embedder.Provider)
		}
	case "ollama":
		if _, err := url.ParseRequestURI(c.Embedder.BaseURL); err != nil {
			add("embedder.base_url", "invalid Ollama base URL")
		}
	default:
		add("embedder.provider", "unknown provider %q", c.Embedder.Provider)
	}

	if c.Embedder.RateLimit < 0 {
		add("embedder.rate_limit", "rate_limit must not be negative")
	}

	if c.Embedder.CacheSize < 0 {
		add("embedder.cache_size", "cache_size must not be negative")
	}

	// Validate Database config
	switch c.Database.Driver {
	case "postgres":
		validateDatabase(c.Database.DatabaseConfig, "database", add)
	case "sqlite":
		if c.Database.Path == "" {
			add("database.path", "path is required for the sqlite driver")
		}
	default:
		add("database.driver", "unknown driver %q", c.Database.Driver)
	}

	if !identifierPattern.MatchString(c.Database.TableName) {
		add("database.table_name", "invalid table name %q", c.Database.TableName)
	}

	if c.Database.VectorDim < 1 {
		add("database.vector_dim", "vector_dim must be positive")
	}

	if c.Database.CreateIndex && c.Database.IndexLists < 1 {
		add("database.index_lists", "index_lists must be positive")
	}

	// Validate Source config
	switch c.Source.Kind {
	case "postgres":
		validateDatabase(c.Source.Database, "source.database", add)
	case "dir":
		if c.Source.Dir == "" {
			add("source.dir", "dir is required for the dir source")
		}
	case "web":
		if u, err := url.ParseRequestURI(c.Source.Web.BaseURL); err != nil || u.Host == "" {
			add("source.web.base_url", "a valid base_url is required for the web source")
		}
		if c.Source.Web.MaxDepth < 1 {
			add("source.web.max_depth", "max_depth must be positive")
		}
		if c.Source.Web.RateLimit <= 0 {
			add("source.web.rate_limit", "rate_limit must be positive")
		}
	case "s3":
		if c.Source.S3.Bucket == "" {
			add("source.s3.bucket", "bucket is required for the s3 source")
		}
	default:
		add("source.kind", "unknown source %q", c.Source.Kind)
	}

	// Validate Processor config
	if c.Processor.ChunkSize < 1 {
		add("processor.chunk_size", "chunk_size must be positive")
	}

	if c.Retrieval.TopK < 1 {
		add("retrieval.top_k", "top_k must be positive")
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		add("log.level", "unknown level %q", c.Log.Level)
	}

	return errors
}

func validateDatabase(db DatabaseConfig, field string, add func(string, string, ...interface{})) {
	if db.URL != "" {
		if u, err := url.Parse(db.URL); err != nil || (u.Scheme != "postgres" && u.Scheme != "postgresql") {
			add(field+".url", "invalid database URL")
		}
		return
	}
	if db.Host == "" {
		add(field+".host", "host or url is required")
	}
	if db.Name == "" {
		add(field+".name", "name or url is required")
	}
	if db.Port < 0 || db.Port > 65535 {
		add(field+".port", "port out of range")
	}
}

// Check runs Validate and folds every failure into one configuration error.
func (c *Config) Check() error {
	verrs := c.Validate()
	if len(verrs) == 0 {
		return nil
	}
	joined := make([]error, len(verrs))
	for i, e := range verrs {
		joined[i] = e
	}
	return errs.Configuration(errors.Join(joined...))
}
