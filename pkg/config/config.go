package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DatabaseConfig describes a PostgreSQL connection, either as a URL or as
// components.
type DatabaseConfig struct {
	URL      string `yaml:"url"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

// ConnString returns URL when set, otherwise a postgres:// URL built from the
// components.
func (d DatabaseConfig) ConnString() string {
	if d.URL != "" {
		return d.URL
	}
	if d.Host == "" && d.Name == "" {
		return ""
	}
	port := d.Port
	if port == 0 {
		port = 5432
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(d.Host, strconv.Itoa(port)),
		Path:   "/" + d.Name,
	}
	if d.User != "" {
		if d.Password != "" {
			u.User = url.UserPassword(d.User, d.Password)
		} else {
			u.User = url.User(d.User)
		}
	}
	if d.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {d.SSLMode}}.Encode()
	}
	return u.String()
}

type Config struct {
	LLM struct {
		Provider    string  `yaml:"provider"`
		BaseURL     string  `yaml:"base_url"`
		Model       string  `yaml:"model"`
		APIKey      string  `yaml:"api_key"`
		MaxTokens   int     `yaml:"max_tokens"`
		Temperature float64 `yaml:"temperature"`
	} `yaml:"llm"`

	Embedder struct {
		Provider  string        `yaml:"provider"`
		BaseURL   string        `yaml:"base_url"`
		Model     string        `yaml:"model"`
		APIKey    string        `yaml:"api_key"`
		RateLimit float64       `yaml:"rate_limit"`
		CacheSize int           `yaml:"cache_size"`
		CacheTTL  time.Duration `yaml:"cache_ttl"`
	} `yaml:"embedder"`

	// Database is the index store.
	Database struct {
		DatabaseConfig `yaml:",inline"`
		Driver         string `yaml:"driver"`
		Path           string `yaml:"path"`
		TableName      string `yaml:"table_name"`
		VectorDim      int    `yaml:"vector_dim"`
		CreateIndex    bool   `yaml:"create_index"`
		IndexLists     int    `yaml:"index_lists"`
	} `yaml:"database"`

	Source struct {
		Kind     string         `yaml:"kind"`
		Database DatabaseConfig `yaml:"database"`
		Table    string         `yaml:"table"`
		Dir      string         `yaml:"dir"`
		Pattern  string         `yaml:"pattern"`
		Web      struct {
			BaseURL        string   `yaml:"base_url"`
			MaxDepth       int      `yaml:"max_depth"`
			RateLimit      float64  `yaml:"rate_limit"`
			IgnorePatterns []string `yaml:"ignore_patterns"`
		} `yaml:"web"`
		S3 struct {
			Bucket    string `yaml:"bucket"`
			Prefix    string `yaml:"prefix"`
			Region    string `yaml:"region"`
			Endpoint  string `yaml:"endpoint"`
			AccessKey string `yaml:"access_key"`
			SecretKey string `yaml:"secret_key"`
		} `yaml:"s3"`
	} `yaml:"source"`

	Processor struct {
		ChunkSize  int    `yaml:"chunk_size"`
		ScratchDir string `yaml:"scratch_dir"`
	} `yaml:"processor"`

	Retrieval struct {
		TopK int `yaml:"top_k"`
	} `yaml:"retrieval"`

	Log struct {
		Level   string `yaml:"level"`
		File    string `yaml:"file"`
		Console bool   `yaml:"console"`
	} `yaml:"log"`

	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`

	UI struct {
		Streaming bool   `yaml:"streaming"`
		Theme     string `yaml:"theme"`
	} `yaml:"ui"`
}

func LoadConfig(path string) (*Config, error) {
	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/paperchat/config.yaml"),
			"/etc/paperchat/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	// Merge with environment variables
	mergeWithEnv(&config)

	// Apply defaults for unset values
	applyDefaults(&config)

	return &config, nil
}

func getDefaultConfig() (*Config, error) {
	config := &Config{}
	mergeWithEnv(config)
	applyDefaults(config)
	return config, nil
}

func applyDefaults(config *Config) {
	if config.LLM.Provider == "" {
		config.LLM.Provider = "openai"
	}
	if config.LLM.Model == "" {
		if config.LLM.Provider == "ollama" {
			config.LLM.Model = "mistral"
		} else {
			config.LLM.Model = "gpt-3.5-turbo"
		}
	}
	if config.LLM.MaxTokens == 0 {
		config.LLM.MaxTokens = 500
	}
	if config.LLM.Temperature == 0 {
		config.LLM.Temperature = 0.2
	}
	if config.LLM.Provider == "ollama" && config.LLM.BaseURL == "" {
		config.LLM.BaseURL = "http://localhost:11434"
	}

	if config.Embedder.Provider == "" {
		config.Embedder.Provider = "openai"
	}
	if config.Embedder.Provider == "ollama" && config.Embedder.BaseURL == "" {
		config.Embedder.BaseURL = "http://localhost:11434"
	}
	if config.Embedder.CacheTTL == 0 {
		config.Embedder.CacheTTL = 10 * time.Minute
	}

	if config.Database.Driver == "" {
		config.Database.Driver = "postgres"
	}
	if config.Database.TableName == "" {
		config.Database.TableName = "embeddings"
	}
	if config.Database.VectorDim == 0 {
		switch config.Embedder.Provider {
		case "ollama":
			config.Database.VectorDim = 768
		case "gemini":
			config.Database.VectorDim = 768
		default:
			config.Database.VectorDim = 1536
		}
	}
	if config.Database.IndexLists == 0 {
		config.Database.IndexLists = 100
	}

	if config.Source.Kind == "" {
		config.Source.Kind = "postgres"
	}
	if config.Source.Table == "" {
		config.Source.Table = "papers"
	}
	if config.Source.Pattern == "" {
		config.Source.Pattern = "**/*.pdf"
	}
	if config.Source.Web.MaxDepth == 0 {
		config.Source.Web.MaxDepth = 3
	}
	if config.Source.Web.RateLimit == 0 {
		config.Source.Web.RateLimit = 2.0
	}

	if config.Processor.ChunkSize == 0 {
		config.Processor.ChunkSize = 1000
	}

	if config.Retrieval.TopK == 0 {
		config.Retrieval.TopK = 2
	}

	if config.Log.Level == "" {
		config.Log.Level = "info"
	}

	if config.Server.Addr == "" {
		config.Server.Addr = ":8080"
	}

	if config.UI.Theme == "" {
		config.UI.Theme = "default"
	}
}

func mergeWithEnv(config *Config) {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		if config.LLM.Provider == "" || config.LLM.Provider == "openai" {
			config.LLM.APIKey = key
		}
		if config.Embedder.Provider == "" || config.Embedder.Provider == "openai" {
			config.Embedder.APIKey = key
		}
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" && config.Embedder.Provider == "gemini" {
		config.Embedder.APIKey = key
	}
	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
		if config.LLM.Provider == "ollama" {
			config.LLM.BaseURL = baseURL
		}
		if config.Embedder.Provider == "ollama" {
			config.Embedder.BaseURL = baseURL
		}
	}

	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Database.URL = dbURL
	}
	mergeDatabaseEnv(&config.Database.DatabaseConfig, "TARGET_DB_")

	if dbURL := os.Getenv("SOURCE_DATABASE_URL"); dbURL != "" {
		config.Source.Database.URL = dbURL
	}
	mergeDatabaseEnv(&config.Source.Database, "SOURCE_DB_")

	if region := os.Getenv("AWS_REGION"); region != "" {
		config.Source.S3.Region = region
	}
}

func mergeDatabaseEnv(db *DatabaseConfig, prefix string) {
	if v := os.Getenv(prefix + "NAME"); v != "" {
		db.Name = v
	}
	if v := os.Getenv(prefix + "USER"); v != "" {
		db.User = v
	}
	if v := os.Getenv(prefix + "PASSWORD"); v != "" {
		db.Password = v
	}
	if v := os.Getenv(prefix + "HOST"); v != "" {
		db.Host = v
	}
	if v := os.Getenv(prefix + "PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			db.Port = port
		}
	}
}
