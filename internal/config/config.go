package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// CorpusConfig locates the corpus file <dir>/<name><ext>.
type CorpusConfig struct {
	Name string `yaml:"name"`
	Dir  string `yaml:"dir"`
	Ext  string `yaml:"ext"`
}

// IndexConfig controls where and how index snapshots are stored.
type IndexConfig struct {
	Dir    string `yaml:"dir"`
	Format string `yaml:"format"`
	// TrustSnapshot loads an existing snapshot without checking the corpus.
	TrustSnapshot bool `yaml:"trust_snapshot"`
}

// ChunkerConfig configures how documents are split into chunks.
type ChunkerConfig struct {
	Type         string `yaml:"type"`
	ChunkSize    int    `yaml:"chunk_size"`
	ChunkOverlap int    `yaml:"chunk_overlap"`
}

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	BaseURL   string `yaml:"base_url"`
	APIKeyEnv string `yaml:"api_key_env"`
	Model     string `yaml:"model"`
}

// HashingEmbedderConfig configures the offline feature-hashing embedder.
type HashingEmbedderConfig struct {
	Dimension int `yaml:"dimension"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type      string                 `yaml:"type"`
	BatchSize int                    `yaml:"batch_size"`
	OpenAI    *OpenAIEmbedderConfig  `yaml:"openai,omitempty"`
	Hashing   *HashingEmbedderConfig `yaml:"hashing,omitempty"`
}

// OpenAIChatConfig configures the chat completion model.
type OpenAIChatConfig struct {
	BaseURL     string  `yaml:"base_url"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// ExtractiveConfig configures the offline extractive answerer.
type ExtractiveConfig struct {
	MaxSentences int `yaml:"max_sentences"`
}

// LLMConfig selects the language model provider.
type LLMConfig struct {
	Type         string            `yaml:"type"`
	SystemPrompt string            `yaml:"system_prompt,omitempty"`
	OpenAI       *OpenAIChatConfig `yaml:"openai,omitempty"`
	Extractive   *ExtractiveConfig `yaml:"extractive,omitempty"`
}

// RetrievalConfig tunes the query engine.
type RetrievalConfig struct {
	TopK int `yaml:"top_k"`
}

// ProviderConfig bounds every remote provider call.
type ProviderConfig struct {
	TimeoutSecs  int `yaml:"timeout_secs"`
	MaxRetries   int `yaml:"max_retries"`
	RetryDelayMs int `yaml:"retry_delay_ms"`
}

// Timeout returns the per-attempt timeout.
func (p ProviderConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutSecs) * time.Second
}

// RetryDelay returns the base backoff delay.
func (p ProviderConfig) RetryDelay() time.Duration {
	return time.Duration(p.RetryDelayMs) * time.Millisecond
}

// LogConfig configures the stderr logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Corpus    CorpusConfig    `yaml:"corpus"`
	Index     IndexConfig     `yaml:"index"`
	Chunker   ChunkerConfig   `yaml:"chunker"`
	Embedder  EmbedderConfig  `yaml:"embedder"`
	LLM       LLMConfig       `yaml:"llm"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Provider  ProviderConfig  `yaml:"provider"`
	Log       LogConfig       `yaml:"log"`

	// Resolved from the environment by ResolveSecrets, never persisted.
	EmbedderAPIKey string `yaml:"-"`
	LLMAPIKey      string `yaml:"-"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	applyConfigDefaults(cfg)
	return cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/ragqa/config.yaml.
// If neither exists, it writes defaults to ~/.config/ragqa/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := Default()
	if err := Save(userPath, cfg); err != nil {
		// A read-only home is not fatal, the defaults are still usable.
		return cfg, "", nil
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// ResolveSecrets reads the API keys named by the config from the environment.
func (c *AppConfig) ResolveSecrets() {
	if c.Embedder.OpenAI != nil {
		c.EmbedderAPIKey = os.Getenv(c.Embedder.OpenAI.APIKeyEnv)
	}
	if c.LLM.OpenAI != nil {
		c.LLMAPIKey = os.Getenv(c.LLM.OpenAI.APIKeyEnv)
	}
}

// Validate reports the first invalid setting.
func (c *AppConfig) Validate() error {
	if strings.TrimSpace(c.Corpus.Name) == "" {
		return errors.New("corpus.name is required")
	}
	if strings.ContainsAny(c.Corpus.Name, `/\`) {
		return fmt.Errorf("corpus.name %q must not contain path separators", c.Corpus.Name)
	}
	switch c.Index.Format {
	case "gob", "sqlite":
	default:
		return fmt.Errorf("index.format %q: want gob or sqlite", c.Index.Format)
	}
	if c.Chunker.Type != "recursive" {
		return fmt.Errorf("chunker.type %q: want recursive", c.Chunker.Type)
	}
	if c.Chunker.ChunkSize <= 0 {
		return fmt.Errorf("chunker.chunk_size must be positive, got %d", c.Chunker.ChunkSize)
	}
	if c.Chunker.ChunkOverlap < 0 || c.Chunker.ChunkOverlap >= c.Chunker.ChunkSize {
		return fmt.Errorf("chunker.chunk_overlap must be in [0, %d), got %d", c.Chunker.ChunkSize, c.Chunker.ChunkOverlap)
	}
	switch c.Embedder.Type {
	case "openai", "hashing":
	default:
		return fmt.Errorf("embedder.type %q: want openai or hashing", c.Embedder.Type)
	}
	switch c.LLM.Type {
	case "openai", "extractive":
	default:
		return fmt.Errorf("llm.type %q: want openai or extractive", c.LLM.Type)
	}
	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("retrieval.top_k must be positive, got %d", c.Retrieval.TopK)
	}
	if c.Provider.MaxRetries < 0 {
		return fmt.Errorf("provider.max_retries must not be negative, got %d", c.Provider.MaxRetries)
	}
	return nil
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "ragqa", "config.yaml"), nil
}

// Default returns the configuration used when no file is present.
func Default() *AppConfig {
	cfg := &AppConfig{
		Corpus:    CorpusConfig{Name: "LangChain", Dir: ".", Ext: ".txt"},
		Index:     IndexConfig{Dir: ".", Format: "gob"},
		Chunker:   ChunkerConfig{Type: "recursive", ChunkSize: 1000, ChunkOverlap: 200},
		Embedder:  EmbedderConfig{Type: "openai", BatchSize: 32},
		LLM:       LLMConfig{Type: "openai"},
		Retrieval: RetrievalConfig{TopK: 4},
		Provider:  ProviderConfig{TimeoutSecs: 60, MaxRetries: 1, RetryDelayMs: 500},
		Log:       LogConfig{Level: "info", Format: "text"},
	}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Corpus.Dir == "" {
		cfg.Corpus.Dir = "."
	}
	if cfg.Corpus.Ext == "" {
		cfg.Corpus.Ext = ".txt"
	}
	if cfg.Index.Dir == "" {
		cfg.Index.Dir = "."
	}
	if cfg.Index.Format == "" {
		cfg.Index.Format = "gob"
	}
	if cfg.Chunker.Type == "" {
		cfg.Chunker.Type = "recursive"
	}
	if cfg.Chunker.ChunkSize == 0 {
		cfg.Chunker.ChunkSize = 1000
	}
	if cfg.Embedder.BatchSize == 0 {
		cfg.Embedder.BatchSize = 32
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 4
	}
	if cfg.Provider.TimeoutSecs == 0 {
		cfg.Provider.TimeoutSecs = 60
	}
	if cfg.Provider.RetryDelayMs == 0 {
		cfg.Provider.RetryDelayMs = 500
	}
	switch cfg.Embedder.Type {
	case "openai":
		if cfg.Embedder.OpenAI == nil {
			cfg.Embedder.OpenAI = &OpenAIEmbedderConfig{}
		}
		if cfg.Embedder.OpenAI.BaseURL == "" {
			cfg.Embedder.OpenAI.BaseURL = "https://api.openai.com/v1"
		}
		if cfg.Embedder.OpenAI.APIKeyEnv == "" {
			cfg.Embedder.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
		}
		if cfg.Embedder.OpenAI.Model == "" {
			cfg.Embedder.OpenAI.Model = "text-embedding-3-small"
		}
	case "hashing":
		if cfg.Embedder.Hashing == nil {
			cfg.Embedder.Hashing = &HashingEmbedderConfig{}
		}
		if cfg.Embedder.Hashing.Dimension == 0 {
			cfg.Embedder.Hashing.Dimension = 512
		}
	}
	switch cfg.LLM.Type {
	case "openai":
		if cfg.LLM.OpenAI == nil {
			cfg.LLM.OpenAI = &OpenAIChatConfig{}
		}
		if cfg.LLM.OpenAI.BaseURL == "" {
			cfg.LLM.OpenAI.BaseURL = "https://api.openai.com/v1"
		}
		if cfg.LLM.OpenAI.APIKeyEnv == "" {
			cfg.LLM.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
		}
		if cfg.LLM.OpenAI.Model == "" {
			cfg.LLM.OpenAI.Model = "gpt-4o-mini"
		}
	case "extractive":
		if cfg.LLM.Extractive == nil {
			cfg.LLM.Extractive = &ExtractiveConfig{}
		}
		if cfg.LLM.Extractive.MaxSentences == 0 {
			cfg.LLM.Extractive.MaxSentences = 3
		}
	}
}
