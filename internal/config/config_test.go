package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Corpus.Name != "LangChain" || cfg.Chunker.ChunkSize != 1000 || cfg.Chunker.ChunkOverlap != 200 || cfg.Retrieval.TopK != 4 {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if cfg.Provider.MaxRetries != 1 || cfg.Provider.Timeout() != 60*time.Second {
		t.Errorf("unexpected provider defaults %+v", cfg.Provider)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults must validate: %v", err)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
corpus:
  name: demo
embedder:
  type: hashing
llm:
  type: extractive
chunker:
  chunk_overlap: 0
provider:
  max_retries: 0
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Corpus.Name != "demo" || cfg.Corpus.Ext != ".txt" {
		t.Errorf("unexpected corpus %+v", cfg.Corpus)
	}
	if cfg.Embedder.Hashing == nil || cfg.Embedder.Hashing.Dimension != 512 {
		t.Errorf("hashing defaults not applied: %+v", cfg.Embedder)
	}
	if cfg.LLM.Extractive == nil || cfg.LLM.Extractive.MaxSentences != 3 {
		t.Errorf("extractive defaults not applied: %+v", cfg.LLM)
	}
	if cfg.Chunker.ChunkSize != 1000 || cfg.Chunker.ChunkOverlap != 0 {
		t.Errorf("explicit zero overlap must be kept, got %+v", cfg.Chunker)
	}
	if cfg.Provider.MaxRetries != 0 {
		t.Errorf("explicit zero retries must be kept, got %d", cfg.Provider.MaxRetries)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("corpus: ["), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.Index.Format = "sqlite"
	cfg.Chunker.ChunkOverlap = 50
	cfg.LLMAPIKey = "secret"
	if err := Save(path, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}
	raw, _ := os.ReadFile(path)
	if strings.Contains(string(raw), "secret") {
		t.Error("resolved API keys must not be written")
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Index.Format != "sqlite" || got.Chunker.ChunkOverlap != 50 {
		t.Errorf("round trip lost values: %+v", got)
	}
}

func TestResolveSecrets(t *testing.T) {
	t.Setenv("RAGQA_TEST_KEY", "sk-test")
	cfg := Default()
	cfg.Embedder.OpenAI.APIKeyEnv = "RAGQA_TEST_KEY"
	cfg.LLM.OpenAI.APIKeyEnv = "RAGQA_TEST_KEY"
	cfg.ResolveSecrets()
	if cfg.EmbedderAPIKey != "sk-test" || cfg.LLMAPIKey != "sk-test" {
		t.Errorf("keys not resolved: %q %q", cfg.EmbedderAPIKey, cfg.LLMAPIKey)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*AppConfig)
		want   string
	}{
		{"empty corpus", func(c *AppConfig) { c.Corpus.Name = " " }, "corpus.name"},
		{"path in corpus", func(c *AppConfig) { c.Corpus.Name = "../etc" }, "path separators"},
		{"format", func(c *AppConfig) { c.Index.Format = "parquet" }, "index.format"},
		{"chunker type", func(c *AppConfig) { c.Chunker.Type = "sentence" }, "chunker.type"},
		{"overlap too large", func(c *AppConfig) { c.Chunker.ChunkOverlap = 1000 }, "chunk_overlap"},
		{"embedder", func(c *AppConfig) { c.Embedder.Type = "tfidf" }, "embedder.type"},
		{"llm", func(c *AppConfig) { c.LLM.Type = "local" }, "llm.type"},
		{"top k", func(c *AppConfig) { c.Retrieval.TopK = -1 }, "top_k"},
		{"retries", func(c *AppConfig) { c.Provider.MaxRetries = -1 }, "max_retries"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}
