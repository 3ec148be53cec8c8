package app

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ragqa/internal/cache"
	"ragqa/internal/config"
	"ragqa/internal/domain"
)

const langchain = "LangChain is a framework for developing applications powered by language models.\n\n" +
	"It enables applications that are context-aware and can reason.\n\n" +
	"Bananas are unrelated to this document."

func offlineConfig(t *testing.T) *config.AppConfig {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "LangChain.txt"), []byte(langchain), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := config.Default()
	cfg.Corpus.Dir = dir
	cfg.Index.Dir = filepath.Join(dir, "indexes")
	cfg.Chunker.ChunkSize = 100
	cfg.Chunker.ChunkOverlap = 0
	cfg.Embedder.Type = "hashing"
	cfg.LLM.Type = "extractive"
	cfg.Retrieval.TopK = 1
	// re-run defaults for the switched providers
	path := filepath.Join(dir, "config.yaml")
	if err := config.Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	loaded, err := config.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	return loaded
}

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestApp_IndexThenAskOffline(t *testing.T) {
	cfg := offlineConfig(t)
	a, err := New(cfg, quiet())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	res, err := a.Index(context.Background(), false)
	if err != nil {
		t.Fatalf("index: %v", err)
	}
	if res.Source != cache.SourceBuilt || res.SaveErr != nil {
		t.Fatalf("unexpected index result %+v", res)
	}
	ans, err := a.Ask(context.Background(), "What is LangChain?")
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if !strings.Contains(ans.Text, "framework") {
		t.Errorf("unexpected answer %q", ans.Text)
	}
	if len(ans.Sources) != 1 || !strings.Contains(ans.Sources[0].Chunk.Text, "LangChain") {
		t.Errorf("unexpected sources %+v", ans.Sources)
	}

	b, err := New(cfg, quiet())
	if err != nil {
		t.Fatal(err)
	}
	res, err = b.Index(context.Background(), false)
	if err != nil {
		t.Fatalf("second index: %v", err)
	}
	if res.Source != cache.SourceLoaded {
		t.Errorf("expected snapshot reuse, got %s", res.Source)
	}
	res, err = b.Index(context.Background(), true)
	if err != nil || res.Source != cache.SourceRebuilt {
		t.Errorf("expected forced rebuild, got %v / %v", res, err)
	}
}

func TestApp_AskIndexesOnDemand(t *testing.T) {
	a, err := New(offlineConfig(t), quiet())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := a.Ask(context.Background(), "LangChain framework"); err != nil {
		t.Fatalf("ask: %v", err)
	}
}

func TestApp_EmptyQuestion(t *testing.T) {
	a, err := New(offlineConfig(t), quiet())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := a.Ask(context.Background(), " "); !errors.Is(err, domain.ErrEmptyQuery) {
		t.Fatalf("expected ErrEmptyQuery, got %v", err)
	}
}

func TestApp_MissingCorpus(t *testing.T) {
	cfg := offlineConfig(t)
	cfg.Corpus.Name = "Missing"
	a, err := New(cfg, quiet())
	if err != nil {
		t.Fatal(err)
	}
	_, err = a.Index(context.Background(), false)
	var nf *domain.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if _, statErr := os.Stat(cfg.Index.Dir); !os.IsNotExist(statErr) {
		t.Error("index dir should not be created for a missing corpus")
	}
}

func TestNew_OpenAIRequiresKey(t *testing.T) {
	cfg := config.Default()
	cfg.EmbedderAPIKey = ""
	_, err := New(cfg, quiet())
	if err == nil || !strings.Contains(err.Error(), "OPENAI_API_KEY") {
		t.Fatalf("expected missing key error naming the env var, got %v", err)
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Index.Format = "csv"
	if _, err := New(cfg, quiet()); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(&buf, "debug", "json").Debug("hello", "k", "v")
	if !strings.Contains(buf.String(), `"msg":"hello"`) {
		t.Errorf("expected JSON debug line, got %q", buf.String())
	}
	buf.Reset()
	NewLogger(&buf, "warn", "text").Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("info should be filtered at warn level, got %q", buf.String())
	}
}
