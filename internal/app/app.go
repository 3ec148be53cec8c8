// Package app assembles the question answering pipeline from an AppConfig.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"ragqa/internal/cache"
	"ragqa/internal/chunker"
	"ragqa/internal/config"
	"ragqa/internal/corpus"
	"ragqa/internal/domain"
	"ragqa/internal/embedding"
	"ragqa/internal/embedding/hashing"
	embopenai "ragqa/internal/embedding/openai"
	"ragqa/internal/llm"
	"ragqa/internal/llm/extractive"
	llmopenai "ragqa/internal/llm/openai"
	"ragqa/internal/retry"
	"ragqa/internal/service"
	"ragqa/internal/vectorstore"
)

// App owns the components built from one configuration.
type App struct {
	cfg      *config.AppConfig
	logger   *slog.Logger
	embedder embedding.Embedder
	cache    *cache.Manager
	provider llm.Provider
	store    vectorstore.Storage
}

// New validates cfg and builds the indexing components. The language model
// provider is created on first use so indexing works without one.
func New(cfg *config.AppConfig, logger *slog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	emb, err := newEmbedder(cfg)
	if err != nil {
		return nil, err
	}
	var ch cache.Chunker
	switch cfg.Chunker.Type {
	case "recursive":
		ch = chunker.NewRecursiveChunker(cfg.Chunker.ChunkSize, cfg.Chunker.ChunkOverlap)
	default:
		return nil, fmt.Errorf("unknown chunker: %s", cfg.Chunker.Type)
	}
	mgr := cache.NewManager(
		corpus.NewLoader(cfg.Corpus.Dir, cfg.Corpus.Ext),
		ch,
		emb,
		cache.Options{
			IndexDir:      cfg.Index.Dir,
			Format:        cfg.Index.Format,
			BatchSize:     cfg.Embedder.BatchSize,
			TrustSnapshot: cfg.Index.TrustSnapshot,
		},
		logger.With("component", "cache"),
	)
	return &App{cfg: cfg, logger: logger, embedder: emb, cache: mgr}, nil
}

// Index obtains the index for the configured corpus. With rebuild set any
// existing snapshot is ignored. A failed save is reported in Result.SaveErr.
func (a *App) Index(ctx context.Context, rebuild bool) (*cache.Result, error) {
	var (
		res *cache.Result
		err error
	)
	if rebuild {
		res, err = a.cache.Rebuild(ctx, a.cfg.Corpus.Name)
	} else {
		res, err = a.cache.Obtain(ctx, a.cfg.Corpus.Name)
	}
	if err != nil {
		return nil, err
	}
	a.store = res.Storage
	a.logger.Info("index ready", "corpus", a.cfg.Corpus.Name, "source", res.Source, "chunks", res.Storage.Len())
	return res, nil
}

// Ask answers one question against the index, obtaining it first if needed.
func (a *App) Ask(ctx context.Context, question string) (*domain.Answer, error) {
	if strings.TrimSpace(question) == "" {
		return nil, domain.ErrEmptyQuery
	}
	if a.store == nil {
		if _, err := a.Index(ctx, false); err != nil {
			return nil, err
		}
	}
	if a.provider == nil {
		p, err := newProvider(a.cfg)
		if err != nil {
			return nil, err
		}
		a.provider = p
	}
	svc := service.NewRAGService(a.embedder, a.store, a.provider, service.Options{
		TopK:         a.cfg.Retrieval.TopK,
		SystemPrompt: a.cfg.LLM.SystemPrompt,
	}, a.logger.With("component", "service"))
	return svc.Answer(ctx, question)
}

func policy(cfg *config.AppConfig) retry.Policy {
	p := retry.DefaultPolicy()
	p.MaxRetries = cfg.Provider.MaxRetries
	p.Delay = cfg.Provider.RetryDelay()
	p.Timeout = cfg.Provider.Timeout()
	return p
}

func newEmbedder(cfg *config.AppConfig) (embedding.Embedder, error) {
	switch cfg.Embedder.Type {
	case "hashing":
		dim := 0
		if cfg.Embedder.Hashing != nil {
			dim = cfg.Embedder.Hashing.Dimension
		}
		return hashing.NewEmbedder(dim), nil
	case "openai":
		if cfg.Embedder.OpenAI == nil {
			return nil, fmt.Errorf("openai embedder config missing")
		}
		client, err := embopenai.NewClient(embopenai.Config{
			BaseURL: cfg.Embedder.OpenAI.BaseURL,
			APIKey:  cfg.EmbedderAPIKey,
			Model:   cfg.Embedder.OpenAI.Model,
			Policy:  policy(cfg),
		})
		if err != nil {
			return nil, fmt.Errorf("%w (set %s)", err, cfg.Embedder.OpenAI.APIKeyEnv)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Embedder.Type)
	}
}

func newProvider(cfg *config.AppConfig) (llm.Provider, error) {
	switch cfg.LLM.Type {
	case "extractive":
		n := 0
		if cfg.LLM.Extractive != nil {
			n = cfg.LLM.Extractive.MaxSentences
		}
		return extractive.New(n), nil
	case "openai":
		if cfg.LLM.OpenAI == nil {
			return nil, fmt.Errorf("openai llm config missing")
		}
		client, err := llmopenai.NewClient(llmopenai.Config{
			BaseURL:     cfg.LLM.OpenAI.BaseURL,
			APIKey:      cfg.LLMAPIKey,
			Model:       cfg.LLM.OpenAI.Model,
			Temperature: cfg.LLM.OpenAI.Temperature,
			MaxTokens:   cfg.LLM.OpenAI.MaxTokens,
			Policy:      policy(cfg),
		})
		if err != nil {
			return nil, fmt.Errorf("%w (set %s)", err, cfg.LLM.OpenAI.APIKeyEnv)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown llm: %s", cfg.LLM.Type)
	}
}

// NewLogger returns a slog logger writing to w in the given format ("text" or "json").
func NewLogger(w io.Writer, level, format string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
