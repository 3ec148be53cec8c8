package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"

	openai "github.com/sashabaranov/go-openai"

	"ragqa/internal/domain"
	"ragqa/internal/retry"
)

// Client is an OpenAI-compatible embeddings client implementing embedding.Embedder.
type Client struct {
	client *openai.Client
	model  string
	policy retry.Policy
}

// Config configures the OpenAI-compatible embeddings client.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Policy  retry.Policy
	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client
}

// NewClient creates a new embeddings client using the provided configuration.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai embedder: missing API key")
	}
	if cfg.Model == "" {
		cfg.Model = string(openai.SmallEmbedding3)
	}
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	if cfg.HTTPClient != nil {
		oc.HTTPClient = cfg.HTTPClient
	}
	return &Client{
		client: openai.NewClientWithConfig(oc),
		model:  cfg.Model,
		policy: cfg.Policy,
	}, nil
}

// Name returns the identifier of this embedder implementation.
func (c *Client) Name() string { return "openai:" + c.model }

// Embed sends all texts in one request and returns vectors in input order.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	var resp openai.EmbeddingResponse
	attempts, err := retry.Do(ctx, c.policy, retryable, func(ctx context.Context) error {
		var err error
		resp, err = c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: texts,
			Model: openai.EmbeddingModel(c.model),
		})
		return err
	})
	if err != nil {
		return nil, &domain.ProviderError{Provider: "openai", Op: "embeddings", Attempts: attempts, Err: err}
	}
	if len(resp.Data) != len(texts) {
		return nil, &domain.ProviderError{
			Provider: "openai",
			Op:       "embeddings",
			Attempts: attempts,
			Err:      fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data)),
		}
	}
	data := resp.Data
	sort.Slice(data, func(i, j int) bool { return data[i].Index < data[j].Index })
	out := make([][]float32, len(data))
	for i, d := range data {
		if len(d.Embedding) == 0 {
			return nil, &domain.ProviderError{Provider: "openai", Op: "embeddings", Attempts: attempts, Err: errors.New("empty embedding")}
		}
		out[i] = d.Embedding
	}
	return out, nil
}

func retryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return retry.StatusRetryable(apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return retry.StatusRetryable(reqErr.HTTPStatusCode)
	}
	return retry.Transient(err)
}
