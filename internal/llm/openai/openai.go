package openai

import (
	"context"
	"errors"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"ragqa/internal/domain"
	"ragqa/internal/llm"
	"ragqa/internal/retry"
)

// Client implements llm.Provider on top of the chat completions API.
type Client struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	policy      retry.Policy
}

// Config configures the chat client.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float32
	MaxTokens   int
	Policy      retry.Policy
	HTTPClient  *http.Client
}

// NewClient creates a chat completions client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai llm: missing API key")
	}
	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	if cfg.HTTPClient != nil {
		oc.HTTPClient = cfg.HTTPClient
	}
	return &Client{
		client:      openai.NewClientWithConfig(oc),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		policy:      cfg.Policy,
	}, nil
}

func (c *Client) Name() string { return "openai:" + c.model }

// Complete sends one chat request and returns the first choice verbatim.
func (c *Client) Complete(ctx context.Context, prompt llm.Prompt) (string, error) {
	system := prompt.System
	if system == "" {
		system = llm.DefaultSystemPrompt
	}
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt.UserMessage()},
		},
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}
	var resp openai.ChatCompletionResponse
	attempts, err := retry.Do(ctx, c.policy, retryable, func(ctx context.Context) error {
		var err error
		resp, err = c.client.CreateChatCompletion(ctx, req)
		return err
	})
	if err != nil {
		return "", &domain.ProviderError{Provider: "openai", Op: "chat completion", Attempts: attempts, Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &domain.ProviderError{Provider: "openai", Op: "chat completion", Attempts: attempts, Err: errors.New("no choices returned")}
	}
	return resp.Choices[0].Message.Content, nil
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
