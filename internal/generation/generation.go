// Package generation wraps the chat-completion backend used to produce
// answers. The client speaks the OpenAI chat API and defaults to Groq's
// compatible endpoint, so any OpenAI-compatible provider works by pointing
// GENERATION_BASE_URL elsewhere.
package generation

import (
	"context"
	"fmt"
	"os"
	"strconv"

	openai "github.com/sashabaranov/go-openai"
)

// Defaults for the generation backend. Temperature is kept low so answers
// stay grounded in the retrieved context instead of improvising.
const (
	DefaultBaseURL     = "https://api.groq.com/openai/v1"
	DefaultModel       = "llama-3.1-8b-instant"
	DefaultMaxTokens   = 1000
	DefaultTemperature = 0.1
)

// Config holds the generation backend settings.
type Config struct {
	// BaseURL is the OpenAI-compatible API root.
	BaseURL string
	// APIKey authenticates against the backend.
	APIKey string
	// Model is the chat model identifier.
	Model string
	// MaxTokens caps the completion length.
	MaxTokens int
	// Temperature controls sampling randomness.
	Temperature float32
}

// Client generates answers via an OpenAI-compatible chat API.
type Client struct {
	api *openai.Client
	cfg Config
}

// NewClient builds a generation client. Zero-valued config fields fall back
// to the package defaults; APIKey has no default and must be set.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("generation: missing API key — set GROQ_API_KEY")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = DefaultTemperature
	}

	apiCfg := openai.DefaultConfig(cfg.APIKey)
	apiCfg.BaseURL = cfg.BaseURL

	return &Client{
		api: openai.NewClientWithConfig(apiCfg),
		cfg: cfg,
	}, nil
}

// NewClientFromEnv builds a generation client from environment variables:
// GROQ_API_KEY, GENERATION_BASE_URL, GENERATION_MODEL, GENERATION_MAX_TOKENS
// and GENERATION_TEMPERATURE.
func NewClientFromEnv() (*Client, error) {
	cfg := Config{
		BaseURL: os.Getenv("GENERATION_BASE_URL"),
		APIKey:  os.Getenv("GROQ_API_KEY"),
		Model:   os.Getenv("GENERATION_MODEL"),
	}
	if v := os.Getenv("GENERATION_MAX_TOKENS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxTokens = n
		}
	}
	if v := os.Getenv("GENERATION_TEMPERATURE"); v != "" {
		if f, err := strconv.ParseFloat(v, 32); err == nil {
			cfg.Temperature = float32(f)
		}
	}
	return NewClient(cfg)
}

// Model returns the configured chat model identifier.
func (c *Client) Model() string { return c.cfg.Model }

// Generate runs one chat completion with the given system and user prompts
// and returns the model's reply text.
func (c *Client) Generate(ctx context.Context, system, user string) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		return "", fmt.Errorf("generation: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("generation: backend returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// Ping verifies the backend is reachable and the credential is accepted by
// listing available models. Used by the readiness probe.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.api.ListModels(ctx); err != nil {
		return fmt.Errorf("generation: backend unreachable: %w", err)
	}
	return nil
}
