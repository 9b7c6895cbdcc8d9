// Package llm is the model client of the agent. It routes chat requests to
// the provider that serves the requested model, fits the conversation into
// the model's context window, and wraps every call in a retry envelope that
// falls back to an operator acknowledgement once the attempts are spent.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	ai "github.com/spetersoncode/perpetual"
	"github.com/spetersoncode/perpetual/internal/provider/anthropic"
	"github.com/spetersoncode/perpetual/internal/provider/google"
	"github.com/spetersoncode/perpetual/internal/provider/openai"
	"github.com/spetersoncode/perpetual/internal/retry"
)

// DefaultReservedTokens is kept free for the completion when a request does
// not say otherwise.
const DefaultReservedTokens = 1024

// Acknowledger is asked what to do after a call failed every attempt.
// Returning true retries; false abandons the call with ErrAbandoned.
type Acknowledger = retry.Acknowledger

// APIKeys holds API keys for different providers.
// Only configure keys for providers you intend to use.
type APIKeys struct {
	Anthropic string
	OpenAI    string
	Google    string
}

// Config holds configuration for creating a client.
type Config struct {
	APIKeys APIKeys

	// Model is the chat model used when a request does not name one.
	Model string

	// EmbeddingModel selects the embedding provider and model.
	EmbeddingModel string

	// ReservedTokens is subtracted from the context limit of every request.
	// Zero means DefaultReservedTokens.
	ReservedTokens int

	// ModelLimits overrides the built-in context limit per model ID.
	ModelLimits map[string]int

	// Temperature applies to requests that do not set their own.
	Temperature *float64

	// RetryConfig configures retry behavior for transient errors.
	// If nil, five attempts with a short exponential backoff are used.
	RetryConfig *retry.Config
}

// Client is a chat and embedding client with token budgeting and retries.
// Provider clients are lazily initialized when first needed.
type Client struct {
	apiKeys        APIKeys
	model          string
	embeddingModel string
	reserved       int
	limits         map[string]int
	temperature    *float64
	retryConfig    retry.Config
	ack            Acknowledger
	logger         *slog.Logger
	fixedTokenizer Tokenizer

	mu         sync.RWMutex
	providers  map[ai.Provider]ai.ChatProvider
	embedder   ai.EmbeddingProvider
	tokenizers sync.Map // model ID -> Tokenizer
}

// Option configures a Client.
type Option func(*Client)

// WithAcknowledger sets the operator hook consulted after exhausted retries.
// Without one, exhausted calls are abandoned immediately.
func WithAcknowledger(ack Acknowledger) Option {
	return func(c *Client) {
		c.ack = ack
	}
}

// WithLogger sets the logger for budgeting and retry diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithChatProvider installs a chat back-end for a provider instead of
// building one from an API key.
func WithChatProvider(p ai.Provider, provider ai.ChatProvider) Option {
	return func(c *Client) {
		c.providers[p] = provider
	}
}

// WithEmbeddingProvider installs the embedding back-end instead of building
// one from an API key.
func WithEmbeddingProvider(provider ai.EmbeddingProvider) Option {
	return func(c *Client) {
		c.embedder = provider
	}
}

// WithTokenizer uses tok for every model instead of the BPE encodings.
func WithTokenizer(tok Tokenizer) Option {
	return func(c *Client) {
		c.fixedTokenizer = tok
	}
}

// New creates a client with the given configuration.
func New(cfg Config, opts ...Option) *Client {
	retryConfig := retry.DefaultConfig()
	if cfg.RetryConfig != nil {
		retryConfig = *cfg.RetryConfig
	}
	reserved := cfg.ReservedTokens
	if reserved <= 0 {
		reserved = DefaultReservedTokens
	}

	c := &Client{
		apiKeys:        cfg.APIKeys,
		model:          cfg.Model,
		embeddingModel: cfg.EmbeddingModel,
		reserved:       reserved,
		limits:         cfg.ModelLimits,
		temperature:    cfg.Temperature,
		retryConfig:    retryConfig,
		logger:         slog.Default(),
		providers:      make(map[ai.Provider]ai.ChatProvider),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Model returns the default chat model.
func (c *Client) Model() string { return c.model }

// EmbeddingModel returns the configured embedding model.
func (c *Client) EmbeddingModel() string { return c.embeddingModel }

// Budget returns the prompt token budget of a model after reserving
// reserved tokens. A non-positive reserved uses the client default.
func (c *Client) Budget(model string, reserved int) (int, error) {
	info, err := LookupModel(model, c.limits)
	if err != nil {
		return 0, err
	}
	if reserved <= 0 {
		reserved = c.reserved
	}
	return info.ContextLimit - reserved, nil
}

// Tokenizer returns the tokenizer used to budget requests to model.
func (c *Client) Tokenizer(model string) (Tokenizer, error) {
	if c.fixedTokenizer != nil {
		return c.fixedTokenizer, nil
	}
	if tok, ok := c.tokenizers.Load(model); ok {
		return tok.(Tokenizer), nil
	}
	tok, err := NewTokenizer(model)
	if err != nil {
		return nil, err
	}
	actual, _ := c.tokenizers.LoadOrStore(model, tok)
	return actual.(Tokenizer), nil
}

// Chat fits messages into the model's budget and sends them, retrying
// transient failures. The submitted conversation never exceeds the context
// limit minus the reserved tokens.
func (c *Client) Chat(ctx context.Context, messages []ai.Message, opts ...ai.Option) (*ai.Response, error) {
	options := ai.ApplyOptions(opts...)
	model := options.Model
	if model == "" {
		model = c.model
	}

	info, err := LookupModel(model, c.limits)
	if err != nil {
		return nil, err
	}
	provider, err := c.chatProvider(ctx, info)
	if err != nil {
		return nil, err
	}
	tok, err := c.Tokenizer(model)
	if err != nil {
		return nil, err
	}

	budget, _ := c.Budget(model, options.ReservedTokens)
	fitted, err := Fit(tok, messages, options.Tools, budget)
	if err != nil {
		return nil, err
	}
	if dropped := len(messages) - len(fitted); dropped > 0 {
		c.logger.Debug("conversation truncated", "model", model, "budget", budget, "dropped", dropped)
	}

	callOpts := append([]ai.Option{}, opts...)
	callOpts = append(callOpts, ai.WithModel(model))
	if options.Temperature == nil && c.temperature != nil {
		callOpts = append(callOpts, ai.WithTemperature(*c.temperature))
	}

	return retry.DoWithAck(ctx, c.retryConfig, c.ack, c.observe("chat", model), func() (*ai.Response, error) {
		return provider.Chat(ctx, fitted, callOpts...)
	})
}

// Embed returns one vector per text using the configured embedding model.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	embedder, err := c.embeddingProvider()
	if err != nil {
		return nil, err
	}
	resp, err := retry.DoWithAck(ctx, c.retryConfig, c.ack, c.observe("embed", c.embeddingModel), func() (*ai.EmbeddingResponse, error) {
		return embedder.Embed(ctx, texts, ai.WithEmbeddingModel(c.embeddingModel))
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embedding returned %d vectors for %d texts", len(resp.Embeddings), len(texts))
	}
	return resp.Embeddings, nil
}

func (c *Client) observe(op, model string) retry.Observer {
	return func(e retry.Event) {
		switch e.Type {
		case retry.EventAttemptFailed:
			c.logger.Warn("model call failed", "op", op, "model", model,
				"attempt", e.Attempt, "max", e.MaxAttempts, "round", e.Round,
				"retryable", e.Retryable, "status", ai.StatusCodeOf(e.Error), "error", e.Error)
		case retry.EventExhausted:
			c.logger.Error("model call exhausted retries", "op", op, "model", model, "round", e.Round, "error", e.Error)
		case retry.EventResumed:
			c.logger.Info("operator resumed model call", "op", op, "model", model, "round", e.Round)
		case retry.EventAbandoned:
			c.logger.Error("operator abandoned model call", "op", op, "model", model, "error", e.Error)
		}
	}
}

// chatProvider returns the provider client for a model, initializing it if needed.
func (c *Client) chatProvider(ctx context.Context, info ModelInfo) (ai.ChatProvider, error) {
	c.mu.RLock()
	p, ok := c.providers[info.Provider]
	c.mu.RUnlock()
	if ok {
		return p, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.providers[info.Provider]; ok {
		return p, nil
	}

	switch info.Provider {
	case ai.ProviderOpenAI:
		if c.apiKeys.OpenAI == "" {
			return nil, &MissingAPIKeyError{Provider: "openai", Model: info.ID}
		}
		p = openai.New(c.apiKeys.OpenAI)
	case ai.ProviderAnthropic:
		if c.apiKeys.Anthropic == "" {
			return nil, &MissingAPIKeyError{Provider: "anthropic", Model: info.ID}
		}
		p = anthropic.New(c.apiKeys.Anthropic)
	case ai.ProviderGoogle:
		if c.apiKeys.Google == "" {
			return nil, &MissingAPIKeyError{Provider: "google", Model: info.ID}
		}
		g, err := google.New(ctx, c.apiKeys.Google)
		if err != nil {
			return nil, fmt.Errorf("init google client: %w", err)
		}
		p = g
	default:
		return nil, &UnknownModelError{Model: info.ID}
	}
	c.providers[info.Provider] = p
	return p, nil
}

// EmbeddingProviderOf reports which provider serves an embedding model.
func EmbeddingProviderOf(model string) ai.Provider {
	switch {
	case strings.HasPrefix(model, "gemini-"),
		strings.HasPrefix(model, "embedding-"),
		strings.HasPrefix(model, "text-embedding-00"),
		strings.HasPrefix(model, "text-multilingual-embedding"):
		return ai.ProviderGoogle
	default:
		return ai.ProviderOpenAI
	}
}

func (c *Client) embeddingProvider() (ai.EmbeddingProvider, error) {
	c.mu.RLock()
	e := c.embedder
	c.mu.RUnlock()
	if e != nil {
		return e, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.embedder != nil {
		return c.embedder, nil
	}

	switch EmbeddingProviderOf(c.embeddingModel) {
	case ai.ProviderGoogle:
		if c.apiKeys.Google == "" {
			return nil, &MissingAPIKeyError{Provider: "google", Model: c.embeddingModel}
		}
		g, err := google.New(context.Background(), c.apiKeys.Google)
		if err != nil {
			return nil, fmt.Errorf("init google client: %w", err)
		}
		c.embedder = g
	default:
		if c.apiKeys.OpenAI == "" {
			return nil, &MissingAPIKeyError{Provider: "openai", Model: c.embeddingModel}
		}
		c.embedder = openai.New(c.apiKeys.OpenAI)
	}
	return c.embedder, nil
}
