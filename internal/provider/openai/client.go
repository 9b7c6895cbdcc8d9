// Package openai adapts the OpenAI SDK to the perpetual chat and embedding
// interfaces.
package openai

import (
	"context"
	"errors"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	ai "github.com/spetersoncode/perpetual"
)

// Default models used when a request does not name one.
const (
	DefaultChatModel      = "gpt-4o-mini"
	DefaultEmbeddingModel = "text-embedding-3-small"
)

// Client wraps the OpenAI SDK to implement ai.ChatProvider and
// ai.EmbeddingProvider.
type Client struct {
	client *openai.Client
	model  string
}

// New creates a new OpenAI client with the given API key.
func New(apiKey string, opts ...ClientOption) *Client {
	c := &Client{model: DefaultChatModel}
	requestOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	for _, opt := range opts {
		opt(c, &requestOpts)
	}
	client := openai.NewClient(requestOpts...)
	c.client = &client
	return c
}

// ClientOption configures the OpenAI client.
type ClientOption func(*Client, *[]option.RequestOption)

// WithModel sets the default model for requests.
func WithModel(model string) ClientOption {
	return func(c *Client, _ *[]option.RequestOption) {
		c.model = model
	}
}

// WithBaseURL points the client at an OpenAI-compatible endpoint.
func WithBaseURL(url string) ClientOption {
	return func(_ *Client, ro *[]option.RequestOption) {
		*ro = append(*ro, option.WithBaseURL(url))
	}
}

// Chat sends a conversation and returns a complete response.
func (c *Client) Chat(ctx context.Context, messages []ai.Message, opts ...ai.Option) (*ai.Response, error) {
	options := ai.ApplyOptions(opts...)
	model := c.model
	if options.Model != "" {
		model = options.Model
	}

	params := openai.ChatCompletionNewParams{
		Model:    model,
		Messages: convertMessages(messages),
	}
	if options.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(options.MaxTokens))
	}
	if options.Temperature != nil {
		params.Temperature = openai.Float(*options.Temperature)
	}
	if len(options.Tools) > 0 {
		params.Tools = convertTools(options.Tools)
		if options.ForceTool != "" {
			params.ToolChoice = forcedToolChoice(options.ForceTool)
		}
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, wrapError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, ai.NewTransientError("openai: response has no choices", 0, errors.New("empty choices"))
	}

	choice := resp.Choices[0]
	return &ai.Response{
		Content:      choice.Message.Content,
		FinishReason: convertFinishReason(choice.FinishReason),
		Usage: ai.Usage{
			InputTokens:  int(resp.Usage.PromptTokens),
			OutputTokens: int(resp.Usage.CompletionTokens),
		},
		FunctionCall: extractFunctionCall(choice.Message),
	}, nil
}

func convertFinishReason(reason string) ai.FinishReason {
	switch reason {
	case "stop":
		return ai.FinishStop
	case "tool_calls", "function_call":
		return ai.FinishToolCalls
	case "length":
		return ai.FinishLength
	case "content_filter":
		return ai.FinishContentFilter
	default:
		return ai.FinishOther
	}
}

var _ ai.ChatProvider = (*Client)(nil)
var _ ai.EmbeddingProvider = (*Client)(nil)
