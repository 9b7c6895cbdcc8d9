// Package google adapts the Gemini API (google.golang.org/genai) to the
// perpetual chat and embedding interfaces.
package google

import (
	"context"
	"strings"

	ai "github.com/spetersoncode/perpetual"
	"google.golang.org/genai"
)

// Default models used when a request does not name one.
const (
	DefaultChatModel      = "gemini-2.5-flash"
	DefaultEmbeddingModel = "gemini-embedding-001"
)

// Client wraps the Google GenAI SDK to implement ai.ChatProvider and
// ai.EmbeddingProvider.
type Client struct {
	client *genai.Client
	model  string
}

// New creates a new Google GenAI client with the given API key.
func New(ctx context.Context, apiKey string, opts ...ClientOption) (*Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	c := &Client{
		client: client,
		model:  DefaultChatModel,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ClientOption configures the Google client.
type ClientOption func(*Client)

// WithModel sets the default model for requests.
func WithModel(model string) ClientOption {
	return func(c *Client) {
		c.model = model
	}
}

// Chat sends a conversation and returns a complete response.
func (c *Client) Chat(ctx context.Context, messages []ai.Message, opts ...ai.Option) (*ai.Response, error) {
	options := ai.ApplyOptions(opts...)
	model := c.model
	if options.Model != "" {
		model = options.Model
	}

	contents, system := convertMessages(messages)
	config := &genai.GenerateContentConfig{SystemInstruction: system}
	if options.MaxTokens > 0 {
		config.MaxOutputTokens = int32(options.MaxTokens)
	}
	if options.Temperature != nil {
		temp := float32(*options.Temperature)
		config.Temperature = &temp
	}
	if len(options.Tools) > 0 {
		config.Tools = convertTools(options.Tools)
		if options.ForceTool != "" {
			config.ToolConfig = forcedToolConfig(options.ForceTool)
		}
	}

	resp, err := c.client.Models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return nil, wrapError(err)
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return nil, &BlockedError{Reason: string(resp.PromptFeedback.BlockReason)}
	}

	var content strings.Builder
	var call *ai.FunctionCall
	var finish ai.FinishReason = ai.FinishOther
	if len(resp.Candidates) > 0 {
		candidate := resp.Candidates[0]
		if candidate.Content != nil {
			for _, part := range candidate.Content.Parts {
				content.WriteString(part.Text)
			}
			call = extractFunctionCall(candidate.Content.Parts)
		}
		finish = convertFinishReason(candidate.FinishReason, call != nil)
	}

	usage := ai.Usage{}
	if resp.UsageMetadata != nil {
		usage.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
		usage.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}

	return &ai.Response{
		Content:      content.String(),
		FinishReason: finish,
		Usage:        usage,
		FunctionCall: call,
	}, nil
}

// Gemini reports STOP for completed function calls as well as for text.
func convertFinishReason(reason genai.FinishReason, hasCall bool) ai.FinishReason {
	switch reason {
	case genai.FinishReasonStop:
		if hasCall {
			return ai.FinishToolCalls
		}
		return ai.FinishStop
	case genai.FinishReasonMaxTokens:
		return ai.FinishLength
	case genai.FinishReasonSafety, genai.FinishReasonProhibitedContent, genai.FinishReasonBlocklist:
		return ai.FinishContentFilter
	default:
		return ai.FinishOther
	}
}

var _ ai.ChatProvider = (*Client)(nil)
var _ ai.EmbeddingProvider = (*Client)(nil)
