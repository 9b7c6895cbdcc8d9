package perpetual

import "context"

// EmbeddingProvider defines the interface for AI embedding providers.
type EmbeddingProvider interface {
	// Embed generates embeddings for the provided texts.
	// Returns an error if texts is empty.
	Embed(ctx context.Context, texts []string, opts ...EmbeddingOption) (*EmbeddingResponse, error)
}

// EmbeddingResponse represents a complete response from an embedding provider.
type EmbeddingResponse struct {
	// Embeddings contains one embedding vector per input text.
	// The order matches the input texts order.
	Embeddings [][]float64
	// Usage contains token usage information.
	Usage Usage
}

// EmbeddingOptions contains configuration for an embedding request.
type EmbeddingOptions struct {
	Model      string
	Dimensions int
}

// EmbeddingOption is a functional option for configuring embedding requests.
type EmbeddingOption func(*EmbeddingOptions)

// WithEmbeddingModel sets the model to use for embedding generation.
func WithEmbeddingModel(model string) EmbeddingOption {
	return func(o *EmbeddingOptions) {
		o.Model = model
	}
}

// WithEmbeddingDimensions sets the output dimensions for the embedding vectors.
// Only text-embedding-3-* and Gemini embedding models honor it.
func WithEmbeddingDimensions(dims int) EmbeddingOption {
	return func(o *EmbeddingOptions) {
		o.Dimensions = dims
	}
}

// ApplyEmbeddingOptions applies functional options to an EmbeddingOptions struct.
func ApplyEmbeddingOptions(opts ...EmbeddingOption) *EmbeddingOptions {
	o := &EmbeddingOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
