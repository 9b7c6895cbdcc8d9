package google

import (
	"context"
	"fmt"

	ai "github.com/spetersoncode/perpetual"
	"google.golang.org/genai"
)

// Embed generates embeddings for the provided texts using Google's embedding API.
func (c *Client) Embed(ctx context.Context, texts []string, opts ...ai.EmbeddingOption) (*ai.EmbeddingResponse, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: at least one text is required for embedding", ai.ErrEmptyInput)
	}

	options := ai.ApplyEmbeddingOptions(opts...)
	model := DefaultEmbeddingModel
	if options.Model != "" {
		model = options.Model
	}

	config := &genai.EmbedContentConfig{TaskType: "SEMANTIC_SIMILARITY"}
	if options.Dimensions > 0 {
		dims := int32(options.Dimensions)
		config.OutputDimensionality = &dims
	}

	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = &genai.Content{Parts: []*genai.Part{{Text: text}}}
	}

	resp, err := c.client.Models.EmbedContent(ctx, model, contents, config)
	if err != nil {
		return nil, wrapError(err)
	}

	embeddings := make([][]float64, len(resp.Embeddings))
	for i, emb := range resp.Embeddings {
		embeddings[i] = make([]float64, len(emb.Values))
		for j, v := range emb.Values {
			embeddings[i][j] = float64(v)
		}
	}

	// Gemini does not report token usage for embeddings
	return &ai.EmbeddingResponse{Embeddings: embeddings}, nil
}
