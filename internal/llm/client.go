// Package llm wraps the Gemini API for the one model capability the
// coaching tools need: embedding note text for similarity search.
package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

const embeddingModel = "text-embedding-004"

// Embedder provides text embedding capability.
type Embedder interface {
	// Embed generates an embedding vector for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Client wraps the Google GenAI client.
type Client struct {
	client *genai.Client
}

// NewClient creates an LLM client with the given API key.
func NewClient(ctx context.Context, apiKey string) (*Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &Client{client: client}, nil
}

// Embed generates an embedding vector for the given text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := c.client.Models.EmbedContent(ctx, embeddingModel, genai.Text(text), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to embed content: %w", err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}
	return resp.Embeddings[0].Values, nil
}

// Ensure Client implements Embedder
var _ Embedder = (*Client)(nil)
