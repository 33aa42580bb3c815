package llm

import (
	"context"

	"snaplister/internal/listing"
)

// ImageInput is one product photo handed to the generation call.
type ImageInput struct {
	Data     []byte
	MIMEType string
}

// Usage contains token usage and cost information for one model call.
type Usage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
	CostUSD      float64
}

// GenerationResult is the raw outcome of a generation call: the model's text
// reply plus the grounding citations it consulted.
type GenerationResult struct {
	RawText string
	Sources []listing.Source
	Usage   Usage
}

// Generator produces and refines marketplace listings via a multimodal model.
type Generator interface {
	// GenerateListing analyzes product images and returns the model's raw
	// reply together with normalized grounding citations. When categories is
	// non-empty the model is instructed to pick only from that vocabulary.
	GenerateListing(ctx context.Context, images []ImageInput, categories []string) (*GenerationResult, error)
	// RefineListing applies a free-text instruction to the given listing JSON
	// and returns the raw reply, expected to contain the full replacement
	// object. Refinement does not re-ground, so no citations are returned.
	RefineListing(ctx context.Context, listingJSON string, instruction string) (string, error)
}
