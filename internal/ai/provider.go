package ai

import "context"

// Provider defines the interface for generative AI backends.
type Provider interface {
	Name() string

	// GenerateText sends a text-only prompt and returns the raw model output.
	GenerateText(ctx context.Context, systemPrompt, userMessage string) (string, error)

	// DescribeImages sends a prompt together with JPEG images and returns
	// the raw model output.
	DescribeImages(ctx context.Context, systemPrompt, userMessage string, images [][]byte) (string, error)

	// Usage tracking.
	GetUsage() *Usage
	ResetUsage()
}

// Usage tracks token usage and calculates cost.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalCost    float64 // in USD
}

// RequestPricing holds input/output prices per 1M tokens.
type RequestPricing struct {
	Input  float64
	Output float64
}
