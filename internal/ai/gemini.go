package ai

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

const GeminiModel = "gemini-2.5-flash"

type GeminiProvider struct {
	client      *genai.Client
	usage       Usage
	inputPrice  float64 // per 1M tokens
	outputPrice float64 // per 1M tokens
}

func NewGeminiProvider(ctx context.Context, apiKey string, pricing RequestPricing) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiProvider{
		client:      client,
		inputPrice:  pricing.Input,
		outputPrice: pricing.Output,
	}, nil
}

func (p *GeminiProvider) Name() string {
	return GeminiModel
}

func (p *GeminiProvider) GetUsage() *Usage {
	return &p.usage
}

func (p *GeminiProvider) ResetUsage() {
	p.usage = Usage{}
}

func (p *GeminiProvider) trackUsage(inputTokens, outputTokens int32) {
	p.usage.InputTokens += int(inputTokens)
	p.usage.OutputTokens += int(outputTokens)
	p.usage.TotalCost += float64(inputTokens) / 1_000_000 * p.inputPrice
	p.usage.TotalCost += float64(outputTokens) / 1_000_000 * p.outputPrice
}

func (p *GeminiProvider) GenerateText(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: systemPrompt + "\n\n" + userMessage},
			},
		},
	}

	return p.generate(ctx, contents)
}

func (p *GeminiProvider) DescribeImages(ctx context.Context, systemPrompt, userMessage string, images [][]byte) (string, error) {
	parts := []*genai.Part{
		{Text: systemPrompt + "\n\n" + userMessage},
	}
	for _, img := range images {
		// Resize to max 800px to save costs
		resized, err := ResizeImage(img, 800)
		if err != nil {
			return "", fmt.Errorf("failed to resize image: %w", err)
		}
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{Data: resized, MIMEType: "image/jpeg"},
		})
	}

	contents := []*genai.Content{{Role: "user", Parts: parts}}

	return p.generate(ctx, contents)
}

func (p *GeminiProvider) generate(ctx context.Context, contents []*genai.Content) (string, error) {
	result, err := p.client.Models.GenerateContent(ctx, GeminiModel, contents, nil)
	if err != nil {
		return "", fmt.Errorf("gemini API error: %w", err)
	}

	if result.UsageMetadata != nil {
		p.trackUsage(result.UsageMetadata.PromptTokenCount, result.UsageMetadata.CandidatesTokenCount)
	}

	content := result.Text()
	if content == "" {
		return "", errors.New("no response from Gemini")
	}

	return content, nil
}
