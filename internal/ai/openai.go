package ai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const OpenAIModel = openai.ChatModelGPT4_1Mini

type OpenAIProvider struct {
	client      *openai.Client
	usage       Usage
	inputPrice  float64 // per 1M tokens
	outputPrice float64 // per 1M tokens
}

func NewOpenAIProvider(apiKey string, pricing RequestPricing) *OpenAIProvider {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAIProvider{
		client:      &client,
		inputPrice:  pricing.Input,
		outputPrice: pricing.Output,
	}
}

func (p *OpenAIProvider) Name() string {
	return OpenAIModel
}

func (p *OpenAIProvider) GetUsage() *Usage {
	return &p.usage
}

func (p *OpenAIProvider) ResetUsage() {
	p.usage = Usage{}
}

func (p *OpenAIProvider) trackUsage(inputTokens, outputTokens int64) {
	p.usage.InputTokens += int(inputTokens)
	p.usage.OutputTokens += int(outputTokens)
	p.usage.TotalCost += float64(inputTokens) / 1_000_000 * p.inputPrice
	p.usage.TotalCost += float64(outputTokens) / 1_000_000 * p.outputPrice
}

func (p *OpenAIProvider) GenerateText(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	messages := []openai.ChatCompletionMessageParamUnion{
		{
			OfSystem: &openai.ChatCompletionSystemMessageParam{
				Content: openai.ChatCompletionSystemMessageParamContentUnion{
					OfString: openai.String(systemPrompt),
				},
			},
		},
		{
			OfUser: &openai.ChatCompletionUserMessageParam{
				Content: openai.ChatCompletionUserMessageParamContentUnion{
					OfString: openai.String(userMessage),
				},
			},
		},
	}

	return p.complete(ctx, messages)
}

func (p *OpenAIProvider) DescribeImages(ctx context.Context, systemPrompt, userMessage string, images [][]byte) (string, error) {
	parts := []openai.ChatCompletionContentPartUnionParam{
		openai.TextContentPart(userMessage),
	}
	for _, img := range images {
		// Resize to max 800px to save costs
		resized, err := ResizeImage(img, 800)
		if err != nil {
			return "", fmt.Errorf("failed to resize image: %w", err)
		}
		imageURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(resized)
		parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
			URL:    imageURL,
			Detail: "low",
		}))
	}

	messages := []openai.ChatCompletionMessageParamUnion{
		{
			OfSystem: &openai.ChatCompletionSystemMessageParam{
				Content: openai.ChatCompletionSystemMessageParamContentUnion{
					OfString: openai.String(systemPrompt),
				},
			},
		},
		{
			OfUser: &openai.ChatCompletionUserMessageParam{
				Content: openai.ChatCompletionUserMessageParamContentUnion{
					OfArrayOfContentParts: parts,
				},
			},
		},
	}

	return p.complete(ctx, messages)
}

func (p *OpenAIProvider) complete(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion) (string, error) {
	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:     OpenAIModel,
		Messages:  messages,
		MaxTokens: openai.Int(1000),
	})
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("no response from OpenAI")
	}

	if resp.Usage.PromptTokens > 0 || resp.Usage.CompletionTokens > 0 {
		p.trackUsage(resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	}

	return resp.Choices[0].Message.Content, nil
}
