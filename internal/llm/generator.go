// Package llm wraps the text-generation service behind a small interface,
// caches responses by content hash, and tracks call counts and estimated
// spend for every run.
package llm

import (
	"context"
	"fmt"
	"os"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// Tier selects the model class for a generation call.
type Tier string

const (
	// TierCheap is used for short, high-volume tasks like cluster naming.
	TierCheap Tier = "cheap"
	// TierCapable is used for longer synthesis like weekly briefs.
	TierCapable Tier = "capable"
)

// Generator produces text for a prompt. Implementations surface transport
// and quota failures as errors whose message the caller may inspect.
type Generator interface {
	Generate(ctx context.Context, tier Tier, prompt string) (string, error)
}

// OpenAIGenerator calls the OpenAI chat-completions API with a model per tier.
type OpenAIGenerator struct {
	client       openai.Client
	cheapModel   openai.ChatModel
	capableModel openai.ChatModel
}

// NewOpenAIGenerator builds a generator from the OPENAI_API_KEY environment
// variable, with gpt-4o-mini as the cheap tier and gpt-4o as the capable one.
func NewOpenAIGenerator() (*OpenAIGenerator, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is not set")
	}

	return &OpenAIGenerator{
		client:       openai.NewClient(option.WithAPIKey(apiKey)),
		cheapModel:   openai.ChatModelGPT4oMini,
		capableModel: openai.ChatModelGPT4o,
	}, nil
}

// Generate sends the prompt to the tier's model and returns the raw text.
func (g *OpenAIGenerator) Generate(ctx context.Context, tier Tier, prompt string) (string, error) {
	model := g.cheapModel
	if tier == TierCapable {
		model = g.capableModel
	}

	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from openai")
	}

	return resp.Choices[0].Message.Content, nil
}
