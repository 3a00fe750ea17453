package infer

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/platform-resolver/pkg/anthropic"
	"github.com/sells-group/platform-resolver/pkg/gemini"
	"github.com/sells-group/platform-resolver/pkg/openai"
	"github.com/sells-group/platform-resolver/pkg/perplexity"
)

// Generation settings shared by every backend.
const (
	temperature = 0.1
	maxTokens   = 200
)

// Backend proposes a URL for a prompt. Implementations return the trimmed
// model answer; judging it is the Resolver's job.
type Backend interface {
	Name() string
	Propose(ctx context.Context, prompt string) (string, error)
}

// OpenAIBackend adapts an OpenAI chat client.
type OpenAIBackend struct {
	Client openai.Client
	Model  string
}

func (b *OpenAIBackend) Name() string { return "openai" }

func (b *OpenAIBackend) Propose(ctx context.Context, prompt string) (string, error) {
	t := temperature
	resp, err := b.Client.ChatCompletion(ctx, openai.ChatRequest{
		Model:       b.Model,
		Prompt:      prompt,
		Temperature: &t,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

// GeminiBackend adapts a Gemini generateContent client.
type GeminiBackend struct {
	Client gemini.Client
	Model  string
}

func (b *GeminiBackend) Name() string { return "gemini" }

func (b *GeminiBackend) Propose(ctx context.Context, prompt string) (string, error) {
	t := temperature
	resp, err := b.Client.GenerateContent(ctx, gemini.GenerateRequest{
		Model:           b.Model,
		Prompt:          prompt,
		Temperature:     &t,
		MaxOutputTokens: maxTokens,
	})
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

// AnthropicBackend adapts an Anthropic Messages client.
type AnthropicBackend struct {
	Client anthropic.Client
	Model  string
}

func (b *AnthropicBackend) Name() string { return "anthropic" }

func (b *AnthropicBackend) Propose(ctx context.Context, prompt string) (string, error) {
	t := temperature
	model := b.Model
	if model == "" {
		model = anthropic.DefaultModel
	}
	resp, err := b.Client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       model,
		MaxTokens:   maxTokens,
		Messages:    []anthropic.Message{{Role: "user", Content: prompt}},
		Temperature: &t,
	})
	if err != nil {
		return "", err
	}
	resp.Usage.LogCost(model)
	return strings.TrimSpace(resp.Text()), nil
}

// PerplexityBackend adapts a Perplexity chat client.
type PerplexityBackend struct {
	Client perplexity.Client
	Model  string
}

func (b *PerplexityBackend) Name() string { return "perplexity" }

func (b *PerplexityBackend) Propose(ctx context.Context, prompt string) (string, error) {
	t, n := temperature, maxTokens
	resp, err := b.Client.ChatCompletion(ctx, perplexity.ChatCompletionRequest{
		Model:       b.Model,
		Messages:    []perplexity.Message{{Role: "user", Content: prompt}},
		Temperature: &t,
		MaxTokens:   &n,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", eris.New("perplexity: empty choices")
	}
	return resp.Text(), nil
}
