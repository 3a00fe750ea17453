// Package openai wraps the OpenAI chat completions API behind a small
// interface used as the first URL inference backend.
package openai

import (
	"context"
	"strings"

	sdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/rotisserie/eris"
)

// DefaultModel is used when a request leaves Model empty.
const DefaultModel = string(sdk.ChatModelGPT4oMini)

// Client defines the OpenAI operations used by the resolver.
type Client interface {
	ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// ChatRequest is a single-turn completion request.
type ChatRequest struct {
	Model       string
	System      string
	Prompt      string
	Temperature *float64
	MaxTokens   int64
}

// ChatResponse carries the first choice and token usage.
type ChatResponse struct {
	ID               string
	Model            string
	Content          string
	FinishReason     string
	PromptTokens     int64
	CompletionTokens int64
}

// Text returns the trimmed content of the first choice.
func (r *ChatResponse) Text() string {
	if r == nil {
		return ""
	}
	return strings.TrimSpace(r.Content)
}

// Option configures the SDK client.
type Option func(*[]option.RequestOption)

// WithBaseURL overrides the API base URL.
func WithBaseURL(url string) Option {
	return func(o *[]option.RequestOption) {
		if url != "" {
			*o = append(*o, option.WithBaseURL(url))
		}
	}
}

// WithOrganization sets the OpenAI-Organization header.
func WithOrganization(org string) Option {
	return func(o *[]option.RequestOption) {
		if org != "" {
			*o = append(*o, option.WithOrganization(org))
		}
	}
}

type sdkClient struct {
	client sdk.Client
}

// NewClient creates an OpenAI client. SDK retries are disabled; the
// inference chain falls through to the next backend instead.
func NewClient(apiKey string, opts ...Option) Client {
	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	for _, o := range opts {
		o(&reqOpts)
	}
	return &sdkClient{client: sdk.NewClient(reqOpts...)}
}

func (c *sdkClient) ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = DefaultModel
	}

	var msgs []sdk.ChatCompletionMessageParamUnion
	if req.System != "" {
		msgs = append(msgs, sdk.SystemMessage(req.System))
	}
	msgs = append(msgs, sdk.UserMessage(req.Prompt))

	params := sdk.ChatCompletionNewParams{
		Model:    sdk.ChatModel(model),
		Messages: msgs,
	}
	if req.Temperature != nil {
		params.Temperature = sdk.Float(*req.Temperature)
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = sdk.Int(req.MaxTokens)
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, eris.Wrap(err, "openai: chat completion")
	}
	if len(resp.Choices) == 0 {
		return nil, eris.New("openai: empty choices")
	}

	return &ChatResponse{
		ID:               resp.ID,
		Model:            resp.Model,
		Content:          resp.Choices[0].Message.Content,
		FinishReason:     resp.Choices[0].FinishReason,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}, nil
}
