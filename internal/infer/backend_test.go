package infer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/platform-resolver/pkg/anthropic"
	"github.com/sells-group/platform-resolver/pkg/gemini"
	"github.com/sells-group/platform-resolver/pkg/openai"
	"github.com/sells-group/platform-resolver/pkg/perplexity"
)

func TestOpenAIBackend_Propose(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gpt-4o-mini", body["model"])
		assert.InDelta(t, 0.1, body["temperature"], 0.001)
		assert.EqualValues(t, 200, body["max_tokens"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","model":"gpt-4o-mini","choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"https://www.yell.com/biz/acme/\n"}}]}`))
	}))
	defer srv.Close()

	b := &OpenAIBackend{Client: openai.NewClient("k", openai.WithBaseURL(srv.URL+"/"))}
	got, err := b.Propose(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "https://www.yell.com/biz/acme/", got)
	assert.Equal(t, "openai", b.Name())
}

func TestGeminiBackend_Propose(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "gemini-2.0-flash:generateContent")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"NOT_FOUND"}]}}]}`))
	}))
	defer srv.Close()

	b := &GeminiBackend{Client: gemini.NewClient("k", gemini.WithBaseURL(srv.URL))}
	got, err := b.Propose(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, NotFound, got)
}

func TestAnthropicBackend_Propose(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, anthropic.DefaultModel, body["model"])

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id": "msg_1", "type": "message", "role": "assistant", "model": anthropic.DefaultModel,
			"content":     []map[string]any{{"type": "text", "text": " https://www.checkatrade.com/trades/acme "}},
			"stop_reason": "end_turn",
			"usage":       map[string]any{"input_tokens": 10, "output_tokens": 5},
		})
	}))
	defer srv.Close()

	b := &AnthropicBackend{Client: anthropic.NewClient("k", anthropic.WithBaseURL(srv.URL))}
	got, err := b.Propose(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "https://www.checkatrade.com/trades/acme", got)
}

func TestPerplexityBackend_Propose(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"id":"p1","choices":[{"index":0,"message":{"role":"assistant","content":"https://www.ratedpeople.com/profile/acme"}}]}`))
	}))
	defer srv.Close()

	b := &PerplexityBackend{Client: perplexity.NewClient("k", perplexity.WithBaseURL(srv.URL))}
	got, err := b.Propose(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "https://www.ratedpeople.com/profile/acme", got)
}

func TestPerplexityBackend_EmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"id":"p1","choices":[]}`))
	}))
	defer srv.Close()

	b := &PerplexityBackend{Client: perplexity.NewClient("k", perplexity.WithBaseURL(srv.URL))}
	_, err := b.Propose(context.Background(), "prompt")
	require.Error(t, err)
}
