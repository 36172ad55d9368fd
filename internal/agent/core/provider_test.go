package core

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mohammad-safakhou/newsbot/config"
)

func openaiTestConfig(baseURL string) config.LLMProvider {
	return config.LLMProvider{
		Type:    "openai",
		APIKey:  "sk-test",
		BaseURL: baseURL,
		Timeout: 5 * time.Second,
		Models: map[string]config.LLMModel{
			"gpt-4o-mini": {
				Name:            "gpt-4o-mini",
				APIName:         "gpt-4o-mini",
				MaxTokens:       1000,
				CostPer1K:       0.00015,
				CostPer1KOutput: 0.0006,
			},
		},
	}
}

func TestOpenAIGenerateWithTokens(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("missing auth header, got %q", got)
		}
		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Model != "gpt-4o-mini" || len(req.Messages) != 1 || req.Messages[0].Content != "hello" {
			t.Errorf("unexpected request: %+v", req)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": "world"}},
			},
			"usage": map[string]int{"prompt_tokens": 12, "completion_tokens": 3},
		})
	}))
	defer srv.Close()

	p := NewOpenAIProvider(openaiTestConfig(srv.URL))
	out, in, outTok, err := p.GenerateWithTokens(context.Background(), "hello", "gpt-4o-mini", nil)
	if err != nil {
		t.Fatalf("GenerateWithTokens: %v", err)
	}
	if out != "world" || in != 12 || outTok != 3 {
		t.Fatalf("unexpected result: %q in=%d out=%d", out, in, outTok)
	}
}

func TestOpenAIUnknownModel(t *testing.T) {
	p := NewOpenAIProvider(openaiTestConfig("http://unused.invalid"))
	if _, _, _, err := p.GenerateWithTokens(context.Background(), "x", "gpt-5-imaginary", nil); err == nil {
		t.Fatal("expected error for unconfigured model")
	}
}

func TestOpenAIErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"rate limit"}}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := NewOpenAIProvider(openaiTestConfig(srv.URL))
	if _, _, _, err := p.GenerateWithTokens(context.Background(), "x", "gpt-4o-mini", nil); err == nil {
		t.Fatal("expected error for 429 response")
	}
}

func TestCalculateCost(t *testing.T) {
	p := NewOpenAIProvider(openaiTestConfig("http://unused.invalid"))
	got := p.CalculateCost(1000, 1000, "gpt-4o-mini")
	want := 0.00015 + 0.0006
	if diff := got - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("cost = %v, want %v", got, want)
	}
	if p.CalculateCost(1000, 1000, "unknown") != 0 {
		t.Fatal("unknown model should cost 0")
	}
}

func TestNewLLMProvider(t *testing.T) {
	if _, err := NewLLMProvider(config.LLMConfig{}); err == nil {
		t.Fatal("expected error with no providers")
	}
	if _, err := NewLLMProvider(config.LLMConfig{
		Providers: map[string]config.LLMProvider{"anthropic": {Type: "anthropic"}},
	}); err == nil {
		t.Fatal("expected error for unsupported provider type")
	}
	p, err := NewLLMProvider(config.LLMConfig{
		Providers: map[string]config.LLMProvider{"openai": openaiTestConfig("")},
	})
	if err != nil || p == nil {
		t.Fatalf("expected openai provider, got %v, %v", p, err)
	}
}
