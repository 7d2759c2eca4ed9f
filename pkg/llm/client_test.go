package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func chatFixture(content string) string {
	resp := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"content": content}},
		},
	}
	b, _ := json.Marshal(resp)
	return string(b)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *HTTPClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return &HTTPClient{
		apiKey:     "test-key",
		baseURL:    server.URL,
		model:      "llama-3.3-70b-versatile",
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

func TestNewClient_Defaults(t *testing.T) {
	client := NewClient(Config{APIKey: "k"})

	if client.baseURL != "https://api.groq.com/openai/v1" {
		t.Errorf("default baseURL = %q", client.baseURL)
	}
	if client.model != "llama-3.3-70b-versatile" {
		t.Errorf("default model = %q", client.model)
	}
}

func TestAnalyzeHooks_Success(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Error("missing Authorization header")
		}
		w.Write([]byte(chatFixture(`{"hook_score":8.5,"hook_type":"curiosity_gap","content_themes":["cooking","budget meals"]}`)))
	})

	resp, err := client.AnalyzeHooks(context.Background(), HookAnalysisRequest{
		Title:      "I spent $10 on a week of meals",
		Transcript: "Here is how I fed myself for ten dollars...",
	})
	if err != nil {
		t.Fatalf("AnalyzeHooks failed: %v", err)
	}

	if resp.HookScore != 8.5 {
		t.Errorf("HookScore = %f, want 8.5", resp.HookScore)
	}
	if resp.HookType != "curiosity_gap" {
		t.Errorf("HookType = %q", resp.HookType)
	}
	if len(resp.ContentThemes) != 2 {
		t.Errorf("ContentThemes = %v", resp.ContentThemes)
	}
}

func TestAnalyzeHooks_StripsCodeFence(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(chatFixture("```json\n{\"hook_score\":5,\"hook_type\":\"question\",\"content_themes\":[\"fitness\"]}\n```")))
	})

	resp, err := client.AnalyzeHooks(context.Background(), HookAnalysisRequest{Title: "x"})
	if err != nil {
		t.Fatalf("AnalyzeHooks failed: %v", err)
	}
	if resp.HookType != "question" {
		t.Errorf("HookType = %q", resp.HookType)
	}
}

func TestAnalyzeHooks_MalformedJSON(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(chatFixture("I think this hook is pretty good!")))
	})

	_, err := client.AnalyzeHooks(context.Background(), HookAnalysisRequest{Title: "x"})
	if err == nil {
		t.Fatal("expected error for non-JSON model output")
	}
}

func TestAnalyzeHooks_OutOfRangeScore(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(chatFixture(`{"hook_score":42,"hook_type":"question","content_themes":[]}`)))
	})

	_, err := client.AnalyzeHooks(context.Background(), HookAnalysisRequest{Title: "x"})
	if err == nil {
		t.Fatal("expected error for out-of-range score")
	}
}

func TestAnalyzeHooks_APIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"rate limit"}}`))
	})

	_, err := client.AnalyzeHooks(context.Background(), HookAnalysisRequest{Title: "x"})
	if err == nil {
		t.Fatal("expected error for API failure")
	}
}

func TestGenerateRescript_Success(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(chatFixture(`{
			"adapted_script": "Hey, did you know...",
			"shot_list": ["close-up on product", "talking head"],
			"hook_alternatives": ["a", "b", "c"],
			"hashtags": ["skincare", "routine"],
			"posting_strategy": "Post at 7pm on weekdays."
		}`)))
	})

	resp, err := client.GenerateRescript(context.Background(), RescriptRequest{
		Transcript: "original script text",
		Tone:       "playful",
		Product:    "face serum",
	})
	if err != nil {
		t.Fatalf("GenerateRescript failed: %v", err)
	}

	if resp.AdaptedScript == "" {
		t.Error("expected adapted script")
	}
	if len(resp.ShotList) != 2 {
		t.Errorf("ShotList = %v", resp.ShotList)
	}
	if len(resp.HookAlternatives) != 3 {
		t.Errorf("HookAlternatives = %v", resp.HookAlternatives)
	}
}

func TestGenerateRescript_RequiresTranscript(t *testing.T) {
	client := NewClient(Config{APIKey: "k"})

	_, err := client.GenerateRescript(context.Background(), RescriptRequest{Transcript: "  "})
	if err == nil {
		t.Fatal("expected error for empty transcript")
	}
}

func TestGenerateRescript_EmptyScript(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(chatFixture(`{"adapted_script":"","shot_list":[]}`)))
	})

	_, err := client.GenerateRescript(context.Background(), RescriptRequest{Transcript: "x"})
	if err == nil {
		t.Fatal("expected error for empty adapted script")
	}
}

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"whitespace", "  {\"a\":1}  ", `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stripCodeFence(tt.input); got != tt.want {
				t.Errorf("stripCodeFence(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
