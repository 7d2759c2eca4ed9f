// Package llm provides a client for OpenAI-compatible chat completion
// APIs, used for hook analysis and script adaptation.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client interfaces with the chat completion API for content enrichment.
type Client interface {
	// AnalyzeHooks scores a video's opening hook and labels its themes.
	AnalyzeHooks(ctx context.Context, req HookAnalysisRequest) (*HookAnalysisResponse, error)
	// GenerateRescript adapts a reference video's script to a client's
	// brand voice.
	GenerateRescript(ctx context.Context, req RescriptRequest) (*RescriptResponse, error)
}

// HookAnalysisRequest carries everything the model needs to judge a hook.
type HookAnalysisRequest struct {
	Title      string
	Transcript string
	Platform   string
	DurationS  int
}

// HookAnalysisResponse is the structured analysis the model returns.
type HookAnalysisResponse struct {
	HookScore     float64  `json:"hook_score"`
	HookType      string   `json:"hook_type"`
	ContentThemes []string `json:"content_themes"`
}

// RescriptRequest carries a source script plus the brand voice to adapt
// it into.
type RescriptRequest struct {
	Transcript     string
	Title          string
	Tone           string
	Product        string
	TargetAudience string
}

// RescriptResponse is the structured adaptation the model returns.
type RescriptResponse struct {
	AdaptedScript    string   `json:"adapted_script"`
	ShotList         []string `json:"shot_list"`
	HookAlternatives []string `json:"hook_alternatives"`
	Hashtags         []string `json:"hashtags"`
	PostingStrategy  string   `json:"posting_strategy"`
}

// HTTPClient implements Client using HTTP requests to an
// OpenAI-compatible API.
type HTTPClient struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// Config for creating a new enrichment client.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// NewClient creates a new enrichment client.
func NewClient(cfg Config) *HTTPClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.groq.com/openai/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "llama-3.3-70b-versatile"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 45 * time.Second
	}
	return &HTTPClient{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// chatRequest is the request body for the chat completions API.
type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse is the response from the chat completions API.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

const hookSystemPrompt = `You are a short-form video strategist that scores opening hooks.
Return your analysis as JSON with these fields:
- hook_score: number from 0 to 10 rating how well the opening grabs attention
- hook_type: one of "question", "bold_claim", "curiosity_gap", "pattern_interrupt", "story_open", "demonstration", "other"
- content_themes: array of 2-6 short theme labels

Example output:
{"hook_score":8.5,"hook_type":"curiosity_gap","content_themes":["cooking","budget meals","meal prep"]}

Return ONLY valid JSON, no markdown, no explanation.`

// AnalyzeHooks scores a video's opening hook and labels its themes.
func (c *HTTPClient) AnalyzeHooks(ctx context.Context, req HookAnalysisRequest) (*HookAnalysisResponse, error) {
	prompt := buildHookPrompt(req)

	content, err := c.complete(ctx, hookSystemPrompt, prompt)
	if err != nil {
		return nil, err
	}

	var result HookAnalysisResponse
	if err := json.Unmarshal([]byte(stripCodeFence(content)), &result); err != nil {
		return nil, fmt.Errorf("model returned malformed analysis: %w", err)
	}

	if result.HookScore < 0 || result.HookScore > 10 {
		return nil, fmt.Errorf("model returned out-of-range hook score %.1f", result.HookScore)
	}
	if result.HookType == "" {
		return nil, fmt.Errorf("model returned no hook type")
	}

	return &result, nil
}

func buildHookPrompt(req HookAnalysisRequest) string {
	var sb strings.Builder
	sb.WriteString("Analyze the hook of this short-form video:\n\n")
	if req.Title != "" {
		sb.WriteString(fmt.Sprintf("Title/caption: %q\n", req.Title))
	}
	if req.Platform != "" {
		sb.WriteString(fmt.Sprintf("Platform: %s\n", req.Platform))
	}
	if req.DurationS > 0 {
		sb.WriteString(fmt.Sprintf("Duration: %d seconds\n", req.DurationS))
	}
	if req.Transcript != "" {
		sb.WriteString(fmt.Sprintf("\nTranscript:\n%s\n", req.Transcript))
	} else {
		sb.WriteString("\nNo transcript is available; judge from the title alone.\n")
	}
	return sb.String()
}

const rescriptSystemPrompt = `You are a short-form video scriptwriter that adapts reference scripts to a client's brand.
Return your adaptation as JSON with these fields:
- adapted_script: the full rewritten script in the client's voice
- shot_list: array of shot descriptions in order
- hook_alternatives: array of 3 alternative opening lines
- hashtags: array of 5-10 hashtags without the # prefix
- posting_strategy: 1-2 sentences on when and how to post

Return ONLY valid JSON, no markdown, no explanation.`

// GenerateRescript adapts a reference script to a brand voice.
func (c *HTTPClient) GenerateRescript(ctx context.Context, req RescriptRequest) (*RescriptResponse, error) {
	if strings.TrimSpace(req.Transcript) == "" {
		return nil, fmt.Errorf("rescript requires a transcript")
	}

	prompt := buildRescriptPrompt(req)

	content, err := c.complete(ctx, rescriptSystemPrompt, prompt)
	if err != nil {
		return nil, err
	}

	var result RescriptResponse
	if err := json.Unmarshal([]byte(stripCodeFence(content)), &result); err != nil {
		return nil, fmt.Errorf("model returned malformed rescript: %w", err)
	}

	if result.AdaptedScript == "" {
		return nil, fmt.Errorf("model returned no adapted script")
	}

	return &result, nil
}

func buildRescriptPrompt(req RescriptRequest) string {
	var sb strings.Builder
	sb.WriteString("Adapt this reference script for a client:\n\n")
	if req.Title != "" {
		sb.WriteString(fmt.Sprintf("Original title: %q\n", req.Title))
	}
	sb.WriteString(fmt.Sprintf("Original script:\n%s\n\n", req.Transcript))
	sb.WriteString("Client brand voice:\n")
	if req.Tone != "" {
		sb.WriteString(fmt.Sprintf("- Tone: %s\n", req.Tone))
	}
	if req.Product != "" {
		sb.WriteString(fmt.Sprintf("- Product: %s\n", req.Product))
	}
	if req.TargetAudience != "" {
		sb.WriteString(fmt.Sprintf("- Target audience: %s\n", req.TargetAudience))
	}
	return sb.String()
}

// complete performs one chat completion round trip and returns the raw
// assistant message.
func (c *HTTPClient) complete(ctx context.Context, system, user string) (string, error) {
	chatReq := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	}

	body, err := json.Marshal(chatReq)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}

	if chatResp.Error != nil {
		return "", fmt.Errorf("API error: %s", chatResp.Error.Message)
	}

	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("no response from model")
	}

	return chatResp.Choices[0].Message.Content, nil
}

// stripCodeFence removes markdown code fences the model sometimes wraps
// JSON in despite instructions.
func stripCodeFence(content string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}
