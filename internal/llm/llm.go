package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/illia-shyn/thoughtcaptcha/internal/llm/prompts"
)

const (
	DefaultBaseURL     = "https://openrouter.ai/api/v1"
	DefaultModel       = "deepseek/deepseek-chat-v3-0324:free"
	DefaultTimeout     = 30 * time.Second
	DefaultMaxTokens   = 70
	DefaultTemperature = 0.7
)

// Config describes the OpenAI-compatible endpoint used for question generation.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Timeout     time.Duration
	MaxTokens   int
	// Temperature 0 is sent as the smallest positive float32, since the
	// client drops an exact zero from the request body.
	Temperature float32
	// Referer and Title are sent as HTTP-Referer and X-Title attribution headers.
	Referer string
	Title   string
}

// FollowUpRequest is the context a follow-up question is generated from.
type FollowUpRequest struct {
	SystemPrompt      string
	AssignmentPrompt  string
	SubmissionContent string
}

// FollowUp always carries usable question text. Fallback reports that the
// text is the fixed fallback question rather than a generated one.
type FollowUp struct {
	Text     string
	Fallback bool
}

// Client wraps an OpenAI-compatible API client.
type Client struct {
	api *openai.Client
	cfg Config
}

// New creates a new LLM client. Zero values in cfg take the package defaults.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}

	config := openai.DefaultConfig(cfg.APIKey)
	config.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	config.HTTPClient = &http.Client{
		Timeout: cfg.Timeout,
		Transport: &headerTransport{
			base: http.DefaultTransport,
			headers: map[string]string{
				"HTTP-Referer": cfg.Referer,
				"X-Title":      cfg.Title,
			},
		},
	}
	return &Client{
		api: openai.NewClientWithConfig(config),
		cfg: cfg,
	}
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.cfg.Model
}

// Generate asks the model for one follow-up question. It never fails: a
// missing API key, a transport error, a timeout, a non-success status, a
// malformed body or an empty answer all yield the fallback question. The
// call is attempted once.
func (c *Client) Generate(ctx context.Context, req FollowUpRequest) (out FollowUp) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("follow-up generation panicked, using fallback", "panic", r)
			out = fallback()
		}
	}()

	if c.cfg.APIKey == "" {
		slog.Warn("LLM API key not set, using fallback question")
		return fallback()
	}

	text, err := c.complete(ctx, req)
	if err != nil {
		slog.Warn("follow-up generation failed, using fallback question",
			"model", c.cfg.Model, "error", err)
		return fallback()
	}

	slog.Info("generated follow-up question",
		"model", c.cfg.Model, "submission", prompts.Snippet(req.SubmissionContent, 50))
	return FollowUp{Text: text}
}

func (c *Client) complete(ctx context.Context, req FollowUpRequest) (string, error) {
	userMsg, err := prompts.BuildFollowUpMessage(req.AssignmentPrompt, req.SubmissionContent)
	if err != nil {
		return "", fmt.Errorf("build prompt: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userMsg},
		},
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: wireTemperature(c.cfg.Temperature),
	})
	if err != nil {
		return "", fmt.Errorf("LLM API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("LLM returned no choices")
	}

	raw := resp.Choices[0].Message.Content
	slog.Debug("LLM response", "raw", raw)

	text := cleanQuestion(raw)
	if text == "" {
		return "", errors.New("LLM returned empty content")
	}
	return text, nil
}

func wireTemperature(t float32) float32 {
	if t == 0 {
		return math.SmallestNonzeroFloat32
	}
	return t
}

// cleanQuestion strips whitespace, code fences and wrapping quotes.
func cleanQuestion(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	return s
}

func fallback() FollowUp {
	return FollowUp{Text: prompts.FallbackQuestion, Fallback: true}
}

// headerTransport adds fixed headers to every outgoing request.
type headerTransport struct {
	base    http.RoundTripper
	headers map[string]string
}

func (t *headerTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(r.Context())
	for k, v := range t.headers {
		if v != "" {
			r.Header.Set(k, v)
		}
	}
	return t.base.RoundTrip(r)
}
