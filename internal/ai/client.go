// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package ai provides the chat-completion client used by every text
// generation stage. All models are reached through a single OpenAI-compatible
// endpoint (OpenRouter); the caller picks the model per call.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Completer is the call surface the pipeline depends on. The concrete Client
// implements it; tests substitute fakes.
type Completer interface {
	// Complete sends a single user prompt to the given model and returns
	// the text of the first completion choice.
	Complete(ctx context.Context, prompt, modelID string) (string, error)
}

// Sentinel errors for the failure classes callers branch on.
var (
	// ErrNoAPIKey is returned before any network call when the client has
	// no API key configured.
	ErrNoAPIKey = errors.New("ai: API key is not configured")

	// ErrEmptyPrompt is returned before any network call for a blank prompt.
	ErrEmptyPrompt = errors.New("ai: prompt is empty")

	// ErrTimeout is returned when the completion request exceeds its timeout
	// class. Distinguished so the caller can suggest shortening the prompt.
	ErrTimeout = errors.New("ai: request timed out")
)

// APIError carries the upstream status and message for non-2xx responses
// and malformed payloads.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("ai: API error (status %d): %s", e.StatusCode, e.Message)
	}
	return "ai: " + e.Message
}

// Timeout classes. Heavy model families (slow reasoning models) get the long
// class; everything else gets the short one. This is a fixed lookup, not
// adaptive.
const (
	longTimeout  = 5 * time.Minute
	shortTimeout = 2 * time.Minute
)

// heavyModelPrefixes lists the model-ID prefixes assigned to the long
// timeout class.
var heavyModelPrefixes = []string{
	"openai/o1",
	"openai/o3",
	"anthropic/claude-3-opus",
	"deepseek/deepseek-r1",
	"google/gemini-2.5-pro",
	"qwen/qwq",
}

// ClientConfig holds the credentials and endpoint for the completion client.
type ClientConfig struct {
	APIKey  string
	BaseURL string
}

// Client talks to the OpenRouter chat completions API
// (POST /chat/completions). It performs no retries; fallback behaviour is
// the caller's responsibility.
type Client struct {
	config ClientConfig
	client *http.Client
}

// New creates a completion client.
func New(cfg ClientConfig) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://openrouter.ai/api/v1"
	}
	// The per-request context carries the timeout so the class can differ
	// by model; the transport itself has no fixed deadline.
	return &Client{
		config: cfg,
		client: &http.Client{},
	}
}

// TimeoutFor returns the timeout class for the given model ID.
func TimeoutFor(modelID string) time.Duration {
	for _, prefix := range heavyModelPrefixes {
		if strings.HasPrefix(modelID, prefix) {
			return longTimeout
		}
	}
	return shortTimeout
}

// Complete sends the prompt as a single user message and returns the first
// choice's content.
func (c *Client) Complete(ctx context.Context, prompt, modelID string) (string, error) {
	if c.config.APIKey == "" {
		return "", ErrNoAPIKey
	}
	if strings.TrimSpace(prompt) == "" {
		return "", ErrEmptyPrompt
	}

	body := chatRequest{
		Model:       modelID,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: 0.7,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("ai marshal: %w", err)
	}

	timeout := TimeoutFor(modelID)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	url := c.config.BaseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("ai request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return "", fmt.Errorf("%w after %s for model %s", ErrTimeout, timeout, modelID)
		}
		return "", fmt.Errorf("ai http: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		if isTimeout(err) {
			return "", fmt.Errorf("%w after %s for model %s", ErrTimeout, timeout, modelID)
		}
		return "", fmt.Errorf("ai read body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
	}

	if len(respBody) == 0 {
		return "", &APIError{StatusCode: resp.StatusCode, Message: "empty response body"}
	}

	var result chatResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", &APIError{StatusCode: resp.StatusCode, Message: "malformed response: " + err.Error()}
	}

	if len(result.Choices) == 0 {
		return "", &APIError{StatusCode: resp.StatusCode, Message: "no choices returned"}
	}

	return result.Choices[0].Message.Content, nil
}

// isTimeout reports whether err stems from the request deadline.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne interface{ Timeout() bool }
	return errors.As(err, &ne) && ne.Timeout()
}

// --- OpenAI-compatible request/response types ---

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
}

type chatChoice struct {
	Message chatMessage `json:"message"`
}
