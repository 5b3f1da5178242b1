// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package imagegen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	stabilityDefaultBaseURL = "https://api.stability.ai"
	stabilityEngine         = "stable-diffusion-xl-1024-v1-0"
	stabilityTimeout        = 2 * time.Minute
)

// Stability is the synchronous text-to-image provider: one POST, image
// bytes come back base64-encoded in the response body.
type Stability struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// StabilityConfig configures the Stability provider. BaseURL is overridable
// for tests and defaults to the public API.
type StabilityConfig struct {
	APIKey  string
	BaseURL string
}

func NewStability(cfg StabilityConfig) *Stability {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = stabilityDefaultBaseURL
	}
	return &Stability{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: stabilityTimeout},
	}
}

func (s *Stability) Name() string { return "stability" }

type stabilityRequest struct {
	TextPrompts []stabilityPrompt `json:"text_prompts"`
	CfgScale    int               `json:"cfg_scale"`
	Height      int               `json:"height"`
	Width       int               `json:"width"`
	Samples     int               `json:"samples"`
	Steps       int               `json:"steps"`
}

type stabilityPrompt struct {
	Text string `json:"text"`
}

type stabilityResponse struct {
	Artifacts []struct {
		Base64       string `json:"base64"`
		FinishReason string `json:"finishReason"`
	} `json:"artifacts"`
}

// Generate submits the prompt and returns the first artifact as a PNG data
// URL.
func (s *Stability) Generate(ctx context.Context, prompt string) (string, error) {
	if s.apiKey == "" {
		return "", ErrNoAPIKey
	}

	body, err := json.Marshal(stabilityRequest{
		TextPrompts: []stabilityPrompt{{Text: prompt}},
		CfgScale:    7,
		Height:      1024,
		Width:       1024,
		Samples:     1,
		Steps:       30,
	})
	if err != nil {
		return "", fmt.Errorf("stability marshal: %w", err)
	}

	url := s.baseURL + "/v1/generation/" + stabilityEngine + "/text-to-image"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("stability request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("stability call: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("stability read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("stability status %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	var parsed stabilityResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("stability decode: %w", err)
	}
	if len(parsed.Artifacts) == 0 || parsed.Artifacts[0].Base64 == "" {
		return "", fmt.Errorf("stability: %w: empty artifact list", ErrGenerationFailed)
	}
	return "data:image/png;base64," + parsed.Artifacts[0].Base64, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
