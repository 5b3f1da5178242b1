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
	leonardoDefaultBaseURL = "https://cloud.leonardo.ai/api/rest/v1"
	leonardoPollInterval   = 2 * time.Second
	leonardoMaxPolls       = 30
)

// Leonardo is the asynchronous text-to-image provider: a POST creates a
// generation job, then the job is polled until it completes or the attempt
// ceiling is reached.
type Leonardo struct {
	apiKey       string
	baseURL      string
	httpClient   *http.Client
	pollInterval time.Duration
	maxPolls     int
}

// LeonardoConfig configures the Leonardo provider. BaseURL and PollInterval
// are overridable for tests.
type LeonardoConfig struct {
	APIKey       string
	BaseURL      string
	PollInterval time.Duration
}

func NewLeonardo(cfg LeonardoConfig) *Leonardo {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = leonardoDefaultBaseURL
	}
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = leonardoPollInterval
	}
	return &Leonardo{
		apiKey:       cfg.APIKey,
		baseURL:      baseURL,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		pollInterval: interval,
		maxPolls:     leonardoMaxPolls,
	}
}

func (l *Leonardo) Name() string { return "leonardo" }

type leonardoCreateRequest struct {
	Prompt  string `json:"prompt"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	NumImgs int    `json:"num_images"`
}

type leonardoCreateResponse struct {
	SDGenerationJob struct {
		GenerationID string `json:"generationId"`
	} `json:"sdGenerationJob"`
}

type leonardoJobResponse struct {
	GenerationsByPK struct {
		Status          string `json:"status"`
		GeneratedImages []struct {
			URL string `json:"url"`
		} `json:"generated_images"`
	} `json:"generations_by_pk"`
}

// Generate creates a generation job and polls it every pollInterval, up to
// maxPolls attempts. Cancelling the context aborts the wait between polls.
func (l *Leonardo) Generate(ctx context.Context, prompt string) (string, error) {
	if l.apiKey == "" {
		return "", ErrNoAPIKey
	}

	jobID, err := l.createJob(ctx, prompt)
	if err != nil {
		return "", err
	}

	ticker := time.NewTicker(l.pollInterval)
	defer ticker.Stop()

	for attempt := 0; attempt < l.maxPolls; attempt++ {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}

		job, err := l.fetchJob(ctx, jobID)
		if err != nil {
			return "", err
		}
		switch job.GenerationsByPK.Status {
		case "COMPLETE":
			images := job.GenerationsByPK.GeneratedImages
			if len(images) == 0 || images[0].URL == "" {
				return "", fmt.Errorf("leonardo job %s: %w: complete with no images", jobID, ErrGenerationFailed)
			}
			return images[0].URL, nil
		case "FAILED":
			return "", fmt.Errorf("leonardo job %s: %w", jobID, ErrGenerationFailed)
		}
	}
	return "", fmt.Errorf("leonardo job %s: %w after %d attempts", jobID, ErrPollTimeout, l.maxPolls)
}

func (l *Leonardo) createJob(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(leonardoCreateRequest{
		Prompt:  prompt,
		Width:   1024,
		Height:  1024,
		NumImgs: 1,
	})
	if err != nil {
		return "", fmt.Errorf("leonardo marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.baseURL+"/generations", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("leonardo request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+l.apiKey)

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("leonardo call: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("leonardo read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("leonardo status %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	var parsed leonardoCreateResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("leonardo decode: %w", err)
	}
	if parsed.SDGenerationJob.GenerationID == "" {
		return "", fmt.Errorf("leonardo: %w: no generation id", ErrGenerationFailed)
	}
	return parsed.SDGenerationJob.GenerationID, nil
}

func (l *Leonardo) fetchJob(ctx context.Context, jobID string) (*leonardoJobResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.baseURL+"/generations/"+jobID, nil)
	if err != nil {
		return nil, fmt.Errorf("leonardo poll request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+l.apiKey)

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("leonardo poll: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("leonardo poll read: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("leonardo poll status %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	var parsed leonardoJobResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("leonardo poll decode: %w", err)
	}
	return &parsed, nil
}
