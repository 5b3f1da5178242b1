// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package imagegen

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestStability_Generate(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody stabilityRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"artifacts":[{"base64":"aW1hZ2U=","finishReason":"SUCCESS"}]}`))
	}))
	defer srv.Close()

	p := NewStability(StabilityConfig{APIKey: "sk-test", BaseURL: srv.URL})
	ref, err := p.Generate(context.Background(), "a stack of pancakes")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if ref != "data:image/png;base64,aW1hZ2U=" {
		t.Errorf("ref: got %q", ref)
	}
	if !strings.HasSuffix(gotPath, "/text-to-image") {
		t.Errorf("path: got %q", gotPath)
	}
	if gotAuth != "Bearer sk-test" {
		t.Errorf("auth: got %q", gotAuth)
	}
	if gotBody.CfgScale != 7 || gotBody.Width != 1024 || gotBody.Height != 1024 || gotBody.Steps != 30 || gotBody.Samples != 1 {
		t.Errorf("request parameters: %+v", gotBody)
	}
	if len(gotBody.TextPrompts) != 1 || gotBody.TextPrompts[0].Text != "a stack of pancakes" {
		t.Errorf("text prompts: %+v", gotBody.TextPrompts)
	}
}

func TestStability_MissingKeySkipsNetwork(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	p := NewStability(StabilityConfig{BaseURL: srv.URL})
	if _, err := p.Generate(context.Background(), "prompt"); !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("err = %v, want ErrNoAPIKey", err)
	}
	if called {
		t.Error("request sent despite missing key")
	}
}

func TestStability_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"invalid prompt"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	p := NewStability(StabilityConfig{APIKey: "sk-test", BaseURL: srv.URL})
	_, err := p.Generate(context.Background(), "prompt")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "400") || !strings.Contains(err.Error(), "invalid prompt") {
		t.Errorf("error should carry status and upstream message: %v", err)
	}
}

func TestStability_EmptyArtifacts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"artifacts":[]}`))
	}))
	defer srv.Close()

	p := NewStability(StabilityConfig{APIKey: "sk-test", BaseURL: srv.URL})
	if _, err := p.Generate(context.Background(), "prompt"); !errors.Is(err, ErrGenerationFailed) {
		t.Errorf("err = %v, want ErrGenerationFailed", err)
	}
}
