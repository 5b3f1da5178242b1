// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package ai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// newTestServer creates an httptest.Server that responds with the given
// status code and body bytes.
func newTestServer(t *testing.T, statusCode int, body []byte) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		w.Write(body)
	}))
}

// successBody builds a JSON body matching the chat completions response
// format with a single choice containing the given text.
func successBody(text string) []byte {
	resp := chatResponse{
		Choices: []chatChoice{
			{Message: chatMessage{Role: "assistant", Content: text}},
		},
	}
	b, _ := json.Marshal(resp)
	return b
}

func TestComplete_Success(t *testing.T) {
	want := "Generated outline text"
	srv := newTestServer(t, http.StatusOK, successBody(want))
	defer srv.Close()

	c := New(ClientConfig{APIKey: "test-key", BaseURL: srv.URL})

	got, err := c.Complete(context.Background(), "write an outline", "openrouter/auto")
	if err != nil {
		t.Fatalf("Complete: unexpected error: %v", err)
	}
	if got != want {
		t.Errorf("Complete: got %q, want %q", got, want)
	}
}

func TestComplete_VerifiesRequestShape(t *testing.T) {
	var capturedHeaders http.Header
	var capturedBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedHeaders = r.Header.Clone()
		capturedBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(successBody("ok"))
	}))
	defer srv.Close()

	c := New(ClientConfig{APIKey: "sk-or-12345", BaseURL: srv.URL})

	if _, err := c.Complete(context.Background(), "the prompt", "deepseek/deepseek-chat"); err != nil {
		t.Fatalf("Complete: unexpected error: %v", err)
	}

	if got := capturedHeaders.Get("Authorization"); got != "Bearer sk-or-12345" {
		t.Errorf("Authorization header: got %q, want %q", got, "Bearer sk-or-12345")
	}

	var reqBody chatRequest
	if err := json.Unmarshal(capturedBody, &reqBody); err != nil {
		t.Fatalf("unmarshal request body: %v", err)
	}
	if reqBody.Model != "deepseek/deepseek-chat" {
		t.Errorf("request model: got %q", reqBody.Model)
	}
	if len(reqBody.Messages) != 1 || reqBody.Messages[0].Role != "user" {
		t.Fatalf("request messages: got %+v, want single user message", reqBody.Messages)
	}
	if reqBody.Messages[0].Content != "the prompt" {
		t.Errorf("message content: got %q", reqBody.Messages[0].Content)
	}
}

func TestComplete_MissingKeySkipsNetwork(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	c := New(ClientConfig{APIKey: "", BaseURL: srv.URL})

	_, err := c.Complete(context.Background(), "prompt", "openrouter/auto")
	if !errors.Is(err, ErrNoAPIKey) {
		t.Fatalf("expected ErrNoAPIKey, got %v", err)
	}
	if called {
		t.Error("no HTTP request must be made when the key is missing")
	}
}

func TestComplete_EmptyPrompt(t *testing.T) {
	c := New(ClientConfig{APIKey: "test-key"})

	_, err := c.Complete(context.Background(), "   \n ", "openrouter/auto")
	if !errors.Is(err, ErrEmptyPrompt) {
		t.Fatalf("expected ErrEmptyPrompt, got %v", err)
	}
}

func TestComplete_HTTPErrorCarriesUpstreamMessage(t *testing.T) {
	srv := newTestServer(t, http.StatusPaymentRequired, []byte(`{"error":"insufficient credits"}`))
	defer srv.Close()

	c := New(ClientConfig{APIKey: "test-key", BaseURL: srv.URL})

	_, err := c.Complete(context.Background(), "prompt", "openrouter/auto")
	if err == nil {
		t.Fatal("expected error for HTTP 402, got nil")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T: %v", err, err)
	}
	if apiErr.StatusCode != http.StatusPaymentRequired {
		t.Errorf("StatusCode: got %d, want 402", apiErr.StatusCode)
	}
	if !strings.Contains(apiErr.Message, "insufficient credits") {
		t.Errorf("message should carry the upstream body: got %q", apiErr.Message)
	}
}

func TestComplete_EmptyBody(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, nil)
	defer srv.Close()

	c := New(ClientConfig{APIKey: "test-key", BaseURL: srv.URL})

	_, err := c.Complete(context.Background(), "prompt", "openrouter/auto")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError for empty body, got %v", err)
	}
}

func TestComplete_NoChoices(t *testing.T) {
	body, _ := json.Marshal(chatResponse{Choices: []chatChoice{}})
	srv := newTestServer(t, http.StatusOK, body)
	defer srv.Close()

	c := New(ClientConfig{APIKey: "test-key", BaseURL: srv.URL})

	_, err := c.Complete(context.Background(), "prompt", "openrouter/auto")
	if err == nil || !strings.Contains(err.Error(), "no choices") {
		t.Errorf("expected no-choices error, got %v", err)
	}
}

func TestComplete_TimeoutIsDistinguishable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server's background read can observe the
		// client disconnect and cancel the request context.
		io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	defer srv.Close()

	c := New(ClientConfig{APIKey: "test-key", BaseURL: srv.URL})

	// An already-short parent deadline stands in for the timeout class.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Complete(ctx, "prompt", "openrouter/auto")
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestTimeoutFor_ModelFamilies(t *testing.T) {
	if got := TimeoutFor("openai/o1-preview"); got != longTimeout {
		t.Errorf("heavy model timeout: got %s, want %s", got, longTimeout)
	}
	if got := TimeoutFor("deepseek/deepseek-r1"); got != longTimeout {
		t.Errorf("heavy model timeout: got %s, want %s", got, longTimeout)
	}
	if got := TimeoutFor("meta-llama/llama-3-8b-instruct"); got != shortTimeout {
		t.Errorf("default timeout: got %s, want %s", got, shortTimeout)
	}
}
