// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"recipepress/internal/imagegen"
	"recipepress/internal/links"
	"recipepress/internal/prompts"
	"recipepress/internal/wordpress"
)

// scriptedCompleter answers each call from a routing function so a single
// fake can serve the outline, body, and image prompt stages.
type scriptedCompleter struct {
	route   func(prompt string) (string, error)
	prompts []string
}

func (c *scriptedCompleter) Complete(_ context.Context, prompt, _ string) (string, error) {
	c.prompts = append(c.prompts, prompt)
	return c.route(prompt)
}

const outlineResponse = `Title Suggestions:
1. Fluffy Buttermilk Pancakes You Can Make Tonight
2. The Best Buttermilk Pancakes for Lazy Sundays

Meta Description Suggestions:
1. Learn how to make fluffy buttermilk pancakes from scratch.
2. A foolproof buttermilk pancake recipe with simple ingredients.

SEO Keywords: buttermilk pancakes, fluffy pancakes, breakfast recipe

External Links:
1. https://www.allrecipes.com/recipe/21014/good-old-fashioned-pancakes/
2. https://www.seriouseats.com/light-and-fluffy-buttermilk-pancakes-recipe
`

const bodyResponse = `# Buttermilk Pancakes

Nothing beats a stack of buttermilk pancakes on a slow morning.

## Ingredients

- 2 cups flour
- 2 eggs

## Instructions

Whisk everything together and cook on a hot griddle.
`

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(testWriter{}, &slog.HandlerOptions{Level: slog.LevelError}))
}

type testWriter struct{}

func (testWriter) Write(p []byte) (int, error) { return len(p), nil }

func outlineThenBody(t *testing.T) *scriptedCompleter {
	t.Helper()
	calls := 0
	return &scriptedCompleter{route: func(string) (string, error) {
		calls++
		if calls == 1 {
			return outlineResponse, nil
		}
		return bodyResponse, nil
	}}
}

func mediumRequest() Request {
	return Request{
		Title:        "Buttermilk Pancakes",
		FocusKeyword: "buttermilk pancakes",
		Mode:         prompts.ModeMedium,
	}
}

func TestGenerateMediumMode(t *testing.T) {
	completer := outlineThenBody(t)
	s := NewSession(Deps{Completer: completer, Logger: testLogger()})

	if err := s.Generate(context.Background(), mediumRequest()); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	snap := s.Snapshot()
	if snap.Phases[PhaseOutline].State != StateSucceeded {
		t.Errorf("outline phase = %s, want succeeded", snap.Phases[PhaseOutline].State)
	}
	if snap.Phases[PhaseBody].State != StateSucceeded {
		t.Errorf("body phase = %s, want succeeded", snap.Phases[PhaseBody].State)
	}

	if !strings.HasPrefix(snap.Content, "<h1") {
		t.Errorf("content does not start with h1: %.80q", snap.Content)
	}
	if strings.Contains(snap.Content, "${") || strings.Contains(snap.Content, "{{") {
		t.Errorf("content still carries template tokens: %q", snap.Content)
	}

	if len(snap.Suggestions.Titles) == 0 {
		t.Error("no title suggestions extracted")
	}
	if len(snap.Suggestions.ExternalLinks) != 2 {
		t.Errorf("external links = %d, want 2", len(snap.Suggestions.ExternalLinks))
	}

	if len(completer.prompts) != 2 {
		t.Fatalf("model calls = %d, want 2", len(completer.prompts))
	}
	if !strings.Contains(completer.prompts[0], "buttermilk pancakes") {
		t.Error("outline prompt missing focus keyword")
	}
	if !strings.Contains(completer.prompts[1], "Title Suggestions") {
		t.Error("body prompt was not seeded with the outline")
	}
	if strings.Contains(completer.prompts[1], "${") {
		t.Errorf("body prompt has unresolved tokens: %q", completer.prompts[1])
	}
}

func TestGenerateRecipeModeChainsPlanIntoExpand(t *testing.T) {
	const plan = "Step plan: hydrate the flour, rest the batter, griddle at medium."
	calls := 0
	completer := &scriptedCompleter{route: func(string) (string, error) {
		calls++
		if calls == 1 {
			return plan, nil
		}
		return "<h1>Buttermilk Pancakes</h1><p>The full article.</p>", nil
	}}
	s := NewSession(Deps{Completer: completer, Logger: testLogger()})

	req := mediumRequest()
	req.Mode = prompts.ModeRecipe
	if err := s.Generate(context.Background(), req); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if len(completer.prompts) != 2 {
		t.Fatalf("model calls = %d, want 2", len(completer.prompts))
	}
	if !strings.Contains(completer.prompts[1], plan) {
		t.Error("expand prompt does not carry the plan output")
	}
}

func TestGenerateRejectsInvalidMode(t *testing.T) {
	s := NewSession(Deps{Completer: outlineThenBody(t), Logger: testLogger()})
	req := mediumRequest()
	req.Mode = "impossible"
	if err := s.Generate(context.Background(), req); !errors.Is(err, ErrInvalidMode) {
		t.Fatalf("err = %v, want ErrInvalidMode", err)
	}
}

func TestGenerateRequiresTitleAndKeyword(t *testing.T) {
	s := NewSession(Deps{Completer: outlineThenBody(t), Logger: testLogger()})
	req := mediumRequest()
	req.FocusKeyword = "  "
	if err := s.Generate(context.Background(), req); err == nil {
		t.Fatal("expected error for blank focus keyword")
	}
}

func TestBodyFailureKeepsPreviousContent(t *testing.T) {
	s := NewSession(Deps{Completer: outlineThenBody(t), Logger: testLogger()})
	if err := s.Generate(context.Background(), mediumRequest()); err != nil {
		t.Fatalf("first Generate: %v", err)
	}
	previous := s.Content()

	calls := 0
	failing := &scriptedCompleter{route: func(string) (string, error) {
		calls++
		if calls == 1 {
			return outlineResponse, nil
		}
		return "", errors.New("model unavailable")
	}}
	s.Reconfigure(Deps{Completer: failing, Logger: testLogger()})

	err := s.Generate(context.Background(), mediumRequest())
	if err == nil {
		t.Fatal("expected body stage failure")
	}

	snap := s.Snapshot()
	if snap.Phases[PhaseBody].State != StateFailed {
		t.Errorf("body phase = %s, want failed", snap.Phases[PhaseBody].State)
	}
	if snap.Content != previous {
		t.Error("failed run replaced the previous content")
	}
}

func TestUnresolvedTokensFailTheBodyStage(t *testing.T) {
	calls := 0
	completer := &scriptedCompleter{route: func(string) (string, error) {
		calls++
		if calls == 1 {
			return outlineResponse, nil
		}
		return "<h1>Pancakes</h1><p>Use ${FOCUS_KEYWORD} everywhere.</p>", nil
	}}
	s := NewSession(Deps{Completer: completer, Logger: testLogger()})

	err := s.Generate(context.Background(), mediumRequest())
	if err == nil {
		t.Fatal("expected failure for unresolved tokens")
	}
	if !strings.Contains(err.Error(), "FOCUS_KEYWORD") {
		t.Errorf("error does not name the leftover token: %v", err)
	}
}

func TestMissingH1GetsPrepended(t *testing.T) {
	calls := 0
	completer := &scriptedCompleter{route: func(string) (string, error) {
		calls++
		if calls == 1 {
			return outlineResponse, nil
		}
		return "<p>Straight into the article with no heading.</p>", nil
	}}
	s := NewSession(Deps{Completer: completer, Logger: testLogger()})

	if err := s.Generate(context.Background(), mediumRequest()); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	content := s.Content()
	if !strings.HasPrefix(content, "<h1>Buttermilk Pancakes</h1>") {
		t.Errorf("missing synthesized h1: %.80q", content)
	}
}

func TestFencedBodyResponseIsUnwrapped(t *testing.T) {
	calls := 0
	completer := &scriptedCompleter{route: func(string) (string, error) {
		calls++
		if calls == 1 {
			return outlineResponse, nil
		}
		return "```html\n<h1>Pancakes</h1><p>Body.</p>\n```", nil
	}}
	s := NewSession(Deps{Completer: completer, Logger: testLogger()})

	if err := s.Generate(context.Background(), mediumRequest()); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if strings.Contains(s.Content(), "```") {
		t.Errorf("code fence leaked into content: %q", s.Content())
	}
}

func TestGenerateWhileRunningReturnsErrBusy(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once
	completer := &scriptedCompleter{route: func(string) (string, error) {
		once.Do(func() { close(started) })
		<-release
		return outlineResponse, nil
	}}
	s := NewSession(Deps{Completer: completer, Logger: testLogger()})

	done := make(chan error, 1)
	go func() { done <- s.Generate(context.Background(), mediumRequest()) }()
	<-started

	if err := s.Generate(context.Background(), mediumRequest()); !errors.Is(err, ErrBusy) {
		t.Errorf("concurrent Generate err = %v, want ErrBusy", err)
	}
	close(release)
	<-done
}

func TestRunHoldsSessionAcrossStages(t *testing.T) {
	// First run succeeds so the session has content, then a second run is
	// parked inside the outline stage. Every other operation must bounce
	// off the in-flight run, not just a competing Generate.
	calls := 0
	release := make(chan struct{})
	started := make(chan struct{})
	completer := &scriptedCompleter{route: func(string) (string, error) {
		calls++
		switch calls {
		case 1:
			return outlineResponse, nil
		case 2:
			return bodyResponse, nil
		case 3:
			close(started)
			<-release
			return outlineResponse, nil
		default:
			return bodyResponse, nil
		}
	}}
	s := NewSession(Deps{
		Completer: completer,
		Inserter:  links.NewInserter(completer, "", testLogger()),
		Logger:    testLogger(),
	})
	if err := s.Generate(context.Background(), mediumRequest()); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- s.Generate(context.Background(), mediumRequest()) }()
	<-started

	if err := s.InsertLinks(context.Background()); !errors.Is(err, ErrBusy) {
		t.Errorf("InsertLinks during a run err = %v, want ErrBusy", err)
	}
	close(release)
	<-done
}

func TestInsertLinksRequiresContent(t *testing.T) {
	completer := &scriptedCompleter{route: func(string) (string, error) { return "", nil }}
	s := NewSession(Deps{
		Completer: completer,
		Inserter:  links.NewInserter(completer, "", testLogger()),
		Logger:    testLogger(),
	})
	if err := s.InsertLinks(context.Background()); !errors.Is(err, ErrNoContent) {
		t.Fatalf("err = %v, want ErrNoContent", err)
	}
}

func TestInsertLinksKeepsAlreadyLinkedContent(t *testing.T) {
	calls := 0
	completer := &scriptedCompleter{route: func(string) (string, error) {
		calls++
		if calls == 1 {
			return outlineResponse, nil
		}
		return `<h1>Buttermilk Pancakes</h1>
<p>See <a href="https://www.allrecipes.com/pancakes">this recipe</a> and
<a href="https://www.seriouseats.com/pancakes">this guide</a> for more.</p>`, nil
	}}
	s := NewSession(Deps{
		Completer: completer,
		Inserter:  links.NewInserter(completer, "", testLogger()),
		Logger:    testLogger(),
	})

	if err := s.Generate(context.Background(), mediumRequest()); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	before := s.Content()

	if err := s.InsertLinks(context.Background()); err != nil {
		t.Fatalf("InsertLinks: %v", err)
	}
	if s.Content() != before {
		t.Error("content with two allowed anchors should pass through unchanged")
	}
	if s.Snapshot().Phases[PhaseLinks].State != StateSucceeded {
		t.Error("links phase did not succeed")
	}
}

// stubProvider returns one data URL per prompt.
type stubProvider struct{ calls int }

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) Generate(context.Context, string) (string, error) {
	p.calls++
	return "data:image/png;base64,aW1n", nil
}

func imagePromptJSON() string {
	payload := map[string]string{
		"intro_image_prompt":          "pancake stack on a plate",
		"ingredients_image_prompt":    "flour, eggs and buttermilk flat lay",
		"final_recipe_image_prompt":   "finished pancakes with syrup",
		"intro_image_alt_text":        "stack of buttermilk pancakes",
		"ingredients_image_alt_text":  "pancake ingredients",
		"final_recipe_image_alt_text": "pancakes with maple syrup",
	}
	b, _ := json.Marshal(payload)
	return string(b)
}

func TestGenerateImagesEmbedsAllSlots(t *testing.T) {
	calls := 0
	completer := &scriptedCompleter{route: func(string) (string, error) {
		calls++
		switch calls {
		case 1:
			return outlineResponse, nil
		case 2:
			return bodyResponse, nil
		default:
			return imagePromptJSON(), nil
		}
	}}

	provider := &stubProvider{}
	registry := imagegen.NewRegistry()
	registry.Register(provider)

	s := NewSession(Deps{
		Completer: completer,
		Providers: registry,
		Logger:    testLogger(),
	})

	if err := s.Generate(context.Background(), mediumRequest()); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if err := s.GenerateImages(context.Background(), "stub"); err != nil {
		t.Fatalf("GenerateImages: %v", err)
	}

	if provider.calls != 3 {
		t.Errorf("provider calls = %d, want 3", provider.calls)
	}
	content := s.Content()
	for _, class := range []string{"recipe-image-intro", "recipe-image-ingredients", "recipe-image-recipe"} {
		if !strings.Contains(content, class) {
			t.Errorf("content missing %s figure", class)
		}
	}
	if !strings.Contains(content, `alt="stack of buttermilk pancakes"`) {
		t.Error("intro alt text not embedded")
	}
}

func TestGenerateImagesUnknownProvider(t *testing.T) {
	s := NewSession(Deps{
		Completer: outlineThenBody(t),
		Providers: imagegen.NewRegistry(),
		Logger:    testLogger(),
	})
	err := s.GenerateImages(context.Background(), "nope")
	if !errors.Is(err, imagegen.ErrUnknownProvider) {
		t.Fatalf("err = %v, want ErrUnknownProvider", err)
	}
}

func TestPublishSendsCurrentContent(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /wp-json/wp/v2/tags", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]any{})
	})
	mux.HandleFunc("POST /wp-json/wp/v2/tags", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{"id": 7, "name": "pancakes"})
	})
	var posted map[string]any
	mux.HandleFunc("POST /wp-json/wp/v2/posts", func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&posted)
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{"id": 42, "link": "https://blog.example/pancakes", "status": "draft"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := wordpress.NewClient(wordpress.Config{
		SiteURL:     srv.URL,
		Username:    "author",
		AppPassword: "xxxx yyyy",
	}, testLogger())

	s := NewSession(Deps{
		Completer: outlineThenBody(t),
		Publisher: client,
		Logger:    testLogger(),
	})
	if err := s.Generate(context.Background(), mediumRequest()); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	result, err := s.Publish(context.Background(), PublishOptions{
		SEOTitle: "Fluffy Buttermilk Pancakes You Can Make Tonight",
		TagNames: []string{"pancakes"},
	})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if result.PostID != 42 {
		t.Errorf("post id = %d, want 42", result.PostID)
	}

	if posted["title"] != "Fluffy Buttermilk Pancakes You Can Make Tonight" {
		t.Errorf("posted title = %v", posted["title"])
	}
	if posted["status"] != "draft" {
		t.Errorf("posted status = %v, want draft by default", posted["status"])
	}

	snap := s.Snapshot()
	if snap.PostID != 42 || snap.PostURL != "https://blog.example/pancakes" {
		t.Errorf("session did not record the published post: %+v", snap)
	}
	if snap.Phases[PhasePublish].State != StateSucceeded {
		t.Error("publish phase did not succeed")
	}
}

func TestPublishRequiresContent(t *testing.T) {
	s := NewSession(Deps{
		Completer: outlineThenBody(t),
		Publisher: wordpress.NewClient(wordpress.Config{SiteURL: "https://blog.example"}, testLogger()),
		Logger:    testLogger(),
	})
	if _, err := s.Publish(context.Background(), PublishOptions{}); !errors.Is(err, ErrNoContent) {
		t.Fatalf("err = %v, want ErrNoContent", err)
	}
}
