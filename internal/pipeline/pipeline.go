// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package pipeline drives an article generation run through its stages:
// outline, body, link insertion, image generation, and publish. Stages run
// strictly sequentially and every stage boundary preserves the last known
// good content, so a failed stage never leaves the session half-written.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"recipepress/internal/ai"
	"recipepress/internal/article"
	"recipepress/internal/imagegen"
	"recipepress/internal/imaging"
	"recipepress/internal/links"
	"recipepress/internal/markdown"
	"recipepress/internal/prompts"
	"recipepress/internal/seo"
	"recipepress/internal/wordpress"
)

var (
	// ErrBusy means the requested operation is already in flight.
	ErrBusy = errors.New("pipeline: operation already in progress")

	// ErrNoContent means an operation that needs a finished article was
	// requested before generation succeeded.
	ErrNoContent = errors.New("pipeline: no generated content yet")

	// ErrInvalidMode is returned for an unknown difficulty mode.
	ErrInvalidMode = errors.New("pipeline: invalid difficulty mode")
)

// PhaseName identifies one stage of the run.
type PhaseName string

const (
	PhaseOutline PhaseName = "outline"
	PhaseBody    PhaseName = "body"
	PhaseLinks   PhaseName = "links"
	PhaseImages  PhaseName = "images"
	PhasePublish PhaseName = "publish"
)

// PhaseNames lists all phases in execution order.
func PhaseNames() []PhaseName {
	return []PhaseName{PhaseOutline, PhaseBody, PhaseLinks, PhaseImages, PhasePublish}
}

// PhaseState is the lifecycle tag of one phase.
type PhaseState string

const (
	StateIdle      PhaseState = "idle"
	StateRunning   PhaseState = "running"
	StateSucceeded PhaseState = "succeeded"
	StateFailed    PhaseState = "failed"
)

// Phase is the tagged status of one stage.
type Phase struct {
	State      PhaseState `json:"state"`
	Err        string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at,omitempty"`
	FinishedAt time.Time  `json:"finished_at,omitempty"`
}

// Request is the authoring input for one run.
type Request struct {
	Title        string
	FocusKeyword string
	Mode         prompts.Mode
	OutlineModel string
	BodyModel    string
}

// Deps are the components a session drives. Completer is required; the
// rest may be nil until the matching operation is used.
type Deps struct {
	Completer ai.Completer
	Inserter  *links.Inserter
	Providers *imagegen.Registry
	Converter *imaging.Converter
	Publisher *wordpress.Client
	Logger    *slog.Logger
}

// Session is one article authoring session. All exported methods are safe
// for concurrent use; concurrent operations on the same phase are rejected
// with ErrBusy rather than queued.
type Session struct {
	deps Deps

	mu          sync.Mutex
	generating  bool
	req         Request
	phases      map[PhaseName]*Phase
	outline     string
	suggestions seo.Suggestions
	content     string
	images      article.ImageSet
	altTexts    article.AltTexts
	postID      int
	postURL     string
}

func NewSession(deps Deps) *Session {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	s := &Session{deps: deps, phases: map[PhaseName]*Phase{}}
	for _, name := range PhaseNames() {
		s.phases[name] = &Phase{State: StateIdle}
	}
	return s
}

// Snapshot is a point-in-time copy of the session for API responses.
type Snapshot struct {
	Request     Request              `json:"request"`
	Phases      map[PhaseName]Phase  `json:"phases"`
	Outline     string               `json:"outline,omitempty"`
	Suggestions seo.Suggestions      `json:"suggestions"`
	Content     string               `json:"content,omitempty"`
	Images      map[string]string    `json:"images,omitempty"`
	PostID      int                  `json:"post_id,omitempty"`
	PostURL     string               `json:"post_url,omitempty"`
}

// Snapshot returns a copy of the current session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Request:     s.req,
		Phases:      make(map[PhaseName]Phase, len(s.phases)),
		Outline:     s.outline,
		Suggestions: s.suggestions,
		Content:     s.content,
		PostID:      s.postID,
		PostURL:     s.postURL,
	}
	for name, p := range s.phases {
		snap.Phases[name] = *p
	}
	if len(s.images) > 0 {
		snap.Images = make(map[string]string, len(s.images))
		for slot, src := range s.images {
			snap.Images[string(slot)] = src
		}
	}
	return snap
}

// Reconfigure swaps the session's components without touching run state.
// Handlers call it after stored settings change.
func (s *Session) Reconfigure(deps Deps) {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deps = deps
}

// depsCopy reads the current component set under the lock.
func (s *Session) depsCopy() Deps {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deps
}

// Content returns the current article content.
func (s *Session) Content() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.content
}

// Suggestions returns the current SEO suggestions.
func (s *Session) Suggestions() seo.Suggestions {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.suggestions
}

// begin transitions a phase to running. It fails with ErrBusy when that
// phase is already running or a generation run holds the session.
func (s *Session) begin(name PhaseName) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.generating {
		return fmt.Errorf("%w: %s", ErrBusy, PhaseOutline)
	}
	if s.phases[name].State == StateRunning {
		return fmt.Errorf("%w: %s", ErrBusy, name)
	}
	s.phases[name] = &Phase{State: StateRunning, StartedAt: time.Now()}
	return nil
}

// beginRun reserves the session for a full generation run. The reservation
// is held across both stages so nothing can slip in between the outline
// finishing and the body starting. endRun releases it.
func (s *Session) beginRun() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.generating {
		return fmt.Errorf("%w: %s", ErrBusy, PhaseOutline)
	}
	for _, name := range PhaseNames() {
		if s.phases[name].State == StateRunning {
			return fmt.Errorf("%w: %s", ErrBusy, name)
		}
	}
	s.generating = true
	s.phases[PhaseOutline] = &Phase{State: StateRunning, StartedAt: time.Now()}
	return nil
}

func (s *Session) endRun() {
	s.mu.Lock()
	s.generating = false
	s.mu.Unlock()
}

// finish records the phase outcome. The running flag is cleared on every
// path through a stage, success or failure.
func (s *Session) finish(name PhaseName, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.phases[name]
	p.FinishedAt = time.Now()
	if err != nil {
		p.State = StateFailed
		p.Err = err.Error()
		return
	}
	p.State = StateSucceeded
	p.Err = ""
}

// Generate runs the outline and body stages for a fresh request. Starting
// a new run clears the previous run's suggestions and outline; the
// previous content is only replaced once the new body passes verification.
func (s *Session) Generate(ctx context.Context, req Request) error {
	if !req.Mode.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidMode, req.Mode)
	}
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.FocusKeyword) == "" {
		return errors.New("pipeline: title and focus keyword are required")
	}

	if err := s.beginRun(); err != nil {
		return err
	}
	defer s.endRun()
	deps := s.depsCopy()
	s.mu.Lock()
	s.req = req
	s.suggestions = seo.Suggestions{}
	s.outline = ""
	s.postID = 0
	s.postURL = ""
	// Downstream phases belong to the previous run until they rerun.
	for _, name := range []PhaseName{PhaseBody, PhaseLinks, PhaseImages, PhasePublish} {
		s.phases[name] = &Phase{State: StateIdle}
	}
	s.mu.Unlock()

	outline, err := runOutline(ctx, deps.Completer, req)
	s.finish(PhaseOutline, err)
	if err != nil {
		return err
	}

	suggestions := seo.Extract(outline, req.Title, req.FocusKeyword)
	s.mu.Lock()
	s.outline = outline
	s.suggestions = suggestions
	// The run reservation is still held, so the body phase can start
	// without going through begin.
	s.phases[PhaseBody] = &Phase{State: StateRunning, StartedAt: time.Now()}
	s.mu.Unlock()

	content, err := runBody(ctx, deps.Completer, req, outline)
	if err == nil {
		content, err = finishContent(content, req.Title)
	}
	s.finish(PhaseBody, err)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.content = content
	s.images = nil
	s.altTexts = nil
	s.mu.Unlock()
	return nil
}

// runOutline produces the content plan. Recipe mode uses the strategist
// plan prompt; every other mode uses the plain outline prompt.
func runOutline(ctx context.Context, completer ai.Completer, req Request) (string, error) {
	tmpl := prompts.TmplOutline
	if req.Mode == prompts.ModeRecipe {
		tmpl = prompts.TmplRecipePlan
	}
	prompt, err := prompts.Render(tmpl, map[string]string{
		"USER_INPUT_RECIPE_TITLE":  req.Title,
		"USER_INPUT_FOCUS_KEYWORD": req.FocusKeyword,
	})
	if err != nil {
		return "", err
	}

	outline, err := completer.Complete(ctx, prompt, req.OutlineModel)
	if err != nil {
		return "", fmt.Errorf("outline stage: %w", err)
	}
	if strings.TrimSpace(outline) == "" {
		return "", errors.New("outline stage: model returned empty outline")
	}
	return outline, nil
}

// runBody produces the article HTML. Recipe mode expands the plan with a
// second model call; other modes make a single call seeded by the outline.
func runBody(ctx context.Context, completer ai.Completer, req Request, outline string) (string, error) {
	var prompt string
	var err error
	if req.Mode == prompts.ModeRecipe {
		prompt, err = prompts.Render(prompts.TmplRecipeExpand, map[string]string{
			"FLOW_1_OUTPUT": outline,
		})
	} else {
		var name string
		name, err = prompts.BodyTemplate(req.Mode)
		if err == nil {
			prompt, err = prompts.Render(name, map[string]string{
				"USER_INPUT_RECIPE_TITLE": req.Title,
				"FOCUS_KEYWORD":           req.FocusKeyword,
				"OUTLINE":                 outline,
			})
		}
	}
	if err != nil {
		return "", err
	}

	content, err := completer.Complete(ctx, prompt, req.BodyModel)
	if err != nil {
		return "", fmt.Errorf("body stage: %w", err)
	}
	return content, nil
}

// finishContent salvages possible Markdown output and verifies the result:
// it must begin with an h1 mentioning the title and carry no unresolved
// placeholder tokens.
func finishContent(content, title string) (string, error) {
	content = stripCodeFence(strings.TrimSpace(content))

	content, err := markdown.Salvage(content)
	if err != nil {
		return "", fmt.Errorf("body stage: markdown salvage: %w", err)
	}
	if content == "" {
		return "", errors.New("body stage: model returned empty article")
	}

	if leftover := prompts.Unresolved(content); len(leftover) > 0 {
		return "", fmt.Errorf("body stage: content contains unresolved tokens: %s",
			strings.Join(leftover, ", "))
	}

	content, err = ensureLeadingH1(content, title)
	if err != nil {
		return "", fmt.Errorf("body stage: %w", err)
	}
	return content, nil
}

// stripCodeFence unwraps a response the model wrapped in a ```html fence.
func stripCodeFence(content string) string {
	if !strings.HasPrefix(content, "```") {
		return content
	}
	lines := strings.Split(content, "\n")
	if len(lines) < 2 {
		return content
	}
	last := len(lines) - 1
	if strings.TrimSpace(lines[last]) == "```" {
		return strings.TrimSpace(strings.Join(lines[1:last], "\n"))
	}
	return content
}

// ensureLeadingH1 verifies the article starts with an h1 and that the h1
// relates to the requested title, prepending one when the model forgot it.
func ensureLeadingH1(content, title string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("content parse: %w", err)
	}

	first := doc.Find("body").Children().First()
	if goquery.NodeName(first) == "h1" && strings.TrimSpace(first.Text()) != "" {
		return content, nil
	}

	// Some models bury the h1 mid-document or drop it entirely.
	h1 := doc.Find("h1").First()
	if text := strings.TrimSpace(h1.Text()); text != "" {
		h1.Remove()
		body, err := doc.Find("body").Html()
		if err != nil {
			return "", fmt.Errorf("content render: %w", err)
		}
		return fmt.Sprintf("<h1>%s</h1>\n%s", text, strings.TrimSpace(body)), nil
	}
	return fmt.Sprintf("<h1>%s</h1>\n%s", title, content), nil
}

// InsertLinks runs the link insertion chain on the current content.
func (s *Session) InsertLinks(ctx context.Context) error {
	deps := s.depsCopy()
	if deps.Inserter == nil {
		return errors.New("pipeline: link inserter not configured")
	}

	s.mu.Lock()
	content := s.content
	keyword := s.req.FocusKeyword
	refs := s.suggestions.ExternalLinks
	s.mu.Unlock()
	if content == "" {
		return ErrNoContent
	}

	if err := s.begin(PhaseLinks); err != nil {
		return err
	}
	linked, err := deps.Inserter.Insert(ctx, content, keyword, refs)
	s.finish(PhaseLinks, err)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.content = linked
	s.mu.Unlock()
	return nil
}

// GenerateImages produces the slot images with the named provider,
// converts each to WebP, and embeds them in the content. A slot whose
// conversion fails keeps its unconverted reference.
func (s *Session) GenerateImages(ctx context.Context, providerName string) error {
	deps := s.depsCopy()
	if deps.Providers == nil {
		return errors.New("pipeline: image providers not configured")
	}
	provider, err := deps.Providers.Get(providerName)
	if err != nil {
		return err
	}

	s.mu.Lock()
	content := s.content
	title := s.req.Title
	keyword := s.req.FocusKeyword
	bodyModel := s.req.BodyModel
	s.mu.Unlock()
	if content == "" {
		return ErrNoContent
	}

	if err := s.begin(PhaseImages); err != nil {
		return err
	}
	embedded, images, alts, err := runImages(ctx, deps, provider, content, title, keyword, bodyModel)
	s.finish(PhaseImages, err)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.content = embedded
	s.images = images
	s.altTexts = alts
	s.mu.Unlock()
	return nil
}

func runImages(ctx context.Context, deps Deps, provider imagegen.Provider, content, title, keyword, model string) (string, article.ImageSet, article.AltTexts, error) {
	set := imagegen.GeneratePrompts(ctx, deps.Completer, model, content, title, keyword, deps.Logger)

	images, err := imagegen.GenerateBlogImages(ctx, provider, set, deps.Logger)
	if err != nil {
		return "", nil, nil, err
	}

	if deps.Converter != nil {
		for slot, ref := range images {
			if !strings.HasPrefix(ref, "data:") {
				continue // remote URLs are fetched into the media library at publish time
			}
			converted, err := deps.Converter.Convert(ctx, ref)
			if err != nil {
				if ctx.Err() != nil {
					return "", nil, nil, ctx.Err()
				}
				deps.Logger.Warn("webp conversion failed, keeping original image",
					slog.String("slot", string(slot)), slog.String("error", err.Error()))
				continue
			}
			images[slot] = converted
		}
	}

	alts := article.AltTexts{}
	for slot, alt := range set.Alts {
		alts[slot] = alt
	}

	embedded, err := article.InsertImages(content, images, alts)
	if err != nil {
		return "", nil, nil, fmt.Errorf("image embedding: %w", err)
	}
	return embedded, images, alts, nil
}

// PublishOptions selects how the finished article is published.
type PublishOptions struct {
	SEOTitle   string // selected title suggestion; falls back to the request title
	MetaDesc   string
	Slug       string
	Status     string // "draft" or "publish", defaults to draft
	Categories []int
	TagNames   []string
}

// Publish sends the current content to WordPress.
func (s *Session) Publish(ctx context.Context, opts PublishOptions) (*wordpress.PublishResult, error) {
	deps := s.depsCopy()
	if deps.Publisher == nil {
		return nil, errors.New("pipeline: wordpress client not configured")
	}

	s.mu.Lock()
	content := s.content
	req := s.req
	suggestions := s.suggestions
	featured := s.images[article.SlotIntro]
	s.mu.Unlock()
	if content == "" {
		return nil, ErrNoContent
	}

	if err := s.begin(PhasePublish); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(opts.SEOTitle)
	if title == "" {
		title = req.Title
	}
	metaDesc := opts.MetaDesc
	if metaDesc == "" && len(suggestions.MetaDescriptions) > 0 {
		metaDesc = suggestions.MetaDescriptions[0]
	}
	status := opts.Status
	if status == "" {
		status = "draft"
	}
	tagNames := opts.TagNames
	if len(tagNames) == 0 {
		tagNames = suggestions.Keywords
	}

	result, err := deps.Publisher.Publish(ctx, wordpress.PublishInput{
		Title:         title,
		ContentHTML:   content,
		Status:        status,
		Slug:          opts.Slug,
		Excerpt:       metaDesc,
		MetaDesc:      metaDesc,
		Categories:    opts.Categories,
		TagNames:      tagNames,
		FeaturedImage: featured,
	})
	s.finish(PhasePublish, err)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.postID = result.PostID
	s.postURL = result.Link
	s.mu.Unlock()
	return result, nil
}
