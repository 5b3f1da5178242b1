// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package handlers contains the JSON API handlers for the RecipePress
// authoring server. All handlers hang off the API struct and receive
// their dependencies through it.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"recipepress/internal/ai"
	"recipepress/internal/config"
	"recipepress/internal/imagegen"
	"recipepress/internal/imaging"
	"recipepress/internal/links"
	"recipepress/internal/models"
	"recipepress/internal/pipeline"
	"recipepress/internal/prompts"
	"recipepress/internal/settings"
	"recipepress/internal/slug"
	"recipepress/internal/store"
	"recipepress/internal/wordpress"
)

// maskedValue stands in for secret settings in API responses. Clients
// send it back unchanged to mean "keep the stored value".
const maskedValue = "********"

// API groups the authoring endpoints and their dependencies. The session
// holds the single in-flight authoring run; the run store keeps history.
type API struct {
	session  *pipeline.Session
	runs     *store.RunStore
	settings *settings.Store
	cfg      *config.Config
	logger   *slog.Logger

	// buildDeps assembles the session components from current settings.
	// Swappable so tests can wire fakes.
	buildDeps func(ctx context.Context) pipeline.Deps

	mu         sync.Mutex
	currentRun uuid.UUID
}

// NewAPI creates the handler group. runs may be nil when Postgres is not
// configured; history endpoints then return empty results.
func NewAPI(session *pipeline.Session, runs *store.RunStore, st *settings.Store, cfg *config.Config, logger *slog.Logger) *API {
	if logger == nil {
		logger = slog.Default()
	}
	h := &API{session: session, runs: runs, settings: st, cfg: cfg, logger: logger}
	h.buildDeps = h.depsFromSettings
	return h
}

// setting reads one stored setting, falling back to the env-derived value
// when the store has nothing for the key.
func (h *API) setting(ctx context.Context, key, fallback string) string {
	if h.settings != nil {
		if v, err := h.settings.Get(ctx, key); err == nil && v != "" {
			return v
		}
	}
	return fallback
}

// refreshDeps rebuilds the session components from the current settings.
// Called before every operation so key and URL changes apply without a
// restart.
func (h *API) refreshDeps(ctx context.Context) {
	h.session.Reconfigure(h.buildDeps(ctx))
}

func (h *API) depsFromSettings(ctx context.Context) pipeline.Deps {
	completer := ai.New(ai.ClientConfig{
		APIKey:  h.setting(ctx, settings.KeyOpenRouterKey, h.cfg.OpenRouterKey),
		BaseURL: h.cfg.OpenRouterBaseURL,
	})

	registry := imagegen.NewRegistry()
	registry.Register(imagegen.NewStability(imagegen.StabilityConfig{
		APIKey: h.setting(ctx, settings.KeyStabilityKey, h.cfg.StabilityKey),
	}))
	registry.Register(imagegen.NewLeonardo(imagegen.LeonardoConfig{
		APIKey: h.setting(ctx, settings.KeyLeonardoKey, h.cfg.LeonardoKey),
	}))

	publisher := wordpress.NewClient(wordpress.Config{
		SiteURL:     h.setting(ctx, settings.KeyWPSiteURL, h.cfg.WordPressURL),
		Username:    h.setting(ctx, settings.KeyWPUsername, h.cfg.WordPressUser),
		AppPassword: h.setting(ctx, settings.KeyWPAppPassword, h.cfg.WordPressPassword),
	}, h.logger)

	modelBody := h.setting(ctx, settings.KeyModelBody, h.cfg.ModelBody)

	return pipeline.Deps{
		Completer: completer,
		Inserter:  links.NewInserter(completer, modelBody, h.logger),
		Providers: registry,
		Converter: imaging.NewConverter(h.setting(ctx, settings.KeyConverterURL, h.cfg.ConverterURL), h.logger),
		Publisher: publisher,
		Logger:    h.logger,
	}
}

type generateRequest struct {
	Title        string `json:"title"`
	FocusKeyword string `json:"focus_keyword"`
	Mode         string `json:"mode"`
	ModelOutline string `json:"model_outline,omitempty"`
	ModelBody    string `json:"model_body,omitempty"`
}

// Generate starts a full outline plus body run. The session admits one
// run at a time; a second request while one is in flight gets 409.
func (h *API) Generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.FocusKeyword) == "" {
		writeError(w, http.StatusBadRequest, "title and focus_keyword are required")
		return
	}
	if req.Mode == "" {
		req.Mode = string(prompts.ModeMedium)
	}
	mode := prompts.Mode(req.Mode)
	if !mode.Valid() {
		writeError(w, http.StatusBadRequest, "unknown difficulty mode: "+req.Mode)
		return
	}

	ctx := r.Context()
	h.refreshDeps(ctx)

	if req.ModelOutline == "" {
		req.ModelOutline = h.setting(ctx, settings.KeyModelOutline, h.cfg.ModelOutline)
	}
	if req.ModelBody == "" {
		req.ModelBody = h.setting(ctx, settings.KeyModelBody, h.cfg.ModelBody)
	}

	err := h.session.Generate(ctx, pipeline.Request{
		Title:        req.Title,
		FocusKeyword: req.FocusKeyword,
		Mode:         mode,
		OutlineModel: req.ModelOutline,
		BodyModel:    req.ModelBody,
	})
	if errors.Is(err, pipeline.ErrBusy) {
		// No history row for a rejected request.
		writeError(w, http.StatusConflict, "a generation is already in progress")
		return
	}

	run := h.createRun(req, mode)
	if err != nil {
		h.logger.Error("generation failed", slog.String("error", err.Error()))
		h.failRun(run, err)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	h.saveRunSnapshot(run, models.RunStatusSucceeded)

	resp := struct {
		RunID string `json:"run_id,omitempty"`
		pipeline.Snapshot
	}{Snapshot: h.session.Snapshot()}
	if run != nil {
		resp.RunID = run.ID.String()
	}
	writeJSON(w, http.StatusOK, resp)
}

// Session returns the live session snapshot.
func (h *API) Session(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.session.Snapshot())
}

// InsertLinks runs the external-link insertion chain on the current article.
func (h *API) InsertLinks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	h.refreshDeps(ctx)

	err := h.session.InsertLinks(ctx)
	switch {
	case errors.Is(err, pipeline.ErrBusy):
		writeError(w, http.StatusConflict, "link insertion is already in progress")
		return
	case errors.Is(err, pipeline.ErrNoContent):
		writeError(w, http.StatusBadRequest, "generate an article before inserting links")
		return
	case err != nil:
		h.logger.Error("link insertion failed", slog.String("error", err.Error()))
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	h.updateCurrentRunContent(models.RunStatusSucceeded)
	writeJSON(w, http.StatusOK, h.session.Snapshot())
}

type imagesRequest struct {
	Provider string `json:"provider,omitempty"`
}

// GenerateImages produces the three slot images and embeds them.
func (h *API) GenerateImages(w http.ResponseWriter, r *http.Request) {
	var req imagesRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	}

	ctx := r.Context()
	h.refreshDeps(ctx)
	if req.Provider == "" {
		req.Provider = h.setting(ctx, settings.KeyImageProvider, h.cfg.ImageProvider)
	}

	err := h.session.GenerateImages(ctx, req.Provider)
	switch {
	case errors.Is(err, pipeline.ErrBusy):
		writeError(w, http.StatusConflict, "image generation is already in progress")
		return
	case errors.Is(err, pipeline.ErrNoContent):
		writeError(w, http.StatusBadRequest, "generate an article before generating images")
		return
	case errors.Is(err, imagegen.ErrUnknownProvider):
		writeError(w, http.StatusBadRequest, "unknown image provider: "+req.Provider)
		return
	case errors.Is(err, imagegen.ErrNoAPIKey):
		writeError(w, http.StatusBadRequest, "no API key configured for provider "+req.Provider)
		return
	case err != nil:
		h.logger.Error("image generation failed", slog.String("error", err.Error()))
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	h.updateCurrentRunContent(models.RunStatusSucceeded)
	writeJSON(w, http.StatusOK, h.session.Snapshot())
}

type publishRequest struct {
	SEOTitle   string   `json:"seo_title,omitempty"`
	MetaDesc   string   `json:"meta_description,omitempty"`
	Status     string   `json:"status,omitempty"`
	Categories []int    `json:"categories,omitempty"`
	Tags       []string `json:"tags,omitempty"`
}

// Publish sends the current article to the configured WordPress site.
func (h *API) Publish(w http.ResponseWriter, r *http.Request) {
	var req publishRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	}

	ctx := r.Context()
	h.refreshDeps(ctx)

	title := req.SEOTitle
	if title == "" {
		if titles := h.session.Suggestions().Titles; len(titles) > 0 {
			title = titles[0].Text
		}
	}

	result, err := h.session.Publish(ctx, pipeline.PublishOptions{
		SEOTitle:   title,
		MetaDesc:   req.MetaDesc,
		Slug:       slug.Generate(title),
		Status:     req.Status,
		Categories: req.Categories,
		TagNames:   req.Tags,
	})
	switch {
	case errors.Is(err, pipeline.ErrBusy):
		writeError(w, http.StatusConflict, "a publish is already in progress")
		return
	case errors.Is(err, pipeline.ErrNoContent):
		writeError(w, http.StatusBadRequest, "generate an article before publishing")
		return
	case errors.Is(err, wordpress.ErrAuth):
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	case errors.Is(err, wordpress.ErrAPINotFound):
		writeError(w, http.StatusBadGateway, err.Error())
		return
	case err != nil:
		h.logger.Error("publish failed", slog.String("error", err.Error()))
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	h.recordPublish(result)
	writeJSON(w, http.StatusOK, map[string]any{
		"post_id":        result.PostID,
		"post_url":       result.Link,
		"uploaded_media": result.UploadedMedia,
		"skipped_media":  result.SkippedMedia,
	})
}

// Runs lists recent generation runs, newest first.
func (h *API) Runs(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		writeJSON(w, http.StatusOK, []models.GenerationRun{})
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}
	runs, err := h.runs.ListRecent(limit)
	if err != nil {
		h.logger.Error("list runs failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

// Run returns one stored generation run by id.
func (h *API) Run(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid run id")
		return
	}
	run, err := h.runs.FindByID(id)
	if err != nil {
		h.logger.Error("find run failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to load run")
		return
	}
	if run == nil {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// --- run persistence helpers ---

func (h *API) createRun(req generateRequest, mode prompts.Mode) *models.GenerationRun {
	if h.runs == nil {
		return nil
	}
	run := &models.GenerationRun{
		Title:        req.Title,
		FocusKeyword: req.FocusKeyword,
		Mode:         string(mode),
		Status:       models.RunStatusRunning,
	}
	if err := h.runs.Create(run); err != nil {
		h.logger.Warn("run history create failed", slog.String("error", err.Error()))
		return nil
	}
	h.mu.Lock()
	h.currentRun = run.ID
	h.mu.Unlock()
	return run
}

func (h *API) failRun(run *models.GenerationRun, cause error) {
	if h.runs == nil || run == nil {
		return
	}
	if err := h.runs.UpdateStatus(run.ID, models.RunStatusFailed, cause.Error()); err != nil {
		h.logger.Warn("run history update failed", slog.String("error", err.Error()))
	}
}

// saveRunSnapshot copies the session state into the run row.
func (h *API) saveRunSnapshot(run *models.GenerationRun, status models.RunStatus) {
	if h.runs == nil || run == nil {
		return
	}
	snap := h.session.Snapshot()

	run.Status = status
	run.Content = snap.Content
	if len(snap.Suggestions.Titles) > 0 {
		run.SEOTitle = snap.Suggestions.Titles[0].Text
	}
	if len(snap.Suggestions.MetaDescriptions) > 0 {
		run.MetaDescription = snap.Suggestions.MetaDescriptions[0]
	}
	run.Keywords = strings.Join(snap.Suggestions.Keywords, ", ")
	run.ExternalLinks = strings.Join(snap.Suggestions.ExternalLinks, "\n")
	run.WPPostID = snap.PostID
	run.WPPostURL = snap.PostURL

	if err := h.runs.Update(run); err != nil {
		h.logger.Warn("run history update failed", slog.String("error", err.Error()))
	}
}

// updateCurrentRunContent refreshes the stored row after a link or image pass.
func (h *API) updateCurrentRunContent(status models.RunStatus) {
	if h.runs == nil {
		return
	}
	h.mu.Lock()
	id := h.currentRun
	h.mu.Unlock()
	if id == uuid.Nil {
		return
	}
	run, err := h.runs.FindByID(id)
	if err != nil || run == nil {
		return
	}
	h.saveRunSnapshot(run, status)
}

func (h *API) recordPublish(result *wordpress.PublishResult) {
	if h.runs == nil {
		return
	}
	h.mu.Lock()
	id := h.currentRun
	h.mu.Unlock()
	if id == uuid.Nil {
		return
	}
	run, err := h.runs.FindByID(id)
	if err != nil || run == nil {
		return
	}
	// The session snapshot already carries result.PostID and result.Link.
	h.saveRunSnapshot(run, models.RunStatusPublished)
}

// --- response helpers ---

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
