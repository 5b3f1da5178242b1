// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"recipepress/internal/settings"
	"recipepress/internal/wordpress"
)

// Settings returns all stored settings. Secret values are masked; the
// client learns whether a key is set, never the key itself.
func (h *API) Settings(w http.ResponseWriter, r *http.Request) {
	if h.settings == nil {
		writeError(w, http.StatusServiceUnavailable, "settings store is not configured")
		return
	}

	stored, err := h.settings.All(r.Context())
	if err != nil {
		h.logger.Error("settings read failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to load settings")
		return
	}

	out := make(map[string]string, len(settings.Keys()))
	for _, key := range settings.Keys() {
		v := stored[key]
		if settings.IsSecret(key) && v != "" {
			v = maskedValue
		}
		out[key] = v
	}
	writeJSON(w, http.StatusOK, out)
}

// UpdateSettings stores the submitted settings. Unknown keys are rejected;
// a masked secret value means "keep what is stored". Changing any
// WordPress field drops the connected flag until the next successful test.
func (h *API) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	if h.settings == nil {
		writeError(w, http.StatusServiceUnavailable, "settings store is not configured")
		return
	}

	var in map[string]string
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	known := map[string]bool{}
	for _, key := range settings.Keys() {
		known[key] = true
	}

	ctx := r.Context()
	wpChanged := false
	for key, value := range in {
		if !known[key] {
			writeError(w, http.StatusBadRequest, "unknown setting: "+key)
			return
		}
		if settings.IsSecret(key) && value == maskedValue {
			continue
		}
		if err := h.settings.Set(ctx, key, value); err != nil {
			h.logger.Error("settings write failed",
				slog.String("key", key), slog.String("error", err.Error()))
			writeError(w, http.StatusInternalServerError, "failed to save settings")
			return
		}
		if strings.HasPrefix(key, "wp_") && key != settings.KeyWPConnected {
			wpChanged = true
		}
	}
	if wpChanged {
		if err := h.settings.Set(ctx, settings.KeyWPConnected, "false"); err != nil {
			h.logger.Warn("failed to reset connection flag", slog.String("error", err.Error()))
		}
	}

	h.Settings(w, r)
}

type wpTestRequest struct {
	SiteURL     string `json:"site_url,omitempty"`
	Username    string `json:"username,omitempty"`
	AppPassword string `json:"app_password,omitempty"`
}

// TestWordPress validates the WordPress credentials by fetching the
// authenticated user. The connected flag is only set after a successful
// round trip; any failure, auth included, leaves it false.
func (h *API) TestWordPress(w http.ResponseWriter, r *http.Request) {
	var req wpTestRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	}

	ctx := r.Context()
	cfg := wordpress.Config{
		SiteURL:     req.SiteURL,
		Username:    req.Username,
		AppPassword: req.AppPassword,
	}
	if cfg.SiteURL == "" {
		cfg.SiteURL = h.setting(ctx, settings.KeyWPSiteURL, h.cfg.WordPressURL)
	}
	if cfg.Username == "" {
		cfg.Username = h.setting(ctx, settings.KeyWPUsername, h.cfg.WordPressUser)
	}
	if cfg.AppPassword == "" || cfg.AppPassword == maskedValue {
		cfg.AppPassword = h.setting(ctx, settings.KeyWPAppPassword, h.cfg.WordPressPassword)
	}
	if cfg.SiteURL == "" {
		writeError(w, http.StatusBadRequest, "site_url is required")
		return
	}

	client := wordpress.NewClient(cfg, h.logger)
	user, err := client.CheckConnection(ctx)
	if err != nil {
		h.setConnected(ctx, false)
		status := http.StatusBadGateway
		if errors.Is(err, wordpress.ErrAuth) {
			status = http.StatusUnauthorized
		}
		writeJSON(w, status, map[string]any{"connected": false, "error": err.Error()})
		return
	}

	h.setConnected(ctx, true)
	writeJSON(w, http.StatusOK, map[string]any{
		"connected": true,
		"user_id":   user.ID,
		"user_name": user.Name,
	})
}

func (h *API) setConnected(ctx context.Context, connected bool) {
	if h.settings == nil {
		return
	}
	value := "false"
	if connected {
		value = "true"
	}
	if err := h.settings.Set(ctx, settings.KeyWPConnected, value); err != nil {
		h.logger.Warn("failed to store connection flag", slog.String("error", err.Error()))
	}
}
