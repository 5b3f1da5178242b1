// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package router sets up the HTTP routes and middleware chain for the
// RecipePress authoring server.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"recipepress/internal/handlers"
	"recipepress/internal/middleware"
)

// New creates and returns the configured Chi router with all middleware
// and API routes wired up.
func New(api *handlers.API) chi.Router {
	r := chi.NewRouter()

	// Global middleware — applied to every request.
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)

	// Health check — no dependencies.
	r.Get("/health", healthHandler)

	r.Route("/api", func(r chi.Router) {
		r.Post("/generate", api.Generate)
		r.Get("/session", api.Session)

		r.Route("/runs", func(r chi.Router) {
			r.Get("/", api.Runs)
			r.Get("/{id}", api.Run)
		})

		r.Post("/links/insert", api.InsertLinks)
		r.Post("/images/generate", api.GenerateImages)
		r.Post("/publish", api.Publish)

		r.Get("/settings", api.Settings)
		r.Put("/settings", api.UpdateSettings)
		r.Post("/wordpress/test", api.TestWordPress)
	})

	return r
}

// healthHandler returns a simple JSON health check response.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
