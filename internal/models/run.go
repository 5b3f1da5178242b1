// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package models defines the persisted data structures.
package models

import (
	"time"

	"github.com/google/uuid"
)

// RunStatus tracks a generation run through its lifecycle.
type RunStatus string

const (
	RunStatusIdle      RunStatus = "idle"
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
	RunStatusPublished RunStatus = "published"
)

// GenerationRun is one article generation from request to publish.
type GenerationRun struct {
	ID              uuid.UUID `json:"id"`
	Title           string    `json:"title"`
	FocusKeyword    string    `json:"focus_keyword"`
	Mode            string    `json:"mode"`
	Status          RunStatus `json:"status"`
	SEOTitle        string    `json:"seo_title"`
	MetaDescription string    `json:"meta_description"`
	Keywords        string    `json:"keywords"` // comma-joined
	ExternalLinks   string    `json:"external_links"` // newline-joined
	Content         string    `json:"content"`
	Error           string    `json:"error"`
	WPPostID        int       `json:"wp_post_id"`
	WPPostURL       string    `json:"wp_post_url"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
