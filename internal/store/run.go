// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package store contains the database access layer.
package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"recipepress/internal/models"
)

// RunStore handles generation run persistence.
type RunStore struct {
	db *sql.DB
}

// NewRunStore creates a new RunStore with the given database connection.
func NewRunStore(db *sql.DB) *RunStore {
	return &RunStore{db: db}
}

const runColumns = `id, title, focus_keyword, mode, status, seo_title,
	meta_description, keywords, external_links, content, error,
	wp_post_id, wp_post_url, created_at, updated_at`

// Create inserts a new run and returns it with its generated ID and
// timestamps filled in.
func (s *RunStore) Create(run *models.GenerationRun) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	now := time.Now().UTC()
	run.CreatedAt = now
	run.UpdatedAt = now
	if run.Status == "" {
		run.Status = models.RunStatusIdle
	}

	_, err := s.db.Exec(`
		INSERT INTO generation_runs (id, title, focus_keyword, mode, status,
			seo_title, meta_description, keywords, external_links, content,
			error, wp_post_id, wp_post_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`, run.ID, run.Title, run.FocusKeyword, run.Mode, run.Status,
		run.SEOTitle, run.MetaDescription, run.Keywords, run.ExternalLinks,
		run.Content, run.Error, run.WPPostID, run.WPPostURL,
		run.CreatedAt, run.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create run: %w", err)
	}
	return nil
}

// Update persists the run's mutable fields.
func (s *RunStore) Update(run *models.GenerationRun) error {
	run.UpdatedAt = time.Now().UTC()
	res, err := s.db.Exec(`
		UPDATE generation_runs
		SET status = $2, seo_title = $3, meta_description = $4, keywords = $5,
		    external_links = $6, content = $7, error = $8, wp_post_id = $9,
		    wp_post_url = $10, updated_at = $11
		WHERE id = $1
	`, run.ID, run.Status, run.SEOTitle, run.MetaDescription, run.Keywords,
		run.ExternalLinks, run.Content, run.Error, run.WPPostID,
		run.WPPostURL, run.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update run: no run with id %s", run.ID)
	}
	return nil
}

// UpdateStatus sets just the status and error message.
func (s *RunStore) UpdateStatus(id uuid.UUID, status models.RunStatus, errMsg string) error {
	_, err := s.db.Exec(`
		UPDATE generation_runs SET status = $2, error = $3, updated_at = $4
		WHERE id = $1
	`, id, status, errMsg, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update run status: %w", err)
	}
	return nil
}

// FindByID retrieves a run by its UUID. Returns nil if not found.
func (s *RunStore) FindByID(id uuid.UUID) (*models.GenerationRun, error) {
	row := s.db.QueryRow(`SELECT `+runColumns+` FROM generation_runs WHERE id = $1`, id)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find run by id: %w", err)
	}
	return run, nil
}

// ListRecent returns the newest runs first, up to limit.
func (s *RunStore) ListRecent(limit int) ([]models.GenerationRun, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
		SELECT `+runColumns+` FROM generation_runs
		ORDER BY created_at DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []models.GenerationRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*models.GenerationRun, error) {
	run := &models.GenerationRun{}
	err := row.Scan(
		&run.ID, &run.Title, &run.FocusKeyword, &run.Mode, &run.Status,
		&run.SEOTitle, &run.MetaDescription, &run.Keywords,
		&run.ExternalLinks, &run.Content, &run.Error,
		&run.WPPostID, &run.WPPostURL, &run.CreatedAt, &run.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return run, nil
}
