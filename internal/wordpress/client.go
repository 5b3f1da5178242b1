// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package wordpress publishes finished articles to a WordPress site over
// the REST API using an application password.
package wordpress

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"
)

var (
	// ErrAuth means the username or application password was rejected.
	ErrAuth = errors.New("wordpress: authentication failed, check username and application password")

	// ErrForbidden means the credentials are valid but lack permission.
	ErrForbidden = errors.New("wordpress: user is not allowed to perform this action")

	// ErrAPINotFound means the REST API endpoint was not found; the site
	// URL is probably wrong or the REST API is disabled.
	ErrAPINotFound = errors.New("wordpress: REST API not found, check the site URL")
)

const requestTimeout = 30 * time.Second

// Client talks to one WordPress site.
type Client struct {
	apiBase     string
	username    string
	appPassword string
	httpClient  *http.Client
	logger      *slog.Logger
}

// Config holds the stored connection settings. SiteURL may be the plain
// site address or a full wp-json API URL.
type Config struct {
	SiteURL     string
	Username    string
	AppPassword string
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		apiBase:     apiBase(cfg.SiteURL),
		username:    cfg.Username,
		appPassword: cfg.AppPassword,
		httpClient:  &http.Client{Timeout: requestTimeout},
		logger:      logger,
	}
}

// apiBase normalises the stored site URL to the wp/v2 REST root.
func apiBase(siteURL string) string {
	s := strings.TrimRight(strings.TrimSpace(siteURL), "/")
	if strings.Contains(s, "/wp-json") {
		if !strings.Contains(s, "/wp/v2") {
			s += "/wp/v2"
		}
		return s
	}
	return s + "/wp-json/wp/v2"
}

// User is the authenticated account returned by CheckConnection.
type User struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// CheckConnection verifies the stored credentials against the current user
// endpoint. The error taxonomy is deliberate: callers surface these
// messages directly.
func (c *Client) CheckConnection(ctx context.Context) (*User, error) {
	var user User
	if err := c.get(ctx, "/users/me?context=edit", &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Category is a WordPress post category.
type Category struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Categories lists the site's categories.
func (c *Client) Categories(ctx context.Context) ([]Category, error) {
	var cats []Category
	if err := c.get(ctx, "/categories?per_page=100", &cats); err != nil {
		return nil, err
	}
	return cats, nil
}

type tag struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// ResolveTags maps tag names to IDs, searching for an exact existing match
// first and creating the tag when none exists. A tag that can neither be
// found nor created is skipped with a warning so one bad tag never blocks
// publishing.
func (c *Client) ResolveTags(ctx context.Context, names []string) ([]int, error) {
	var ids []int
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		id, err := c.resolveTag(ctx, name)
		if err != nil {
			if errors.Is(err, ErrAuth) || errors.Is(err, ErrAPINotFound) || ctx.Err() != nil {
				return nil, err
			}
			c.logger.Warn("tag resolution failed, skipping", "tag", name, "error", err)
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (c *Client) resolveTag(ctx context.Context, name string) (int, error) {
	var matches []tag
	if err := c.get(ctx, "/tags?search="+url.QueryEscape(name), &matches); err != nil {
		return 0, err
	}
	for _, t := range matches {
		if strings.EqualFold(t.Name, name) {
			return t.ID, nil
		}
	}

	var created tag
	if err := c.post(ctx, "/tags", map[string]string{"name": name}, &created); err != nil {
		return 0, err
	}
	return created.ID, nil
}

// Media is an uploaded media item.
type Media struct {
	ID        int    `json:"id"`
	SourceURL string `json:"source_url"`
}

// UploadMedia uploads one image into the WordPress media library.
func (c *Client) UploadMedia(ctx context.Context, filename, mimeType string, data []byte) (*Media, error) {
	var form bytes.Buffer
	mw := multipart.NewWriter(&form)
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	header.Set("Content-Type", mimeType)
	part, err := mw.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("wordpress media form: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("wordpress media form: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("wordpress media form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+"/media", &form)
	if err != nil {
		return nil, fmt.Errorf("wordpress media request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	req.SetBasicAuth(c.username, c.appPassword)

	var media Media
	if err := c.do(req, &media); err != nil {
		return nil, err
	}
	return &media, nil
}

// PostRequest is the payload for creating a post.
type PostRequest struct {
	Title         string         `json:"title"`
	Content       string         `json:"content"`
	Status        string         `json:"status"`
	Slug          string         `json:"slug,omitempty"`
	Excerpt       string         `json:"excerpt,omitempty"`
	Meta          map[string]any `json:"meta,omitempty"`
	Categories    []int          `json:"categories,omitempty"`
	Tags          []int          `json:"tags,omitempty"`
	FeaturedMedia int            `json:"featured_media,omitempty"`
}

// Post is the created post as returned by WordPress.
type Post struct {
	ID   int    `json:"id"`
	Link string `json:"link"`
}

// CreatePost creates the post and returns its ID and public link.
func (c *Client) CreatePost(ctx context.Context, req PostRequest) (*Post, error) {
	var post Post
	if err := c.post(ctx, "/posts", req, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

// --- transport helpers ---

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBase+path, nil)
	if err != nil {
		return fmt.Errorf("wordpress request: %w", err)
	}
	req.SetBasicAuth(c.username, c.appPassword)
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("wordpress marshal: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("wordpress request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.username, c.appPassword)
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("wordpress call: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("wordpress read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrAuth
	case resp.StatusCode == http.StatusForbidden:
		return ErrForbidden
	case resp.StatusCode == http.StatusNotFound:
		return ErrAPINotFound
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("wordpress status %d: %s", resp.StatusCode, upstreamMessage(respBody))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("wordpress decode: %w", err)
	}
	return nil
}

// upstreamMessage pulls the human-readable message out of a WP error body.
func upstreamMessage(body []byte) string {
	var parsed struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Message != "" {
		return parsed.Message
	}
	s := string(body)
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}
