// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package wordpress

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"recipepress/internal/article"
	"recipepress/internal/imaging"
)

// PublishInput is everything needed to publish one finished article.
type PublishInput struct {
	Title         string
	ContentHTML   string
	Status        string // "draft" or "publish"
	Slug          string
	Excerpt       string
	MetaDesc      string
	Categories    []int
	TagNames      []string
	FeaturedImage string // data URL, optional
}

// PublishResult reports what was actually published.
type PublishResult struct {
	PostID        int
	Link          string
	UploadedMedia int
	SkippedMedia  int
}

// Publish uploads the article's images to the media library, inline data
// URLs and remotely hosted ones alike, rewrites their sources to the served
// URLs, uploads the featured image, and creates the post. Image failures
// are logged and skipped; only post creation itself can fail the publish.
func (c *Client) Publish(ctx context.Context, in PublishInput) (*PublishResult, error) {
	result := &PublishResult{}
	content := in.ContentHTML

	refs, err := article.ExtractImageRefs(content)
	if err != nil {
		c.logger.Warn("image scan failed, publishing without media uploads", "error", err)
		refs = nil
	}

	replace := map[string]string{}
	for _, ref := range refs {
		var media *Media
		var err error
		switch {
		case strings.HasPrefix(ref.Src, "data:"):
			media, err = c.uploadDataURL(ctx, ref.Src)
		case strings.HasPrefix(ref.Src, "http://"), strings.HasPrefix(ref.Src, "https://"):
			// Provider CDN URLs expire, so the bytes must live in the
			// media library before the post references them.
			media, err = c.uploadRemoteURL(ctx, ref.Src)
		default:
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			result.SkippedMedia++
			c.logger.Warn("media upload failed, keeping inline image",
				"slot", string(ref.Slot), "error", err)
			continue
		}
		replace[ref.Src] = media.SourceURL
		result.UploadedMedia++
	}
	if len(replace) > 0 {
		rewritten, err := article.RewriteImageSrcs(content, replace)
		if err != nil {
			c.logger.Warn("src rewrite failed, publishing original content", "error", err)
		} else {
			content = rewritten
		}
	}

	featuredID := 0
	if in.FeaturedImage != "" {
		media, err := c.uploadDataURL(ctx, in.FeaturedImage)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.logger.Warn("featured image upload failed, publishing without it", "error", err)
		} else {
			featuredID = media.ID
			result.UploadedMedia++
		}
	}

	tagIDs, err := c.ResolveTags(ctx, in.TagNames)
	if err != nil {
		return nil, err
	}

	var meta map[string]any
	if in.MetaDesc != "" {
		meta = map[string]any{"description": in.MetaDesc}
	}

	post, err := c.CreatePost(ctx, PostRequest{
		Title:         in.Title,
		Content:       content,
		Status:        in.Status,
		Slug:          in.Slug,
		Excerpt:       in.Excerpt,
		Meta:          meta,
		Categories:    in.Categories,
		Tags:          tagIDs,
		FeaturedMedia: featuredID,
	})
	if err != nil {
		return nil, err
	}

	result.PostID = post.ID
	result.Link = post.Link
	return result, nil
}

// uploadDataURL decodes an inline image and uploads it with a generated
// filename matching its MIME type.
func (c *Client) uploadDataURL(ctx context.Context, dataURL string) (*Media, error) {
	raw, err := imaging.DecodeDataURL(dataURL)
	if err != nil {
		return nil, err
	}
	mimeType := imaging.MIMEType(dataURL)
	return c.UploadMedia(ctx, uuid.NewString()+imageExt(mimeType), mimeType, raw)
}

// maxRemoteImage caps a fetched remote image at 20 MiB.
const maxRemoteImage = 20 << 20

// uploadRemoteURL fetches an externally hosted image and uploads the bytes
// with a generated filename.
func (c *Client) uploadRemoteURL(ctx context.Context, src string) (*Media, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, fmt.Errorf("wordpress fetch image: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("wordpress fetch image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("wordpress fetch image: status %d from %s", resp.StatusCode, src)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteImage+1))
	if err != nil {
		return nil, fmt.Errorf("wordpress fetch image: %w", err)
	}
	if len(raw) > maxRemoteImage {
		return nil, fmt.Errorf("wordpress fetch image: %s exceeds %d bytes", src, maxRemoteImage)
	}

	mimeType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(mimeType, "image/") {
		mimeType = http.DetectContentType(raw)
	}
	return c.UploadMedia(ctx, uuid.NewString()+imageExt(mimeType), mimeType, raw)
}

func imageExt(mimeType string) string {
	ext := map[string]string{
		"image/webp": ".webp",
		"image/jpeg": ".jpg",
		"image/png":  ".png",
	}[mimeType]
	if ext == "" {
		ext = ".png"
	}
	return ext
}
