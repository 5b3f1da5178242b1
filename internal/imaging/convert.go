// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package imaging converts generated article images to WebP through the
// standalone conversion service, with a local re-encode fallback when the
// service is unreachable.
package imaging

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	_ "golang.org/x/image/webp"
)

// ErrUnconvertible means both the service and the local fallback failed;
// the caller keeps the original image reference.
var ErrUnconvertible = errors.New("imaging: image could not be converted")

const (
	serviceTimeout  = 10 * time.Second
	fallbackQuality = 85
)

// Converter converts images via the webpconvert service.
type Converter struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewConverter(baseURL string, logger *slog.Logger) *Converter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Converter{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: serviceTimeout},
		logger:     logger,
	}
}

type convertRequest struct {
	ImageData string `json:"imageData"`
}

type convertResponse struct {
	Success   bool   `json:"success"`
	WebPImage string `json:"webpImage"`
	Error     string `json:"error"`
}

// Convert turns the image reference (a data URL) into a WebP data URL. The
// service is tried first; on any service failure the image is re-encoded
// locally instead. Only when both paths fail does Convert return
// ErrUnconvertible, and the caller should keep the original reference.
func (c *Converter) Convert(ctx context.Context, dataURL string) (string, error) {
	out, err := c.convertRemote(ctx, dataURL)
	if err == nil {
		return out, nil
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	c.logger.Warn("conversion service failed, re-encoding locally", slog.String("error", err.Error()))

	out, fallbackErr := reencodeLocal(dataURL)
	if fallbackErr != nil {
		return "", fmt.Errorf("%w: service: %v, local: %v", ErrUnconvertible, err, fallbackErr)
	}
	return out, nil
}

func (c *Converter) convertRemote(ctx context.Context, dataURL string) (string, error) {
	body, err := json.Marshal(convertRequest{ImageData: dataURL})
	if err != nil {
		return "", fmt.Errorf("convert marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/convert-base64", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("convert request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("convert call: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("convert read: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("convert status %d", resp.StatusCode)
	}

	var parsed convertResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("convert decode: %w", err)
	}
	if !parsed.Success || parsed.WebPImage == "" {
		return "", fmt.Errorf("convert rejected: %s", parsed.Error)
	}
	return parsed.WebPImage, nil
}

// reencodeLocal decodes the image (png, jpeg, or webp), flattens any alpha
// onto an opaque white background, and re-encodes as JPEG. The output is
// not WebP, but it is always embeddable and upload-safe.
func reencodeLocal(dataURL string) (string, error) {
	raw, err := DecodeDataURL(dataURL)
	if err != nil {
		return "", err
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("image decode: %w", err)
	}

	flat := image.NewRGBA(img.Bounds())
	draw.Draw(flat, flat.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(flat, flat.Bounds(), img, img.Bounds().Min, draw.Over)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, flat, &jpeg.Options{Quality: fallbackQuality}); err != nil {
		return "", fmt.Errorf("jpeg encode: %w", err)
	}
	return EncodeDataURL("image/jpeg", buf.Bytes()), nil
}

// DecodeDataURL strips the data URL header and decodes the base64 payload.
// Bare base64 without a header is accepted too.
func DecodeDataURL(dataURL string) ([]byte, error) {
	payload := dataURL
	if strings.HasPrefix(dataURL, "data:") {
		_, rest, ok := strings.Cut(dataURL, ",")
		if !ok {
			return nil, fmt.Errorf("malformed data URL")
		}
		payload = rest
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("base64 decode: %w", err)
	}
	return raw, nil
}

// EncodeDataURL wraps raw bytes in a data URL with the given MIME type.
func EncodeDataURL(mimeType string, raw []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(raw)
}

// MIMEType sniffs the data URL header, defaulting to image/png.
func MIMEType(dataURL string) string {
	if strings.HasPrefix(dataURL, "data:") {
		if header, _, ok := strings.Cut(dataURL[len("data:"):], ";"); ok && header != "" {
			return header
		}
	}
	return "image/png"
}
