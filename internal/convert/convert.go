// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package convert implements the standalone image-conversion service using
// libvips. Inputs are normalised to flat JPEG first, then encoded as WebP,
// so alpha channels and exotic source formats never leak into the output.
package convert

import (
	"fmt"
	"log/slog"

	"github.com/davidbyttow/govips/v2/vips"
)

const (
	jpegQuality = 90
	webpQuality = 85
)

// Startup initialises libvips. Call once at service start.
func Startup(concurrency int) {
	cfg := &vips.Config{
		ConcurrencyLevel: concurrency,
		MaxCacheSize:     100,
		MaxCacheMem:      50 * 1024 * 1024, // 50 MB
	}
	vips.LoggingSettings(nil, vips.LogLevelWarning)
	vips.Startup(cfg)
	slog.Info("libvips started", "version", vips.Version)
}

// Shutdown releases libvips resources.
func Shutdown() {
	vips.Shutdown()
}

// ToJPEG flattens and re-encodes the source image as JPEG with metadata
// stripped.
func ToJPEG(original []byte) ([]byte, error) {
	img, err := vips.NewImageFromBuffer(original)
	if err != nil {
		return nil, fmt.Errorf("convert: decode failed: %w", err)
	}
	defer img.Close()

	if err := img.AutoRotate(); err != nil {
		return nil, fmt.Errorf("convert: autorotate: %w", err)
	}
	if img.HasAlpha() {
		if err := img.Flatten(&vips.Color{R: 255, G: 255, B: 255}); err != nil {
			return nil, fmt.Errorf("convert: flatten: %w", err)
		}
	}

	params := vips.NewJpegExportParams()
	params.Quality = jpegQuality
	params.StripMetadata = true

	buf, _, err := img.ExportJpeg(params)
	if err != nil {
		return nil, fmt.Errorf("convert: jpeg export: %w", err)
	}
	return buf, nil
}

// ToWebP converts the source image to WebP via the flat JPEG intermediate.
func ToWebP(original []byte) ([]byte, error) {
	jpegBuf, err := ToJPEG(original)
	if err != nil {
		return nil, err
	}

	img, err := vips.NewImageFromBuffer(jpegBuf)
	if err != nil {
		return nil, fmt.Errorf("convert: reimport failed: %w", err)
	}
	defer img.Close()

	params := vips.NewWebpExportParams()
	params.Quality = webpQuality
	params.Lossless = false
	params.StripMetadata = true

	buf, _, err := img.ExportWebp(params)
	if err != nil {
		return nil, fmt.Errorf("convert: webp export: %w", err)
	}
	return buf, nil
}
