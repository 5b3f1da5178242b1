// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package imagegen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"recipepress/internal/article"
)

// GenerateBlogImages runs the provider once per slot. A failed slot is
// logged and skipped so a single bad generation never sinks the whole set;
// only zero successes is an error. A missing API key fails fast because
// every remaining slot would fail the same way.
func GenerateBlogImages(ctx context.Context, provider Provider, set PromptSet, logger *slog.Logger) (article.ImageSet, error) {
	if logger == nil {
		logger = slog.Default()
	}

	images := article.ImageSet{}
	for _, slot := range article.Slots() {
		prompt, ok := set.Prompts[slot]
		if !ok || prompt == "" {
			continue
		}
		ref, err := provider.Generate(ctx, prompt)
		if err != nil {
			if errors.Is(err, ErrNoAPIKey) || ctx.Err() != nil {
				return nil, err
			}
			logger.Warn("image generation failed for slot, skipping",
				slog.String("provider", provider.Name()),
				slog.String("slot", string(slot)),
				slog.String("error", err.Error()))
			continue
		}
		images[slot] = ref
	}

	if len(images) == 0 {
		return nil, fmt.Errorf("provider %s: %w", provider.Name(), ErrNoImages)
	}
	return images, nil
}
