// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package imagegen

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"recipepress/internal/ai"
	"recipepress/internal/article"
	"recipepress/internal/prompts"
)

// PromptSet is the per-slot image prompts and alt texts for one article.
type PromptSet struct {
	Prompts map[article.Slot]string
	Alts    map[article.Slot]string
}

const maxAltLen = 125

type promptPayload struct {
	IntroPrompt       string `json:"intro_image_prompt"`
	IngredientsPrompt string `json:"ingredients_image_prompt"`
	RecipePrompt      string `json:"final_recipe_image_prompt"`
	IntroAlt          string `json:"intro_image_alt_text"`
	IngredientsAlt    string `json:"ingredients_image_alt_text"`
	RecipeAlt         string `json:"final_recipe_image_alt_text"`
}

// GeneratePrompts asks the model for slot prompts and alt texts, extracting
// the JSON object from wherever it lands in the response. Everything about
// this call is best effort: a failed model call, missing JSON, or partially
// filled payload falls through to deterministic defaults built from the
// title and the article's ingredient list. It never returns an error.
func GeneratePrompts(ctx context.Context, completer ai.Completer, model, articleHTML, title, keyword string, logger *slog.Logger) PromptSet {
	if logger == nil {
		logger = slog.Default()
	}
	def := defaultPrompts(articleHTML, title, keyword)
	if completer == nil {
		return def
	}

	prompt, err := prompts.Render(prompts.TmplImagePrompts, map[string]string{
		"FULL_RECIPE_ARTICLE": articleHTML,
	})
	if err != nil {
		logger.Warn("image prompt template failed", slog.String("error", err.Error()))
		return def
	}

	raw, err := completer.Complete(ctx, prompt, model)
	if err != nil {
		logger.Warn("image prompt generation failed, using defaults", slog.String("error", err.Error()))
		return def
	}

	payload, ok := parsePromptPayload(raw)
	if !ok {
		logger.Warn("image prompt response had no usable JSON, using defaults")
		return def
	}

	set := PromptSet{
		Prompts: map[article.Slot]string{},
		Alts:    map[article.Slot]string{},
	}
	pick := func(slot article.Slot, prompt, alt string) {
		if prompt = strings.TrimSpace(prompt); prompt != "" {
			set.Prompts[slot] = prompt
		} else {
			set.Prompts[slot] = def.Prompts[slot]
		}
		if alt = strings.TrimSpace(alt); alt != "" {
			set.Alts[slot] = clipAlt(alt)
		} else {
			set.Alts[slot] = def.Alts[slot]
		}
	}
	pick(article.SlotIntro, payload.IntroPrompt, payload.IntroAlt)
	pick(article.SlotIngredients, payload.IngredientsPrompt, payload.IngredientsAlt)
	pick(article.SlotRecipe, payload.RecipePrompt, payload.RecipeAlt)
	return set
}

// parsePromptPayload extracts the JSON object from the response body. Models
// wrap JSON in code fences or prose, so the object is located by brace
// offsets first; a line scan over `"field": "value"` pairs is the fallback
// for responses where the object as a whole does not parse.
func parsePromptPayload(raw string) (promptPayload, bool) {
	var payload promptPayload

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		if err := json.Unmarshal([]byte(raw[start:end+1]), &payload); err == nil && payload.IntroPrompt != "" {
			return payload, true
		}
	}

	// Line scan: recover individual "key": "value" lines.
	found := false
	for _, line := range strings.Split(raw, "\n") {
		key, value, ok := parseJSONLine(line)
		if !ok {
			continue
		}
		found = true
		switch key {
		case "intro_image_prompt":
			payload.IntroPrompt = value
		case "ingredients_image_prompt":
			payload.IngredientsPrompt = value
		case "final_recipe_image_prompt":
			payload.RecipePrompt = value
		case "intro_image_alt_text":
			payload.IntroAlt = value
		case "ingredients_image_alt_text":
			payload.IngredientsAlt = value
		case "final_recipe_image_alt_text":
			payload.RecipeAlt = value
		}
	}
	return payload, found && payload.IntroPrompt != ""
}

// parseJSONLine parses a single `"key": "value"` line, tolerating trailing
// commas.
func parseJSONLine(line string) (key, value string, ok bool) {
	line = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(line), ","))
	if !strings.HasPrefix(line, `"`) {
		return "", "", false
	}
	colon := strings.Index(line, `":`)
	if colon < 0 {
		return "", "", false
	}
	key = line[1:colon]
	rest := strings.TrimSpace(line[colon+2:])
	if len(rest) < 2 || !strings.HasPrefix(rest, `"`) || !strings.HasSuffix(rest, `"`) {
		return "", "", false
	}
	var decoded string
	if err := json.Unmarshal([]byte(rest), &decoded); err != nil {
		return "", "", false
	}
	return key, decoded, true
}

// defaultPrompts builds deterministic prompts and alt texts from the title,
// keyword, and the ingredient list scraped out of the article itself.
func defaultPrompts(articleHTML, title, keyword string) PromptSet {
	title = strings.TrimSpace(title)
	if title == "" {
		title = "the dish"
	}
	ingredients := leadIngredients(articleHTML, 4)
	ingredientPhrase := "the main ingredients"
	if len(ingredients) > 0 {
		ingredientPhrase = strings.Join(ingredients, ", ")
	}

	return PromptSet{
		Prompts: map[article.Slot]string{
			article.SlotIntro: "Professional food photography of " + title +
				", plated and ready to serve, natural light, shallow depth of field",
			article.SlotIngredients: "Overhead flat lay of " + ingredientPhrase +
				" arranged on a rustic wooden table, soft natural light",
			article.SlotRecipe: "Close-up of finished " + title +
				", styled for serving, rich color and texture detail",
		},
		Alts: map[article.Slot]string{
			article.SlotIntro:       clipAlt(title + " - " + keyword),
			article.SlotIngredients: clipAlt("Ingredients for " + title),
			article.SlotRecipe:      clipAlt("Finished " + title + " ready to serve"),
		},
	}
}

// leadIngredients pulls the first few entries from the list following an
// ingredients heading, falling back to the first list in the article.
func leadIngredients(articleHTML string, max int) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(articleHTML))
	if err != nil {
		return nil
	}

	list := doc.Find("ul, ol").First()
	doc.Find("h1, h2, h3, h4").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if !strings.Contains(strings.ToLower(sel.Text()), "ingredient") {
			return true
		}
		if next := sel.NextAllFiltered("ul, ol").First(); next.Length() > 0 {
			list = next
		}
		return false
	})

	var items []string
	list.Find("li").EachWithBreak(func(_ int, li *goquery.Selection) bool {
		if v := strings.TrimSpace(li.Text()); v != "" {
			items = append(items, v)
		}
		return len(items) < max
	})
	return items
}

func clipAlt(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxAltLen {
		return s
	}
	return strings.TrimSpace(s[:maxAltLen])
}
