// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package prompts holds the parameterized prompt templates for every
// generation stage and performs placeholder substitution. Templates carry
// placeholders in ${NAME} or {{NAME}} form; every placeholder must be
// resolved before a prompt is submitted to a model.
package prompts

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Mode selects the writing style and call sequence for a generation run.
type Mode string

const (
	ModeMedium Mode = "medium"
	ModeHard   Mode = "hard"
	ModeHigh   Mode = "high"
	ModeMaster Mode = "master"
	ModeRecipe Mode = "recipe"
)

// Valid reports whether m is one of the known difficulty modes.
func (m Mode) Valid() bool {
	switch m {
	case ModeMedium, ModeHard, ModeHigh, ModeMaster, ModeRecipe:
		return true
	}
	return false
}

// Template names addressable through Get.
const (
	TmplOutline       = "outline"
	TmplBodyMedium    = "body_medium"
	TmplBodyHard      = "body_hard"
	TmplBodyHigh      = "body_high"
	TmplBodyMaster    = "body_master"
	TmplRecipePlan    = "recipe_plan"
	TmplRecipeExpand  = "recipe_expand"
	TmplLinkInsertion = "link_insertion"
	TmplImagePrompts  = "image_prompts"
)

var templates = map[string]string{
	TmplOutline:       outlineTemplate,
	TmplBodyMedium:    bodyMediumTemplate,
	TmplBodyHard:      bodyHardTemplate,
	TmplBodyHigh:      bodyHighTemplate,
	TmplBodyMaster:    bodyMasterTemplate,
	TmplRecipePlan:    recipePlanTemplate,
	TmplRecipeExpand:  recipeExpandTemplate,
	TmplLinkInsertion: linkInsertionTemplate,
	TmplImagePrompts:  imagePromptsTemplate,
}

// bodyTemplateByMode maps each difficulty mode to its body-stage template.
// Recipe mode is absent on purpose: it uses the plan/expand pair instead.
var bodyTemplateByMode = map[Mode]string{
	ModeMedium: TmplBodyMedium,
	ModeHard:   TmplBodyHard,
	ModeHigh:   TmplBodyHigh,
	ModeMaster: TmplBodyMaster,
}

// placeholderRe matches both placeholder forms. Placeholder names are
// upper-case with underscores, which keeps the pattern from matching HTML
// or Go template constructs that may appear inside template bodies.
var placeholderRe = regexp.MustCompile(`\$\{[A-Z][A-Z0-9_]*\}|\{\{[A-Z][A-Z0-9_]*\}\}`)

// Unresolved returns the distinct placeholder names present in s, sorted.
// Generated content is rejected while any remain.
func Unresolved(s string) []string {
	matches := placeholderRe.FindAllString(s, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]bool)
	var names []string
	for _, m := range matches {
		n := strings.Trim(m, "${}")
		if !seen[n] {
			seen[n] = true
			names = append(names, n)
		}
	}
	sort.Strings(names)
	return names
}

// Get returns the named template body. Unknown names are an error.
func Get(name string) (string, error) {
	t, ok := templates[name]
	if !ok {
		return "", fmt.Errorf("prompts: no template named %q", name)
	}
	return t, nil
}

// BodyTemplate returns the body-stage template name for the given mode.
// Returns an error for ModeRecipe, which uses Plan/Expand instead.
func BodyTemplate(mode Mode) (string, error) {
	name, ok := bodyTemplateByMode[mode]
	if !ok {
		return "", fmt.Errorf("prompts: mode %q has no single body template", mode)
	}
	return name, nil
}

// Render substitutes every placeholder in the named template with the
// supplied values. Both ${NAME} and {{NAME}} forms are replaced. Any
// placeholder left unresolved after substitution is a caller error: the
// prompt must never reach a model with literal tokens in it.
func Render(name string, vars map[string]string) (string, error) {
	t, err := Get(name)
	if err != nil {
		return "", err
	}
	return RenderString(t, vars)
}

// RenderString performs placeholder substitution on an arbitrary template
// string. Exposed for callers that compose prompts outside the store.
func RenderString(t string, vars map[string]string) (string, error) {
	for k, v := range vars {
		t = strings.ReplaceAll(t, "${"+k+"}", v)
		t = strings.ReplaceAll(t, "{{"+k+"}}", v)
	}

	if leftover := placeholderRe.FindAllString(t, -1); len(leftover) > 0 {
		names := make(map[string]bool)
		for _, l := range leftover {
			names[strings.Trim(l, "${}")] = true
		}
		var missing []string
		for n := range names {
			missing = append(missing, n)
		}
		sort.Strings(missing)
		return "", fmt.Errorf("prompts: unresolved placeholders: %s", strings.Join(missing, ", "))
	}

	return t, nil
}
