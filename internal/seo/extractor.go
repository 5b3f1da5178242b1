// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package seo recovers structured SEO fields (titles, meta descriptions,
// keywords, external links) from free-text model output. Models do not
// reliably follow the requested schema, so each field is extracted through
// an ordered list of strategies; when everything fails, deterministic
// defaults are synthesized from the recipe title and focus keyword. This
// package never returns an error.
package seo

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"recipepress/internal/links"
)

// Title is a suggested post title with a synthetic relevance score.
type Title struct {
	Text  string `json:"text"`
	Score int    `json:"score"`
}

// Suggestions is the SEO sidebar data derived from the outline stage.
// At most one Suggestions set is active per generation run.
type Suggestions struct {
	Titles           []Title  `json:"titles"`            // capped at 2
	MetaDescriptions []string `json:"meta_descriptions"` // capped at 2, each <=160 chars
	Keywords         []string `json:"keywords"`          // deduplicated
	ExternalLinks    []string `json:"external_links"`    // always exactly 2 validated URLs
}

const (
	maxTitles = 2
	maxMetas  = 2
	maxMeta   = 160
)

// headerWords are label literals that must never surface as keywords.
var headerWords = map[string]bool{
	"keywords":     true,
	"keyword":      true,
	"cluster name": true,
}

// fieldStrategy is one attempt at recovering a field's values from raw
// model output. Strategies are evaluated in order; the first one to return
// ok wins.
type fieldStrategy interface {
	tryExtract(text string) ([]string, bool)
}

// Extract derives the full Suggestions set from the outline-stage response.
// It never panics past this boundary: any internal failure falls through to
// the default-synthesis step.
func Extract(raw, recipeTitle, focusKeyword string) (s Suggestions) {
	defer func() {
		if r := recover(); r != nil {
			s = defaults(recipeTitle, focusKeyword)
			s.ExternalLinks = defaultExternalLinks()
		}
	}()

	titles := runStrategies(raw, []fieldStrategy{
		&labeledSection{label: "Title Suggestions", max: 3},
		&labelAnywhere{label: "Title Suggestions"},
		&titleHeuristic{keyword: focusKeyword},
	})
	metas := runStrategies(raw, []fieldStrategy{
		&labeledSection{label: "Meta Description Suggestions", max: 3},
		&labeledSection{label: "Meta Descriptions", max: 3},
		&labelAnywhere{label: "Meta Description Suggestions"},
	})
	keywords := splitCommaList(runStrategies(raw, []fieldStrategy{
		&labeledSection{label: "SEO Keywords", max: 2},
		&labelAnywhere{label: "SEO Keywords", split: true},
		&keywordHeuristic{},
	}))

	def := defaults(recipeTitle, focusKeyword)

	s = Suggestions{}
	if len(titles) == 0 {
		for _, t := range def.Titles {
			s.Titles = append(s.Titles, t)
		}
	} else {
		for i, t := range titles {
			if i >= maxTitles {
				break
			}
			s.Titles = append(s.Titles, Title{Text: t, Score: syntheticScore(i)})
		}
	}

	if len(metas) == 0 {
		s.MetaDescriptions = def.MetaDescriptions
	} else {
		for i, m := range metas {
			if i >= maxMetas {
				break
			}
			s.MetaDescriptions = append(s.MetaDescriptions, clip(m, maxMeta))
		}
	}

	if len(keywords) == 0 {
		s.Keywords = def.Keywords
	} else {
		s.Keywords = dedupeKeywords(keywords)
		if len(s.Keywords) == 0 {
			s.Keywords = def.Keywords
		}
	}

	s.ExternalLinks = extractExternalLinks(raw)
	return s
}

// runStrategies evaluates the ordered strategy list; first success wins.
func runStrategies(text string, strategies []fieldStrategy) []string {
	for _, st := range strategies {
		if vals, ok := st.tryExtract(text); ok && len(vals) > 0 {
			return vals
		}
	}
	return nil
}

// syntheticScore assigns a deterministic relevance score in [70,100] when
// the model supplied none.
func syntheticScore(rank int) int {
	score := 95 - rank*8
	if score < 70 {
		score = 70
	}
	return score
}

// --- Strategy 1: labeled section header followed by value lines ---

// labeledSection matches a label on its own line ("Title Suggestions:",
// possibly wrapped in Markdown header/bold markers) and collects the next
// up to max non-empty lines as values.
type labeledSection struct {
	label string
	max   int
}

func (ls *labeledSection) tryExtract(text string) ([]string, bool) {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if !isLabelLine(line, ls.label) {
			continue
		}
		// Inline form handled by labelAnywhere; here the label must be a
		// section header with values on the following lines.
		if rest := afterLabel(line, ls.label); strings.TrimSpace(rest) != "" {
			continue
		}
		var vals []string
		for j := i + 1; j < len(lines) && len(vals) < ls.max; j++ {
			v := cleanListLine(lines[j])
			if v == "" {
				if len(vals) > 0 {
					break
				}
				continue
			}
			if looksLikeLabel(lines[j]) {
				break
			}
			vals = append(vals, v)
		}
		if len(vals) > 0 {
			return vals, true
		}
	}
	return nil, false
}

// --- Strategy 2: label anywhere, values on the same line ---

type labelAnywhere struct {
	label string
	split bool // split the value on commas (keyword lists)
}

func (la *labelAnywhere) tryExtract(text string) ([]string, bool) {
	for _, line := range strings.Split(text, "\n") {
		idx := indexFold(line, la.label)
		if idx < 0 {
			continue
		}
		rest := afterLabel(line, la.label)
		rest = strings.Trim(rest, " :*-\t")
		if rest == "" {
			continue
		}
		var vals []string
		if la.split {
			for _, v := range strings.Split(rest, ",") {
				if v = cleanListLine(v); v != "" {
					vals = append(vals, v)
				}
			}
		} else if v := cleanListLine(rest); v != "" {
			vals = append(vals, v)
		}
		if len(vals) > 0 {
			return vals, true
		}
	}
	return nil, false
}

// --- Strategy 3: heuristics ---

// titleHeuristic treats lines containing the focus keyword within a
// plausible title length range as candidate titles.
type titleHeuristic struct {
	keyword string
}

func (th *titleHeuristic) tryExtract(text string) ([]string, bool) {
	if strings.TrimSpace(th.keyword) == "" {
		return nil, false
	}
	var vals []string
	for _, line := range strings.Split(text, "\n") {
		v := cleanListLine(line)
		if v == "" || strings.ContainsAny(v, ":|") {
			continue
		}
		if len(v) < 20 || len(v) > 80 {
			continue
		}
		if indexFold(v, th.keyword) < 0 {
			continue
		}
		vals = append(vals, v)
		if len(vals) == maxTitles {
			break
		}
	}
	return vals, len(vals) > 0
}

// keywordHeuristic scans for comma-delimited segments after any line
// mentioning "keywords", and for pipe-delimited table rows after a header
// row.
type keywordHeuristic struct{}

func (kh *keywordHeuristic) tryExtract(text string) ([]string, bool) {
	lines := strings.Split(text, "\n")
	var vals []string

	// Comma-delimited segments on the line after a "keywords" mention.
	for i, line := range lines {
		if indexFold(line, "keyword") < 0 {
			continue
		}
		candidates := afterColon(line)
		if strings.TrimSpace(candidates) == "" && i+1 < len(lines) {
			candidates = lines[i+1]
		}
		if strings.Contains(candidates, ",") {
			for _, v := range strings.Split(candidates, ",") {
				if v = cleanListLine(v); v != "" {
					vals = append(vals, v)
				}
			}
		}
		if len(vals) > 0 {
			return vals, true
		}
	}

	// Table rows: pipe-delimited lines following a header row.
	inTable := false
	for _, line := range lines {
		if !strings.Contains(line, "|") {
			inTable = false
			continue
		}
		cells := splitTableRow(line)
		if len(cells) < 2 {
			continue
		}
		if !inTable {
			// Header row starts the table; its cells are labels, not values.
			inTable = true
			continue
		}
		if isSeparatorRow(cells) {
			continue
		}
		// Keyword cells may themselves contain comma lists.
		for _, v := range strings.Split(cells[len(cells)-1], ",") {
			if v = cleanListLine(v); v != "" {
				vals = append(vals, v)
			}
		}
	}
	return vals, len(vals) > 0
}

// --- Strategy 4: default synthesis ---

// defaults builds the deterministic fallback Suggestions from the recipe
// title and focus keyword.
func defaults(recipeTitle, focusKeyword string) Suggestions {
	title := strings.TrimSpace(recipeTitle)
	if title == "" {
		title = "This Recipe"
	}
	keyword := strings.TrimSpace(focusKeyword)
	if keyword == "" {
		keyword = strings.ToLower(title)
	}

	return Suggestions{
		Titles: []Title{
			{Text: title + ": The Ultimate " + keyword + " Recipe", Score: 95},
			{Text: "How to Make " + title + " – Easy " + keyword + " Guide", Score: 87},
		},
		MetaDescriptions: []string{
			clip("Learn how to make "+title+" with this easy "+keyword+" recipe. Step-by-step instructions, expert tips, and answers to common questions.", maxMeta),
			clip("Discover the secrets to perfect "+title+". This "+keyword+" guide covers ingredients, technique, and serving ideas.", maxMeta),
		},
		Keywords: dedupeKeywords([]string{
			keyword,
			strings.ToLower(title),
			keyword + " recipe",
			"homemade " + keyword,
			"easy " + keyword,
		}),
	}
}

// --- External links ---

var (
	externalLinkLineRe = regexp.MustCompile(`(?i)external\s+link[^:]*:\s*(\S+)`)
	bareURLRe          = regexp.MustCompile(`https?://[^\s<>"')\]]+[^\s<>"'.,;:)\]]`)
)

// extractExternalLinks recovers exactly two reference URLs from the outline
// text through a pattern fallback chain: labeled "External Link" lines
// first, then any allow-listed bare URL, then the fixed default pair.
func extractExternalLinks(text string) []string {
	var out []string
	seen := map[string]bool{}

	add := func(raw string) {
		u := links.NormalizeURL(raw)
		if !links.IsAllowedDomain(u) {
			return
		}
		if !seen[u] {
			seen[u] = true
			out = append(out, u)
		}
	}

	for _, m := range externalLinkLineRe.FindAllStringSubmatch(text, -1) {
		add(m[1])
		if len(out) == 2 {
			return out
		}
	}
	for _, m := range bareURLRe.FindAllString(text, -1) {
		add(m)
		if len(out) == 2 {
			return out
		}
	}

	for _, d := range defaultExternalLinks() {
		if len(out) == 2 {
			break
		}
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	return out
}

// defaultExternalLinks is the fixed pair of trusted cooking-reference URLs
// used when extraction finds nothing.
func defaultExternalLinks() []string {
	return []string{
		"https://www.allrecipes.com",
		"https://www.foodnetwork.com",
	}
}

// --- text helpers ---

// isLabelLine reports whether the line is the given label, allowing
// Markdown header/bold decoration and a trailing colon.
func isLabelLine(line, label string) bool {
	v := strings.TrimSpace(line)
	v = strings.TrimLeft(v, "#*- \t")
	v = strings.TrimRight(v, "*")
	return len(v) >= len(label) && strings.EqualFold(v[:len(label)], label)
}

// looksLikeLabel reports whether a line is some other section label,
// terminating value collection.
func looksLikeLabel(line string) bool {
	v := strings.TrimSpace(line)
	v = strings.TrimLeft(v, "#*- \t")
	v = strings.TrimSuffix(strings.TrimRight(v, "* \t"), ":")
	if v == "" {
		return false
	}
	// Section labels in outline output end with a colon before trimming,
	// or are Markdown headers.
	return strings.HasPrefix(strings.TrimSpace(line), "#") ||
		(strings.HasSuffix(strings.TrimSpace(strings.TrimRight(line, "* \t")), ":") && len(v) < 60)
}

// afterLabel returns the text following the label (and any colon) on the
// same line, or "" when the label is absent.
func afterLabel(line, label string) string {
	idx := indexFold(line, label)
	if idx < 0 {
		return ""
	}
	rest := line[idx+len(label):]
	rest = strings.TrimLeft(rest, "*")
	rest = strings.TrimPrefix(strings.TrimSpace(rest), ":")
	return strings.TrimSpace(rest)
}

// afterColon returns the text after the first colon on the line.
func afterColon(line string) string {
	if i := strings.Index(line, ":"); i >= 0 {
		return line[i+1:]
	}
	return ""
}

// cleanListLine strips list markers, numbering, quotes, and bold markers
// from a value line.
func cleanListLine(line string) string {
	v := strings.TrimSpace(line)
	v = strings.TrimLeft(v, "-*•> \t")
	// Numbered prefixes: "1. ", "2) "
	if m := numberedPrefixRe.FindString(v); m != "" {
		v = v[len(m):]
	}
	v = strings.Trim(v, `"'`)
	v = strings.ReplaceAll(v, "**", "")
	v = strings.TrimSpace(v)
	if isSeparator(v) {
		return ""
	}
	return v
}

var numberedPrefixRe = regexp.MustCompile(`^\d+[.)]\s+`)

// isSeparator reports Markdown rule lines ("---", "===").
func isSeparator(v string) bool {
	if v == "" {
		return false
	}
	for _, r := range v {
		if r != '-' && r != '=' && r != '_' {
			return false
		}
	}
	return true
}

// splitTableRow splits a pipe-delimited row into trimmed cells.
func splitTableRow(line string) []string {
	parts := strings.Split(line, "|")
	var cells []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			cells = append(cells, p)
		}
	}
	return cells
}

// isSeparatorRow reports a Markdown table separator row (|---|---|).
func isSeparatorRow(cells []string) bool {
	for _, c := range cells {
		if !isSeparator(c) {
			return false
		}
	}
	return true
}

// splitCommaList flattens values that are themselves comma-separated lists
// (labeled keyword sections put 5-10 keywords on one line).
func splitCommaList(in []string) []string {
	var out []string
	for _, v := range in {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// dedupeKeywords deduplicates case-insensitively and filters out literal
// header words.
func dedupeKeywords(in []string) []string {
	var out []string
	seen := map[string]bool{}
	for _, k := range in {
		k = strings.TrimSpace(k)
		low := strings.ToLower(k)
		if k == "" || headerWords[low] || seen[low] || isSeparator(k) {
			continue
		}
		seen[low] = true
		out = append(out, k)
	}
	return out
}

// clip truncates s to max characters. The limit counts runes, not bytes,
// so a multi-byte character near the cut is never split.
func clip(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:max]))
}

// indexFold is a case-insensitive strings.Index.
func indexFold(s, substr string) int {
	return strings.Index(strings.ToLower(s), strings.ToLower(substr))
}
