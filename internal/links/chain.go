// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package links

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"recipepress/internal/ai"
	"recipepress/internal/prompts"
)

// requiredAnchors is the number of outbound reference links every published
// article must carry.
const requiredAnchors = 2

var anchorRe = regexp.MustCompile(`<a\s+href="([^"]+)"[^>]*>`)

// Inserter adds outbound reference links to a finished article through a
// fallback chain: a model rewrite first, then programmatic phrase anchoring,
// then an appended reference paragraph that cannot fail. The result always
// contains at least two allow-listed anchors.
type Inserter struct {
	completer ai.Completer
	model     string
	logger    *slog.Logger
}

// NewInserter builds an Inserter. completer may be nil, in which case the
// model strategy is skipped entirely.
func NewInserter(completer ai.Completer, model string, logger *slog.Logger) *Inserter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Inserter{completer: completer, model: model, logger: logger}
}

// Insert returns articleHTML with at least two outbound anchors to
// allow-listed cooking sites. refs supplies the candidate target URLs;
// they are normalized and padded with the default reference pair so the
// chain always has two usable targets. Insert never returns an error from
// the chain itself, only from context cancellation.
func (in *Inserter) Insert(ctx context.Context, articleHTML, focusKeyword string, refs []string) (string, error) {
	targets := normalizeTargets(refs)

	if AnchorCount(articleHTML) >= requiredAnchors {
		return articleHTML, nil
	}

	if in.completer != nil {
		out, err := in.modelRewrite(ctx, articleHTML, focusKeyword)
		if err == nil {
			return out, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		in.logger.Warn("link insertion model strategy failed, falling back",
			slog.String("error", err.Error()))
	}

	if out, ok := insertPhraseAnchors(articleHTML, focusKeyword, targets); ok {
		return out, nil
	}

	return wrapReferenceCallouts(articleHTML, targets), nil
}

// modelRewrite asks the model to weave the links in and validates that the
// rewrite kept the article intact and produced enough allow-listed anchors.
func (in *Inserter) modelRewrite(ctx context.Context, articleHTML, focusKeyword string) (string, error) {
	prompt, err := prompts.Render(prompts.TmplLinkInsertion, map[string]string{
		"FLOW2_ARTICLE_CONTENT":    articleHTML,
		"USER_INPUT_FOCUS_KEYWORD": focusKeyword,
	})
	if err != nil {
		return "", fmt.Errorf("link prompt: %w", err)
	}

	out, err := in.completer.Complete(ctx, prompt, in.model)
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)

	if AnchorCount(out) < requiredAnchors {
		return "", fmt.Errorf("rewrite produced %d allow-listed anchors, need %d",
			AnchorCount(out), requiredAnchors)
	}
	// A rewrite that drops most of the article is worse than no links.
	if len(out) < len(articleHTML)*7/10 {
		return "", fmt.Errorf("rewrite shrank article from %d to %d bytes",
			len(articleHTML), len(out))
	}
	return out, nil
}

// AnchorCount counts anchors in the HTML whose href points at an
// allow-listed domain.
func AnchorCount(htmlText string) int {
	n := 0
	for _, m := range anchorRe.FindAllStringSubmatch(htmlText, -1) {
		if IsAllowedDomain(m[1]) {
			n++
		}
	}
	return n
}

// insertPhraseAnchors wraps a three word phrase in two plain paragraphs with
// anchors to the target URLs. Paragraphs containing child markup are left
// alone so existing tags are never split. Reports false when the article
// does not have two suitable paragraphs.
func insertPhraseAnchors(articleHTML, focusKeyword string, targets []string) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(articleHTML))
	if err != nil {
		return "", false
	}

	var suitable []*goquery.Selection
	doc.Find("p").Each(func(_ int, sel *goquery.Selection) {
		if sel.Children().Length() > 0 {
			return
		}
		if len(strings.Fields(sel.Text())) >= 5 {
			suitable = append(suitable, sel)
		}
	})
	if len(suitable) < requiredAnchors {
		return "", false
	}

	// Spread the links: first suitable paragraph and the last one.
	picks := []*goquery.Selection{suitable[0], suitable[len(suitable)-1]}
	for i, sel := range picks {
		phrase, ok := anchorPhrase(sel.Text(), focusKeyword)
		if !ok {
			return "", false
		}
		text := sel.Text()
		// Fields collapses runs of whitespace, so the phrase may not match
		// the raw text when words are separated by newlines.
		idx := strings.Index(text, phrase)
		if idx < 0 {
			return "", false
		}
		anchor := fmt.Sprintf(`<a href=%q target="_blank"><strong>%s</strong></a>`,
			targets[i], html.EscapeString(phrase))
		rebuilt := html.EscapeString(text[:idx]) + anchor + html.EscapeString(text[idx+len(phrase):])
		sel.SetHtml(rebuilt)
	}

	out, err := doc.Find("body").Html()
	if err != nil {
		return "", false
	}
	return out, true
}

// anchorPhrase picks the first window of three consecutive words that does
// not contain the focus keyword. Linking the keyword itself to an external
// site would leak the ranking signal away from the post.
func anchorPhrase(text, focusKeyword string) (string, bool) {
	words := strings.Fields(text)
	if len(words) < 3 {
		return "", false
	}
	keyword := strings.ToLower(strings.TrimSpace(focusKeyword))
	for i := 0; i+3 <= len(words); i++ {
		phrase := strings.Join(words[i:i+3], " ")
		if keyword != "" && strings.Contains(strings.ToLower(phrase), keyword) {
			continue
		}
		return phrase, true
	}
	return "", false
}

// wrapReferenceCallouts is the terminal strategy: one callout block before
// the article and one after, each carrying a reference link. It cannot fail.
func wrapReferenceCallouts(articleHTML string, targets []string) string {
	lead := fmt.Sprintf(
		`<aside class="reference-callout"><p>Before you start, the basics are covered well over at <a href=%q target="_blank"><strong>%s</strong></a>.</p></aside>`,
		targets[0], siteLabel(targets[0]))
	tail := fmt.Sprintf(
		`<aside class="reference-callout"><p>For more recipes and technique guides, visit <a href=%q target="_blank"><strong>%s</strong></a>.</p></aside>`,
		targets[1], siteLabel(targets[1]))
	return lead + "\n" + strings.Trim(articleHTML, "\n") + "\n" + tail
}

// normalizeTargets validates the ref URLs and guarantees exactly two
// distinct allow-listed targets, padding with the default reference pair.
func normalizeTargets(refs []string) []string {
	var out []string
	seen := map[string]bool{}
	add := func(raw string) {
		u := NormalizeURL(raw)
		if !IsAllowedDomain(u) || seen[u] {
			return
		}
		seen[u] = true
		out = append(out, u)
	}
	for _, r := range refs {
		if len(out) == requiredAnchors {
			break
		}
		add(r)
	}
	for _, d := range []string{DefaultReferenceURL, "https://www.foodnetwork.com"} {
		if len(out) == requiredAnchors {
			break
		}
		add(d)
	}
	return out
}

// siteLabel turns a reference URL into readable anchor text.
func siteLabel(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	return strings.TrimPrefix(u.Host, "www.")
}
