// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package markdown salvages model responses that came back as Markdown
// when HTML was requested, converting them with goldmark before the rest
// of the pipeline touches the content.
package markdown

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
)

// md is the configured goldmark instance, reused across calls.
var md = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM, // tables, strikethrough, autolinks
	),
	goldmark.WithParserOptions(
		parser.WithAutoHeadingID(),
	),
	goldmark.WithRendererOptions(
		html.WithUnsafe(), // models sometimes mix raw HTML into Markdown
	),
)

// ToHTML converts Markdown source into HTML.
func ToHTML(source string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(source), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

var (
	blockTagRe     = regexp.MustCompile(`(?i)<(h[1-6]|p|ul|ol|div|article|section)[\s>]`)
	markdownHintRe = regexp.MustCompile(`(?m)^(#{1,6}\s|\*\s|-\s|\d+\.\s|>\s)|\*\*[^*]+\*\*`)
)

// Salvage returns the content as HTML. Content that already carries HTML
// block tags passes through unchanged; content that instead looks like
// Markdown is converted. Plain prose with neither shape is wrapped as a
// single paragraph so downstream parsing always has block structure.
func Salvage(content string) (string, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "", nil
	}
	if blockTagRe.MatchString(trimmed) {
		return content, nil
	}
	if markdownHintRe.MatchString(trimmed) {
		return ToHTML(trimmed)
	}
	return "<p>" + trimmed + "</p>", nil
}
