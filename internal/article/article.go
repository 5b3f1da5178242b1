// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package article models a generated post as a flat list of typed blocks so
// that image placement can be decided by pure functions instead of string
// surgery on raw HTML.
package article

import (
	"fmt"
	"html"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Slot names a fixed image position in the article.
type Slot string

const (
	SlotIntro       Slot = "intro"
	SlotIngredients Slot = "ingredients"
	SlotRecipe      Slot = "recipe"
)

// Slots lists all image slots in document order.
func Slots() []Slot { return []Slot{SlotIntro, SlotIngredients, SlotRecipe} }

// ImageSet maps a slot to its image source (URL or data URL). Absent slots
// are simply not inserted.
type ImageSet map[Slot]string

// AltTexts maps a slot to the alt attribute for its image.
type AltTexts map[Slot]string

// BlockKind classifies a top level block.
type BlockKind int

const (
	KindHeading BlockKind = iota
	KindParagraph
	KindList
	KindImage
	KindOther
)

// Block is one top level element of the article body.
type Block struct {
	Kind  BlockKind
	Level int    // heading level, 0 otherwise
	HTML  string // outer HTML
	Text  string // flattened text content
}

// Document is the parsed article.
type Document struct {
	Blocks []Block
}

// Parse splits the article HTML into top level blocks. Wrapping html/body
// tags added by the parser are discarded.
func Parse(htmlText string) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlText))
	if err != nil {
		return nil, fmt.Errorf("article parse: %w", err)
	}

	var blocks []Block
	var walkErr error
	doc.Find("body").Children().Each(func(_ int, sel *goquery.Selection) {
		if walkErr != nil {
			return
		}
		outer, err := goquery.OuterHtml(sel)
		if err != nil {
			walkErr = fmt.Errorf("article render block: %w", err)
			return
		}
		blocks = append(blocks, Block{
			Kind:  kindOf(sel),
			Level: headingLevel(sel),
			HTML:  strings.TrimSpace(outer),
			Text:  strings.TrimSpace(sel.Text()),
		})
	})
	if walkErr != nil {
		return nil, walkErr
	}
	return &Document{Blocks: blocks}, nil
}

var headingTagRe = regexp.MustCompile(`^h([1-6])$`)

func kindOf(sel *goquery.Selection) BlockKind {
	tag := goquery.NodeName(sel)
	switch {
	case headingTagRe.MatchString(tag):
		return KindHeading
	case tag == "p":
		if sel.Children().Length() == 1 && sel.Children().Is("img") && strings.TrimSpace(sel.Text()) == "" {
			return KindImage
		}
		return KindParagraph
	case tag == "ul" || tag == "ol":
		return KindList
	case tag == "img" || tag == "figure":
		return KindImage
	default:
		return KindOther
	}
}

func headingLevel(sel *goquery.Selection) int {
	m := headingTagRe.FindStringSubmatch(goquery.NodeName(sel))
	if m == nil {
		return 0
	}
	return int(m[1][0] - '0')
}

// HTML renders the document back to article HTML.
func (d *Document) HTML() string {
	parts := make([]string, 0, len(d.Blocks))
	for _, b := range d.Blocks {
		parts = append(parts, b.HTML)
	}
	return strings.Join(parts, "\n")
}

// --- placement rules ---

// introInsertIndex is the index after the first paragraph that follows the
// first heading. With no heading it falls back to after the first paragraph,
// then to the start of the document.
func introInsertIndex(blocks []Block) int {
	start := 0
	for i, b := range blocks {
		if b.Kind == KindHeading {
			start = i + 1
			break
		}
	}
	for i := start; i < len(blocks); i++ {
		if blocks[i].Kind == KindParagraph {
			return i + 1
		}
	}
	return start
}

// ingredientsInsertIndex is the index of the first list under a heading
// mentioning ingredients, falling back to the first list anywhere, then to
// the document midpoint.
func ingredientsInsertIndex(blocks []Block) int {
	inSection := false
	for i, b := range blocks {
		switch b.Kind {
		case KindHeading:
			inSection = containsFold(b.Text, "ingredient")
		case KindList:
			if inSection {
				return i
			}
		}
	}
	for i, b := range blocks {
		if b.Kind == KindList {
			return i
		}
	}
	return len(blocks) / 2
}

var recipeHeadingWords = []string{"instruction", "direction", "method", "recipe", "step"}

// recipeInsertIndex is the index of the heading that opens the instructions
// section, falling back to the last heading, then to the end.
func recipeInsertIndex(blocks []Block) int {
	for i, b := range blocks {
		if b.Kind != KindHeading || b.Level == 1 {
			continue
		}
		for _, w := range recipeHeadingWords {
			if containsFold(b.Text, w) {
				return i
			}
		}
	}
	last := -1
	for i, b := range blocks {
		if b.Kind == KindHeading && b.Level > 1 {
			last = i
		}
	}
	if last >= 0 {
		return last
	}
	return len(blocks)
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), substr)
}

// --- image insertion and extraction ---

// imageBlock renders the figure block for a slot. The slot name rides along
// in the class so the mapping survives a round trip through stored content.
func imageBlock(slot Slot, src, alt string) Block {
	h := fmt.Sprintf(`<figure class="recipe-image recipe-image-%s"><img src=%q alt=%q></figure>`,
		slot, src, html.EscapeString(alt))
	return Block{Kind: KindImage, HTML: h, Text: alt}
}

// InsertImages places the supplied images at their slots: intro after the
// opening paragraph, ingredients before the ingredient list, recipe before
// the instructions section. Slots missing from the set are skipped. The
// input HTML is returned unchanged when the set is empty.
func InsertImages(htmlText string, images ImageSet, alts AltTexts) (string, error) {
	if len(images) == 0 {
		return htmlText, nil
	}
	doc, err := Parse(htmlText)
	if err != nil {
		return "", err
	}

	type placement struct {
		index int
		slot  Slot
	}
	var placements []placement
	for _, slot := range Slots() {
		if _, ok := images[slot]; !ok {
			continue
		}
		var idx int
		switch slot {
		case SlotIntro:
			idx = introInsertIndex(doc.Blocks)
		case SlotIngredients:
			idx = ingredientsInsertIndex(doc.Blocks)
		case SlotRecipe:
			idx = recipeInsertIndex(doc.Blocks)
		}
		placements = append(placements, placement{index: idx, slot: slot})
	}

	// Insert back to front so earlier indices stay valid.
	sort.SliceStable(placements, func(i, j int) bool {
		return placements[i].index > placements[j].index
	})
	for _, p := range placements {
		b := imageBlock(p.slot, images[p.slot], alts[p.slot])
		idx := p.index
		if idx > len(doc.Blocks) {
			idx = len(doc.Blocks)
		}
		doc.Blocks = append(doc.Blocks[:idx], append([]Block{b}, doc.Blocks[idx:]...)...)
	}
	return doc.HTML(), nil
}

// ImageRef is one image found in article content.
type ImageRef struct {
	Slot Slot // empty when the image carries no slot class
	Src  string
	Alt  string
}

var slotClassRe = regexp.MustCompile(`recipe-image-(\w+)`)

// ExtractImageRefs scans the article for img elements in document order.
// Images inserted by InsertImages come back with their slot populated, so
// insert then extract round-trips the slot to source mapping.
func ExtractImageRefs(htmlText string) ([]ImageRef, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlText))
	if err != nil {
		return nil, fmt.Errorf("article scan: %w", err)
	}

	var refs []ImageRef
	doc.Find("img").Each(func(_ int, sel *goquery.Selection) {
		src, ok := sel.Attr("src")
		if !ok || src == "" {
			return
		}
		ref := ImageRef{Src: src}
		ref.Alt, _ = sel.Attr("alt")

		class, _ := sel.Attr("class")
		if class == "" {
			class, _ = sel.Parent().Attr("class")
		}
		if m := slotClassRe.FindStringSubmatch(class); m != nil {
			ref.Slot = Slot(m[1])
		}
		refs = append(refs, ref)
	})
	return refs, nil
}

// RewriteImageSrcs replaces every img src present in the mapping with its
// replacement URL, leaving unknown sources untouched.
func RewriteImageSrcs(htmlText string, replace map[string]string) (string, error) {
	if len(replace) == 0 {
		return htmlText, nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlText))
	if err != nil {
		return "", fmt.Errorf("article rewrite: %w", err)
	}
	doc.Find("img").Each(func(_ int, sel *goquery.Selection) {
		src, ok := sel.Attr("src")
		if !ok {
			return
		}
		if to, ok := replace[src]; ok && to != "" {
			sel.SetAttr("src", to)
		}
	})
	out, err := doc.Find("body").Html()
	if err != nil {
		return "", fmt.Errorf("article rewrite: %w", err)
	}
	return out, nil
}
