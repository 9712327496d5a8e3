package extractor

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"NewsIngestor/internal/domain"
)

const boilerplateElements = "script, style, noscript, nav, header, footer, aside, form, iframe, button"

// HeuristicExtractor is the last-resort stage: it collects paragraph-like
// elements long enough to not be boilerplate.
type HeuristicExtractor struct {
	minParagraph int
}

// NewHeuristicExtractor builds the fallback stage.
func NewHeuristicExtractor(minParagraphLength int) *HeuristicExtractor {
	if minParagraphLength <= 0 {
		minParagraphLength = DefaultMinParagraphLength
	}
	return &HeuristicExtractor{minParagraph: minParagraphLength}
}

// Kind identifies the stage.
func (h *HeuristicExtractor) Kind() domain.ExtractorKind {
	return domain.ExtractorHeuristic
}

// Extract prefers <article> content and falls back to the body.
func (h *HeuristicExtractor) Extract(_ context.Context, in Input) (*domain.ExtractedDocument, error) {
	doc, err := parseDocument(in.HTML)
	if err != nil {
		return nil, err
	}
	meta := readMeta(doc, in.URL)
	doc.Find(boilerplateElements).Remove()

	root := doc.Find("article").First()
	hasArticle := root.Length() > 0
	if !hasArticle {
		root = doc.Find("body").First()
	}

	var paragraphs []string
	root.Find("p").Each(func(_ int, p *goquery.Selection) {
		text := collapse(p.Text())
		if TextLength(text) >= h.minParagraph {
			paragraphs = append(paragraphs, text)
		}
	})

	if len(paragraphs) == 0 && hasArticle {
		text := collapse(root.Text())
		if TextLength(text) >= h.minParagraph {
			paragraphs = append(paragraphs, text)
		}
	}

	if len(paragraphs) == 0 {
		return nil, nil
	}

	return &domain.ExtractedDocument{
		Title:        meta.Title,
		RawText:      strings.Join(paragraphs, "\n\n"),
		Images:       meta.Images,
		Author:       meta.Author,
		PublishedAt:  meta.PublishedAt,
		Language:     meta.Language,
		CanonicalURL: meta.Canonical,
	}, nil
}
