package extractor

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"regexp"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"NewsIngestor/internal/domain"
)

const (
	readerableMinLength = 140
	readerableMinScore  = 20
)

var unlikelyCandidateRe = regexp.MustCompile(`(?i)banner|breadcrumbs|combx|comment|community|disqus|extra|footer|gdpr|header|legends|menu|related|remark|replies|rss|shoutbox|sidebar|skyscraper|social|sponsor|supplemental|ad-break|agegate|pagination|pager|popup|yom-remote`)

// ReadabilityExtractor runs the readability algorithm on pages that look
// like articles.
type ReadabilityExtractor struct{}

// NewReadabilityExtractor builds the second stage.
func NewReadabilityExtractor() *ReadabilityExtractor {
	return &ReadabilityExtractor{}
}

// Kind identifies the stage.
func (r *ReadabilityExtractor) Kind() domain.ExtractorKind {
	return domain.ExtractorReadability
}

// Extract returns nil for pages that are not probably readerable.
func (r *ReadabilityExtractor) Extract(_ context.Context, in Input) (*domain.ExtractedDocument, error) {
	doc, err := parseDocument(in.HTML)
	if err != nil {
		return nil, err
	}
	if !probablyReaderable(doc) {
		return nil, nil
	}
	meta := readMeta(doc, in.URL)

	article, err := readability.FromReader(bytes.NewReader(in.HTML), in.URL)
	if err != nil {
		return nil, fmt.Errorf("readability: %w", err)
	}

	out := &domain.ExtractedDocument{
		Title:        firstNonEmpty(article.Title, meta.Title),
		RawText:      article.TextContent,
		Images:       meta.Images,
		Author:       firstNonEmpty(article.Byline, meta.Author),
		PublishedAt:  meta.PublishedAt,
		Language:     meta.Language,
		CanonicalURL: meta.Canonical,
	}
	if article.Image != "" {
		images := appendImage(nil, in.URL, article.Image)
		for _, img := range meta.Images {
			images = appendImage(images, in.URL, img)
		}
		out.Images = images
	}
	return out, nil
}

// probablyReaderable scores p and pre nodes with enough text, skipping
// unlikely candidates.
func probablyReaderable(doc *goquery.Document) bool {
	score := 0.0
	readerable := false
	doc.Find("p, pre").EachWithBreak(func(_ int, node *goquery.Selection) bool {
		match := node.AttrOr("class", "") + " " + node.AttrOr("id", "")
		if unlikelyCandidateRe.MatchString(match) {
			return true
		}
		length := TextLength(collapse(node.Text()))
		if length < readerableMinLength {
			return true
		}
		score += math.Sqrt(float64(length - readerableMinLength))
		if score > readerableMinScore {
			readerable = true
			return false
		}
		return true
	})
	return readerable
}
