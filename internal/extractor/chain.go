// Package extractor turns fetched HTML into an ExtractedDocument by trying
// strategies in a fixed priority order.
package extractor

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"unicode/utf8"

	"NewsIngestor/internal/domain"
)

const (
	DefaultMinContentLength   = 200
	DefaultMinParagraphLength = 50
)

// Input carries one fetched page through the chain.
type Input struct {
	HTML []byte
	URL  *url.URL
}

// Strategy is a single extraction stage. A nil document means the stage had
// nothing to offer for this page.
type Strategy interface {
	Kind() domain.ExtractorKind
	Extract(ctx context.Context, in Input) (*domain.ExtractedDocument, error)
}

// Chain runs strategies in order and accepts the first result whose text is
// longer than the minimum content length.
type Chain struct {
	stages     []Strategy
	minContent int
	logger     *slog.Logger
}

// NewChain wires the stages in priority order.
func NewChain(minContentLength int, logger *slog.Logger, stages ...Strategy) *Chain {
	if minContentLength <= 0 {
		minContentLength = DefaultMinContentLength
	}
	return &Chain{stages: stages, minContent: minContentLength, logger: logger}
}

// NewDefaultChain builds structured -> readability -> heuristic.
func NewDefaultChain(minContentLength, minParagraphLength int, logger *slog.Logger) *Chain {
	return NewChain(minContentLength, logger,
		NewStructuredExtractor(),
		NewReadabilityExtractor(),
		NewHeuristicExtractor(minParagraphLength),
	)
}

// Stages lists the configured stage kinds in order.
func (c *Chain) Stages() []domain.ExtractorKind {
	kinds := make([]domain.ExtractorKind, 0, len(c.stages))
	for _, s := range c.stages {
		kinds = append(kinds, s.Kind())
	}
	return kinds
}

// Extract returns the best available document or an error wrapping
// domain.ErrExtractionFailed.
func (c *Chain) Extract(ctx context.Context, html []byte, pageURL string) (*domain.ExtractedDocument, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return nil, domain.Permanent(fmt.Errorf("parse page url %s: %w", pageURL, err))
	}

	in := Input{HTML: html, URL: parsed}
	reasons := make([]string, 0, len(c.stages))

	for _, stage := range c.stages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		doc, err := stage.Extract(ctx, in)
		switch {
		case err != nil:
			reasons = append(reasons, fmt.Sprintf("%s: %v", stage.Kind(), err))
			c.debug("extractor stage failed", "stage", stage.Kind(), "url", pageURL, "error", err)
			continue
		case doc == nil:
			reasons = append(reasons, fmt.Sprintf("%s: no content", stage.Kind()))
			continue
		}

		length := TextLength(doc.RawText)
		if length <= c.minContent {
			reasons = append(reasons, fmt.Sprintf("%s: %d chars below threshold", stage.Kind(), length))
			c.debug("extractor stage below threshold", "stage", stage.Kind(), "url", pageURL, "chars", length)
			continue
		}

		doc.ExtractorUsed = stage.Kind()
		if doc.CanonicalURL == "" {
			doc.CanonicalURL = parsed.String()
		}
		return doc, nil
	}

	return nil, fmt.Errorf("%w: %s", domain.ErrExtractionFailed, strings.Join(reasons, "; "))
}

// TextLength counts characters of trimmed text.
func TextLength(text string) int {
	return utf8.RuneCountInString(strings.TrimSpace(text))
}

func (c *Chain) debug(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}
