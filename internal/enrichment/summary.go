package enrichment

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"NewsIngestor/internal/ports"
)

const (
	longSummaryLength  = 500
	shortSummaryLength = 200
)

// PrefixSummary returns the first 500 characters of text when it is longer
// than 500, otherwise the first 200, cut back to a word boundary.
func PrefixSummary(text string) string {
	text = strings.TrimSpace(text)
	limit := shortSummaryLength
	if utf8.RuneCountInString(text) > longSummaryLength {
		limit = longSummaryLength
	}
	return truncateWords(text, limit)
}

func truncateWords(text string, limit int) string {
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	cut := string(runes[:limit])
	// Only back off to a space when the following rune would split a word.
	if runes[limit] != ' ' && runes[limit] != '\n' {
		if i := strings.LastIndexAny(cut, " \n"); i > len(cut)/2 {
			cut = cut[:i]
		}
	}
	return strings.TrimSpace(cut)
}

// FallbackSummarizer uses the configured summarizer and degrades to
// PrefixSummary when it is absent, fails or returns nothing.
type FallbackSummarizer struct {
	remote ports.Summarizer
	logger *slog.Logger
}

var _ ports.Summarizer = (*FallbackSummarizer)(nil)

// NewFallbackSummarizer wraps remote, which may be nil.
func NewFallbackSummarizer(remote ports.Summarizer, logger *slog.Logger) *FallbackSummarizer {
	return &FallbackSummarizer{remote: remote, logger: logger}
}

// Summarize never returns an error.
func (f *FallbackSummarizer) Summarize(ctx context.Context, title, text string) (string, error) {
	if f.remote != nil {
		summary, err := f.remote.Summarize(ctx, title, text)
		switch {
		case err != nil:
			if f.logger != nil {
				f.logger.Warn("summarizer failed, using prefix summary", "error", err)
			}
		case strings.TrimSpace(summary) != "":
			return strings.TrimSpace(summary), nil
		}
	}
	return PrefixSummary(text), nil
}
