package enrichment

import (
	"context"
	"log/slog"
	"strings"
	"unicode"

	"NewsIngestor/internal/ports"
)

// DefaultMinHits is the number of keyword hits a category needs before the
// local classifier commits to it.
const DefaultMinHits = 2

// KeywordClassifier picks the taxonomy category with the most keyword hits.
// Title tokens count twice.
type KeywordClassifier struct {
	minHits int
	index   map[string][]string
}

var _ ports.Categorizer = (*KeywordClassifier)(nil)

// NewKeywordClassifier builds the local classifier.
func NewKeywordClassifier(minHits int) *KeywordClassifier {
	if minHits <= 0 {
		minHits = DefaultMinHits
	}
	index := make(map[string][]string)
	for category, terms := range keywords {
		for _, term := range terms {
			index[term] = append(index[term], category)
		}
	}
	return &KeywordClassifier{minHits: minHits, index: index}
}

// Categorize never fails; no signal yields CategoryUncategorized.
func (k *KeywordClassifier) Categorize(_ context.Context, title, text string) (string, error) {
	hits := make(map[string]int)
	count := func(tokens []string, weight int) {
		for _, tok := range tokens {
			for _, category := range k.index[tok] {
				hits[category] += weight
			}
		}
	}
	count(tokenize(title), 2)
	count(tokenize(text), 1)

	best, bestHits := CategoryUncategorized, 0
	for _, category := range Taxonomy {
		if hits[category] > bestHits {
			best, bestHits = category, hits[category]
		}
	}
	if bestHits < k.minHits {
		return CategoryUncategorized, nil
	}
	return best, nil
}

// FallbackCategorizer asks the primary categorizer first and falls back to
// the secondary on error or an unknown label.
type FallbackCategorizer struct {
	primary   ports.Categorizer
	secondary ports.Categorizer
	logger    *slog.Logger
}

var _ ports.Categorizer = (*FallbackCategorizer)(nil)

// NewFallbackCategorizer composes two categorizers. A nil primary makes it a
// thin wrapper around secondary.
func NewFallbackCategorizer(primary, secondary ports.Categorizer, logger *slog.Logger) *FallbackCategorizer {
	return &FallbackCategorizer{primary: primary, secondary: secondary, logger: logger}
}

// Categorize always returns a taxonomy label.
func (f *FallbackCategorizer) Categorize(ctx context.Context, title, text string) (string, error) {
	if f.primary != nil {
		label, err := f.primary.Categorize(ctx, title, text)
		if err == nil {
			if category := NormalizeLabel(label); category != CategoryUncategorized {
				return category, nil
			}
		} else if f.logger != nil {
			f.logger.Warn("remote categorizer failed, using local", "error", err)
		}
	}
	if f.secondary == nil {
		return CategoryUncategorized, nil
	}
	label, err := f.secondary.Categorize(ctx, title, text)
	if err != nil {
		return CategoryUncategorized, err
	}
	return NormalizeLabel(label), nil
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
