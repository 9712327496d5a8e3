package enrichment

import (
	"context"
	"fmt"

	"NewsIngestor/internal/domain"
	"NewsIngestor/internal/ports"
)

// Scorer produces the category and relevance score of one document.
type Scorer struct {
	categorizer ports.Categorizer
	query       domain.QueryContext
}

// NewScorer falls back to the local keyword classifier when categorizer is nil.
func NewScorer(categorizer ports.Categorizer, query domain.QueryContext) *Scorer {
	if categorizer == nil {
		categorizer = NewKeywordClassifier(DefaultMinHits)
	}
	return &Scorer{categorizer: categorizer, query: query}
}

// Score categorizes and ranks normalized content against the configured query.
func (s *Scorer) Score(ctx context.Context, content domain.NormalizedContent) (domain.Enrichment, error) {
	category, err := s.categorizer.Categorize(ctx, content.CleanTitle, content.CleanText)
	if err != nil {
		return domain.Enrichment{}, fmt.Errorf("categorize: %w", err)
	}
	if category == "" {
		category = CategoryUncategorized
	}

	return domain.Enrichment{
		Category:       category,
		RelevanceScore: Relevance(content.CleanTitle, content.CleanText, s.query),
	}, nil
}
