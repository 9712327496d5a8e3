package enrichment

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsIngestor/internal/domain"
)

type stubCategorizer struct {
	label string
	err   error
}

func (s stubCategorizer) Categorize(context.Context, string, string) (string, error) {
	return s.label, s.err
}

type stubSummarizer struct {
	summary string
	err     error
}

func (s stubSummarizer) Summarize(context.Context, string, string) (string, error) {
	return s.summary, s.err
}

func TestKeywordClassifier(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		title string
		text  string
		want  string
	}{
		{
			name:  "sports",
			title: "Late goal decides the championship",
			text:  "The coach praised the team after the match.",
			want:  CategorySports,
		},
		{
			name:  "technology via title weight",
			title: "New smartphone chip",
			text:  "It was announced on Tuesday.",
			want:  CategoryTechnology,
		},
		{
			name:  "single weak hit",
			title: "Tuesday notes",
			text:  "A quiet day with one vote.",
			want:  CategoryUncategorized,
		},
		{
			name: "no signal",
			text: "Lorem ipsum dolor sit amet.",
			want: CategoryUncategorized,
		},
	}

	classifier := NewKeywordClassifier(0)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := classifier.Categorize(context.Background(), tc.title, tc.text)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNormalizeLabel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, CategoryBusiness, NormalizeLabel(" Finance "))
	assert.Equal(t, CategoryTechnology, NormalizeLabel("AI"))
	assert.Equal(t, CategoryUncategorized, NormalizeLabel("cooking"))
}

func TestFallbackCategorizer(t *testing.T) {
	t.Parallel()

	local := stubCategorizer{label: CategoryScience}

	got, err := NewFallbackCategorizer(stubCategorizer{label: "climate"}, local, nil).
		Categorize(context.Background(), "", "")
	require.NoError(t, err)
	assert.Equal(t, CategoryEnvironment, got)

	got, err = NewFallbackCategorizer(stubCategorizer{err: errors.New("503")}, local, nil).
		Categorize(context.Background(), "", "")
	require.NoError(t, err)
	assert.Equal(t, CategoryScience, got)

	got, err = NewFallbackCategorizer(stubCategorizer{label: "cooking"}, local, nil).
		Categorize(context.Background(), "", "")
	require.NoError(t, err)
	assert.Equal(t, CategoryScience, got)

	got, err = NewFallbackCategorizer(nil, nil, nil).Categorize(context.Background(), "", "")
	require.NoError(t, err)
	assert.Equal(t, CategoryUncategorized, got)
}

func TestRelevanceWithoutQueryIsNeutral(t *testing.T) {
	t.Parallel()

	assert.Equal(t, NeutralRelevance, Relevance("title", "text", domain.QueryContext{}))
}

func TestRelevanceComponents(t *testing.T) {
	t.Parallel()

	query := domain.QueryContext{Keywords: []string{"climate", "carbon"}, Topic: "climate policy"}

	matching := Relevance("Climate talks", "Negotiators agreed on carbon targets and climate policy.", query)
	unrelated := Relevance("Transfer news", "The striker joined a new club for the season.", query)

	assert.Greater(t, matching, 0.5)
	assert.Equal(t, 0.0, unrelated)
	assert.LessOrEqual(t, matching, 1.0)
}

func TestRelevanceIsRoundedToFourDecimals(t *testing.T) {
	t.Parallel()

	score := Relevance("", "climate climate weather sport news", domain.QueryContext{Keywords: []string{"climate", "finance", "elections"}})
	assert.Equal(t, score, round4(score))
	assert.Greater(t, score, 0.0)
}

func TestKeywordMatchUsesSubstrings(t *testing.T) {
	t.Parallel()

	doc := tokenize("The elections were held yesterday")
	assert.Equal(t, 1.0, keywordMatch(doc, []string{"election"}))
	assert.Equal(t, 0.0, wordOverlap(doc, []string{"election"}))
	assert.Equal(t, 0.5, wordOverlap(doc, []string{"elections", "budget"}))
}

func TestCosineTFIDF(t *testing.T) {
	t.Parallel()

	a := tokenize("solar wind power")
	assert.InDelta(t, 1.0, cosineTFIDF(a, a), 1e-9)
	assert.Equal(t, 0.0, cosineTFIDF(a, tokenize("football match")))
	assert.Equal(t, 0.0, cosineTFIDF(nil, a))
}

func TestPrefixSummary(t *testing.T) {
	t.Parallel()

	short := "A short text."
	assert.Equal(t, short, PrefixSummary(short))

	medium := strings.Repeat("word ", 80) // 400 chars
	got := PrefixSummary(medium)
	assert.LessOrEqual(t, len(got), 200)
	assert.False(t, strings.HasSuffix(got, "wor"))

	long := strings.Repeat("abcd ", 200) // 1000 chars
	got = PrefixSummary(long)
	assert.LessOrEqual(t, len(got), 500)
	assert.Greater(t, len(got), 200)
	assert.True(t, strings.HasSuffix(got, "abcd"))
}

func TestFallbackSummarizer(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("word ", 10)

	got, err := NewFallbackSummarizer(stubSummarizer{summary: " LLM summary "}, nil).Summarize(context.Background(), "t", text)
	require.NoError(t, err)
	assert.Equal(t, "LLM summary", got)

	got, err = NewFallbackSummarizer(stubSummarizer{err: errors.New("timeout")}, nil).Summarize(context.Background(), "t", text)
	require.NoError(t, err)
	assert.Equal(t, strings.TrimSpace(text), got)

	got, err = NewFallbackSummarizer(nil, nil).Summarize(context.Background(), "t", text)
	require.NoError(t, err)
	assert.Equal(t, strings.TrimSpace(text), got)
}

func TestScorer(t *testing.T) {
	t.Parallel()

	scorer := NewScorer(nil, domain.QueryContext{})
	got, err := scorer.Score(context.Background(), domain.NormalizedContent{
		CleanTitle: "Vaccine trial results",
		CleanText:  "Doctors say the vaccine protected patients in the hospital study.",
	})
	require.NoError(t, err)
	assert.Equal(t, CategoryHealth, got.Category)
	assert.Equal(t, NeutralRelevance, got.RelevanceScore)

	_, err = NewScorer(stubCategorizer{err: errors.New("down")}, domain.QueryContext{}).
		Score(context.Background(), domain.NormalizedContent{})
	require.Error(t, err)
}
