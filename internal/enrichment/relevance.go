package enrichment

import (
	"math"
	"strings"

	"NewsIngestor/internal/domain"
)

const (
	weightSemantic = 0.55
	weightKeyword  = 0.30
	weightOverlap  = 0.15

	// NeutralRelevance is reported when no query context is configured.
	NeutralRelevance = 0.5
)

// Relevance scores text against the query context in [0,1], rounded to four
// decimals. The three components are TF-IDF cosine similarity against a
// reference built from the query, the fraction of keywords found as
// substrings, and the fraction of keywords found as whole tokens.
func Relevance(title, text string, query domain.QueryContext) float64 {
	if query.IsZero() {
		return NeutralRelevance
	}

	docTokens := tokenize(title + " " + text)
	refTokens := tokenize(strings.Join(append([]string{query.Topic, query.Category}, query.Keywords...), " "))

	score := weightSemantic*cosineTFIDF(docTokens, refTokens) +
		weightKeyword*keywordMatch(docTokens, query.Keywords) +
		weightOverlap*wordOverlap(docTokens, query.Keywords)

	return round4(clamp01(score))
}

func keywordMatch(docTokens []string, keywords []string) float64 {
	terms := nonEmpty(keywords)
	if len(terms) == 0 {
		return 0
	}
	joined := " " + strings.Join(docTokens, " ") + " "
	matches := 0
	for _, k := range terms {
		phrase := strings.Join(tokenize(k), " ")
		if phrase != "" && strings.Contains(joined, phrase) {
			matches++
		}
	}
	return float64(matches) / float64(len(terms))
}

func wordOverlap(docTokens []string, keywords []string) float64 {
	terms := nonEmpty(keywords)
	if len(terms) == 0 {
		return 0
	}
	words := make(map[string]struct{}, len(docTokens))
	for _, tok := range docTokens {
		words[tok] = struct{}{}
	}
	overlap := 0
	for _, k := range terms {
		if _, ok := words[strings.ToLower(strings.TrimSpace(k))]; ok {
			overlap++
		}
	}
	return float64(overlap) / float64(len(terms))
}

// cosineTFIDF treats the two token lists as a two-document corpus and
// compares their TF-IDF vectors over the union vocabulary. IDF is smoothed so
// terms present in both documents keep a positive weight.
func cosineTFIDF(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	tfA, tfB := termFreq(a), termFreq(b)

	idf := func(term string) float64 {
		df := 0
		if tfA[term] > 0 {
			df++
		}
		if tfB[term] > 0 {
			df++
		}
		return 1 + math.Log(3.0/float64(1+df))
	}

	var dot, magA, magB float64
	for term, fa := range tfA {
		w := fa * idf(term)
		magA += w * w
		if fb, ok := tfB[term]; ok {
			dot += w * fb * idf(term)
		}
	}
	for term, fb := range tfB {
		w := fb * idf(term)
		magB += w * w
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}

func termFreq(tokens []string) map[string]float64 {
	tf := make(map[string]float64, len(tokens))
	for _, tok := range tokens {
		tf[tok]++
	}
	n := float64(len(tokens))
	for term := range tf {
		tf[term] /= n
	}
	return tf
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}

func clamp01(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
