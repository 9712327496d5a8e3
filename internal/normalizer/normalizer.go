// Package normalizer cleans extracted text and fingerprints it for exact
// duplicate detection.
//
// The fingerprint is SHA-1 over the first HashPrefixLength characters of the
// clean text. Two long articles sharing that prefix hash identically; this
// is accepted in exchange for bounded hashing cost.
package normalizer

import (
	"crypto/sha1"
	"encoding/hex"
	"regexp"
	"strings"
	"unicode"

	"NewsIngestor/internal/domain"
)

const DefaultHashPrefixLength = 10_000

// DefaultBoilerplateMarkers are removed wherever they appear as whole words.
var DefaultBoilerplateMarkers = []string{
	"ADVERTISEMENT",
	"Continue reading below",
	"Skip to main content",
}

var whitespaceRe = regexp.MustCompile(`\s+`)

// Normalizer is safe for concurrent use.
type Normalizer struct {
	prefix  int
	markers []*regexp.Regexp
}

// New builds a normalizer. Non-positive prefix falls back to the default;
// a nil markers slice uses DefaultBoilerplateMarkers.
func New(hashPrefixLength int, markers []string) *Normalizer {
	if hashPrefixLength <= 0 {
		hashPrefixLength = DefaultHashPrefixLength
	}
	if markers == nil {
		markers = DefaultBoilerplateMarkers
	}
	compiled := make([]*regexp.Regexp, 0, len(markers))
	for _, m := range markers {
		m = strings.TrimSpace(m)
		if m == "" {
			continue
		}
		compiled = append(compiled, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(m)+`\b`))
	}
	return &Normalizer{prefix: hashPrefixLength, markers: compiled}
}

// Normalize cleans title and text and hashes the clean text.
func (n *Normalizer) Normalize(title, rawText string) domain.NormalizedContent {
	cleanText := n.Clean(rawText)
	return domain.NormalizedContent{
		CleanTitle:  n.Clean(title),
		CleanText:   cleanText,
		ContentHash: n.Hash(cleanText),
	}
}

// Clean strips control characters and boilerplate markers and collapses
// whitespace.
func (n *Normalizer) Clean(text string) string {
	if text == "" {
		return ""
	}
	text = strings.Map(func(r rune) rune {
		if r == unicode.ReplacementChar || unicode.IsControl(r) {
			return ' '
		}
		return r
	}, text)
	for _, re := range n.markers {
		text = re.ReplaceAllString(text, " ")
	}
	text = whitespaceRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// Hash fingerprints already-clean text.
func (n *Normalizer) Hash(cleanText string) string {
	runes := []rune(cleanText)
	if len(runes) > n.prefix {
		cleanText = string(runes[:n.prefix])
	}
	sum := sha1.Sum([]byte(cleanText))
	return hex.EncodeToString(sum[:])
}
