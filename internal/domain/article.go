package domain

import "time"

// ExtractorKind identifies the extraction stage that produced a document.
type ExtractorKind string

const (
	ExtractorStructured  ExtractorKind = "structured"
	ExtractorReadability ExtractorKind = "readability"
	ExtractorHeuristic   ExtractorKind = "heuristic"
)

// ExtractedDocument is the output of one extractor stage. It only lives for
// the duration of a single job.
type ExtractedDocument struct {
	Title         string
	RawText       string
	Images        []string
	Author        string
	PublishedAt   *time.Time
	Language      string
	ExtractorUsed ExtractorKind
	CanonicalURL  string
}

// NormalizedContent is the cleaned form of an extracted document.
// ContentHash depends on CleanText only.
type NormalizedContent struct {
	CleanTitle  string
	CleanText   string
	ContentHash string
}

// ArticleStatus enumerates editorial states. The ingestion core only ever
// writes StatusStaged.
type ArticleStatus string

const (
	StatusStaged    ArticleStatus = "staged"
	StatusPending   ArticleStatus = "pending"
	StatusApproved  ArticleStatus = "approved"
	StatusPublished ArticleStatus = "published"
	StatusRejected  ArticleStatus = "rejected"
)

// StagedArticle is the record handed to the editorial store.
type StagedArticle struct {
	ID             string
	Title          string
	Summary        string
	Content        string
	ContentHash    string
	OriginalURL    string
	Source         SourceMeta
	Category       string
	RelevanceScore float64
	Images         []string
	Status         ArticleStatus
	PubDate        time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Enrichment carries the scorer output for one document.
type Enrichment struct {
	Category       string
	RelevanceScore float64
}

// QueryContext narrows relevance scoring to an editorial interest.
type QueryContext struct {
	Keywords []string `yaml:"keywords" json:"keywords"`
	Topic    string   `yaml:"topic" json:"topic"`
	Category string   `yaml:"category" json:"category"`
}

// IsZero reports whether the query carries no signal at all.
func (q QueryContext) IsZero() bool {
	return len(q.Keywords) == 0 && q.Topic == "" && q.Category == ""
}
