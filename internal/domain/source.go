package domain

import (
	"fmt"
	"time"
)

// SourceKind tells the scheduler whether a source is polled.
type SourceKind string

const (
	SourceFeed   SourceKind = "feed"
	SourceManual SourceKind = "manual"
)

// Source is a configured content origin.
type Source struct {
	Name                 string     `yaml:"name"`
	Type                 SourceKind `yaml:"type"`
	Endpoint             string     `yaml:"endpoint"`
	FetchIntervalSeconds int        `yaml:"fetchIntervalSeconds"`
	Active               *bool      `yaml:"active,omitempty"`
}

// IsActive defaults to true when the flag is omitted.
func (s Source) IsActive() bool {
	return s.Active == nil || *s.Active
}

// Validate checks the name, kind and, for feeds, the endpoint.
func (s Source) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	switch s.Type {
	case SourceFeed:
		if err := ValidateSourceURL(s.Endpoint); err != nil {
			return fmt.Errorf("%s: endpoint %w", s.Name, err)
		}
	case SourceManual:
	default:
		return fmt.Errorf("%s: unknown type %q", s.Name, s.Type)
	}
	if s.FetchIntervalSeconds < 0 {
		return fmt.Errorf("%s: fetchIntervalSeconds must not be negative", s.Name)
	}
	return nil
}

// FetchInterval returns the per-source minimum spacing between polls.
func (s Source) FetchInterval() time.Duration {
	if s.FetchIntervalSeconds <= 0 {
		return 0
	}
	return time.Duration(s.FetchIntervalSeconds) * time.Second
}

// Feed is a parsed syndication document.
type Feed struct {
	Title string
	Items []FeedItem
}

// FeedItem is one entry discovered in a feed.
type FeedItem struct {
	Title   string
	Link    string
	PubDate *time.Time
}
