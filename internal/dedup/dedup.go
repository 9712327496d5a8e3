// Package dedup decides whether a candidate article already exists.
//
// Matching is exact: the source URL first, then the content hash. The check
// races with concurrent inserts, so the store's uniqueness constraints remain
// the final arbiter and report late duplicates as *domain.DuplicateError.
package dedup

import (
	"context"
	"fmt"

	"NewsIngestor/internal/domain"
	"NewsIngestor/internal/ports"
)

// NearDuplicateFinder is an optional fuzzy matcher consulted after the exact
// checks miss. Nothing implements it yet.
type NearDuplicateFinder interface {
	FindNear(ctx context.Context, content domain.NormalizedContent) (string, bool, error)
}

// Deduplicator looks candidates up in the article store.
type Deduplicator struct {
	store ports.ArticleStore
	near  NearDuplicateFinder
}

// Option customises a Deduplicator.
type Option func(*Deduplicator)

// WithNearDuplicateFinder enables fuzzy matching.
func WithNearDuplicateFinder(f NearDuplicateFinder) Option {
	return func(d *Deduplicator) { d.near = f }
}

// New builds a Deduplicator over store.
func New(store ports.ArticleStore, opts ...Option) *Deduplicator {
	d := &Deduplicator{store: store}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Exists returns the ID of the matching article, or "" when the candidate
// is new.
func (d *Deduplicator) Exists(ctx context.Context, sourceURL string, content domain.NormalizedContent) (string, error) {
	id, found, err := d.store.FindDuplicate(ctx, sourceURL, content.ContentHash)
	if err != nil {
		return "", fmt.Errorf("find duplicate: %w", err)
	}
	if found {
		return id, nil
	}

	if d.near == nil {
		return "", nil
	}
	id, found, err = d.near.FindNear(ctx, content)
	if err != nil {
		return "", fmt.Errorf("find near duplicate: %w", err)
	}
	if found {
		return id, nil
	}
	return "", nil
}
