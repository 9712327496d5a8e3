// Package parser reads syndication feeds and the configured source lists.
package parser

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"NewsIngestor/internal/domain"
	"NewsIngestor/internal/ports"
)

// FeedReader fetches RSS, Atom and JSON feeds.
type FeedReader struct {
	client    *http.Client
	userAgent string
}

var _ ports.FeedReader = (*FeedReader)(nil)

// NewFeedReader wires an HTTP client; nil gets a 20 second timeout.
func NewFeedReader(client *http.Client, userAgent string) *FeedReader {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	if userAgent == "" {
		userAgent = "NewsIngestor/1.0"
	}
	return &FeedReader{client: client, userAgent: userAgent}
}

// Read downloads and parses the feed at endpoint. Items without a usable
// link are dropped.
func (r *FeedReader) Read(ctx context.Context, endpoint string) (domain.Feed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.Feed{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", r.userAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/feed+json, application/xml;q=0.9, */*;q=0.8")

	resp, err := r.client.Do(req)
	if err != nil {
		return domain.Feed{}, fmt.Errorf("request feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.Feed{}, fmt.Errorf("feed returned %s", resp.Status)
	}

	parsed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return domain.Feed{}, fmt.Errorf("parse feed: %w", err)
	}

	feed := domain.Feed{Title: strings.TrimSpace(parsed.Title)}
	for _, item := range parsed.Items {
		if item == nil {
			continue
		}
		link := itemLink(item, resp.Request.URL)
		if link == "" {
			continue
		}
		feed.Items = append(feed.Items, domain.FeedItem{
			Title:   strings.TrimSpace(item.Title),
			Link:    link,
			PubDate: itemDate(item),
		})
	}
	return feed, nil
}

// itemLink prefers the item link and falls back to a URL-shaped GUID.
// Relative item links are resolved against the feed URL; GUIDs must be
// absolute.
func itemLink(item *gofeed.Item, base *url.URL) string {
	if link := strings.TrimSpace(item.Link); link != "" {
		if u, err := url.Parse(link); err == nil {
			if base != nil {
				u = base.ResolveReference(u)
			}
			if isHTTP(u) {
				return u.String()
			}
		}
	}
	if u, err := url.Parse(strings.TrimSpace(item.GUID)); err == nil && isHTTP(u) {
		return u.String()
	}
	return ""
}

func isHTTP(u *url.URL) bool {
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func itemDate(item *gofeed.Item) *time.Time {
	switch {
	case item.PublishedParsed != nil:
		t := item.PublishedParsed.UTC()
		return &t
	case item.UpdatedParsed != nil:
		t := item.UpdatedParsed.UTC()
		return &t
	}
	return nil
}
