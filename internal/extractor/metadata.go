package extractor

import (
	"bytes"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

var spaceRe = regexp.MustCompile(`\s+`)

// pageMeta holds document-level facts shared by all stages.
type pageMeta struct {
	Title       string
	Images      []string
	Author      string
	PublishedAt *time.Time
	Language    string
	Canonical   string
}

func parseDocument(html []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return doc, nil
}

func readMeta(doc *goquery.Document, base *url.URL) pageMeta {
	meta := pageMeta{
		Title: firstNonEmpty(
			metaContent(doc, `meta[property="og:title"]`),
			metaContent(doc, `meta[name="twitter:title"]`),
			collapse(doc.Find("title").First().Text()),
		),
		Author:   metaContent(doc, `meta[name="author"]`),
		Language: strings.TrimSpace(doc.Find("html").AttrOr("lang", "")),
	}

	if published := metaContent(doc, `meta[property="article:published_time"]`); published != "" {
		meta.PublishedAt = parseTime(published)
	}

	if base != nil {
		meta.Canonical = base.String()
	}
	if href, ok := doc.Find(`link[rel="canonical"]`).First().Attr("href"); ok {
		if resolved := resolve(base, href); resolved != "" {
			meta.Canonical = resolved
		}
	}

	var images []string
	images = appendImage(images, base, metaContent(doc, `meta[property="og:image"]`))
	images = appendImage(images, base, metaContent(doc, `meta[name="twitter:image"]`))
	doc.Find("img[src]").Each(func(_ int, img *goquery.Selection) {
		images = appendImage(images, base, img.AttrOr("src", ""))
	})
	meta.Images = images

	return meta
}

func metaContent(doc *goquery.Document, selector string) string {
	return strings.TrimSpace(doc.Find(selector).First().AttrOr("content", ""))
}

func appendImage(images []string, base *url.URL, src string) []string {
	abs := resolve(base, src)
	if abs == "" || !strings.HasPrefix(abs, "http") {
		return images
	}
	for _, existing := range images {
		if existing == abs {
			return images
		}
	}
	return append(images, abs)
}

func resolve(base *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(ref, "data:") {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if base == nil {
		return u.String()
	}
	return base.ResolveReference(u).String()
}

var timeLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

func parseTime(value string) *time.Time {
	value = strings.TrimSpace(value)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

func collapse(text string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(text, " "))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
