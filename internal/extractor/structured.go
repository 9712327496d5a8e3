package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"

	"NewsIngestor/internal/domain"
)

var articleTypes = map[string]bool{
	"article":              true,
	"newsarticle":          true,
	"blogposting":          true,
	"reportagenewsarticle": true,
	"analysisnewsarticle":  true,
}

// StructuredExtractor reads publisher-declared article markup: JSON-LD
// Article objects first, then an itemprop=articleBody element.
type StructuredExtractor struct {
	converter *md.Converter
}

// NewStructuredExtractor builds the highest-priority stage.
func NewStructuredExtractor() *StructuredExtractor {
	return &StructuredExtractor{converter: md.NewConverter("", true, nil)}
}

// Kind identifies the stage.
func (s *StructuredExtractor) Kind() domain.ExtractorKind {
	return domain.ExtractorStructured
}

// Extract returns nil when the page declares no article structure.
func (s *StructuredExtractor) Extract(_ context.Context, in Input) (*domain.ExtractedDocument, error) {
	doc, err := parseDocument(in.HTML)
	if err != nil {
		return nil, err
	}
	meta := readMeta(doc, in.URL)

	ld := findLinkedArticle(doc)
	body := ""
	if ld != nil {
		body = strings.TrimSpace(ld.Body)
	}

	if body == "" {
		node := doc.Find(`[itemprop="articleBody"]`).First()
		if node.Length() == 0 {
			return nil, nil
		}
		fragment, err := node.Html()
		if err != nil {
			return nil, fmt.Errorf("render article body: %w", err)
		}
		body, err = s.converter.ConvertString(fragment)
		if err != nil {
			return nil, fmt.Errorf("convert article body: %w", err)
		}
	}

	out := &domain.ExtractedDocument{
		Title:        meta.Title,
		RawText:      body,
		Images:       meta.Images,
		Author:       meta.Author,
		PublishedAt:  meta.PublishedAt,
		Language:     meta.Language,
		CanonicalURL: meta.Canonical,
	}

	if ld != nil {
		if ld.Headline != "" {
			out.Title = ld.Headline
		}
		if ld.Author != "" {
			out.Author = ld.Author
		}
		if published := parseTime(ld.DatePublished); published != nil {
			out.PublishedAt = published
		}
		if ld.Image != "" {
			images := appendImage(nil, in.URL, ld.Image)
			for _, img := range meta.Images {
				images = appendImage(images, in.URL, img)
			}
			out.Images = images
		}
	}

	return out, nil
}

// linkedArticle is the subset of schema.org Article used here.
type linkedArticle struct {
	Headline      string
	Body          string
	Author        string
	DatePublished string
	Image         string
}

func findLinkedArticle(doc *goquery.Document) *linkedArticle {
	var found *linkedArticle
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, script *goquery.Selection) bool {
		var payload any
		if err := json.Unmarshal([]byte(script.Text()), &payload); err != nil {
			return true
		}
		found = searchArticle(payload)
		return found == nil
	})
	return found
}

func searchArticle(node any) *linkedArticle {
	switch v := node.(type) {
	case []any:
		for _, item := range v {
			if art := searchArticle(item); art != nil {
				return art
			}
		}
	case map[string]any:
		if isArticleType(v["@type"]) {
			return &linkedArticle{
				Headline:      stringValue(v["headline"]),
				Body:          stringValue(v["articleBody"]),
				Author:        nameValue(v["author"]),
				DatePublished: stringValue(v["datePublished"]),
				Image:         urlValue(v["image"]),
			}
		}
		if graph, ok := v["@graph"]; ok {
			return searchArticle(graph)
		}
	}
	return nil
}

func isArticleType(t any) bool {
	switch v := t.(type) {
	case string:
		return articleTypes[strings.ToLower(v)]
	case []any:
		for _, item := range v {
			if isArticleType(item) {
				return true
			}
		}
	}
	return false
}

func stringValue(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

func nameValue(v any) string {
	switch a := v.(type) {
	case string:
		return strings.TrimSpace(a)
	case map[string]any:
		return stringValue(a["name"])
	case []any:
		names := make([]string, 0, len(a))
		for _, item := range a {
			if name := nameValue(item); name != "" {
				names = append(names, name)
			}
		}
		return strings.Join(names, ", ")
	}
	return ""
}

func urlValue(v any) string {
	switch img := v.(type) {
	case string:
		return strings.TrimSpace(img)
	case map[string]any:
		return stringValue(img["url"])
	case []any:
		for _, item := range img {
			if u := urlValue(item); u != "" {
				return u
			}
		}
	}
	return ""
}
