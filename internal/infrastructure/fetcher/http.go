// Package fetcher downloads article pages over HTTP.
package fetcher

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html/charset"

	"NewsIngestor/internal/domain"
	"NewsIngestor/internal/ports"
)

const (
	DefaultTimeout      = 15 * time.Second
	DefaultMaxBodyBytes = 10 << 20
	DefaultUserAgent    = "NewsIngestor/1.0 (+https://github.com/newsingestor)"
	maxRedirects        = 5
)

var htmlTypes = map[string]bool{
	"text/html":             true,
	"application/xhtml+xml": true,
}

// HTTPFetcher implements ports.Fetcher. Failures the server or network may
// recover from are plain errors; everything else is domain.Permanent.
type HTTPFetcher struct {
	client       *http.Client
	userAgent    string
	maxBodyBytes int64
}

var _ ports.Fetcher = (*HTTPFetcher)(nil)

// Options configures an HTTPFetcher.
type Options struct {
	Timeout      time.Duration
	MaxBodyBytes int64
	UserAgent    string
	Transport    http.RoundTripper
}

// New builds a fetcher with a redirect cap.
func New(opts Options) *HTTPFetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	return &HTTPFetcher{
		client: &http.Client{
			Transport: opts.Transport,
			Timeout:   opts.Timeout,
			CheckRedirect: func(_ *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("too many redirects (max %d)", maxRedirects)
				}
				return nil
			},
		},
		userAgent:    opts.UserAgent,
		maxBodyBytes: opts.MaxBodyBytes,
	}
}

// Fetch downloads pageURL and returns its body decoded to UTF-8.
func (f *HTTPFetcher) Fetch(ctx context.Context, pageURL string) (ports.Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return ports.Page{}, domain.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return ports.Page{}, fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp.StatusCode); err != nil {
		return ports.Page{}, fmt.Errorf("fetch %s: %w", pageURL, err)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodyBytes+1))
	if err != nil {
		return ports.Page{}, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > f.maxBodyBytes {
		return ports.Page{}, domain.Permanent(fmt.Errorf("content too large (exceeds %d bytes)", f.maxBodyBytes))
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(body)
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil || !htmlTypes[strings.ToLower(mediaType)] {
		return ports.Page{}, domain.Permanent(fmt.Errorf("unsupported content type %q", contentType))
	}

	reader, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return ports.Page{}, domain.Permanent(fmt.Errorf("decode charset: %w", err))
	}
	decoded, err := io.ReadAll(reader)
	if err != nil {
		return ports.Page{}, domain.Permanent(fmt.Errorf("decode body: %w", err))
	}

	return ports.Page{
		URL:         resp.Request.URL.String(),
		Body:        decoded,
		ContentType: contentType,
	}, nil
}

// classifyStatus treats 408, 429 and 5xx as transient. Any other non-2xx
// status will not change on retry.
func classifyStatus(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusRequestTimeout, code == http.StatusTooManyRequests, code >= 500:
		return fmt.Errorf("HTTP %d: %s", code, http.StatusText(code))
	default:
		return domain.Permanent(fmt.Errorf("HTTP %d: %s", code, http.StatusText(code)))
	}
}
