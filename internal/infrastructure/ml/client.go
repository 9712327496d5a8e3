package ml

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"NewsIngestor/internal/ports"
)

// maxClassifyChars bounds the text sent to the classifier.
const maxClassifyChars = 4000

// Client talks to an external topic classification service.
type Client struct {
	endpoint string
	apiKey   string
	minScore float64
	http     *http.Client
}

var _ ports.Categorizer = (*Client)(nil)

// NewClient creates a reusable HTTP client. Labels scored below minScore
// are ignored.
func NewClient(endpoint, apiKey string, minScore float64) *Client {
	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		apiKey:   apiKey,
		minScore: minScore,
		http:     &http.Client{Timeout: 10 * time.Second},
	}
}

// Categorize asks the service for a topic label. The caller maps the raw
// label onto its taxonomy.
func (c *Client) Categorize(ctx context.Context, title, text string) (string, error) {
	if len([]rune(text)) > maxClassifyChars {
		text = string([]rune(text)[:maxClassifyChars])
	}
	payload := map[string]any{
		"title": title,
		"text":  text,
	}

	var resp struct {
		Label string  `json:"label"`
		Score float64 `json:"score"`
	}
	if err := c.post(ctx, "/classify", payload, &resp); err != nil {
		return "", err
	}
	if resp.Score < c.minScore {
		return "", nil
	}
	return resp.Label, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, v any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		closeErr := resp.Body.Close()
		if closeErr != nil {
			return fmt.Errorf("unexpected status %s, close body: %v", resp.Status, closeErr)
		}
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		_ = resp.Body.Close()
		return fmt.Errorf("decode response: %w", err)
	}

	if err := resp.Body.Close(); err != nil {
		return fmt.Errorf("close response body: %w", err)
	}

	return nil
}
