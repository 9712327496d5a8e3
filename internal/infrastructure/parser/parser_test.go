package parser

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsIngestor/internal/domain"
)

const rssFixture = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Example Wire</title>
  <item>
    <title> First story </title>
    <link>https://example.com/news/1</link>
    <pubDate>Sat, 08 Nov 2025 10:00:00 GMT</pubDate>
  </item>
  <item>
    <title>Relative link</title>
    <link>/news/2</link>
  </item>
  <item>
    <title>GUID only</title>
    <guid isPermaLink="true">https://example.com/news/3</guid>
  </item>
  <item>
    <title>No link at all</title>
    <guid isPermaLink="false">abc-123</guid>
  </item>
</channel>
</rss>`

func TestFeedReaderParsesItems(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(rssFixture))
	}))
	defer srv.Close()

	feed, err := NewFeedReader(srv.Client(), "").Read(context.Background(), srv.URL+"/rss")
	require.NoError(t, err)

	assert.Equal(t, "Example Wire", feed.Title)
	require.Len(t, feed.Items, 3)

	assert.Equal(t, "First story", feed.Items[0].Title)
	assert.Equal(t, "https://example.com/news/1", feed.Items[0].Link)
	require.NotNil(t, feed.Items[0].PubDate)
	assert.True(t, time.Date(2025, 11, 8, 10, 0, 0, 0, time.UTC).Equal(*feed.Items[0].PubDate))

	assert.Equal(t, srv.URL+"/news/2", feed.Items[1].Link)
	assert.Nil(t, feed.Items[1].PubDate)

	assert.Equal(t, "https://example.com/news/3", feed.Items[2].Link)
}

func TestFeedReaderErrors(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("this is not a feed"))
	}))
	defer srv.Close()

	reader := NewFeedReader(srv.Client(), "")

	_, err := reader.Read(context.Background(), srv.URL+"/missing")
	require.Error(t, err)

	_, err = reader.Read(context.Background(), srv.URL+"/garbage")
	require.Error(t, err)
}

func TestParseSources(t *testing.T) {
	t.Parallel()

	list, err := ParseSources([]byte(`
- name: wire
  type: feed
  endpoint: https://example.com/rss
  fetchIntervalSeconds: 600
- name: desk
  type: manual
  active: false
`))
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, 10*time.Minute, list[0].FetchInterval())
	assert.True(t, list[0].IsActive())
	assert.False(t, list[1].IsActive())

	doc, err := ParseSources([]byte("sources:\n  - name: wire\n    type: feed\n    endpoint: https://example.com/rss\n"))
	require.NoError(t, err)
	assert.Len(t, doc, 1)

	_, err = ParseSources([]byte("- name: bad\n  type: feed\n  endpoint: /relative\n"))
	require.Error(t, err)

	_, err = ParseSources([]byte("- name: odd\n  type: scraper\n"))
	require.Error(t, err)
}

func TestStaticSourcesReturnsCopy(t *testing.T) {
	t.Parallel()

	src := NewStaticSources([]domain.Source{{Name: "wire", Type: domain.SourceFeed}})
	list, err := src.Sources(context.Background())
	require.NoError(t, err)
	list[0].Name = "changed"

	again, err := src.Sources(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "wire", again[0].Name)
}

func TestFileSourcesReloadsOnChange(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "sources.yaml")
	write := func(content string) {
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	write("- name: one\n  type: feed\n  endpoint: https://example.com/one\n")

	fs, err := LoadFileSources(path, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, fs.Watch(ctx))

	names := func() []string {
		list, _ := fs.Sources(context.Background())
		out := make([]string, 0, len(list))
		for _, s := range list {
			out = append(out, s.Name)
		}
		return out
	}
	assert.Equal(t, []string{"one"}, names())

	write("- name: one\n  type: feed\n  endpoint: https://example.com/one\n- name: two\n  type: feed\n  endpoint: https://example.com/two\n")
	assert.Eventually(t, func() bool { return len(names()) == 2 }, 5*time.Second, 20*time.Millisecond)

	// Broken edits keep the last good list.
	write("- name: [broken\n")
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, []string{"one", "two"}, names())
}

func TestLoadFileSourcesMissingFile(t *testing.T) {
	t.Parallel()

	_, err := LoadFileSources(filepath.Join(t.TempDir(), "absent.yaml"), nil)
	require.Error(t, err)
}
