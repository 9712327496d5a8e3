package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsIngestor/internal/domain"
)

func TestFetchDecodesCharsetAndFollowsRedirects(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/new", func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("User-Agent"), "NewsIngestor")
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		// "café" in Latin-1.
		_, _ = w.Write([]byte("<html><body><p>caf\xe9</p></body></html>"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	page, err := New(Options{}).Fetch(context.Background(), srv.URL+"/old")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/new", page.URL)
	assert.Contains(t, string(page.Body), "café")
}

func TestFetchClassifiesFailures(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		status    int
		ctype     string
		body      string
		permanent bool
	}{
		{name: "server error", status: http.StatusBadGateway, permanent: false},
		{name: "rate limited", status: http.StatusTooManyRequests, permanent: false},
		{name: "request timeout", status: http.StatusRequestTimeout, permanent: false},
		{name: "not found", status: http.StatusNotFound, permanent: true},
		{name: "gone", status: http.StatusGone, permanent: true},
		{name: "pdf", status: http.StatusOK, ctype: "application/pdf", body: "%PDF-1.4", permanent: true},
		{name: "too large", status: http.StatusOK, ctype: "text/html", body: strings.Repeat("x", 2048), permanent: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				if tc.ctype != "" {
					w.Header().Set("Content-Type", tc.ctype)
				}
				w.WriteHeader(tc.status)
				_, _ = fmt.Fprint(w, tc.body)
			}))
			defer srv.Close()

			_, err := New(Options{MaxBodyBytes: 1024}).Fetch(context.Background(), srv.URL)
			require.Error(t, err)
			assert.Equal(t, tc.permanent, domain.IsPermanent(err), err.Error())
		})
	}
}

func TestFetchNetworkErrorIsTransient(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(Options{}).Fetch(context.Background(), url)
	require.Error(t, err)
	assert.False(t, domain.IsPermanent(err))
}

func TestFetchSniffsMissingContentType(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header()["Content-Type"] = nil
		_, _ = fmt.Fprint(w, "<!DOCTYPE html><html><body>hi</body></html>")
	}))
	defer srv.Close()

	page, err := New(Options{}).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Contains(t, page.ContentType, "text/html")
}
