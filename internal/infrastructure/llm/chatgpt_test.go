package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))

		var req struct {
			Model    string              `json:"model"`
			Messages []map[string]string `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o-mini", req.Model)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0]["role"])
		assert.Contains(t, req.Messages[1]["content"], "Title: Budget vote")

		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  Parliament passed the budget. "}}]}`))
	}))
	defer srv.Close()

	client := NewChatGPTClient(Config{Endpoint: srv.URL, Model: "gpt-4o-mini", APIKey: "key"})
	summary, err := client.Summarize(context.Background(), "Budget vote", "Parliament passed the budget on Tuesday.")
	require.NoError(t, err)
	assert.Equal(t, "Parliament passed the budget.", summary)
}

func TestSummarizeErrors(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/empty" {
			_, _ = w.Write([]byte(`{"choices":[]}`))
			return
		}
		http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewChatGPTClient(Config{Endpoint: srv.URL, Model: "m", APIKey: "k"}).Summarize(context.Background(), "t", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")

	_, err = NewChatGPTClient(Config{Endpoint: srv.URL + "/empty", Model: "m", APIKey: "k"}).Summarize(context.Background(), "t", "x")
	require.Error(t, err)

	_, err = NewChatGPTClient(Config{Endpoint: srv.URL}).Summarize(context.Background(), "t", "x")
	require.Error(t, err)
}
