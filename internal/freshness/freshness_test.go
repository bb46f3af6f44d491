package freshness

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// figpackStub serves figpack.json documents for figure paths.
func figpackStub(t *testing.T, docs map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		doc, ok := docs[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(doc))
	}))
}

func TestValidNoURLs(t *testing.T) {
	checker := NewChecker()

	assert.True(t, checker.Valid(context.Background(), json.RawMessage(`{"ok":true}`)))
	assert.True(t, checker.Valid(context.Background(), nil))
}

func TestValidPinnedFigure(t *testing.T) {
	server := figpackStub(t, map[string]string{
		"/a/figpack.json": `{"pinned":true}`,
	})
	defer server.Close()

	checker := NewChecker()
	output := json.RawMessage(fmt.Sprintf(`{"fig":{"figpack_url":"%s/a/index.html"}}`, server.URL))
	assert.True(t, checker.Valid(context.Background(), output))
}

func TestValidFutureExpiration(t *testing.T) {
	future := time.Now().Add(time.Hour).UnixMilli()
	server := figpackStub(t, map[string]string{
		"/a/figpack.json": fmt.Sprintf(`{"expiration":%d}`, future),
	})
	defer server.Close()

	checker := NewChecker()
	output := json.RawMessage(fmt.Sprintf(`{"figpack_url":"%s/a/index.html"}`, server.URL))
	assert.True(t, checker.Valid(context.Background(), output))
}

func TestInvalidDeletedFigure(t *testing.T) {
	server := figpackStub(t, map[string]string{
		"/a/figpack.json": `{"deleted":true,"pinned":true}`,
	})
	defer server.Close()

	checker := NewChecker()
	output := json.RawMessage(fmt.Sprintf(`{"figpack_url":"%s/a/index.html"}`, server.URL))
	assert.False(t, checker.Valid(context.Background(), output))
}

func TestInvalidPastExpiration(t *testing.T) {
	past := time.Now().Add(-time.Hour).UnixMilli()
	server := figpackStub(t, map[string]string{
		"/a/figpack.json": fmt.Sprintf(`{"expiration":%d,"pinned":false}`, past),
	})
	defer server.Close()

	checker := NewChecker()
	output := json.RawMessage(fmt.Sprintf(`{"figpack_url":"%s/a/index.html"}`, server.URL))
	assert.False(t, checker.Valid(context.Background(), output))
}

func TestInvalidMissingExpiration(t *testing.T) {
	server := figpackStub(t, map[string]string{
		"/a/figpack.json": `{}`,
	})
	defer server.Close()

	checker := NewChecker()
	output := json.RawMessage(fmt.Sprintf(`{"figpack_url":"%s/a/index.html"}`, server.URL))
	assert.False(t, checker.Valid(context.Background(), output))
}

func TestInvalidFetchError(t *testing.T) {
	server := figpackStub(t, map[string]string{})
	defer server.Close()

	checker := NewChecker()
	output := json.RawMessage(fmt.Sprintf(`{"figpack_url":"%s/missing/index.html"}`, server.URL))
	assert.False(t, checker.Valid(context.Background(), output))
}

func TestInvalidUnparseableDocument(t *testing.T) {
	server := figpackStub(t, map[string]string{
		"/a/figpack.json": `not json`,
	})
	defer server.Close()

	checker := NewChecker()
	output := json.RawMessage(fmt.Sprintf(`{"figpack_url":"%s/a/index.html"}`, server.URL))
	assert.False(t, checker.Valid(context.Background(), output))
}

func TestInvalidMalformedFigureURL(t *testing.T) {
	checker := NewChecker()
	output := json.RawMessage(`{"figpack_url":"https://example.org/a/figure.html"}`)
	assert.False(t, checker.Valid(context.Background(), output))
}

func TestOneStaleFigureInvalidatesAll(t *testing.T) {
	server := figpackStub(t, map[string]string{
		"/a/figpack.json": `{"pinned":true}`,
		"/b/figpack.json": `{"deleted":1}`,
	})
	defer server.Close()

	checker := NewChecker()
	output := json.RawMessage(fmt.Sprintf(
		`{"figs":[{"figpack_url":"%s/a/index.html"},{"figpack_url":"%s/b/index.html"}]}`,
		server.URL, server.URL))
	assert.False(t, checker.Valid(context.Background(), output))
}

func TestCollectURLs(t *testing.T) {
	output := json.RawMessage(`{
		"top": {"figpack_url": "https://x/a/index.html"},
		"list": [{"nested": {"figpack_url": "https://x/b/index.html"}}],
		"not_a_url": {"figpack_url": 42},
		"other": "https://x/c/index.html"
	}`)

	urls := CollectURLs(output)
	assert.ElementsMatch(t, []string{"https://x/a/index.html", "https://x/b/index.html"}, urls)
}
