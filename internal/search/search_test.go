package search

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	app_errors "onlinellm-gateway/backend/internal/errors"
)

const resultsPage = `<!DOCTYPE html>
<html><body>
<div class="results">
  <div class="result">
    <a class="result__a" href="https://example.com/1">Paris</a>
    <a class="result__snippet" href="https://example.com/1"><b>Paris</b> is the capital of France.</a>
  </div>
  <div class="result">
    <a class="result__snippet extra">France has 13 regions.</a>
  </div>
  <div class="result__snippet-like">not a snippet</div>
  <div class="result"><a class="result__snippet">Third</a></div>
  <div class="result"><a class="result__snippet">Fourth</a></div>
  <div class="result"><a class="result__snippet">Fifth</a></div>
  <div class="result"><a class="result__snippet">Sixth</a></div>
</div>
</body></html>`

func newTestProvider(url string) *HTMLSnippetProvider {
	return NewHTMLSnippetProvider(Options{
		BaseURL:      url + "/html/",
		SnippetClass: "result__snippet",
		MaxResults:   5,
		Timeout:      2 * time.Second,
	})
}

// TestHTMLSnippetProvider_Search drives the scraper against a fake results page
// served by httptest, so no real search engine is contacted.
func TestHTMLSnippetProvider_Search(t *testing.T) {
	t.Run("Success - first five snippets in document order", func(t *testing.T) {
		var capturedQuery, capturedPath, capturedUA string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			capturedQuery = r.URL.Query().Get("q")
			capturedPath = r.URL.Path
			capturedUA = r.Header.Get("User-Agent")
			w.Header().Set("Content-Type", "text/html")
			_, err := w.Write([]byte(resultsPage))
			assert.NoError(t, err)
		}))
		defer server.Close()

		snippets, err := newTestProvider(server.URL).Search(context.Background(), "capital of France & more")

		require.NoError(t, err)
		assert.Equal(t, []string{
			"Paris is the capital of France.",
			"France has 13 regions.",
			"Third",
			"Fourth",
			"Fifth",
		}, snippets)
		assert.Equal(t, "capital of France & more", capturedQuery)
		assert.Equal(t, "/html/", capturedPath)
		assert.Contains(t, capturedUA, "Mozilla")
	})

	t.Run("Success - no matches yields empty result", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`<html><body><p>No results.</p></body></html>`))
		}))
		defer server.Close()

		snippets, err := newTestProvider(server.URL).Search(context.Background(), "nothing")

		require.NoError(t, err)
		assert.Empty(t, snippets)
	})

	t.Run("Failure - non-success status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))
		defer server.Close()

		snippets, err := newTestProvider(server.URL).Search(context.Background(), "blocked")

		assert.ErrorIs(t, err, app_errors.ErrSearch)
		assert.Nil(t, snippets)
	})

	t.Run("Failure - transport error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		url := server.URL
		server.Close()

		_, err := newTestProvider(url).Search(context.Background(), "offline")

		assert.ErrorIs(t, err, app_errors.ErrSearch)
	})

	t.Run("Failure - timeout", func(t *testing.T) {
		release := make(chan struct{})
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		defer server.Close()
		defer close(release)

		provider := NewHTMLSnippetProvider(Options{
			BaseURL:      server.URL,
			SnippetClass: "result__snippet",
			MaxResults:   5,
			Timeout:      50 * time.Millisecond,
		})
		_, err := provider.Search(context.Background(), "slow")

		assert.ErrorIs(t, err, app_errors.ErrSearch)
	})
}

func TestExtractSnippets(t *testing.T) {
	doc, err := html.Parse(strings.NewReader(resultsPage))
	require.NoError(t, err)

	t.Run("Respects limit", func(t *testing.T) {
		assert.Equal(t, []string{"Paris is the capital of France."}, ExtractSnippets(doc, "result__snippet", 1))
	})

	t.Run("Matches whole class tokens only", func(t *testing.T) {
		assert.Equal(t, []string{"not a snippet"}, ExtractSnippets(doc, "result__snippet-like", 5))
	})

	t.Run("Zero limit", func(t *testing.T) {
		assert.Empty(t, ExtractSnippets(doc, "result__snippet", 0))
	})
}
