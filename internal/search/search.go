package search

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"

	app_errors "onlinellm-gateway/backend/internal/errors"
)

// TextSearchProvider returns plain-text snippets relevant to a query.
// Implementations must return an empty slice, not an error, when the engine
// simply has no results.
type TextSearchProvider interface {
	Search(ctx context.Context, query string) ([]string, error)
}

// Engines tend to reject the default Go client user agent.
const userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/116.0 Safari/537.36"

// Options configures an HTMLSnippetProvider.
type Options struct {
	BaseURL      string
	SnippetClass string
	MaxResults   int
	Timeout      time.Duration
}

// HTMLSnippetProvider scrapes a search engine's HTML results page and returns
// the text of the elements carrying the snippet class.
type HTMLSnippetProvider struct {
	client       *http.Client
	baseURL      string
	snippetClass string
	maxResults   int
}

// NewHTMLSnippetProvider creates a provider for the given results page.
func NewHTMLSnippetProvider(opts Options) *HTMLSnippetProvider {
	return &HTMLSnippetProvider{
		client:       &http.Client{Timeout: opts.Timeout},
		baseURL:      opts.BaseURL,
		snippetClass: opts.SnippetClass,
		maxResults:   opts.MaxResults,
	}
}

// Search fetches the results page for query. It does not retry.
func (p *HTMLSnippetProvider) Search(ctx context.Context, query string) ([]string, error) {
	endpoint := p.baseURL + "?q=" + url.QueryEscape(query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %s", app_errors.ErrSearch, err.Error())
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: request failed: %s", app_errors.ErrSearch, err.Error())
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: search engine returned status %d", app_errors.ErrSearch, resp.StatusCode)
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: parse results page: %s", app_errors.ErrSearch, err.Error())
	}

	return ExtractSnippets(doc, p.snippetClass, p.maxResults), nil
}

// ExtractSnippets walks the document in order and returns the flattened text of
// at most limit elements whose class list contains class.
func ExtractSnippets(doc *html.Node, class string, limit int) []string {
	if limit <= 0 {
		return []string{}
	}
	snippets := make([]string, 0, limit)

	var walk func(n *html.Node) bool
	walk = func(n *html.Node) bool {
		if len(snippets) >= limit {
			return false
		}
		if n.Type == html.ElementNode && hasClass(n, class) {
			var sb strings.Builder
			collectText(n, &sb)
			snippets = append(snippets, strings.TrimSpace(sb.String()))
			// Snippets are not expected to nest.
			return true
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if !walk(c) {
				return false
			}
		}
		return true
	}
	walk(doc)

	return snippets
}

func hasClass(n *html.Node, class string) bool {
	for _, attr := range n.Attr {
		if attr.Namespace != "" || attr.Key != "class" {
			continue
		}
		for _, token := range strings.Fields(attr.Val) {
			if token == class {
				return true
			}
		}
	}
	return false
}

// collectText concatenates every text node below n, the way a browser's
// textContent does.
func collectText(n *html.Node, sb *strings.Builder) {
	if n.Type == html.TextNode {
		sb.WriteString(n.Data)
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, sb)
	}
}
