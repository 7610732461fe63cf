package search

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"
)

const duckDuckGoEndpoint = "https://html.duckduckgo.com/html/"

// DuckDuckGo searches the DuckDuckGo HTML endpoint, which needs no API key or browser.
type DuckDuckGo struct {
	client   *http.Client
	logger   *slog.Logger
	limiter  *rate.Limiter
	endpoint string
}

// NewDuckDuckGo creates a DuckDuckGo backend.
func NewDuckDuckGo(opts ...Option) *DuckDuckGo {
	c := newConfig(duckDuckGoEndpoint, opts)
	return &DuckDuckGo{
		client:   c.client,
		logger:   c.logger,
		limiter:  c.limiter(),
		endpoint: c.endpoint,
	}
}

// Search returns result URLs in page order. A page with no results is an error,
// matching a missing results element on the rendered page.
func (d *DuckDuckGo) Search(ctx context.Context, query string) ([]string, error) {
	if err := d.limiter.Wait(ctx); err != nil {
		return nil, &Error{Provider: "duckduckgo", Query: query, Message: "rate limit wait", Cause: err}
	}

	u, err := url.Parse(d.endpoint)
	if err != nil {
		return nil, &Error{Provider: "duckduckgo", Query: query, Message: "parse endpoint", Cause: err, Unreachable: true}
	}
	q := u.Query()
	q.Set("q", query)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return nil, &Error{Provider: "duckduckgo", Query: query, Message: "create request", Cause: err}
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	d.logger.DebugContext(ctx, "duckduckgo search", "query", query)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, transportError("duckduckgo", query, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &Error{Provider: "duckduckgo", Query: query, Message: fmt.Sprintf("HTTP status %d", resp.StatusCode)}
	}

	links, err := ParseDuckDuckGoResults(resp.Body)
	if err != nil {
		return nil, &Error{Provider: "duckduckgo", Query: query, Message: "parse results", Cause: err}
	}
	if len(links) == 0 {
		return nil, &Error{Provider: "duckduckgo", Query: query, Message: "no results"}
	}
	return links, nil
}

// ParseDuckDuckGoResults extracts result links from a DuckDuckGo HTML page,
// unwrapping the /l/?uddg= redirect links to their targets.
func ParseDuckDuckGoResults(r io.Reader) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	links := make([]string, 0, 10)
	doc.Find("a.result__a").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return
		}
		if target := unwrapRedirect(href); target != "" {
			links = append(links, target)
		}
	})
	return links, nil
}

func unwrapRedirect(href string) string {
	href = strings.TrimSpace(href)
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	parsed, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if target := parsed.Query().Get("uddg"); target != "" {
		return target
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return ""
	}
	return href
}
