package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/time/rate"
)

const braveEndpoint = "https://api.search.brave.com/res/v1/web/search"

// Brave implements search using the Brave Search API.
// Free tier: 2,000 queries/month, 1 query/second.
type Brave struct {
	client   *http.Client
	logger   *slog.Logger
	limiter  *rate.Limiter
	endpoint string
	apiKey   string
}

type braveResponse struct {
	Web struct {
		Results []struct {
			Title string `json:"title"`
			URL   string `json:"url"`
		} `json:"results"`
	} `json:"web"`
}

// NewBrave creates a Brave Search API client.
func NewBrave(apiKey string, opts ...Option) *Brave {
	c := newConfig(braveEndpoint, opts)
	return &Brave{
		client:   c.client,
		logger:   c.logger,
		limiter:  c.limiter(),
		endpoint: c.endpoint,
		apiKey:   apiKey,
	}
}

// LoadBraveAPIKey loads the Brave API key from BRAVE_API_KEY, then ~/.brave.
// Returns empty string if no key is found.
func LoadBraveAPIKey() string {
	if key := os.Getenv("BRAVE_API_KEY"); key != "" {
		return key
	}
	if home, err := os.UserHomeDir(); err == nil {
		if data, err := os.ReadFile(filepath.Join(home, ".brave")); err == nil {
			if key := strings.TrimSpace(string(data)); key != "" {
				return key
			}
		}
	}
	return ""
}

// Search returns result URLs in ranking order.
func (b *Brave) Search(ctx context.Context, query string) ([]string, error) {
	if b.apiKey == "" {
		return nil, &Error{Provider: "brave", Query: query, Message: "missing API key", Unreachable: true}
	}
	if err := b.limiter.Wait(ctx); err != nil {
		return nil, &Error{Provider: "brave", Query: query, Message: "rate limit wait", Cause: err}
	}

	u, err := url.Parse(b.endpoint)
	if err != nil {
		return nil, &Error{Provider: "brave", Query: query, Message: "parse endpoint", Cause: err, Unreachable: true}
	}
	q := u.Query()
	q.Set("q", query)
	q.Set("count", "10")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return nil, &Error{Provider: "brave", Query: query, Message: "create request", Cause: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", b.apiKey)

	b.logger.DebugContext(ctx, "brave search", "query", query)

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, transportError("brave", query, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &Error{
			Provider: "brave",
			Query:    query,
			Message:  fmt.Sprintf("API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
			// A rejected key fails every call, so the backend is effectively unreachable.
			Unreachable: resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden,
		}
	}

	var br braveResponse
	if err := json.NewDecoder(resp.Body).Decode(&br); err != nil {
		return nil, &Error{Provider: "brave", Query: query, Message: "decode response", Cause: err}
	}

	links := make([]string, 0, len(br.Web.Results))
	for _, r := range br.Web.Results {
		if r.URL != "" {
			links = append(links, r.URL)
		}
	}
	if len(links) == 0 {
		return nil, &Error{Provider: "brave", Query: query, Message: "no results"}
	}
	return links, nil
}
