// Package search provides web search backends that return ordered candidate URLs for a query.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// UserAgent is the browser User-Agent string sent with search requests.
const UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// DefaultInterval is the minimum spacing between two requests to the same backend.
const DefaultInterval = time.Second

// ErrUnreachable marks a backend that cannot be reached at all.
// Callers treat it as fatal for the whole run rather than for one lookup.
var ErrUnreachable = errors.New("search provider unreachable")

// Error represents a failed search call.
type Error struct {
	Provider    string
	Query       string
	Message     string
	Cause       error
	Unreachable bool
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s search %q: %s: %v", e.Provider, e.Query, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s search %q: %s", e.Provider, e.Query, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is lets errors.Is(err, ErrUnreachable) match unreachable-backend errors.
func (e *Error) Is(target error) bool {
	return target == ErrUnreachable && e.Unreachable
}

// Option configures a search backend.
type Option func(*config)

type config struct {
	client   *http.Client
	logger   *slog.Logger
	interval time.Duration
	endpoint string
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(client *http.Client) Option {
	return func(c *config) { c.client = client }
}

// WithLogger sets a logger for the backend.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithInterval sets the politeness delay between requests. Zero disables it.
func WithInterval(d time.Duration) Option {
	return func(c *config) { c.interval = d }
}

// WithEndpoint overrides the backend endpoint URL.
func WithEndpoint(endpoint string) Option {
	return func(c *config) { c.endpoint = endpoint }
}

func newConfig(defaultEndpoint string, opts []Option) *config {
	c := &config{
		client:   &http.Client{Timeout: 15 * time.Second},
		logger:   slog.Default(),
		interval: DefaultInterval,
		endpoint: defaultEndpoint,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *config) limiter() *rate.Limiter {
	if c.interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(c.interval), 1)
}

// transportError wraps a failed HTTP round trip. DNS failures and refused
// connections mean the backend is unreachable; timeouts are per-lookup faults.
func transportError(provider, query string, err error) error {
	serr := &Error{Provider: provider, Query: query, Message: "request failed", Cause: err}

	var dnsErr *net.DNSError
	var opErr *net.OpError
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
	case errors.As(err, &dnsErr) && !dnsErr.IsTimeout && !dnsErr.IsTemporary:
		serr.Unreachable = true
	case errors.As(err, &opErr) && opErr.Op == "dial" && !opErr.Timeout():
		serr.Unreachable = true
	}
	return serr
}
