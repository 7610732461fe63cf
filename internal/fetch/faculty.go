package fetch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/codeGROOVE-dev/retry"

	"github.com/Atypics3/About-My-Professor/internal/types"
)

// DefaultFacultyURL is the science division faculty and researcher directory.
const DefaultFacultyURL = "https://science.ucsc.edu/directory/faculty-researchers/"

// ErrNoCards means the directory page held no faculty cards, which happens
// when the page structure changes. Callers must not treat it as an empty directory.
var ErrNoCards = errors.New("no faculty cards found")

// FacultyDirectory fetches the faculty directory and maps each name to its research blurb.
type FacultyDirectory struct {
	url      string
	opts     *Options
	attempts uint
	delay    time.Duration
	logger   *slog.Logger
}

// FacultyOption configures a FacultyDirectory.
type FacultyOption func(*FacultyDirectory)

// WithFetchOptions sets the HTTP options used for each attempt.
func WithFetchOptions(opts *Options) FacultyOption {
	return func(f *FacultyDirectory) { f.opts = opts }
}

// WithRetry sets the attempt count and the base delay between attempts.
func WithRetry(attempts uint, delay time.Duration) FacultyOption {
	return func(f *FacultyDirectory) {
		if attempts > 0 {
			f.attempts = attempts
		}
		f.delay = delay
	}
}

// WithFacultyLogger sets the logger.
func WithFacultyLogger(logger *slog.Logger) FacultyOption {
	return func(f *FacultyDirectory) { f.logger = logger }
}

// NewFacultyDirectory creates a source for the directory at url.
func NewFacultyDirectory(url string, opts ...FacultyOption) *FacultyDirectory {
	if url == "" {
		url = DefaultFacultyURL
	}
	f := &FacultyDirectory{
		url:      url,
		opts:     DefaultOptions(),
		attempts: 3,
		delay:    500 * time.Millisecond,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FetchEntries downloads the directory and returns name -> research description.
func (f *FacultyDirectory) FetchEntries(ctx context.Context) (types.SnapshotMap, error) {
	retryOpts := []retry.Option{
		retry.Context(ctx),
		retry.Attempts(f.attempts),
		retry.Delay(f.delay),
		retry.RetryIf(isRetryableError),
		retry.OnRetry(func(n uint, err error) {
			f.logger.DebugContext(ctx, "retrying faculty directory fetch", "attempt", n+1, "url", f.url, "error", err)
		}),
	}
	if jitter := f.delay / 2; jitter > 0 {
		retryOpts = append(retryOpts, retry.MaxJitter(jitter))
	}

	result, err := retry.DoWithData(
		func() (*Result, error) {
			return URL(ctx, f.url, f.opts)
		},
		retryOpts...,
	)
	if err != nil {
		return nil, err
	}

	entries, err := ParseFacultyCards(strings.NewReader(result.HTML))
	if err != nil {
		return nil, &Error{URL: f.url, Message: "page structure may have changed", Cause: err}
	}
	f.logger.InfoContext(ctx, "faculty directory fetched", "url", f.url, "entries", len(entries))
	return entries, nil
}

// ParseFacultyCards reads every div.card-container, taking the h3 as the name
// and div.card-blurb as the description. Cards missing either are skipped.
func ParseFacultyCards(r io.Reader) (types.SnapshotMap, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}

	cards := doc.Find("div.card-container")
	if cards.Length() == 0 {
		return nil, ErrNoCards
	}

	entries := types.SnapshotMap{}
	cards.Each(func(_ int, card *goquery.Selection) {
		name := strings.TrimSpace(card.Find("h3").First().Text())
		topic := strings.TrimSpace(card.Find("div.card-blurb").First().Text())
		if name == "" || topic == "" {
			return
		}
		entries[name] = topic
	})
	return entries, nil
}

// isRetryableError returns true for transient errors that should be retried.
func isRetryableError(err error) bool {
	var fetchErr *Error
	if errors.As(err, &fetchErr) && fetchErr.StatusCode != 0 {
		switch fetchErr.StatusCode {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		default:
			return false
		}
	}
	if errors.As(err, &fetchErr) && fetchErr.Message == "invalid URL" {
		return false
	}
	return true
}
