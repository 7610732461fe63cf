// Package directory recognizes canonical campus-directory profile links and extracts their identifiers.
package directory

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/Atypics3/About-My-Professor/internal/types"
)

const (
	// DefaultHost is the campus directory host.
	DefaultHost = "campusdirectory.ucsc.edu"
	// DefaultUIDParam is the query parameter carrying the person identifier.
	DefaultUIDParam = "uid"
	// DefaultWindow is how many search results are considered per query.
	DefaultWindow = 5
)

// DefaultDetailPaths are the path segments of a person detail page.
var DefaultDetailPaths = []string{"cd_detail"}

var identifierValue = regexp.MustCompile(`^[\w-]+$`)

// Matcher holds the structural rules for a canonical profile link.
type Matcher struct {
	host        string
	uidParam    string
	detailPaths map[string]bool
	window      int
	uidPattern  *regexp.Regexp
}

// Options configures a Matcher. Zero values fall back to the defaults.
type Options struct {
	Host        string
	UIDParam    string
	DetailPaths []string
	Window      int
}

// NewMatcher creates a Matcher for the given directory.
func NewMatcher(opts Options) *Matcher {
	if opts.Host == "" {
		opts.Host = DefaultHost
	}
	if opts.UIDParam == "" {
		opts.UIDParam = DefaultUIDParam
	}
	if len(opts.DetailPaths) == 0 {
		opts.DetailPaths = DefaultDetailPaths
	}
	if opts.Window <= 0 {
		opts.Window = DefaultWindow
	}

	paths := make(map[string]bool, len(opts.DetailPaths))
	for _, p := range opts.DetailPaths {
		p = strings.ToLower(strings.Trim(p, "/ "))
		if p != "" {
			paths[p] = true
		}
	}

	return &Matcher{
		host:        normalizeHost(opts.Host),
		uidParam:    opts.UIDParam,
		detailPaths: paths,
		window:      opts.Window,
		uidPattern:  uidPattern(opts.UIDParam),
	}
}

// Host returns the normalized directory host.
func (m *Matcher) Host() string {
	return m.host
}

// Window returns the number of candidates SelectCandidate considers.
func (m *Matcher) Window() int {
	return m.window
}

// Classify reports whether link is a canonical profile link.
// Empty links are Absent; anything else that does not match is Invalid.
func (m *Matcher) Classify(link string) types.LinkState {
	link = strings.TrimSpace(link)
	if link == "" {
		return types.Absent
	}

	parsed, err := url.Parse(link)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return types.Invalid
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return types.Invalid
	}
	if !m.hostMatches(parsed.Hostname()) {
		return types.Invalid
	}
	if m.hasIdentifierParam(parsed) || m.hasDetailSegment(parsed) {
		return types.Valid
	}
	return types.Invalid
}

// SelectCandidate returns the first candidate within the window that is a valid
// profile link. Later candidates are never considered, and there is no fallback.
func (m *Matcher) SelectCandidate(candidates []string) (string, types.LinkState) {
	limit := min(len(candidates), m.window)
	for _, candidate := range candidates[:limit] {
		candidate = strings.TrimSpace(candidate)
		if m.Classify(candidate) == types.Valid {
			return candidate, types.Valid
		}
	}
	return "", types.Absent
}

// ExtractUID returns the identifier carried by link, if any.
func (m *Matcher) ExtractUID(link string) (string, bool) {
	return matchUID(m.uidPattern, link)
}

// ExtractUID returns the value following key= in link's query string.
// A missing or malformed marker is not an error; it returns ("", false).
func ExtractUID(link, key string) (string, bool) {
	if key == "" {
		key = DefaultUIDParam
	}
	return matchUID(uidPattern(key), link)
}

func uidPattern(key string) *regexp.Regexp {
	return regexp.MustCompile(`[?&]` + regexp.QuoteMeta(key) + `=([\w-]+)`)
}

func matchUID(pattern *regexp.Regexp, link string) (string, bool) {
	match := pattern.FindStringSubmatch(link)
	if match == nil {
		return "", false
	}
	return match[1], true
}

func (m *Matcher) hostMatches(host string) bool {
	host = normalizeHost(host)
	return host == m.host || strings.HasSuffix(host, "."+m.host)
}

func (m *Matcher) hasIdentifierParam(u *url.URL) bool {
	value := u.Query().Get(m.uidParam)
	return value != "" && identifierValue.MatchString(value)
}

func (m *Matcher) hasDetailSegment(u *url.URL) bool {
	for _, segment := range strings.Split(u.Path, "/") {
		if m.detailPaths[strings.ToLower(segment)] {
			return true
		}
	}
	return false
}

func normalizeHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	return strings.TrimPrefix(host, "www.")
}
