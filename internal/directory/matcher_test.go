package directory

import (
	"math/rand"
	"testing"

	"github.com/Atypics3/About-My-Professor/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMatcher() *Matcher {
	return NewMatcher(Options{Host: "dir.example"})
}

func TestNewMatcher_Defaults(t *testing.T) {
	m := NewMatcher(Options{})
	assert.Equal(t, DefaultHost, m.Host())
	assert.Equal(t, DefaultWindow, m.Window())
}

func TestClassify(t *testing.T) {
	m := testMatcher()

	tests := []struct {
		name     string
		link     string
		expected types.LinkState
	}{
		{"uid query on detail page", "https://dir.example/cd_detail?uid=ab12", types.Valid},
		{"uid query only", "https://dir.example/people?uid=ab-12_x", types.Valid},
		{"detail segment only", "https://dir.example/cd_detail", types.Valid},
		{"subdomain", "https://www.dir.example/cd_detail?uid=ab12", types.Valid},
		{"uppercase host", "HTTPS://DIR.EXAMPLE/cd_detail?uid=ab12", types.Valid},
		{"other host", "https://other.com/cd_detail?uid=ab12", types.Invalid},
		{"lookalike host", "https://evildir.example/cd_detail?uid=ab12", types.Invalid},
		{"directory search page", "https://dir.example/search?q=lee", types.Invalid},
		{"empty uid", "https://dir.example/people?uid=", types.Invalid},
		{"malformed uid", "https://dir.example/people?uid=a%20b", types.Invalid},
		{"not a url", "campus directory", types.Invalid},
		{"ftp scheme", "ftp://dir.example/cd_detail?uid=ab12", types.Invalid},
		{"empty", "", types.Absent},
		{"whitespace", "   ", types.Absent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, m.Classify(tt.link))
		})
	}
}

func TestSelectCandidate_FirstMatchWins(t *testing.T) {
	m := testMatcher()
	candidates := []string{
		"https://other.com/x",
		"https://dir.example/cd_detail?uid=ab12",
		"https://dir.example/cd_detail?uid=cd34",
	}

	link, state := m.SelectCandidate(candidates)
	assert.Equal(t, "https://dir.example/cd_detail?uid=ab12", link)
	assert.Equal(t, types.Valid, state)
}

func TestSelectCandidate_WindowIsBounded(t *testing.T) {
	m := testMatcher()
	candidates := []string{
		"https://a.com/1",
		"https://b.com/2",
		"https://c.com/3",
		"https://d.com/4",
		"https://e.com/5",
		"https://dir.example/cd_detail?uid=late",
	}

	link, state := m.SelectCandidate(candidates)
	assert.Empty(t, link)
	assert.Equal(t, types.Absent, state)
}

func TestSelectCandidate_CustomWindow(t *testing.T) {
	m := NewMatcher(Options{Host: "dir.example", Window: 1})
	link, state := m.SelectCandidate([]string{"https://a.com", "https://dir.example/cd_detail?uid=x"})
	assert.Empty(t, link)
	assert.Equal(t, types.Absent, state)
}

func TestSelectCandidate_Empty(t *testing.T) {
	link, state := testMatcher().SelectCandidate(nil)
	assert.Empty(t, link)
	assert.Equal(t, types.Absent, state)
}

func TestExtractUID_RoundTrip(t *testing.T) {
	const alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789_-"
	rng := rand.New(rand.NewSource(7))
	base := "https://dir.example/cd_detail"

	for i := 0; i < 200; i++ {
		n := 1 + rng.Intn(24)
		b := make([]byte, n)
		for j := range b {
			b[j] = alphabet[rng.Intn(len(alphabet))]
		}
		id := string(b)

		uid, ok := ExtractUID(base+"?uid="+id, "uid")
		require.True(t, ok, "id %q", id)
		require.Equal(t, id, uid)

		uid, ok = testMatcher().ExtractUID(base + "?uid=" + id)
		require.True(t, ok)
		require.Equal(t, id, uid)
	}
}

func TestExtractUID_NoMarker(t *testing.T) {
	tests := []string{
		"",
		"https://dir.example/cd_detail",
		"https://dir.example/cd_detail?id=abc",
		"https://dir.example/cd_detail?uuid=abc",
		"not a url at all",
		"%%%?uid",
	}
	for _, link := range tests {
		uid, ok := ExtractUID(link, "")
		assert.False(t, ok, link)
		assert.Empty(t, uid, link)
	}
}

func TestExtractUID_SecondParam(t *testing.T) {
	uid, ok := ExtractUID("https://dir.example/cd_detail?type=people&uid=kl7#top", "uid")
	assert.True(t, ok)
	assert.Equal(t, "kl7", uid)
}
