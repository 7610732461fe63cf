package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinkState_String(t *testing.T) {
	assert.Equal(t, "valid", Valid.String())
	assert.Equal(t, "invalid", Invalid.String())
	assert.Equal(t, "absent", Absent.String())
	assert.Equal(t, "absent", LinkState(42).String())
}

func TestLinkState_JSON(t *testing.T) {
	entry := ResolutionEntry{Name: "Lee, K.", Link: StringPtr("https://dir.example/cd_detail?uid=kl7"), State: Valid}

	data, err := json.Marshal(entry)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"state":"valid"`)

	var decoded ResolutionEntry
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, entry, decoded)
}

func TestLinkState_UnmarshalUnknown(t *testing.T) {
	var s LinkState
	err := s.UnmarshalText([]byte("maybe"))
	assert.Error(t, err)
}

func TestResolutionEntry_LinkValue(t *testing.T) {
	assert.Equal(t, "", ResolutionEntry{Name: "x"}.LinkValue())
	assert.Equal(t, "https://a", ResolutionEntry{Name: "x", Link: StringPtr("https://a")}.LinkValue())
}

func TestStringPtr(t *testing.T) {
	assert.Nil(t, StringPtr(""))
	p := StringPtr("x")
	require.NotNil(t, p)
	assert.Equal(t, "x", *p)
}

func TestRunStats_Add(t *testing.T) {
	s := RunStats{RunID: "a", Pages: 1, Lookups: 2}
	s.Add(RunStats{RunID: "b", Pages: 1, Lookups: 3, Valid: 1, Faults: 1})
	assert.Equal(t, RunStats{RunID: "a", Pages: 2, Lookups: 5, Valid: 1, Faults: 1}, s)
}
