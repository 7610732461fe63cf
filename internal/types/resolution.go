// Package types provides type definitions for structured data used throughout the instructor resolver.
package types

import (
	"fmt"
	"strings"
)

// LinkState classifies the outcome of resolving one instructor name.
type LinkState int

const (
	// Absent means no candidate link was found.
	Absent LinkState = iota
	// Invalid means a link was found but it does not point at a directory profile.
	Invalid
	// Valid means the link matches the canonical profile pattern.
	Valid
)

// String returns the lowercase name of the state.
func (s LinkState) String() string {
	switch s {
	case Valid:
		return "valid"
	case Invalid:
		return "invalid"
	default:
		return "absent"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s LinkState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *LinkState) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "valid":
		*s = Valid
	case "invalid":
		*s = Invalid
	case "absent", "":
		*s = Absent
	default:
		return fmt.Errorf("unknown link state %q", string(text))
	}
	return nil
}

// ResolutionEntry is the cached outcome for one name.
type ResolutionEntry struct {
	Name  string    `json:"name"`
	Link  *string   `json:"link"` // nil when no candidate was found
	State LinkState `json:"state"`
}

// LinkValue returns the link or an empty string.
func (e ResolutionEntry) LinkValue() string {
	if e.Link == nil {
		return ""
	}
	return *e.Link
}

// IdentifierEntry is a trusted name -> directory uid mapping.
type IdentifierEntry struct {
	Name string `json:"name"`
	UID  string `json:"uid"`
}

// ResolutionStore is the persisted name -> link-or-null mapping.
type ResolutionStore = map[string]*string

// IdentifierStore is the persisted name -> uid mapping.
type IdentifierStore = map[string]string

// StringPtr returns a pointer to s, or nil for the empty string.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
