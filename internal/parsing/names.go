// Package parsing turns raw course-listing panel text into normalized instructor name tokens.
package parsing

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Placeholder is the catalog's stand-in for an unassigned instructor.
const Placeholder = "staff"

// DefaultQualifier is appended to every search query to scope results to the campus directory.
const DefaultQualifier = "ucsc campus directory"

// instructorMarker matches "Instructor:", "Instructors:" and "Instructor(s):" and captures
// the rest of the marker line plus the following line, since the catalog sometimes renders
// the names on the line after the marker.
var instructorMarker = regexp.MustCompile(`(?i)instructor(?:\(s\)|s)?[ \t]*:[ \t]*([^\n]*)(?:\r?\n[ \t]*([^\n]*))?`)

// groupSeparators split independent instructor groups within the captured text.
var groupSeparators = regexp.MustCompile(`\s*(?:;|/|&|\band\b)\s*`)

// ExtractNames returns the instructor name tokens found in one listing panel.
// Panels without an instructor marker, or with only placeholder names, yield an empty slice.
func ExtractNames(panelText string) []string {
	text := norm.NFKC.String(strings.ToValidUTF8(panelText, ""))

	match := instructorMarker.FindStringSubmatch(text)
	if match == nil {
		return []string{}
	}

	raw := strings.TrimSpace(match[1])
	if raw == "" && len(match) > 2 {
		// The next line only holds names when it is not another "Label: value" field.
		if next := strings.TrimSpace(match[2]); !strings.Contains(next, ":") {
			raw = next
		}
	}
	if raw == "" {
		return []string{}
	}

	names := make([]string, 0, 2)
	seen := make(map[string]bool)
	for _, group := range groupSeparators.Split(raw, -1) {
		for _, token := range pairNameParts(group) {
			token = collapseSpaces(token)
			if !isNameToken(token) || IsPlaceholder(token) || seen[token] {
				continue
			}
			seen[token] = true
			names = append(names, token)
		}
	}
	return names
}

// pairNameParts splits a comma-separated group and rejoins "Surname, Given" pairs.
// Two parts pair when neither is a placeholder and at least one is a single word,
// so "Lee, K., Staff" yields "Lee, K." and "Staff", and "Anderson, Jane Marie"
// stays one name.
func pairNameParts(group string) []string {
	parts := strings.Split(group, ",")
	tokens := make([]string, 0, len(parts))

	for i := 0; i < len(parts); i++ {
		part := parts[i]
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		if IsPlaceholder(trimmed) {
			tokens = append(tokens, trimmed)
			continue
		}
		if i+1 < len(parts) {
			next := strings.TrimSpace(parts[i+1])
			if next != "" && !IsPlaceholder(next) && (isSingleWord(trimmed) || isSingleWord(next)) {
				tokens = append(tokens, strings.TrimSpace(part+","+parts[i+1]))
				i++
				continue
			}
		}
		tokens = append(tokens, trimmed)
	}
	return tokens
}

// IsPlaceholder reports whether name is the reserved non-person placeholder.
func IsPlaceholder(name string) bool {
	return strings.EqualFold(strings.TrimSpace(name), Placeholder)
}

// SearchQuery builds the external search query for a name: commas are stripped
// and the institution qualifier is appended.
func SearchQuery(name, qualifier string) string {
	fields := strings.Fields(strings.ReplaceAll(name, ",", " "))
	if q := strings.TrimSpace(qualifier); q != "" {
		fields = append(fields, q)
	}
	return strings.Join(fields, " ")
}

func isSingleWord(s string) bool {
	return !strings.ContainsFunc(s, unicode.IsSpace)
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func isNameToken(s string) bool {
	return s != "" && strings.ContainsFunc(s, unicode.IsLetter)
}
