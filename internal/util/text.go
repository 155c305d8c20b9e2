package util

import "strings"

// CollapseWhitespace trims s and replaces every run of whitespace with one space.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// NormalizeName returns the canonical key for an extracted entity name.
// Invalid UTF-8 and NUL bytes are dropped.
func NormalizeName(s string) string {
	s = strings.ReplaceAll(strings.ToValidUTF8(s, ""), "\x00", "")
	return strings.ToUpper(CollapseWhitespace(s))
}
