// Package names canonicalizes cast display names across brand rosters.
//
// The shared roster sheet prefixes names with a brand marker (ご for
// ごほうびSPA, ぐ for ぐっすり山田), and a cast working both brands is
// shown as "nameA / nameB". Identity matching everywhere in the system
// goes through Key so that the same person spelled differently per brand
// still hashes to one value.
package names

import (
	"regexp"
	"strings"
	"unicode"
)

// markerRe strips a single leading brand marker plus any ASCII or
// full-width whitespace after it.
var markerRe = regexp.MustCompile(`^[ごぐ][\s　]*`)

// Display normalizes a raw cell value for display comparison: trimmed,
// markers stripped, reduced to the half before any "/" separator.
// Internal whitespace is preserved.
func Display(raw string) string {
	s := stripMarker(strings.TrimSpace(raw))
	if i := strings.Index(s, "/"); i >= 0 {
		s = stripMarker(strings.TrimSpace(s[:i]))
	}
	return s
}

// stripMarker removes leading brand markers until none remain, which
// keeps normalization idempotent even for doubled markers.
func stripMarker(s string) string {
	for {
		next := strings.TrimSpace(markerRe.ReplaceAllString(s, ""))
		if next == s {
			return s
		}
		s = next
	}
}

// Key returns the identity-matching form of a name: Display with all
// remaining whitespace removed. Key is idempotent.
func Key(raw string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, Display(raw))
}
