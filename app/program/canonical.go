package program

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// trailingParenthetical strips suffixes like "(Q&A)" or "(35mm)" that the
// site appends to one discovery path's title but not the other's.
var trailingParenthetical = regexp.MustCompile(`\s*\([^)]*\)\s*$`)

var danishLower = cases.Lower(language.Danish)

// Canonicalize normalizes a display title into the merge key: Danish lower
// case, trailing parenthetical removed, whitespace collapsed. The same
// logical film reached through the general listing and through a series
// page must canonicalize identically.
func Canonicalize(title string) string {
	stripped := trailingParenthetical.ReplaceAllString(title, "")
	lowered := danishLower.String(stripped)
	return strings.Join(strings.Fields(lowered), " ")
}
