package caption

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

var lower = cases.Lower(language.Und)

// Normalize brings a caption into the form the grammar is written in:
// NFC, lower case, surrounding whitespace removed.
func Normalize(s string) string {
	return strings.TrimSpace(lower.String(norm.NFC.String(s)))
}
