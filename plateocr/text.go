package plateocr

import (
	"regexp"
	"strings"
)

var (
	disallowedChars = regexp.MustCompile(`[^A-Za-z0-9\- ]`)
	multiSpace      = regexp.MustCompile(`\s+`)

	// plateGrammar is the canonical registration grammar: state code, one or
	// two district digits, series letters, then the running number.
	plateGrammar = regexp.MustCompile(`^[A-Z]{2}[0-9]{1,2}[A-Z]{1,2}[0-9]{3,4}$`)
)

// minPlateLen is the shortest cleaned text accepted as a plate candidate.
const minPlateLen = 4

// CleanText normalizes raw OCR output into plate candidate form: strips
// everything outside [A-Za-z0-9- ], collapses whitespace and uppercases.
// Returns false when the result is too short to be a candidate at all.
func CleanText(raw string) (string, bool) {
	cleaned := disallowedChars.ReplaceAllString(raw, "")
	cleaned = multiSpace.ReplaceAllString(cleaned, " ")
	cleaned = strings.TrimSpace(cleaned)
	if len(cleaned) < minPlateLen {
		return "", false
	}
	return strings.ToUpper(cleaned), true
}

// ValidPlate reports whether cleaned text matches the plate grammar.
// Spaces and hyphens are stripped before matching.
func ValidPlate(cleaned string) bool {
	if cleaned == "" {
		return false
	}
	stripped := strings.NewReplacer(" ", "", "-", "").Replace(cleaned)
	return plateGrammar.MatchString(stripped)
}
