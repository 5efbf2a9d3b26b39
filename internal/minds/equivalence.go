package minds

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var foldCaser = cases.Fold()

// answerKey reduces an answer to a canonical form for majority grouping.
// This is a structural equivalence check, not literal string equality:
// Unicode is NFKC-normalized and case-folded, punctuation and whitespace
// are squeezed, and purely numeric answers compare by value so "4", "4.0"
// and " 4 " group together.
func answerKey(text string) string {
	s := norm.NFKC.String(text)
	s = foldCaser.String(s)
	s = strings.TrimSpace(s)

	if v, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(s), "."), 64); err == nil {
		return "num:" + strconv.FormatFloat(v, 'g', -1, 64)
	}

	var b strings.Builder
	lastSpace := false
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsNumber(r):
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r):
			if !lastSpace && b.Len() > 0 {
				b.WriteRune(' ')
				lastSpace = true
			}
		}
		// Punctuation is dropped.
	}
	return strings.TrimSpace(b.String())
}

// Equivalent reports whether two answers share a canonical form.
func Equivalent(a, b string) bool {
	return answerKey(a) == answerKey(b)
}
