// Package normalize provides pure text canonicalization for merchant and
// description strings. It performs no store lookups: it sits on the
// per-transaction hot path.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Payment-processor prefixes and noise tokens that carry no merchant
// identity. Order matters: prefixes strip before token filtering.
var (
	processorPrefixes = regexp.MustCompile(`^(?:paypal|sq|tst|sp|py|pp|zelle|venmo|cashapp|aplpay|gpay)\s*\*\s*`)
	noiseTokens       = map[string]bool{
		"pos":         true,
		"debit":       true,
		"credit":      true,
		"purchase":    true,
		"payment":     true,
		"ach":         true,
		"web":         true,
		"recurring":   true,
		"checkcard":   true,
		"visa":        true,
		"mastercard":  true,
		"pending":     true,
		"authorized":  true,
		"transaction": true,
	}
	trailingIDs = regexp.MustCompile(`(?:[#*]?\d{4,}|ref\s*\d+)$`)
	whitespace  = regexp.MustCompile(`\s+`)
	stripMarks  = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
)

// Normalize canonicalizes raw merchant or description text. It is pure,
// deterministic, O(length), and idempotent: Normalize(Normalize(x)) ==
// Normalize(x). Empty input yields empty output.
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	s := strings.ToLower(text)

	if folded, _, err := transform.String(stripMarks, s); err == nil {
		s = folded
	}

	s = processorPrefixes.ReplaceAllString(s, "")

	// Keep letters, digits, and spaces; everything else becomes a space
	// so embedded separators ("*", "/", "-") split tokens.
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}
	s = b.String()

	tokens := strings.Fields(s)
	kept := tokens[:0]
	for _, tok := range tokens {
		if noiseTokens[tok] {
			continue
		}
		kept = append(kept, tok)
	}
	s = strings.Join(kept, " ")

	s = trailingIDs.ReplaceAllString(s, "")
	s = whitespace.ReplaceAllString(s, " ")

	return strings.TrimSpace(s)
}
