// Package similarity provides the string-similarity primitives the
// pattern matcher scores candidates with. Every algorithm returns a
// score in [0, 1] and runs in sub-millisecond time for merchant-length
// strings.
package similarity

import (
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/kestrelfin/sortinghat/internal/model"
)

// Algorithm selects a similarity measure.
type Algorithm string

const (
	// AlgorithmExact scores exact equality and substring containment,
	// scaled by how much of the longer string is covered.
	AlgorithmExact Algorithm = "exact"
	// AlgorithmSubstring scores containment of the pattern inside the
	// text at a fixed high score, regardless of length ratio.
	AlgorithmSubstring Algorithm = "substring"
	// AlgorithmEdit scores edit-distance similarity with a shared-prefix
	// bonus, robust to minor typos.
	AlgorithmEdit Algorithm = "edit"
	// AlgorithmNGram scores trigram overlap, robust to reordering and
	// embedded noise such as processor prefixes.
	AlgorithmNGram Algorithm = "ngram"
)

// DefaultAlgorithm returns the algorithm a pattern type matches with.
func DefaultAlgorithm(t model.PatternType) Algorithm {
	switch t {
	case model.PatternMerchant:
		return AlgorithmNGram
	case model.PatternKeyword:
		return AlgorithmSubstring
	case model.PatternDescription:
		return AlgorithmExact
	case model.PatternAmountRange, model.PatternRegex, model.PatternTime:
		return AlgorithmExact
	}
	return AlgorithmExact
}

// Score computes the similarity of a and b under the given algorithm.
// Both inputs are expected to be pre-normalized.
func Score(a, b string, alg Algorithm) float64 {
	if a == "" || b == "" {
		if a == b {
			return 1.0
		}
		return 0.0
	}

	switch alg {
	case AlgorithmExact:
		return exactScore(a, b)
	case AlgorithmSubstring:
		return substringScore(a, b)
	case AlgorithmEdit:
		return editScore(a, b)
	case AlgorithmNGram:
		return ngramScore(a, b)
	}
	return 0.0
}

// exactScore rewards equality, then containment scaled by how much of
// the longer string the contained one covers.
func exactScore(a, b string) float64 {
	if a == b {
		return 1.0
	}

	shorter, longer := a, b
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}

	if strings.Contains(longer, shorter) {
		return float64(len(shorter)) / float64(len(longer))
	}
	return 0.0
}

// substringScore treats a as the pattern and b as the text. Containment
// scores high enough to clear keyword thresholds even when the keyword
// is a small fraction of the text.
func substringScore(a, b string) float64 {
	if a == b {
		return 1.0
	}
	if strings.Contains(b, a) || strings.Contains(a, b) {
		return 0.9
	}
	return 0.0
}

// editScore converts Levenshtein distance to similarity and adds a small
// bonus for shared prefixes, so "starbuckz" still clears typo-level
// thresholds against "starbucks".
func editScore(a, b string) float64 {
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	if maxLen == 0 {
		return 1.0
	}

	distance := levenshtein.ComputeDistance(a, b)
	base := 1.0 - float64(distance)/float64(maxLen)
	if base < 0 {
		base = 0
	}

	prefix := sharedPrefixLen(a, b)
	if prefix > 4 {
		prefix = 4
	}
	score := base + float64(prefix)*0.02*(1.0-base)

	if score > 1.0 {
		score = 1.0
	}
	return score
}

// ngramScore is the Dice coefficient over character trigrams. A full
// containment of one trigram set in the other scores by coverage, which
// handles "paypal starbucks 402935" vs "starbucks".
func ngramScore(a, b string) float64 {
	if a == b {
		return 1.0
	}

	gramsA := trigrams(a)
	gramsB := trigrams(b)
	if len(gramsA) == 0 || len(gramsB) == 0 {
		return exactScore(a, b)
	}

	shared := 0
	for gram := range gramsA {
		if gramsB[gram] {
			shared++
		}
	}

	// Containment lifts the score when the smaller set is fully covered,
	// so a short merchant name embedded in a noisy description still
	// clears the match threshold.
	smaller := len(gramsA)
	if len(gramsB) < smaller {
		smaller = len(gramsB)
	}
	containment := float64(shared) / float64(smaller)
	dice := 2.0 * float64(shared) / float64(len(gramsA)+len(gramsB))

	if containment > dice {
		return containment
	}
	return dice
}

func trigrams(s string) map[string]bool {
	padded := "  " + s + "  "
	grams := make(map[string]bool, len(padded))
	for i := 0; i+3 <= len(padded); i++ {
		grams[padded[i:i+3]] = true
	}
	return grams
}

func sharedPrefixLen(a, b string) int {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	return n
}
