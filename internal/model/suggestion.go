package model

import (
	"fmt"
	"sort"
)

// Suggestion represents how likely a transaction belongs to a category,
// with the patterns that contributed and a human-readable reason.
type Suggestion struct {
	Category         string
	Reason           string
	ContributingRefs []PatternRef
	CategoryID       int
	Confidence       float64
}

// Validate ensures the suggestion has valid data.
func (s *Suggestion) Validate() error {
	if s.CategoryID <= 0 {
		return fmt.Errorf("category is required")
	}
	if s.Confidence < 0.0 || s.Confidence > 1.0 {
		return fmt.Errorf("confidence must be between 0.0 and 1.0, got %.2f", s.Confidence)
	}
	return nil
}

// Suggestions is a slice of Suggestion that supports sorting and utility methods.
type Suggestions []Suggestion

// Len implements sort.Interface.
func (s Suggestions) Len() int {
	return len(s)
}

// Less implements sort.Interface - higher confidence comes first, ties
// break by category id for full determinism.
func (s Suggestions) Less(i, j int) bool {
	if s[i].Confidence != s[j].Confidence {
		return s[i].Confidence > s[j].Confidence
	}
	return s[i].CategoryID < s[j].CategoryID
}

// Swap implements sort.Interface.
func (s Suggestions) Swap(i, j int) {
	s[i], s[j] = s[j], s[i]
}

// Sort sorts the suggestions by confidence in descending order.
func (s Suggestions) Sort() {
	sort.Sort(s)
}

// Top returns the highest-confidence suggestion, or nil if empty.
func (s Suggestions) Top() *Suggestion {
	if len(s) == 0 {
		return nil
	}
	s.Sort()
	return &s[0]
}

// TopN returns the N highest-confidence suggestions.
func (s Suggestions) TopN(n int) Suggestions {
	if n <= 0 {
		return Suggestions{}
	}

	s.Sort()

	if n > len(s) {
		n = len(s)
	}

	result := make(Suggestions, n)
	copy(result, s[:n])
	return result
}

// AboveThreshold returns all suggestions at or above the given confidence.
func (s Suggestions) AboveThreshold(threshold float64) Suggestions {
	s.Sort()

	var result Suggestions
	for _, suggestion := range s {
		if suggestion.Confidence >= threshold {
			result = append(result, suggestion)
		}
	}
	return result
}
