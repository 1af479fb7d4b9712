// Package pattern evaluates stored categorization rules against
// transactions and ranks the results into category suggestions.
package pattern

import (
	"fmt"
	"log/slog"
	"regexp"

	"github.com/kestrelfin/sortinghat/internal/model"
	"github.com/kestrelfin/sortinghat/internal/normalize"
	"github.com/kestrelfin/sortinghat/internal/similarity"
)

// maxRegexInput caps how much normalized text a regex pattern sees. Go's
// RE2 engine matches in linear time, so the cap bounds worst-case work
// per pattern instead of a wall-clock deadline.
const maxRegexInput = 1024

// Thresholds holds the per-type similarity floors for text patterns.
type Thresholds struct {
	Merchant    float64
	Keyword     float64
	Description float64
}

// DefaultThresholds returns the tuned similarity floors.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Merchant:    0.82,
		Keyword:     0.85,
		Description: 0.80,
	}
}

// MatchResult is the outcome of evaluating one pattern against one
// transaction. Confidence is the similarity-scaled confidence weight and
// may exceed 1.0 for heavily weighted patterns; the ranker caps it.
type MatchResult struct {
	Reason     string
	Confidence float64
	Matched    bool
}

// Input is a transaction prepared for matching. Normalization happens
// once here so evaluating hundreds of candidate patterns does no
// repeated text work.
type Input struct {
	Txn         model.Transaction
	Merchant    string // Normalized merchant text
	Description string // Normalized description
}

// NewInput normalizes a transaction for matching.
func NewInput(txn model.Transaction) Input {
	in := Input{
		Txn:         txn,
		Merchant:    normalize.Normalize(txn.MerchantName),
		Description: normalize.Normalize(txn.Name),
	}
	if in.Merchant == "" {
		in.Merchant = in.Description
	}
	if in.Description == "" {
		in.Description = in.Merchant
	}
	return in
}

// Matcher evaluates single patterns against prepared transactions. All
// pattern data comes from the immutable snapshot captured at
// construction; matching performs zero store lookups.
type Matcher struct {
	snapshot      *model.Snapshot
	compiledRegex map[int64]*regexp.Regexp
	malformed     map[int64]bool
	thresholds    Thresholds
}

// NewMatcher creates a matcher over a snapshot, pre-compiling regex
// patterns. A pattern that fails to compile is logged once and treated
// as permanently non-matching; one bad rule never breaks the rest.
func NewMatcher(snapshot *model.Snapshot, thresholds Thresholds) *Matcher {
	m := &Matcher{
		snapshot:      snapshot,
		thresholds:    thresholds,
		compiledRegex: make(map[int64]*regexp.Regexp),
		malformed:     make(map[int64]bool),
	}

	for i := range snapshot.Patterns {
		p := &snapshot.Patterns[i]
		if err := ValidateDefinition(p); err != nil {
			m.malformed[p.ID] = true
			slog.Warn("skipping malformed pattern",
				"pattern_id", p.ID,
				"type", p.Type,
				"error", err)
			continue
		}
		if p.Type == model.PatternRegex {
			re, err := regexp.Compile(p.Value)
			if err != nil {
				// ValidateDefinition compiles too; kept as a guard.
				m.malformed[p.ID] = true
				continue
			}
			m.compiledRegex[p.ID] = re
		}
	}

	return m
}

// Snapshot returns the snapshot this matcher evaluates against.
func (m *Matcher) Snapshot() *model.Snapshot {
	return m.snapshot
}

// Match evaluates one pattern against a prepared transaction.
func (m *Matcher) Match(in Input, p *model.Pattern) MatchResult {
	if !p.Active || m.malformed[p.ID] {
		return MatchResult{}
	}

	switch p.Type {
	case model.PatternMerchant:
		return m.matchText(in.Merchant, p, m.thresholds.Merchant)
	case model.PatternKeyword:
		return m.matchText(in.Description, p, m.thresholds.Keyword)
	case model.PatternDescription:
		return m.matchText(in.Description, p, m.thresholds.Description)
	case model.PatternAmountRange:
		return m.matchAmount(in.Txn.Amount, p)
	case model.PatternRegex:
		return m.matchRegex(in.Description, p)
	case model.PatternTime:
		return m.matchTime(in.Txn, p)
	}

	return MatchResult{}
}

func (m *Matcher) matchText(text string, p *model.Pattern, threshold float64) MatchResult {
	score := similarity.Score(p.Value, text, similarity.DefaultAlgorithm(p.Type))
	if score < threshold {
		return MatchResult{}
	}

	return MatchResult{
		Matched:    true,
		Confidence: score * p.ConfidenceWeight,
		Reason:     fmt.Sprintf("%s matched %q (similarity %.2f)", p.Type, p.Value, score),
	}
}

func (m *Matcher) matchAmount(amount float64, p *model.Pattern) MatchResult {
	if p.AmountMin != nil && amount < *p.AmountMin {
		return MatchResult{}
	}
	if p.AmountMax != nil && amount > *p.AmountMax {
		return MatchResult{}
	}

	return MatchResult{
		Matched:    true,
		Confidence: p.ConfidenceWeight,
		Reason:     fmt.Sprintf("amount %.2f in range", amount),
	}
}

func (m *Matcher) matchRegex(text string, p *model.Pattern) MatchResult {
	re, ok := m.compiledRegex[p.ID]
	if !ok {
		return MatchResult{}
	}

	if len(text) > maxRegexInput {
		text = text[:maxRegexInput]
	}
	if !re.MatchString(text) {
		return MatchResult{}
	}

	return MatchResult{
		Matched:    true,
		Confidence: p.ConfidenceWeight,
		Reason:     fmt.Sprintf("regex %q matched", p.Value),
	}
}

func (m *Matcher) matchTime(txn model.Transaction, p *model.Pattern) MatchResult {
	bucket, ok := model.ParseTimeBucket(p.Value)
	if !ok || !bucket.Contains(txn.Date) {
		return MatchResult{}
	}

	return MatchResult{
		Matched:    true,
		Confidence: p.ConfidenceWeight,
		Reason:     fmt.Sprintf("time bucket %s", bucket),
	}
}
