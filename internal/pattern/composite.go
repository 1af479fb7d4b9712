package pattern

import (
	"fmt"

	"github.com/kestrelfin/sortinghat/internal/model"
)

// EvaluateComposite evaluates a composite pattern against a prepared
// transaction. A dangling component reference makes the composite
// permanently non-matching; it is never an error.
func (m *Matcher) EvaluateComposite(in Input, c *model.CompositePattern) MatchResult {
	if !c.Active {
		return MatchResult{}
	}

	results := make([]MatchResult, 0, len(c.ComponentIDs))
	for _, id := range c.ComponentIDs {
		p := m.snapshot.PatternByID(id)
		if p == nil {
			return MatchResult{}
		}
		results = append(results, m.Match(in, p))
	}

	matched := 0
	var confidenceSum float64
	for _, r := range results {
		if r.Matched {
			matched++
			confidenceSum += r.Confidence
		}
	}

	var combined bool
	switch c.Operator {
	case model.OperatorAnd:
		combined = matched == len(results)
	case model.OperatorOr:
		combined = matched >= 1
	case model.OperatorNot:
		// "None of the components match", not De Morgan negation.
		combined = matched == 0
	default:
		return MatchResult{}
	}

	if !combined {
		return MatchResult{}
	}

	// Auxiliary constraints are AND-ed after the boolean combination.
	if !c.MatchesAuxiliary(in.Txn) {
		return MatchResult{}
	}

	confidence := c.ConfidenceWeight
	if matched > 0 {
		confidence = (confidenceSum / float64(matched)) * c.ConfidenceWeight
	}

	return MatchResult{
		Matched:    true,
		Confidence: confidence,
		Reason:     fmt.Sprintf("composite %q (%s, %d/%d components)", c.Name, c.Operator, matched, len(results)),
	}
}
