package model

import (
	"fmt"
	"time"
)

// CompositeOperator combines component pattern results.
type CompositeOperator string

const (
	// OperatorAnd requires every component to match.
	OperatorAnd CompositeOperator = "AND"
	// OperatorOr requires at least one component to match.
	OperatorOr CompositeOperator = "OR"
	// OperatorNot requires that none of the components match.
	OperatorNot CompositeOperator = "NOT"
)

// CompositePattern is a boolean combination of simple patterns plus
// auxiliary constraints that are AND-ed after the boolean combination.
type CompositePattern struct {
	CreatedAt        time.Time
	UpdatedAt        time.Time
	StartHour        *int // Auxiliary time window, inclusive start hour
	EndHour          *int // Auxiliary time window, exclusive end hour
	AmountMin        *float64
	AmountMax        *float64
	Name             string
	Operator         CompositeOperator
	ComponentIDs     []int64 // Ordered references to simple patterns
	DaysOfWeek       []time.Weekday
	ID               int64
	CategoryID       int
	ConfidenceWeight float64
	UsageCount       int64
	SuccessCount     int64
	Active           bool
}

// SuccessRate returns success_count/usage_count, or 0 when unused.
func (c *CompositePattern) SuccessRate() float64 {
	if c.UsageCount == 0 {
		return 0
	}
	return float64(c.SuccessCount) / float64(c.UsageCount)
}

// Validate ensures the composite has valid data. Dangling component
// references are not an error here; they make the composite permanently
// non-matching at evaluation time.
func (c *CompositePattern) Validate() error {
	switch c.Operator {
	case OperatorAnd, OperatorOr, OperatorNot:
	default:
		return fmt.Errorf("unknown composite operator %q", c.Operator)
	}

	if c.Name == "" {
		return fmt.Errorf("composite name is required")
	}
	if c.CategoryID <= 0 {
		return fmt.Errorf("category is required")
	}
	if len(c.ComponentIDs) == 0 {
		return fmt.Errorf("composite requires at least one component")
	}
	if c.ConfidenceWeight < 0 {
		return fmt.Errorf("confidence weight must be non-negative, got %.2f", c.ConfidenceWeight)
	}

	if c.StartHour != nil && (*c.StartHour < 0 || *c.StartHour > 23) {
		return fmt.Errorf("start hour must be between 0 and 23")
	}
	if c.EndHour != nil && (*c.EndHour < 0 || *c.EndHour > 24) {
		return fmt.Errorf("end hour must be between 0 and 24")
	}
	if c.AmountMin != nil && c.AmountMax != nil && *c.AmountMin > *c.AmountMax {
		return fmt.Errorf("amount min must be less than or equal to amount max")
	}

	return nil
}

// MatchesAuxiliary evaluates the auxiliary constraints against a transaction.
func (c *CompositePattern) MatchesAuxiliary(txn Transaction) bool {
	if c.StartHour != nil && txn.Date.Hour() < *c.StartHour {
		return false
	}
	if c.EndHour != nil && txn.Date.Hour() >= *c.EndHour {
		return false
	}

	if len(c.DaysOfWeek) > 0 {
		found := false
		for _, day := range c.DaysOfWeek {
			if txn.Date.Weekday() == day {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if c.AmountMin != nil && txn.Amount < *c.AmountMin {
		return false
	}
	if c.AmountMax != nil && txn.Amount > *c.AmountMax {
		return false
	}

	return true
}
