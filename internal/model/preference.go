package model

import "time"

// ContextType identifies which transaction context a preference keys on.
type ContextType string

const (
	// ContextMerchant keys on the canonical merchant name.
	ContextMerchant ContextType = "merchant"
	// ContextTimeOfDay keys on the time bucket name.
	ContextTimeOfDay ContextType = "time_of_day"
	// ContextDayOfWeek keys on the lowercase weekday name.
	ContextDayOfWeek ContextType = "day_of_week"
	// ContextAmountRange keys on the amount bucket label.
	ContextAmountRange ContextType = "amount_range"
)

// UserCategoryPreference biases ranking toward categories the user has
// repeatedly chosen in a given context. Strength rises with confirmations
// and falls with corrections.
type UserCategoryPreference struct {
	UpdatedAt    time.Time
	ContextType  ContextType
	ContextValue string
	ID           int64
	CategoryID   int
	Strength     float64
}

// AmountBucket labels an amount for preference matching. Buckets are
// coarse on purpose: preferences are a weak signal, not a rule.
func AmountBucket(amount float64) string {
	switch {
	case amount < 10:
		return "micro"
	case amount < 50:
		return "small"
	case amount < 200:
		return "medium"
	case amount < 1000:
		return "large"
	default:
		return "xlarge"
	}
}
