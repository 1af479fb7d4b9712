// Package model defines the core data structures for the sortinghat engine.
package model

import (
	"fmt"
	"time"
)

// PatternType identifies which transaction feature a pattern matches on.
// The set is closed: the matcher switches exhaustively over these values,
// so adding a type is a compile-time-checked change.
type PatternType string

const (
	// PatternMerchant matches against the normalized merchant text.
	PatternMerchant PatternType = "merchant"
	// PatternKeyword matches a keyword contained in the description.
	PatternKeyword PatternType = "keyword"
	// PatternDescription matches against the full normalized description.
	PatternDescription PatternType = "description"
	// PatternAmountRange matches when the amount falls inside [min, max].
	PatternAmountRange PatternType = "amount_range"
	// PatternRegex matches a regular expression against the normalized description.
	PatternRegex PatternType = "regex"
	// PatternTime matches when the timestamp falls into a named bucket.
	PatternTime PatternType = "time"
)

// KnownPatternTypes lists every valid pattern type.
var KnownPatternTypes = []PatternType{
	PatternMerchant,
	PatternKeyword,
	PatternDescription,
	PatternAmountRange,
	PatternRegex,
	PatternTime,
}

// Pattern represents a stored rule that maps transaction features to a
// category with a confidence weight.
type Pattern struct {
	CreatedAt        time.Time
	UpdatedAt        time.Time
	LastUsedAt       *time.Time
	AmountMin        *float64
	AmountMax        *float64
	MerchantID       *int64 // Canonical merchant this pattern is bound to, for merchant patterns
	Value            string // Pre-normalized match value (text, regex source, or time bucket name)
	Notes            string
	Type             PatternType
	ID               int64
	CategoryID       int
	ConfidenceWeight float64
	UsageCount       int64
	SuccessCount     int64
	Active           bool
	UserCreated      bool
}

// SuccessRate returns success_count/usage_count, or 0 when unused.
func (p *Pattern) SuccessRate() float64 {
	if p.UsageCount == 0 {
		return 0
	}
	return float64(p.SuccessCount) / float64(p.UsageCount)
}

// Validate ensures the pattern has valid data.
func (p *Pattern) Validate() error {
	valid := false
	for _, t := range KnownPatternTypes {
		if p.Type == t {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("unknown pattern type %q", p.Type)
	}

	if p.CategoryID <= 0 {
		return fmt.Errorf("category is required")
	}

	if p.ConfidenceWeight < 0 {
		return fmt.Errorf("confidence weight must be non-negative, got %.2f", p.ConfidenceWeight)
	}

	if p.SuccessCount < 0 || p.UsageCount < 0 || p.SuccessCount > p.UsageCount {
		return fmt.Errorf("counters must satisfy 0 <= success_count <= usage_count")
	}

	switch p.Type {
	case PatternAmountRange:
		if p.AmountMin == nil && p.AmountMax == nil {
			return fmt.Errorf("amount_range pattern requires at least one bound")
		}
		if p.AmountMin != nil && p.AmountMax != nil && *p.AmountMin > *p.AmountMax {
			return fmt.Errorf("amount min must be less than or equal to amount max")
		}
	case PatternTime:
		if _, ok := ParseTimeBucket(p.Value); !ok {
			return fmt.Errorf("unknown time bucket %q", p.Value)
		}
	case PatternMerchant, PatternKeyword, PatternDescription, PatternRegex:
		if p.Value == "" {
			return fmt.Errorf("%s pattern requires a value", p.Type)
		}
	}

	return nil
}

// TimeBucket is a named slice of the week that time patterns match on.
type TimeBucket string

const (
	// BucketMorning covers 05:00-10:59 local time.
	BucketMorning TimeBucket = "morning"
	// BucketAfternoon covers 11:00-16:59 local time.
	BucketAfternoon TimeBucket = "afternoon"
	// BucketEvening covers 17:00-21:59 local time.
	BucketEvening TimeBucket = "evening"
	// BucketNight covers 22:00-04:59 local time.
	BucketNight TimeBucket = "night"
	// BucketWeekday covers Monday through Friday.
	BucketWeekday TimeBucket = "weekday"
	// BucketWeekend covers Saturday and Sunday.
	BucketWeekend TimeBucket = "weekend"
)

// ParseTimeBucket converts a stored bucket name into a TimeBucket.
func ParseTimeBucket(s string) (TimeBucket, bool) {
	switch TimeBucket(s) {
	case BucketMorning, BucketAfternoon, BucketEvening, BucketNight, BucketWeekday, BucketWeekend:
		return TimeBucket(s), true
	}
	return "", false
}

// Contains reports whether the timestamp falls inside the bucket.
func (b TimeBucket) Contains(t time.Time) bool {
	switch b {
	case BucketMorning:
		return t.Hour() >= 5 && t.Hour() < 11
	case BucketAfternoon:
		return t.Hour() >= 11 && t.Hour() < 17
	case BucketEvening:
		return t.Hour() >= 17 && t.Hour() < 22
	case BucketNight:
		return t.Hour() >= 22 || t.Hour() < 5
	case BucketWeekday:
		return t.Weekday() >= time.Monday && t.Weekday() <= time.Friday
	case BucketWeekend:
		return t.Weekday() == time.Saturday || t.Weekday() == time.Sunday
	}
	return false
}
