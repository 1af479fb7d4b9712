package model

import (
	"fmt"
	"time"
)

// FeedbackType describes the user action that closed the learning loop.
type FeedbackType string

const (
	// FeedbackConfirmation means the user accepted the suggested category.
	FeedbackConfirmation FeedbackType = "confirmation"
	// FeedbackCorrection means the user chose a different category.
	FeedbackCorrection FeedbackType = "correction"
	// FeedbackRejection means the user dismissed the suggestion outright.
	FeedbackRejection FeedbackType = "rejection"
)

// PatternFeedback records one user action against a categorization decision.
type PatternFeedback struct {
	CreatedAt     time.Time
	TransactionID string
	MerchantValue string      // Normalized merchant text, used for correction-streak synthesis
	PatternRef    *PatternRef // Originating pattern, when known
	Type          FeedbackType
	ID            int64
	CategoryID    int
	Confidence    float64 // Engine confidence at decision time
	WasCorrect    bool
}

// Validate ensures the feedback has valid data.
func (f *PatternFeedback) Validate() error {
	switch f.Type {
	case FeedbackConfirmation, FeedbackCorrection, FeedbackRejection:
	default:
		return fmt.Errorf("unknown feedback type %q", f.Type)
	}
	if f.TransactionID == "" {
		return fmt.Errorf("transaction ID is required")
	}
	if f.CategoryID <= 0 {
		return fmt.Errorf("category is required")
	}
	return nil
}

// LearningEvent is an append-only record of one categorization attempt.
// Events are never mutated and exist only for analytics.
type LearningEvent struct {
	CreatedAt        time.Time
	ID               string // UUID
	TransactionID    string
	Outcome          string
	ContributingRefs []PatternRef
	CategoryID       int
	Confidence       float64
}
