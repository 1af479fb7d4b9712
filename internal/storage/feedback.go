package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/kestrelfin/sortinghat/internal/model"
)

// SaveFeedback appends a feedback record.
func (s *SQLiteStorage) SaveFeedback(ctx context.Context, feedback *model.PatternFeedback) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateFeedback(feedback); err != nil {
		return err
	}

	var refKind *string
	var refID *int64
	if feedback.PatternRef != nil {
		kind := string(feedback.PatternRef.Kind)
		refKind = &kind
		refID = &feedback.PatternRef.ID
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO pattern_feedback (
			transaction_id, ref_kind, ref_id, category_id,
			feedback_type, was_correct, confidence, merchant_value
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		feedback.TransactionID, refKind, refID, feedback.CategoryID,
		feedback.Type, feedback.WasCorrect, feedback.Confidence, feedback.MerchantValue,
	)
	if err != nil {
		return wrapBusy(fmt.Errorf("failed to save feedback: %w", err))
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get feedback ID: %w", err)
	}

	feedback.ID = id
	feedback.CreatedAt = time.Now()

	return nil
}

// AppendLearningEvent appends one categorization attempt to the
// append-only analytics log. Events are never updated or deleted.
func (s *SQLiteStorage) AppendLearningEvent(ctx context.Context, event *model.LearningEvent) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(event.ID, "event.ID"); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pattern_learning_events (
			id, transaction_id, category_id, confidence, outcome, contributing_refs
		) VALUES (?, ?, ?, ?, ?, ?)
	`,
		event.ID, event.TransactionID, event.CategoryID,
		event.Confidence, event.Outcome, joinRefs(event.ContributingRefs),
	)
	if err != nil {
		return fmt.Errorf("failed to append learning event: %w", err)
	}

	event.CreatedAt = time.Now()

	return nil
}

// CountCorrections counts corrections that steered a merchant toward a
// category, which drives user-created pattern synthesis.
func (s *SQLiteStorage) CountCorrections(ctx context.Context, merchantValue string, categoryID int) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateString(merchantValue, "merchantValue"); err != nil {
		return 0, err
	}

	var count int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM pattern_feedback
		WHERE feedback_type = ? AND merchant_value = ? AND category_id = ?
	`, model.FeedbackCorrection, merchantValue, categoryID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count corrections: %w", err)
	}

	return count, nil
}

// AdjustPreference nudges a preference's strength by delta, creating the
// row on first touch. Strength never drops below zero. The adjustment is
// a single SQL statement so concurrent feedback cannot lose updates.
func (s *SQLiteStorage) AdjustPreference(ctx context.Context, contextType model.ContextType, contextValue string, categoryID int, delta float64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(contextValue, "contextValue"); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_category_preferences (context_type, context_value, category_id, strength)
		VALUES (?, ?, ?, MAX(0, ?))
		ON CONFLICT(context_type, context_value, category_id) DO UPDATE SET
			strength = MAX(0, strength + ?),
			updated_at = CURRENT_TIMESTAMP
	`, contextType, contextValue, categoryID, delta, delta)
	if err != nil {
		return wrapBusy(fmt.Errorf("failed to adjust preference: %w", err))
	}

	return nil
}

// GetPreferences retrieves all preferences with positive strength.
func (s *SQLiteStorage) GetPreferences(ctx context.Context) ([]model.UserCategoryPreference, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, context_type, context_value, category_id, strength, updated_at
		FROM user_category_preferences
		WHERE strength > 0
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query preferences: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var preferences []model.UserCategoryPreference
	for rows.Next() {
		var p model.UserCategoryPreference
		if err := rows.Scan(&p.ID, &p.ContextType, &p.ContextValue, &p.CategoryID, &p.Strength, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan preference: %w", err)
		}
		preferences = append(preferences, p)
	}

	return preferences, rows.Err()
}
