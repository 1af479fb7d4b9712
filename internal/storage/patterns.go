package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/kestrelfin/sortinghat/internal/common"
	"github.com/kestrelfin/sortinghat/internal/model"
)

const patternColumns = `id, type, value, category_id, merchant_id, confidence_weight,
	amount_min, amount_max, usage_count, success_count, active, user_created,
	notes, last_used_at, created_at, updated_at`

// CreatePattern creates a new simple pattern.
func (s *SQLiteStorage) CreatePattern(ctx context.Context, pattern *model.Pattern) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validatePattern(pattern); err != nil {
		return err
	}

	// Verify category exists
	var categoryCount int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM categories WHERE id = ? AND is_active = 1",
		pattern.CategoryID).Scan(&categoryCount)
	if err != nil {
		return fmt.Errorf("failed to verify category: %w", err)
	}
	if categoryCount == 0 {
		return fmt.Errorf("category %d does not exist or is inactive", pattern.CategoryID)
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO patterns (
			type, value, category_id, merchant_id, confidence_weight,
			amount_min, amount_max, usage_count, success_count,
			active, user_created, notes
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		pattern.Type, pattern.Value, pattern.CategoryID, pattern.MerchantID,
		pattern.ConfidenceWeight, pattern.AmountMin, pattern.AmountMax,
		pattern.UsageCount, pattern.SuccessCount,
		pattern.Active, pattern.UserCreated, pattern.Notes,
	)
	if err != nil {
		return fmt.Errorf("failed to create pattern: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get pattern ID: %w", err)
	}

	pattern.ID = id
	pattern.CreatedAt = time.Now()
	pattern.UpdatedAt = time.Now()

	return nil
}

// GetPattern retrieves a pattern by ID.
func (s *SQLiteStorage) GetPattern(ctx context.Context, id int64) (*model.Pattern, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		"SELECT "+patternColumns+" FROM patterns WHERE id = ?", id)

	pattern, err := scanPattern(row)
	if err == sql.ErrNoRows {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pattern: %w", err)
	}

	return pattern, nil
}

// GetActivePatterns retrieves all active patterns in stable id order.
func (s *SQLiteStorage) GetActivePatterns(ctx context.Context) ([]model.Pattern, error) {
	return s.queryPatterns(ctx, "WHERE active = 1")
}

// GetAllPatterns retrieves every pattern, including deactivated ones,
// which stay in the store for statistics and audit.
func (s *SQLiteStorage) GetAllPatterns(ctx context.Context) ([]model.Pattern, error) {
	return s.queryPatterns(ctx, "")
}

func (s *SQLiteStorage) queryPatterns(ctx context.Context, where string) ([]model.Pattern, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+patternColumns+" FROM patterns "+where+" ORDER BY id ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query patterns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var patterns []model.Pattern
	for rows.Next() {
		pattern, err := scanPattern(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pattern: %w", err)
		}
		patterns = append(patterns, *pattern)
	}

	return patterns, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPattern(row rowScanner) (*model.Pattern, error) {
	var p model.Pattern
	var lastUsed sql.NullTime
	err := row.Scan(
		&p.ID, &p.Type, &p.Value, &p.CategoryID, &p.MerchantID, &p.ConfidenceWeight,
		&p.AmountMin, &p.AmountMax, &p.UsageCount, &p.SuccessCount, &p.Active, &p.UserCreated,
		&p.Notes, &lastUsed, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if lastUsed.Valid {
		p.LastUsedAt = &lastUsed.Time
	}
	return &p, nil
}

// UpdatePattern updates an existing pattern's definition fields.
func (s *SQLiteStorage) UpdatePattern(ctx context.Context, pattern *model.Pattern) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validatePattern(pattern); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE patterns SET
			type = ?, value = ?, category_id = ?, merchant_id = ?,
			confidence_weight = ?, amount_min = ?, amount_max = ?,
			active = ?, notes = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`,
		pattern.Type, pattern.Value, pattern.CategoryID, pattern.MerchantID,
		pattern.ConfidenceWeight, pattern.AmountMin, pattern.AmountMax,
		pattern.Active, pattern.Notes, pattern.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update pattern: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return common.ErrNotFound
	}

	return nil
}

// SetPatternActive activates or deactivates a pattern. Deactivation is a
// soft disable; the row and its history stay in the store.
func (s *SQLiteStorage) SetPatternActive(ctx context.Context, id int64, active bool) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE patterns SET active = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`, active, id)
	if err != nil {
		return fmt.Errorf("failed to set pattern active: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return common.ErrNotFound
	}

	return nil
}

// RecordPatternUse atomically increments usage_count, and success_count
// when the use was successful. The increment happens in SQL rather than
// read-modify-write so concurrent feedback never loses updates.
func (s *SQLiteStorage) RecordPatternUse(ctx context.Context, id int64, success bool) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	successDelta := 0
	if success {
		successDelta = 1
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE patterns SET
			usage_count = usage_count + 1,
			success_count = success_count + ?,
			last_used_at = CURRENT_TIMESTAMP,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, successDelta, id)
	if err != nil {
		return wrapBusy(fmt.Errorf("failed to record pattern use: %w", err))
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return common.ErrNotFound
	}

	return nil
}

// SweepUnderperformingPatterns soft-disables patterns that have reached
// the minimum sample size with a success rate below the floor. The sweep
// is idempotent: rerunning it leaves already-inactive rows untouched.
func (s *SQLiteStorage) SweepUnderperformingPatterns(ctx context.Context, minSamples int64, floor float64) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE patterns SET active = 0, updated_at = CURRENT_TIMESTAMP
		WHERE active = 1
		  AND usage_count >= ?
		  AND CAST(success_count AS REAL) / usage_count < ?
	`, minSamples, floor)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep patterns: %w", err)
	}

	return result.RowsAffected()
}
