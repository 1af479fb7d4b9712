package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/kestrelfin/sortinghat/internal/common"
	"github.com/kestrelfin/sortinghat/internal/model"
)

const compositeColumns = `id, name, operator, category_id, confidence_weight,
	start_hour, end_hour, amount_min, amount_max, days_of_week,
	usage_count, success_count, active, created_at, updated_at`

// CreateCompositePattern creates a composite pattern and its ordered
// component references in one transaction.
func (s *SQLiteStorage) CreateCompositePattern(ctx context.Context, composite *model.CompositePattern) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateComposite(composite); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `
		INSERT INTO composite_patterns (
			name, operator, category_id, confidence_weight,
			start_hour, end_hour, amount_min, amount_max, days_of_week, active
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		composite.Name, composite.Operator, composite.CategoryID,
		composite.ConfidenceWeight, composite.StartHour, composite.EndHour,
		composite.AmountMin, composite.AmountMax,
		joinWeekdays(composite.DaysOfWeek), composite.Active,
	)
	if err != nil {
		return fmt.Errorf("failed to create composite pattern: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get composite pattern ID: %w", err)
	}

	for position, patternID := range composite.ComponentIDs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO composite_pattern_components (composite_id, pattern_id, position)
			VALUES (?, ?, ?)
		`, id, patternID, position); err != nil {
			return fmt.Errorf("failed to insert composite component: %w", err)
		}
	}

	// Read the components back inside the transaction so the caller
	// holds the stored position order.
	composite.ID = id
	if err := loadComponents(ctx, tx, composite); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit composite pattern: %w", err)
	}

	composite.CreatedAt = time.Now()
	composite.UpdatedAt = time.Now()

	return nil
}

// GetCompositePattern retrieves a composite pattern by ID.
func (s *SQLiteStorage) GetCompositePattern(ctx context.Context, id int64) (*model.CompositePattern, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		"SELECT "+compositeColumns+" FROM composite_patterns WHERE id = ?", id)

	composite, err := scanComposite(row)
	if err == sql.ErrNoRows {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get composite pattern: %w", err)
	}

	if err := loadComponents(ctx, s.db, composite); err != nil {
		return nil, err
	}

	return composite, nil
}

// GetActiveCompositePatterns retrieves all active composites with their
// components, in stable id order.
func (s *SQLiteStorage) GetActiveCompositePatterns(ctx context.Context) ([]model.CompositePattern, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+compositeColumns+" FROM composite_patterns WHERE active = 1 ORDER BY id ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query composite patterns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var composites []model.CompositePattern
	for rows.Next() {
		composite, err := scanComposite(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan composite pattern: %w", err)
		}
		composites = append(composites, *composite)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating composite patterns: %w", err)
	}

	for i := range composites {
		if err := loadComponents(ctx, s.db, &composites[i]); err != nil {
			return nil, err
		}
	}

	return composites, nil
}

func scanComposite(row rowScanner) (*model.CompositePattern, error) {
	var c model.CompositePattern
	var days string
	err := row.Scan(
		&c.ID, &c.Name, &c.Operator, &c.CategoryID, &c.ConfidenceWeight,
		&c.StartHour, &c.EndHour, &c.AmountMin, &c.AmountMax, &days,
		&c.UsageCount, &c.SuccessCount, &c.Active, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.DaysOfWeek = splitWeekdays(days)
	return &c, nil
}

// loadComponents populates the ordered component ids, reading through
// whatever connection the caller is on so it works inside transactions.
func loadComponents(ctx context.Context, q queryable, composite *model.CompositePattern) error {
	rows, err := q.QueryContext(ctx, `
		SELECT pattern_id
		FROM composite_pattern_components
		WHERE composite_id = ?
		ORDER BY position ASC
	`, composite.ID)
	if err != nil {
		return fmt.Errorf("failed to query composite components: %w", err)
	}
	defer func() { _ = rows.Close() }()

	composite.ComponentIDs = nil
	for rows.Next() {
		var patternID int64
		if err := rows.Scan(&patternID); err != nil {
			return fmt.Errorf("failed to scan composite component: %w", err)
		}
		composite.ComponentIDs = append(composite.ComponentIDs, patternID)
	}

	return rows.Err()
}

// SetCompositeActive activates or deactivates a composite pattern.
func (s *SQLiteStorage) SetCompositeActive(ctx context.Context, id int64, active bool) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE composite_patterns SET active = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`, active, id)
	if err != nil {
		return fmt.Errorf("failed to set composite active: %w", err)
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

// RecordCompositeUse atomically increments a composite's counters.
func (s *SQLiteStorage) RecordCompositeUse(ctx context.Context, id int64, success bool) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	successDelta := 0
	if success {
		successDelta = 1
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE composite_patterns SET
			usage_count = usage_count + 1,
			success_count = success_count + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, successDelta, id)
	if err != nil {
		return wrapBusy(fmt.Errorf("failed to record composite use: %w", err))
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
