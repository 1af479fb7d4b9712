package storage

import (
	"context"
	"fmt"

	"github.com/kestrelfin/sortinghat/internal/common"
	"github.com/kestrelfin/sortinghat/internal/model"
)

// LoadSnapshot assembles the immutable in-memory view the hot path
// matches against: active patterns and composites, positive preferences,
// merchants, aliases, and categories. Any load failure surfaces as
// ErrSnapshotUnavailable so callers fail closed instead of guessing.
func (s *SQLiteStorage) LoadSnapshot(ctx context.Context) (*model.Snapshot, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	patterns, err := s.GetActivePatterns(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrSnapshotUnavailable, err)
	}

	composites, err := s.GetActiveCompositePatterns(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrSnapshotUnavailable, err)
	}

	preferences, err := s.GetPreferences(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrSnapshotUnavailable, err)
	}

	merchants, err := s.GetAllMerchants(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrSnapshotUnavailable, err)
	}

	aliases, err := s.getAllAliases(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrSnapshotUnavailable, err)
	}

	categories, err := s.GetCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrSnapshotUnavailable, err)
	}

	return model.NewSnapshot(patterns, composites, preferences, merchants, aliases, categories), nil
}

func (s *SQLiteStorage) getAllAliases(ctx context.Context) ([]model.MerchantAlias, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, alias, merchant_id, confidence, created_at
		FROM merchant_aliases
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query aliases: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var aliases []model.MerchantAlias
	for rows.Next() {
		var a model.MerchantAlias
		if err := rows.Scan(&a.ID, &a.Alias, &a.MerchantID, &a.Confidence, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan alias: %w", err)
		}
		aliases = append(aliases, a)
	}

	return aliases, rows.Err()
}
