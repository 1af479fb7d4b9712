package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/kestrelfin/sortinghat/internal/common"
	"github.com/kestrelfin/sortinghat/internal/model"
)

// SaveCanonicalMerchant inserts or updates a canonical merchant keyed by
// its normalized name.
func (s *SQLiteStorage) SaveCanonicalMerchant(ctx context.Context, merchant *model.CanonicalMerchant) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateMerchant(merchant); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO canonical_merchants (name, display_name)
		VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET
			display_name = excluded.display_name,
			updated_at = CURRENT_TIMESTAMP
	`, merchant.Name, merchant.DisplayName)
	if err != nil {
		return fmt.Errorf("failed to save merchant: %w", err)
	}

	if merchant.ID == 0 {
		// On conflict LastInsertId is unreliable; resolve by name.
		if id, err := result.LastInsertId(); err == nil && id > 0 {
			var existing int64
			lookupErr := s.db.QueryRowContext(ctx,
				"SELECT id FROM canonical_merchants WHERE name = ?", merchant.Name).Scan(&existing)
			if lookupErr == nil {
				merchant.ID = existing
			} else {
				merchant.ID = id
			}
		}
	}
	merchant.UpdatedAt = time.Now()

	return nil
}

// GetCanonicalMerchant retrieves a canonical merchant by id.
func (s *SQLiteStorage) GetCanonicalMerchant(ctx context.Context, id int64) (*model.CanonicalMerchant, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	var m model.CanonicalMerchant
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, display_name, created_at, updated_at
		FROM canonical_merchants
		WHERE id = ?
	`, id).Scan(&m.ID, &m.Name, &m.DisplayName, &m.CreatedAt, &m.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get merchant: %w", err)
	}

	return &m, nil
}

// GetAllMerchants retrieves every canonical merchant ordered by name.
func (s *SQLiteStorage) GetAllMerchants(ctx context.Context) ([]model.CanonicalMerchant, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, display_name, created_at, updated_at
		FROM canonical_merchants
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query merchants: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var merchants []model.CanonicalMerchant
	for rows.Next() {
		var m model.CanonicalMerchant
		if err := rows.Scan(&m.ID, &m.Name, &m.DisplayName, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan merchant: %w", err)
		}
		merchants = append(merchants, m)
	}

	return merchants, rows.Err()
}

// SaveMerchantAlias inserts or updates an alias mapping. Each alias maps
// to exactly one canonical merchant, enforced by the unique constraint.
func (s *SQLiteStorage) SaveMerchantAlias(ctx context.Context, alias *model.MerchantAlias) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(alias.Alias, "alias"); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO merchant_aliases (alias, merchant_id, confidence)
		VALUES (?, ?, ?)
		ON CONFLICT(alias) DO UPDATE SET
			merchant_id = excluded.merchant_id,
			confidence = excluded.confidence
	`, alias.Alias, alias.MerchantID, alias.Confidence)
	if err != nil {
		return fmt.Errorf("failed to save merchant alias: %w", err)
	}

	s.cacheAlias(alias)

	return nil
}

// FindMerchantByAlias resolves normalized merchant text to its canonical
// merchant, if an alias mapping exists.
func (s *SQLiteStorage) FindMerchantByAlias(ctx context.Context, alias string) (*model.CanonicalMerchant, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(alias, "alias"); err != nil {
		return nil, err
	}

	if cached := s.getCachedAlias(alias); cached != nil {
		return s.GetCanonicalMerchant(ctx, cached.MerchantID)
	}

	var a model.MerchantAlias
	err := s.db.QueryRowContext(ctx, `
		SELECT id, alias, merchant_id, confidence, created_at
		FROM merchant_aliases
		WHERE alias = ?
	`, alias).Scan(&a.ID, &a.Alias, &a.MerchantID, &a.Confidence, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find merchant alias: %w", err)
	}

	s.cacheAlias(&a)

	return s.GetCanonicalMerchant(ctx, a.MerchantID)
}

// MergeMerchants migrates every alias and pattern reference from one
// canonical merchant onto another and deletes the source, all in a
// single transaction so the invariant "one alias, one merchant" holds
// at every observable point.
func (s *SQLiteStorage) MergeMerchants(ctx context.Context, fromID, intoID int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if fromID == intoID {
		return fmt.Errorf("cannot merge a merchant into itself")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists bool
	if err := tx.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM canonical_merchants WHERE id = ?)", intoID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check target merchant: %w", err)
	}
	if !exists {
		return common.ErrNotFound
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE merchant_aliases SET merchant_id = ? WHERE merchant_id = ?", intoID, fromID); err != nil {
		return fmt.Errorf("failed to migrate aliases: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE patterns SET merchant_id = ? WHERE merchant_id = ?", intoID, fromID); err != nil {
		return fmt.Errorf("failed to migrate pattern references: %w", err)
	}

	result, err := tx.ExecContext(ctx,
		"DELETE FROM canonical_merchants WHERE id = ?", fromID)
	if err != nil {
		return fmt.Errorf("failed to delete merged merchant: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return common.ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit merge: %w", err)
	}

	// Migrated aliases invalidate the cache wholesale.
	s.cacheMutex.Lock()
	s.aliasCache = make(map[string]*model.MerchantAlias)
	s.cacheMutex.Unlock()

	return nil
}

// getCachedAlias retrieves an alias from the cache.
func (s *SQLiteStorage) getCachedAlias(alias string) *model.MerchantAlias {
	s.cacheMutex.RLock()

	if time.Now().After(s.cacheExpiry) {
		s.cacheMutex.RUnlock()
		s.cacheMutex.Lock()
		defer s.cacheMutex.Unlock()

		// Double-check after acquiring write lock
		if time.Now().After(s.cacheExpiry) {
			s.aliasCache = make(map[string]*model.MerchantAlias)
		}
		return nil
	}

	cached := s.aliasCache[alias]
	s.cacheMutex.RUnlock()
	return cached
}

// cacheAlias adds an alias to the cache.
func (s *SQLiteStorage) cacheAlias(alias *model.MerchantAlias) {
	s.cacheMutex.Lock()
	defer s.cacheMutex.Unlock()

	if len(s.aliasCache) == 0 {
		s.cacheExpiry = time.Now().Add(5 * time.Minute)
	}
	s.aliasCache[alias.Alias] = alias
}
