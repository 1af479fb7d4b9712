package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 4

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Categories, canonical merchants, aliases, and simple patterns",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS categories (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					name TEXT UNIQUE NOT NULL,
					description TEXT DEFAULT '',
					is_active BOOLEAN DEFAULT 1,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,

				`CREATE TABLE IF NOT EXISTS canonical_merchants (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					name TEXT UNIQUE NOT NULL,
					display_name TEXT DEFAULT '',
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,

				`CREATE TABLE IF NOT EXISTS merchant_aliases (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					alias TEXT UNIQUE NOT NULL,
					merchant_id INTEGER NOT NULL REFERENCES canonical_merchants(id),
					confidence REAL DEFAULT 1.0,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_merchant_aliases_merchant ON merchant_aliases(merchant_id)`,

				`CREATE TABLE IF NOT EXISTS patterns (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					type TEXT NOT NULL,
					value TEXT NOT NULL DEFAULT '',
					category_id INTEGER NOT NULL REFERENCES categories(id),
					merchant_id INTEGER REFERENCES canonical_merchants(id),
					confidence_weight REAL DEFAULT 1.0,
					amount_min REAL,
					amount_max REAL,
					usage_count INTEGER DEFAULT 0,
					success_count INTEGER DEFAULT 0,
					active BOOLEAN DEFAULT 1,
					user_created BOOLEAN DEFAULT 0,
					notes TEXT DEFAULT '',
					last_used_at DATETIME,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					CHECK (success_count >= 0 AND usage_count >= success_count)
				)`,
				`CREATE INDEX idx_patterns_active ON patterns(active)`,
				`CREATE INDEX idx_patterns_category ON patterns(category_id)`,
				`CREATE INDEX idx_patterns_merchant ON patterns(merchant_id)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Composite patterns and their components",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS composite_patterns (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					name TEXT NOT NULL,
					operator TEXT NOT NULL,
					category_id INTEGER NOT NULL REFERENCES categories(id),
					confidence_weight REAL DEFAULT 1.0,
					start_hour INTEGER,
					end_hour INTEGER,
					amount_min REAL,
					amount_max REAL,
					days_of_week TEXT DEFAULT '',
					usage_count INTEGER DEFAULT 0,
					success_count INTEGER DEFAULT 0,
					active BOOLEAN DEFAULT 1,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_composite_patterns_active ON composite_patterns(active)`,

				`CREATE TABLE IF NOT EXISTS composite_pattern_components (
					composite_id INTEGER NOT NULL REFERENCES composite_patterns(id) ON DELETE CASCADE,
					pattern_id INTEGER NOT NULL,
					position INTEGER NOT NULL,
					PRIMARY KEY (composite_id, position)
				)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     3,
		Description: "Feedback and append-only learning events",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS pattern_feedback (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					transaction_id TEXT NOT NULL,
					ref_kind TEXT,
					ref_id INTEGER,
					category_id INTEGER NOT NULL,
					feedback_type TEXT NOT NULL,
					was_correct BOOLEAN DEFAULT 0,
					confidence REAL DEFAULT 0,
					merchant_value TEXT DEFAULT '',
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_pattern_feedback_transaction ON pattern_feedback(transaction_id)`,
				`CREATE INDEX idx_pattern_feedback_merchant ON pattern_feedback(merchant_value, category_id)`,

				`CREATE TABLE IF NOT EXISTS pattern_learning_events (
					id TEXT PRIMARY KEY,
					transaction_id TEXT NOT NULL,
					category_id INTEGER,
					confidence REAL DEFAULT 0,
					outcome TEXT DEFAULT '',
					contributing_refs TEXT DEFAULT '',
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_learning_events_transaction ON pattern_learning_events(transaction_id)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     4,
		Description: "User category preferences",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS user_category_preferences (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					context_type TEXT NOT NULL,
					context_value TEXT NOT NULL,
					category_id INTEGER NOT NULL REFERENCES categories(id),
					strength REAL DEFAULT 0,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					UNIQUE (context_type, context_value, category_id)
				)
			`)
			return err
		},
	},
}

// Migrate applies all pending migrations to the database.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			description TEXT,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	current, err := s.schemaVersion(ctx)
	if err != nil {
		return err
	}

	for _, migration := range migrations {
		if migration.Version <= current {
			continue
		}

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin migration transaction: %w", err)
		}

		if err := migration.Up(tx); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d (%s) failed: %w", migration.Version, migration.Description, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_migrations (version, description) VALUES (?, ?)",
			migration.Version, migration.Description,
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}

		slog.Info("applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	final, err := s.schemaVersion(ctx)
	if err != nil {
		return err
	}
	if final != ExpectedSchemaVersion {
		return fmt.Errorf("schema version %d does not match expected %d", final, ExpectedSchemaVersion)
	}

	return nil
}

func (s *SQLiteStorage) schemaVersion(ctx context.Context) (int, error) {
	var version sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		"SELECT MAX(version) FROM schema_migrations").Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	if !version.Valid {
		return 0, nil
	}
	return int(version.Int64), nil
}
