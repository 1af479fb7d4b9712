// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/kestrelfin/sortinghat/internal/model"
)

// Storage defines the contract for our persistence layer.
type Storage interface {
	// Snapshot loading. The hot path matches against the returned
	// immutable snapshot and never touches storage directly.
	LoadSnapshot(ctx context.Context) (*model.Snapshot, error)

	// Category operations
	GetCategories(ctx context.Context) ([]model.Category, error)
	GetCategoryByID(ctx context.Context, id int) (*model.Category, error)
	GetCategoryByName(ctx context.Context, name string) (*model.Category, error)
	CreateCategory(ctx context.Context, name, description string) (*model.Category, error)

	// Simple pattern operations
	CreatePattern(ctx context.Context, pattern *model.Pattern) error
	GetPattern(ctx context.Context, id int64) (*model.Pattern, error)
	GetActivePatterns(ctx context.Context) ([]model.Pattern, error)
	GetAllPatterns(ctx context.Context) ([]model.Pattern, error)
	UpdatePattern(ctx context.Context, pattern *model.Pattern) error
	SetPatternActive(ctx context.Context, id int64, active bool) error
	RecordPatternUse(ctx context.Context, id int64, success bool) error
	SweepUnderperformingPatterns(ctx context.Context, minSamples int64, floor float64) (int64, error)

	// Composite pattern operations
	CreateCompositePattern(ctx context.Context, composite *model.CompositePattern) error
	GetCompositePattern(ctx context.Context, id int64) (*model.CompositePattern, error)
	GetActiveCompositePatterns(ctx context.Context) ([]model.CompositePattern, error)
	SetCompositeActive(ctx context.Context, id int64, active bool) error
	RecordCompositeUse(ctx context.Context, id int64, success bool) error

	// Canonical merchant operations
	SaveCanonicalMerchant(ctx context.Context, merchant *model.CanonicalMerchant) error
	GetCanonicalMerchant(ctx context.Context, id int64) (*model.CanonicalMerchant, error)
	GetAllMerchants(ctx context.Context) ([]model.CanonicalMerchant, error)
	SaveMerchantAlias(ctx context.Context, alias *model.MerchantAlias) error
	FindMerchantByAlias(ctx context.Context, alias string) (*model.CanonicalMerchant, error)
	MergeMerchants(ctx context.Context, fromID, intoID int64) error

	// Feedback and learning operations
	SaveFeedback(ctx context.Context, feedback *model.PatternFeedback) error
	AppendLearningEvent(ctx context.Context, event *model.LearningEvent) error
	CountCorrections(ctx context.Context, merchantValue string, categoryID int) (int64, error)
	AdjustPreference(ctx context.Context, contextType model.ContextType, contextValue string, categoryID int, delta float64) error

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// RetryOptions configures retry behavior for storage writes.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
