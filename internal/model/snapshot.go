package model

import "time"

// Snapshot is an immutable in-memory view of all data the hot path needs.
// It is loaded once per batch so that matching performs zero store
// lookups; staleness is explicit in BuiltAt rather than hidden in a
// shared cache.
type Snapshot struct {
	BuiltAt     time.Time
	categories  map[int]Category
	patternByID map[int64]*Pattern
	aliases     map[string]MerchantAlias
	merchants   map[int64]CanonicalMerchant
	Patterns    []Pattern
	Composites  []CompositePattern
	Preferences []UserCategoryPreference
}

// NewSnapshot assembles a snapshot and builds its lookup indexes. The
// pattern and composite slices must already be filtered to active rows.
func NewSnapshot(
	patterns []Pattern,
	composites []CompositePattern,
	preferences []UserCategoryPreference,
	merchants []CanonicalMerchant,
	aliases []MerchantAlias,
	categories []Category,
) *Snapshot {
	s := &Snapshot{
		BuiltAt:     time.Now(),
		Patterns:    patterns,
		Composites:  composites,
		Preferences: preferences,
		patternByID: make(map[int64]*Pattern, len(patterns)),
		aliases:     make(map[string]MerchantAlias, len(aliases)),
		merchants:   make(map[int64]CanonicalMerchant, len(merchants)),
		categories:  make(map[int]Category, len(categories)),
	}

	for i := range patterns {
		s.patternByID[patterns[i].ID] = &patterns[i]
	}
	for _, alias := range aliases {
		s.aliases[alias.Alias] = alias
	}
	for _, merchant := range merchants {
		s.merchants[merchant.ID] = merchant
	}
	for _, category := range categories {
		s.categories[category.ID] = category
	}

	return s
}

// PatternByID resolves a simple pattern reference. A nil result means
// the reference is dangling (deleted or deactivated pattern).
func (s *Snapshot) PatternByID(id int64) *Pattern {
	return s.patternByID[id]
}

// AliasFor resolves normalized merchant text to its alias mapping.
func (s *Snapshot) AliasFor(normalized string) (MerchantAlias, bool) {
	alias, ok := s.aliases[normalized]
	return alias, ok
}

// MerchantByID resolves a canonical merchant by id.
func (s *Snapshot) MerchantByID(id int64) (CanonicalMerchant, bool) {
	m, ok := s.merchants[id]
	return m, ok
}

// CategoryName resolves a category id to its display name.
func (s *Snapshot) CategoryName(id int) string {
	if c, ok := s.categories[id]; ok {
		return c.Name
	}
	return ""
}
