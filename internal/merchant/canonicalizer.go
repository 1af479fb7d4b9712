// Package merchant maps raw merchant text to stable canonical
// identities so patterns bind to one merchant instead of every
// statement variant.
package merchant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kestrelfin/sortinghat/internal/common"
	"github.com/kestrelfin/sortinghat/internal/model"
	"github.com/kestrelfin/sortinghat/internal/normalize"
	"github.com/kestrelfin/sortinghat/internal/service"
	"github.com/kestrelfin/sortinghat/internal/similarity"
)

// fuzzyFloor is the minimum n-gram similarity for attaching a new alias
// to an existing canonical merchant instead of creating a fresh one.
const fuzzyFloor = 0.85

// Canonicalizer resolves raw merchant strings to canonical merchants.
type Canonicalizer struct {
	storage service.Storage
}

// NewCanonicalizer creates a canonicalizer backed by the given store.
func NewCanonicalizer(storage service.Storage) *Canonicalizer {
	return &Canonicalizer{storage: storage}
}

// Resolve maps raw merchant text to its canonical merchant. Exact alias
// hits win; otherwise the closest existing merchant above the fuzzy
// floor is used and a new alias is recorded for next time.
func (c *Canonicalizer) Resolve(ctx context.Context, rawMerchant string) (*model.CanonicalMerchant, error) {
	normalized := normalize.Normalize(rawMerchant)
	if normalized == "" {
		return nil, common.ErrNotFound
	}

	merchant, err := c.storage.FindMerchantByAlias(ctx, normalized)
	if err == nil {
		return merchant, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("failed to resolve alias: %w", err)
	}

	merchants, err := c.storage.GetAllMerchants(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list merchants: %w", err)
	}

	var best *model.CanonicalMerchant
	bestScore := 0.0
	for i := range merchants {
		score := similarity.Score(merchants[i].Name, normalized, similarity.AlgorithmNGram)
		if score > bestScore {
			bestScore = score
			best = &merchants[i]
		}
	}

	if best == nil || bestScore < fuzzyFloor {
		return nil, common.ErrNotFound
	}

	alias := &model.MerchantAlias{
		Alias:      normalized,
		MerchantID: best.ID,
		Confidence: bestScore,
	}
	if err := c.storage.SaveMerchantAlias(ctx, alias); err != nil {
		// The resolution is still valid without the cached alias.
		slog.Warn("failed to record merchant alias",
			"alias", normalized,
			"merchant_id", best.ID,
			"error", err)
	}

	return best, nil
}

// Ensure resolves raw merchant text, creating a new canonical merchant
// and self-alias when nothing matches.
func (c *Canonicalizer) Ensure(ctx context.Context, rawMerchant string) (*model.CanonicalMerchant, error) {
	merchant, err := c.Resolve(ctx, rawMerchant)
	if err == nil {
		return merchant, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}

	normalized := normalize.Normalize(rawMerchant)
	if normalized == "" {
		return nil, fmt.Errorf("merchant text normalizes to empty")
	}

	created := &model.CanonicalMerchant{
		Name:        normalized,
		DisplayName: rawMerchant,
	}
	if err := c.storage.SaveCanonicalMerchant(ctx, created); err != nil {
		return nil, fmt.Errorf("failed to create merchant: %w", err)
	}

	alias := &model.MerchantAlias{
		Alias:      normalized,
		MerchantID: created.ID,
		Confidence: 1.0,
	}
	if err := c.storage.SaveMerchantAlias(ctx, alias); err != nil {
		return nil, fmt.Errorf("failed to create alias: %w", err)
	}

	return created, nil
}

// Merge folds one canonical merchant into another, migrating aliases and
// pattern references atomically.
func (c *Canonicalizer) Merge(ctx context.Context, fromID, intoID int64) error {
	if err := c.storage.MergeMerchants(ctx, fromID, intoID); err != nil {
		return fmt.Errorf("failed to merge merchants: %w", err)
	}

	slog.Info("merged merchants", "from", fromID, "into", intoID)
	return nil
}
