package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kestrelfin/sortinghat/internal/common"
	"github.com/kestrelfin/sortinghat/internal/model"
	"github.com/kestrelfin/sortinghat/internal/service"
)

// seedCategory pairs a category with its starter patterns.
type seedCategory struct {
	name        string
	description string
	merchants   []string
	keywords    []string
}

var seedData = []seedCategory{
	{
		name:        "Food & Dining",
		description: "Restaurants, coffee shops, and groceries",
		merchants:   []string{"starbucks", "mcdonalds", "chipotle", "whole foods", "trader joes"},
		keywords:    []string{"restaurant", "coffee", "pizza", "grocery"},
	},
	{
		name:        "Transportation",
		description: "Ride shares, transit, fuel",
		merchants:   []string{"uber", "lyft", "shell", "chevron"},
		keywords:    []string{"parking", "toll", "fuel"},
	},
	{
		name:        "Shopping",
		description: "Retail and online shopping",
		merchants:   []string{"amazon", "target", "walmart", "ebay"},
		keywords:    []string{"store", "retail"},
	},
	{
		name:        "Entertainment",
		description: "Streaming, games, events",
		merchants:   []string{"netflix", "spotify", "steam"},
		keywords:    []string{"cinema", "theatre", "tickets"},
	},
	{
		name:        "Bills & Utilities",
		description: "Recurring household bills",
		merchants:   []string{"comcast", "verizon", "pg e"},
		keywords:    []string{"electric", "water", "internet", "insurance"},
	},
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Seed starter categories and patterns",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openStorage()
			if err != nil {
				return fmt.Errorf("failed to open storage: %w", err)
			}
			defer func() { _ = store.Close() }()

			ctx := cmd.Context()
			if err := store.Migrate(ctx); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			created := 0
			for _, seed := range seedData {
				category, err := ensureCategory(ctx, store, seed.name, seed.description)
				if err != nil {
					return err
				}

				for _, merchant := range seed.merchants {
					n, err := ensurePattern(ctx, store, model.PatternMerchant, merchant, category.ID)
					if err != nil {
						return err
					}
					created += n
				}
				for _, keyword := range seed.keywords {
					n, err := ensurePattern(ctx, store, model.PatternKeyword, keyword, category.ID)
					if err != nil {
						return err
					}
					created += n
				}
			}

			cmd.Printf("Seeded %d patterns across %d categories.\n", created, len(seedData))
			return nil
		},
	}
}

func ensureCategory(ctx context.Context, store service.Storage, name, description string) (*model.Category, error) {
	category, err := store.GetCategoryByName(ctx, name)
	if err == nil {
		return category, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up category %q: %w", name, err)
	}
	return store.CreateCategory(ctx, name, description)
}

func ensurePattern(ctx context.Context, store service.Storage, patternType model.PatternType, value string, categoryID int) (int, error) {
	existing, err := store.GetAllPatterns(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list patterns: %w", err)
	}
	for i := range existing {
		if existing[i].Type == patternType && existing[i].Value == value && existing[i].CategoryID == categoryID {
			return 0, nil
		}
	}

	p := &model.Pattern{
		Type:             patternType,
		Value:            value,
		CategoryID:       categoryID,
		ConfidenceWeight: 1.0,
		Active:           true,
	}
	if err := store.CreatePattern(ctx, p); err != nil {
		return 0, fmt.Errorf("failed to create pattern %q: %w", value, err)
	}
	return 1, nil
}
