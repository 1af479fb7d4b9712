package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kestrelfin/sortinghat/internal/model"
	"github.com/kestrelfin/sortinghat/internal/pattern"
)

func patternsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patterns",
		Short: "Manage categorization patterns",
	}

	cmd.AddCommand(patternsListCmd())
	cmd.AddCommand(patternsAddCmd())
	cmd.AddCommand(patternsActivateCmd("deactivate", false))
	cmd.AddCommand(patternsActivateCmd("activate", true))
	cmd.AddCommand(patternsSweepCmd())

	return cmd
}

func patternsListCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List patterns",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openStorage()
			if err != nil {
				return fmt.Errorf("failed to open storage: %w", err)
			}
			defer func() { _ = store.Close() }()

			ctx := cmd.Context()

			var patterns []model.Pattern
			if all {
				patterns, err = store.GetAllPatterns(ctx)
			} else {
				patterns, err = store.GetActivePatterns(ctx)
			}
			if err != nil {
				return fmt.Errorf("failed to list patterns: %w", err)
			}

			if len(patterns) == 0 {
				cmd.Println("No patterns found.")
				return nil
			}

			for _, p := range patterns {
				status := "active"
				if !p.Active {
					status = "inactive"
				}
				origin := "seed"
				if p.UserCreated {
					origin = "learned"
				}
				cmd.Printf("%4d  %-12s  %-30q  category=%d  weight=%.2f  rate=%.2f (%d/%d)  %s  %s\n",
					p.ID, p.Type, p.Value, p.CategoryID, p.ConfidenceWeight,
					p.SuccessRate(), p.SuccessCount, p.UsageCount, status, origin)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "include deactivated patterns")
	return cmd
}

func patternsAddCmd() *cobra.Command {
	var (
		patternType  string
		value        string
		categoryName string
		weight       float64
		amountMin    float64
		amountMax    float64
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a pattern",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openStorage()
			if err != nil {
				return fmt.Errorf("failed to open storage: %w", err)
			}
			defer func() { _ = store.Close() }()

			ctx := cmd.Context()

			category, err := store.GetCategoryByName(ctx, categoryName)
			if err != nil {
				return fmt.Errorf("failed to resolve category %q: %w", categoryName, err)
			}

			p := &model.Pattern{
				Type:             model.PatternType(patternType),
				Value:            value,
				CategoryID:       category.ID,
				ConfidenceWeight: weight,
				Active:           true,
			}
			if cmd.Flags().Changed("amount-min") {
				p.AmountMin = &amountMin
			}
			if cmd.Flags().Changed("amount-max") {
				p.AmountMax = &amountMax
			}

			if err := pattern.ValidateDefinition(p); err != nil {
				return fmt.Errorf("invalid pattern: %w", err)
			}
			if err := store.CreatePattern(ctx, p); err != nil {
				return fmt.Errorf("failed to create pattern: %w", err)
			}

			cmd.Printf("Created pattern %d.\n", p.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&patternType, "type", "merchant", "pattern type (merchant, keyword, description, amount_range, regex, time)")
	cmd.Flags().StringVar(&value, "value", "", "pattern value")
	cmd.Flags().StringVar(&categoryName, "category", "", "target category name")
	cmd.Flags().Float64Var(&weight, "weight", 1.0, "confidence weight")
	cmd.Flags().Float64Var(&amountMin, "amount-min", 0, "minimum amount (amount_range)")
	cmd.Flags().Float64Var(&amountMax, "amount-max", 0, "maximum amount (amount_range)")
	_ = cmd.MarkFlagRequired("category")

	return cmd
}

func patternsActivateCmd(use string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <pattern-id>",
		Short: use + " a pattern",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStorage()
			if err != nil {
				return fmt.Errorf("failed to open storage: %w", err)
			}
			defer func() { _ = store.Close() }()

			var id int64
			if _, err := fmt.Sscanf(args[0], "%d", &id); err != nil {
				return fmt.Errorf("invalid pattern id %q", args[0])
			}

			if err := store.SetPatternActive(cmd.Context(), id, active); err != nil {
				return fmt.Errorf("failed to update pattern: %w", err)
			}

			cmd.Printf("Pattern %d %sd.\n", id, use)
			return nil
		},
	}
}

func patternsSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Deactivate underperforming patterns",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openStorage()
			if err != nil {
				return fmt.Errorf("failed to open storage: %w", err)
			}
			defer func() { _ = store.Close() }()

			config := learnConfigFromViper()
			deactivated, err := store.SweepUnderperformingPatterns(cmd.Context(), config.MinSamples, config.SuccessFloor)
			if err != nil {
				return fmt.Errorf("sweep failed: %w", err)
			}

			cmd.Printf("Deactivated %d patterns.\n", deactivated)
			return nil
		},
	}
}
