package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/kestrelfin/sortinghat/internal/engine"
	"github.com/kestrelfin/sortinghat/internal/model"
)

func categorizeCmd() *cobra.Command {
	var (
		merchantText string
		description  string
		amount       float64
		currency     string
		when         string
	)

	cmd := &cobra.Command{
		Use:   "categorize",
		Short: "Suggest categories for a transaction",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openStorage()
			if err != nil {
				return fmt.Errorf("failed to open storage: %w", err)
			}
			defer func() { _ = store.Close() }()

			date := time.Now()
			if when != "" {
				parsed, err := time.Parse(time.RFC3339, when)
				if err != nil {
					parsed, err = time.Parse("2006-01-02", when)
					if err != nil {
						return fmt.Errorf("invalid --date, want RFC3339 or YYYY-MM-DD: %w", err)
					}
				}
				date = parsed
			}

			txn := model.Transaction{
				ID:           uuid.NewString(),
				Date:         date,
				Name:         description,
				MerchantName: merchantText,
				Amount:       amount,
				Currency:     currency,
			}
			if txn.Name == "" {
				txn.Name = merchantText
			}

			eng := engine.New(store, rankConfigFromViper(), learnConfigFromViper())
			suggestions, diagnostic, err := eng.Categorize(cmd.Context(), txn)
			if err != nil {
				return err
			}

			if len(suggestions) == 0 {
				if diagnostic != "" {
					cmd.Printf("No suggestions: %s\n", diagnostic)
				} else {
					cmd.Println("No suggestions; transaction is uncategorized.")
				}
				return nil
			}

			cmd.Printf("Transaction %s\n", txn.ID)
			for i, s := range suggestions {
				cmd.Printf("%d. %s (%.0f%%)\n", i+1, s.Category, s.Confidence*100)
				cmd.Printf("   %s\n", s.Reason)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&merchantText, "merchant", "", "raw merchant text")
	cmd.Flags().StringVar(&description, "description", "", "transaction description")
	cmd.Flags().Float64Var(&amount, "amount", 0, "transaction amount")
	cmd.Flags().StringVar(&currency, "currency", "USD", "transaction currency")
	cmd.Flags().StringVar(&when, "date", "", "transaction date (RFC3339 or YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}
