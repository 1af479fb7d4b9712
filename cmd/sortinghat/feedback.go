package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kestrelfin/sortinghat/internal/engine"
	"github.com/kestrelfin/sortinghat/internal/learning"
	"github.com/kestrelfin/sortinghat/internal/model"
)

func feedbackCmd() *cobra.Command {
	var (
		transactionID string
		merchantText  string
		categoryName  string
		feedbackType  string
		patternID     int64
		amount        float64
	)

	cmd := &cobra.Command{
		Use:   "feedback",
		Short: "Record a confirmation, correction, or rejection",
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

			fb := learning.Feedback{
				Transaction: model.Transaction{
					ID:           transactionID,
					Date:         time.Now(),
					MerchantName: merchantText,
					Name:         merchantText,
					Amount:       amount,
				},
				Type:       model.FeedbackType(feedbackType),
				CategoryID: category.ID,
			}
			if patternID > 0 {
				ref := model.SimpleRef(patternID)
				fb.OriginatingRef = &ref
			}

			eng := engine.New(store, rankConfigFromViper(), learnConfigFromViper())
			if err := eng.RecordFeedback(ctx, fb); err != nil {
				return fmt.Errorf("failed to record feedback: %w", err)
			}

			cmd.Println("Feedback recorded.")
			return nil
		},
	}

	cmd.Flags().StringVar(&transactionID, "transaction", "", "transaction id")
	cmd.Flags().StringVar(&merchantText, "merchant", "", "raw merchant text")
	cmd.Flags().StringVar(&categoryName, "category", "", "chosen category name")
	cmd.Flags().StringVar(&feedbackType, "type", "confirmation", "feedback type (confirmation, correction, rejection)")
	cmd.Flags().Int64Var(&patternID, "pattern", 0, "originating pattern id")
	cmd.Flags().Float64Var(&amount, "amount", 0, "transaction amount")
	_ = cmd.MarkFlagRequired("transaction")
	_ = cmd.MarkFlagRequired("category")

	return cmd
}
