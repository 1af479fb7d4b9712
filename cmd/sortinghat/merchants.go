package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kestrelfin/sortinghat/internal/merchant"
)

func merchantsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "merchants",
		Short: "Manage canonical merchants",
	}

	cmd.AddCommand(merchantsListCmd())
	cmd.AddCommand(merchantsResolveCmd())
	cmd.AddCommand(merchantsMergeCmd())

	return cmd
}

func merchantsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List canonical merchants",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openStorage()
			if err != nil {
				return fmt.Errorf("failed to open storage: %w", err)
			}
			defer func() { _ = store.Close() }()

			merchants, err := store.GetAllMerchants(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list merchants: %w", err)
			}

			if len(merchants) == 0 {
				cmd.Println("No merchants found.")
				return nil
			}

			for _, m := range merchants {
				display := m.DisplayName
				if display == "" {
					display = m.Name
				}
				cmd.Printf("%4d  %-30s  (%s)\n", m.ID, display, m.Name)
			}
			return nil
		},
	}
}

func merchantsResolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <raw-merchant-text>",
		Short: "Resolve raw merchant text to its canonical merchant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStorage()
			if err != nil {
				return fmt.Errorf("failed to open storage: %w", err)
			}
			defer func() { _ = store.Close() }()

			canonicalizer := merchant.NewCanonicalizer(store)
			resolved, err := canonicalizer.Ensure(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to resolve merchant: %w", err)
			}

			cmd.Printf("%q -> %d (%s)\n", args[0], resolved.ID, resolved.Name)
			return nil
		},
	}
}

func merchantsMergeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "merge <from-id> <into-id>",
		Short: "Merge one canonical merchant into another",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStorage()
			if err != nil {
				return fmt.Errorf("failed to open storage: %w", err)
			}
			defer func() { _ = store.Close() }()

			var fromID, intoID int64
			if _, err := fmt.Sscanf(args[0], "%d", &fromID); err != nil {
				return fmt.Errorf("invalid merchant id %q", args[0])
			}
			if _, err := fmt.Sscanf(args[1], "%d", &intoID); err != nil {
				return fmt.Errorf("invalid merchant id %q", args[1])
			}

			canonicalizer := merchant.NewCanonicalizer(store)
			if err := canonicalizer.Merge(cmd.Context(), fromID, intoID); err != nil {
				return err
			}

			cmd.Printf("Merged merchant %d into %d.\n", fromID, intoID)
			return nil
		},
	}
}
