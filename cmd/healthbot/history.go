package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/healthbot/server"
)

func newHistoryCmd() *cobra.Command {
	var (
		limit   int
		queries bool
	)

	cmd := &cobra.Command{
		Use:   "history <user-id>",
		Short: "Show the symptom history of a user",
		Example: `  # Last ten interactions
  healthbot history alice

  # Last three questions only
  healthbot history alice --queries --limit 3`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			out := cmd.OutOrStdout()
			userID := args[0]

			if queries {
				qs, err := app.Store.RecentQueries(cmd.Context(), userID, limit)
				if err != nil {
					return fmt.Errorf("load queries: %w", err)
				}

				for _, q := range qs {
					fmt.Fprintf(out, "- %s\n", q)
				}

				return nil
			}

			entries, err := app.Store.MessageHistory(cmd.Context(), userID, limit)
			if err != nil {
				return fmt.Errorf("load history: %w", err)
			}

			if len(entries) == 0 {
				fmt.Fprintf(out, "No history for %s\n", userID)
				return nil
			}

			for _, e := range entries {
				fmt.Fprintf(out, "%s  %s\n  %s\n", e.Timestamp.Format(server.HistoryTimeFormat), e.Symptoms, e.Response)
			}

			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of entries")
	cmd.Flags().BoolVar(&queries, "queries", false, "List past questions instead of interactions")

	return cmd
}
