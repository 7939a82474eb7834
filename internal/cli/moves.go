package cli

import (
	"strings"

	"leadboard/internal/store"

	"github.com/spf13/cobra"
)

func newMovesCmd(app *App) *cobra.Command {
	var leadID string
	var limit int

	cmd := &cobra.Command{
		Use:   "moves",
		Short: "Show the local journal of issued move calls (newest first)",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := store.DefaultDBPath()
			if err != nil {
				return writeErr(cmd, err)
			}
			db, err := store.Open(cmd.Context(), path)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer db.Close()

			recs, err := db.ListMoves(cmd.Context(), strings.TrimSpace(leadID), limit)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": recs})
		},
	}

	cmd.Flags().StringVar(&leadID, "lead", "", "Only moves of this lead")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum entries")

	return cmd
}
