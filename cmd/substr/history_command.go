package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Negr087/substr/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List past searches",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openHistoryStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No searches recorded yet.")
				return nil
			}

			rows := make([][]string, 0, len(entries))
			for _, entry := range entries {
				rows = append(rows, []string{
					entry.CreatedAt.Local().Format("2006-01-02 15:04"),
					entry.Identifier,
					fmt.Sprintf("%d", entry.EventKind),
					entry.Relay,
					entry.MediaURL,
				})
			}
			fmt.Fprintln(out, renderTable(out,
				[]string{"When", "Identifier", "Kind", "Relay", "Video"}, rows))
			return nil
		},
	}

	historyCmd.Flags().IntVar(&limit, "limit", 20, "Maximum entries to list (0 for all)")
	historyCmd.AddCommand(newHistoryClearCommand(ctx))
	return historyCmd
}

func newHistoryClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete all recorded searches",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openHistoryStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			removed, err := store.Clear(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d entries\n", removed)
			return nil
		},
	}
}

func openHistoryStore(ctx *commandContext) (*history.Store, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, err
	}
	if !cfg.History.Enabled {
		return nil, errors.New("history is disabled; set history.enabled = true in the config")
	}
	return history.Open(cfg.History.Path)
}
