package cmd

import (
	"context"
	"fmt"

	"github.com/abdul-hamid-achik/rqn/packages/output"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded requests",
	Long: `List the requests recorded in the history database, newest first.

History is recorded when --history or the "history" config key names a
SQLite file.

Examples:
  rqn history --history rqn-history.db
  rqn history --limit 50
  rqn history --clear`,
	Args: cobra.NoArgs,
	RunE: historyCommand,
}

var (
	historyLimitFlag int
	historyClearFlag bool
)

func init() {
	historyCmd.Flags().IntVarP(&historyLimitFlag, "limit", "n", 20, "Number of entries to show, 0 for all")
	historyCmd.Flags().BoolVar(&historyClearFlag, "clear", false, "Delete every recorded entry")
}

func historyCommand(cmd *cobra.Command, args []string) error {
	store, err := openHistory()
	if err != nil {
		return err
	}
	if store == nil {
		return withExitCode(ExitConfigError, fmt.Errorf("no history database configured (use --history or the history config key)"))
	}
	defer store.Close()

	ctx := context.Background()

	if historyClearFlag {
		if err := store.Clear(ctx); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "History cleared")
		return nil
	}

	entries, err := store.List(ctx, historyLimitFlag)
	if err != nil {
		return err
	}

	output.NewConsoleFormatter(
		output.WithWriter(cmd.OutOrStdout()),
		output.WithNoColor(noColorFlag),
	).FormatHistory(entries)
	return nil
}
