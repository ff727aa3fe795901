package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"reawwise/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect past transfers",
	}
	historyCmd.AddCommand(newHistoryListCommand(ctx))
	historyCmd.AddCommand(newHistoryShowCommand(ctx))
	return historyCmd
}

func withHistory(ctx *commandContext, fn func(*history.Store) error) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	store, err := history.Open(cfg.HistoryDBPath())
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

func newHistoryListCommand(ctx *commandContext) *cobra.Command {
	var (
		sessionFilter string
		limit         int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent transfers, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(ctx, func(store *history.Store) error {
				records, err := store.List(commandCtx(cmd), sessionFilter, limit)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(records) == 0 {
					fmt.Fprintln(out, "No transfers recorded")
					return nil
				}
				rows := make([][]string, 0, len(records))
				for _, rec := range records {
					rows = append(rows, []string{
						strconv.FormatInt(rec.ID, 10),
						rec.StartedAt.Local().Format("2006-01-02 15:04:05"),
						rec.Session,
						rec.Destination,
						strconv.Itoa(rec.ObjectsCreated),
						strconv.Itoa(rec.ObjectsReplaced),
						strconv.Itoa(rec.ErrorCount),
					})
				}
				fmt.Fprintln(out, renderTable([]column{
					right("ID"), left("Started"), left("Session"), left("Destination"),
					right("Created"), right("Replaced"), right("Errors"),
				}, rows))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&sessionFilter, "session", "", "Only list transfers of this session")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of transfers to list")
	return cmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id|run-id>",
		Short: "Show one transfer with its full summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(ctx, func(store *history.Store) error {
				rec, err := store.Get(commandCtx(cmd), args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Run:         %s (#%d)\n", rec.RunID, rec.ID)
				fmt.Fprintf(out, "Session:     %s\n", rec.Session)
				fmt.Fprintf(out, "Project:     %s\n", rec.Project)
				fmt.Fprintf(out, "Destination: %s\n", rec.Destination)
				fmt.Fprintf(out, "Policy:      %s\n", rec.ConflictPolicy)
				fmt.Fprintf(out, "Duration:    %s\n", rec.FinishedAt.Sub(rec.StartedAt).Round(time.Millisecond))
				if rec.SummaryJSON == "" {
					return nil
				}
				return writeRawJSON(cmd, rec.SummaryJSON)
			})
		},
	}
}
