package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"fontana/internal/store"
)

func newRunsCommand(ctx *commandContext) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent batch runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit <= 0 {
				return fmt.Errorf("--limit must be positive")
			}
			return ctx.withStore(cmd, func(c context.Context, st *store.Store) error {
				runs, err := st.RecentBatchRuns(c, limit)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, runs)
				}
				out := cmd.OutOrStdout()
				if len(runs) == 0 {
					fmt.Fprintln(out, "No batch runs recorded")
					return nil
				}
				rows := make([][]string, 0, len(runs))
				for _, run := range runs {
					rows = append(rows, []string{
						run.StartedAt.Local().Format("2006-01-02 15:04"),
						run.Kind,
						catalogLabel(run.Catalog),
						strconv.Itoa(run.Checked),
						strconv.Itoa(run.Updated),
						strconv.Itoa(run.Draft),
						strconv.Itoa(run.Trash),
						strconv.Itoa(run.Failed),
						run.FinishedAt.Sub(run.StartedAt).Round(time.Second).String(),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Started", "Run", "Catalog", "Checked", "Updated", "Draft", "Trash", "Failed", "Took"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignRight},
				))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show")
	return cmd
}
