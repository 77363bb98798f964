package main

import (
	"context"

	"github.com/spf13/cobra"

	"fontana/internal/batch"
	"fontana/internal/pipeline"
)

func newRecheckCommand(ctx *commandContext) *cobra.Command {
	recheckCmd := &cobra.Command{
		Use:   "recheck",
		Short: "Run one of the scheduled sweeps now",
	}
	recheckCmd.AddCommand(newRecheckFailedCommand(ctx))
	recheckCmd.AddCommand(newRecheckHoldingsCommand(ctx))
	recheckCmd.AddCommand(newRecheckDeletedCommand(ctx))
	return recheckCmd
}

func newRecheckFailedCommand(ctx *commandContext) *cobra.Command {
	var catalogName string
	cmd := &cobra.Command{
		Use:   "failed",
		Short: "Retry items whose last catalog lookup failed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.runSweep(cmd, func(c context.Context, p *pipeline.Pipeline) (*batch.Report, error) {
				return p.Orchestrator.CheckFailed(c, catalogName)
			})
		},
	}
	cmd.Flags().StringVar(&catalogName, "catalog", "", "Limit to one collection (evergreen or overdrive)")
	return cmd
}

func newRecheckHoldingsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "holdings",
		Short: "Refresh union catalog holdings that have not been checked recently",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.runSweep(cmd, func(c context.Context, p *pipeline.Pipeline) (*batch.Report, error) {
				return p.Orchestrator.CheckEvergreenHoldings(c)
			})
		},
	}
}

func newRecheckDeletedCommand(ctx *commandContext) *cobra.Command {
	var library string
	cmd := &cobra.Command{
		Use:   "deleted",
		Short: "Check lending platform titles that may have been withdrawn",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.runSweep(cmd, func(c context.Context, p *pipeline.Pipeline) (*batch.Report, error) {
				return p.Orchestrator.CheckDeleted(c, library)
			})
		},
	}
	cmd.Flags().StringVar(&library, "library", "", "Library key (default: every library with titles)")
	return cmd
}

func (c *commandContext) runSweep(cmd *cobra.Command, run func(context.Context, *pipeline.Pipeline) (*batch.Report, error)) error {
	return c.withRunLock(func() error {
		return c.withPipeline(cmd, func(ctx context.Context, p *pipeline.Pipeline) error {
			report, err := run(ctx, p)
			if err != nil {
				return err
			}
			if c.jsonOutput() {
				return writeJSON(cmd, report)
			}
			printReport(cmd.OutOrStdout(), report)
			return nil
		})
	})
}
