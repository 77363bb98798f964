package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"fontana/internal/pipeline"
)

func newAlertsCommand(ctx *commandContext) *cobra.Command {
	alertsCmd := &cobra.Command{
		Use:   "alerts",
		Short: "Closing and service notice emails",
	}
	alertsCmd.AddCommand(&cobra.Command{
		Use:   "process <id>",
		Short: "Handle a saved alert as the content editor would",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(strings.TrimSpace(args[0]), 10, 64)
			if err != nil {
				return fmt.Errorf("invalid alert id %q", args[0])
			}
			return ctx.withPipeline(cmd, func(c context.Context, p *pipeline.Pipeline) error {
				res, err := p.Alerts.AlertSaved(c, id)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, res)
				}
				out := cmd.OutOrStdout()
				if res.Skipped != "" {
					fmt.Fprintf(out, "Alert %d skipped: %s\n", id, res.Skipped)
					return nil
				}
				fmt.Fprintln(out, renderKeyValues([][2]string{
					{"Subject", res.Subject},
					{"Recipients", strings.Join(res.Recipients, ", ")},
					{"Conflicting events", strconv.Itoa(len(res.Events))},
					{"Sent", yesNo(res.Sent)},
					{"Key", res.Key},
				}))
				return nil
			})
		},
	})
	return alertsCmd
}
