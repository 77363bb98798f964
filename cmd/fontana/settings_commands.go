package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"fontana/internal/store"
)

func newSettingsCommand(ctx *commandContext) *cobra.Command {
	settingsCmd := &cobra.Command{
		Use:   "settings",
		Short: "Stored key/value settings such as library identifiers and API keys",
	}
	settingsCmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Store a setting",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := strings.TrimSpace(args[0])
			if key == "" {
				return fmt.Errorf("setting key is required")
			}
			return ctx.withStore(cmd, func(c context.Context, st *store.Store) error {
				if err := st.SetOption(c, key, args[1]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Set %s\n", key)
				return nil
			})
		},
	})
	settingsCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List stored settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd, func(c context.Context, st *store.Store) error {
				options, err := st.ListOptions(c)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					m := make(map[string]string, len(options))
					for _, kv := range options {
						m[kv[0]] = kv[1]
					}
					return writeJSON(cmd, m)
				}
				if len(options) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No settings stored")
					return nil
				}
				rows := make([][]string, 0, len(options))
				for _, kv := range options {
					rows = append(rows, []string{kv[0], truncate(kv[1], 60)})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Key", "Value"}, rows, nil))
				return nil
			})
		},
	})
	return settingsCmd
}

func truncate(value string, limit int) string {
	r := []rune(value)
	if len(r) <= limit {
		return value
	}
	return string(r[:limit-1]) + "…"
}
