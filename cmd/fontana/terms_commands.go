package main

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"fontana/internal/pipeline"
	"fontana/internal/termkeys"
)

func newTermsCommand(ctx *commandContext) *cobra.Command {
	termsCmd := &cobra.Command{
		Use:   "terms",
		Short: "Inspect or rebuild the cached term lookup table",
	}
	termsCmd.AddCommand(&cobra.Command{
		Use:   "refresh",
		Short: "Rebuild the term lookup table from the taxonomies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withPipeline(cmd, func(c context.Context, p *pipeline.Pipeline) error {
				set, err := p.Terms.Refresh(c)
				if err != nil {
					return err
				}
				return ctx.printTermSet(cmd, set, true)
			})
		},
	})
	termsCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the cached term lookup table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withPipeline(cmd, func(c context.Context, p *pipeline.Pipeline) error {
				set, err := p.Terms.Get(c)
				if err != nil {
					return err
				}
				return ctx.printTermSet(cmd, set, false)
			})
		},
	})
	return termsCmd
}

func (c *commandContext) printTermSet(cmd *cobra.Command, set *termkeys.Set, refreshed bool) error {
	if c.jsonOutput() {
		return writeJSON(cmd, set)
	}
	out := cmd.OutOrStdout()
	if refreshed {
		fmt.Fprintln(out, "Term lookup table rebuilt")
	}
	var rows [][]string
	for _, group := range []struct {
		label string
		names map[string]int64
	}{
		{"genre", set.Genres},
		{"audience", set.Audience},
		{"keyword", set.ParentKeywords},
	} {
		names := make([]string, 0, len(group.names))
		for name := range group.names {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			id := group.names[name]
			rows = append(rows, []string{group.label, name, strconv.FormatInt(id, 10), strconv.Itoa(len(set.Children[id]))})
		}
	}
	if len(rows) == 0 {
		fmt.Fprintln(out, "No terms cached")
		return nil
	}
	fmt.Fprintln(out, renderTable([]string{"Kind", "Name", "Term", "Children"}, rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight}))
	if missing := set.Missing("fiction", "nonfiction"); len(missing) > 0 {
		fmt.Fprintf(out, "Missing required genres: %v\n", missing)
	}
	return nil
}
