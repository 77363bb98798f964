package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"fontana/internal/pipeline"
	"fontana/internal/reconcile"
	"fontana/internal/store"
)

func newItemsCommand(ctx *commandContext) *cobra.Command {
	itemsCmd := &cobra.Command{
		Use:     "items",
		Aliases: []string{"item"},
		Short: "Check, publish, inspect or import collection items",
	}
	itemsCmd.AddCommand(newItemsCheckHoldingsCommand(ctx))
	itemsCmd.AddCommand(newItemsVerifyCommand(ctx))
	itemsCmd.AddCommand(newItemsShowCommand(ctx))
	itemsCmd.AddCommand(newItemsImportCommand(ctx))
	return itemsCmd
}

func newItemsCheckHoldingsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check-holdings <id>...",
		Short: "Re-check catalog holdings for the given items",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			return ctx.withRunLock(func() error {
				return ctx.withPipeline(cmd, func(c context.Context, p *pipeline.Pipeline) error {
					report, err := p.Orchestrator.CheckHoldings(c, ids)
					if err != nil {
						return err
					}
					if ctx.jsonOutput() {
						return writeJSON(cmd, report)
					}
					printReport(cmd.OutOrStdout(), report)
					return nil
				})
			})
		},
	}
}

func newItemsVerifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <id>...",
		Short: "Mark items as reviewed and publish them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			return ctx.withPipeline(cmd, func(c context.Context, p *pipeline.Pipeline) error {
				n, err := p.Orchestrator.VerifyAndPublish(c, ids)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Published %d of %d items\n", n, len(ids))
				return nil
			})
		},
	}
}

func newItemsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one item with its holdings and terms",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(strings.TrimSpace(args[0]), 10, 64)
			if err != nil {
				return fmt.Errorf("invalid item id %q", args[0])
			}
			return ctx.withStore(cmd, func(c context.Context, st *store.Store) error {
				item, err := st.GetItem(c, id)
				if err != nil {
					return err
				}
				if item == nil {
					return fmt.Errorf("item %d not found", id)
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, item)
				}
				return printItem(c, cmd, st, item)
			})
		},
	}
}

func printItem(c context.Context, cmd *cobra.Command, st *store.Store, item *store.Item) error {
	out := cmd.OutOrStdout()
	pairs := [][2]string{
		{"ID", strconv.FormatInt(item.ID, 10)},
		{"Title", item.Title},
		{"Collection", string(item.Collection)},
		{"Record", item.RecordID},
		{"Status", string(item.Status)},
		{"Creator", item.Creator},
		{"Change date", item.RecordChangeDate},
		{"Active date", item.ActiveDate},
		{"Failures", strconv.Itoa(item.CheckFailCount)},
	}
	if item.Library != "" {
		pairs = append(pairs, [2]string{"Library", item.Library})
	}
	if item.Verify != "" {
		pairs = append(pairs, [2]string{"Verify", item.Verify})
	}
	if item.CoverURL != "" {
		pairs = append(pairs, [2]string{"Cover", item.CoverURL})
	}
	for _, taxonomy := range []string{store.TaxGenres, store.TaxAudience, store.TaxTopics, store.TaxLocation, store.TaxShelf} {
		ids := item.Terms[taxonomy]
		if len(ids) == 0 {
			continue
		}
		terms, err := st.TermsByIDs(c, ids)
		if err != nil {
			return err
		}
		names := make([]string, 0, len(terms))
		for _, term := range terms {
			names = append(names, term.Name)
		}
		pairs = append(pairs, [2]string{taxonomy, strings.Join(names, ", ")})
	}
	fmt.Fprintln(out, renderKeyValues(pairs))

	if len(item.Holdings) > 0 {
		rows := make([][]string, 0, len(item.Holdings))
		for _, h := range item.Holdings {
			rows = append(rows, []string{h.Barcode, h.Shelf, h.Location})
		}
		fmt.Fprintln(out, renderTable([]string{"Barcode", "Shelf", "Location"}, rows, nil))
	}
	return nil
}

func newItemsImportCommand(ctx *commandContext) *cobra.Command {
	var (
		documentPath string
		update       bool
	)
	cmd := &cobra.Command{
		Use:   "import <record-id>",
		Short: "Import or update one catalog record from an importer document",
		Long: `Import or update one catalog record from an importer document.

A record seen for the first time is created from the document. A known record
only has its change date compared and its holdings rechecked; title, keywords
and the other stored fields keep their current values.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(documentPath) == "" {
				return errors.New("--record is required")
			}
			doc, err := reconcile.ReadDocument(documentPath)
			if err != nil {
				return err
			}
			recordID := strings.TrimSpace(args[0])
			if doc.RecordID == "" {
				doc.RecordID = recordID
			} else if doc.RecordID != recordID {
				return fmt.Errorf("document is for record %q, not %q", doc.RecordID, recordID)
			}

			return ctx.withPipeline(cmd, func(c context.Context, p *pipeline.Pipeline) error {
				if update {
					existing, err := p.Store.FindItemByRecord(c, doc.Collection, recordID)
					if err != nil {
						return err
					}
					if existing == nil {
						return fmt.Errorf("no item for %s record %s to update", doc.Collection, recordID)
					}
				}
				res, err := p.Reconciler.Import(c, doc, nil)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, map[string]any{
						"outcome": res.Outcome.String(),
						"item":    res.Item,
						"verify":  verifyOf(res),
					})
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Outcome: %s\n", res.Outcome)
				if res.Item != nil {
					fmt.Fprintf(out, "Item %d is %s\n", res.Item.ID, res.Item.Status)
				}
				if v := verifyOf(res); v != "" {
					fmt.Fprintf(out, "Needs review: %s\n", v)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&documentPath, "record", "", "Path to the importer JSON document")
	cmd.Flags().BoolVar(&update, "update", false, "Require the record to exist already; only its change date and holdings are refreshed")
	return cmd
}

func verifyOf(res reconcile.Result) string {
	if res.Report != nil && !res.Report.Complete() {
		return res.Report.Verify()
	}
	if res.Item != nil {
		return res.Item.Verify
	}
	return ""
}
