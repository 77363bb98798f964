package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"fontana/internal/batch"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := range columns {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := range columns {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := range columns {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

// renderKeyValues prints a two-column field/value table.
func renderKeyValues(pairs [][2]string) string {
	rows := make([][]string, 0, len(pairs))
	for _, p := range pairs {
		rows = append(rows, []string{p[0], p[1]})
	}
	return renderTable([]string{"Field", "Value"}, rows, nil)
}

func printReport(out io.Writer, report *batch.Report) {
	rows := [][]string{{
		report.Kind,
		catalogLabel(report.Catalog),
		strconv.Itoa(report.Checked),
		strconv.Itoa(report.Updated),
		strconv.Itoa(report.Draft),
		strconv.Itoa(report.Trash),
		strconv.Itoa(report.Failed),
		report.Duration().Round(time.Millisecond).String(),
	}}
	fmt.Fprintln(out, renderTable(
		[]string{"Run", "Catalog", "Checked", "Updated", "Draft", "Trash", "Failed", "Took"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignRight},
	))
	if len(report.Reasons) == 0 {
		return
	}
	keys := make([]string, 0, len(report.Reasons))
	for k := range report.Reasons {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	reasons := make([][]string, 0, len(keys))
	for _, k := range keys {
		reasons = append(reasons, []string{k, report.Reasons[k]})
	}
	fmt.Fprintln(out, renderTable([]string{"Item", "Failure"}, reasons, []columnAlignment{alignRight, alignLeft}))
}

func catalogLabel(name string) string {
	if name == "" {
		return "all"
	}
	return name
}
