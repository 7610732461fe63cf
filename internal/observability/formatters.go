// Package observability provides logging setup and run summaries for the CLI.
package observability

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"github.com/Atypics3/About-My-Professor/internal/types"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

// Printer renders run summaries as tables.
type Printer struct {
	out   io.Writer
	style table.Style
}

// NewPrinter creates a new Printer that writes to the given writer.
// Colored output is used only when out is a terminal.
func NewPrinter(out io.Writer) *Printer {
	style := table.StyleRounded
	if isTerminal(out) {
		style = table.StyleColoredBright
	}
	return &Printer{out: out, style: style}
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// PrintRunSummary outputs the counters of one resolution run.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintRunSummary(stats types.RunStats) {
	rows := [][]string{
		{"Pages", strconv.Itoa(stats.Pages)},
		{"Panels", strconv.Itoa(stats.Panels)},
		{"Names", strconv.Itoa(stats.Names)},
		{"Cache hits", strconv.Itoa(stats.CacheHits)},
		{"Lookups", strconv.Itoa(stats.Lookups)},
		{"Valid", strconv.Itoa(stats.Valid)},
		{"Absent", strconv.Itoa(stats.Absent)},
		{"Faults", strconv.Itoa(stats.Faults)},
	}
	fmt.Fprintf(p.out, "Resolution run %s\n", stats.RunID)
	fmt.Fprintln(p.out, p.renderTable([]string{"Metric", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
}

// PrintMergeResult outputs the outcome of a consolidation.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintMergeResult(result types.MergeResult) {
	rows := [][]string{
		{"Processed", strconv.Itoa(result.Processed)},
		{"Added", strconv.Itoa(result.Added)},
		{"Skipped", strconv.Itoa(result.Skipped)},
	}
	fmt.Fprintln(p.out, p.renderTable([]string{"Consolidation", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
}

// PrintSnapshotResult outputs the outcome of a snapshot refresh.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintSnapshotResult(result types.SnapshotResult) {
	if !result.Changed {
		fmt.Fprintf(p.out, "No changes detected (%d entries).\n", result.Entries)
		return
	}
	rows := [][]string{
		{"Entries", strconv.Itoa(result.Entries)},
		{"Added", strconv.Itoa(result.Added)},
		{"Removed", strconv.Itoa(result.Removed)},
		{"Modified", strconv.Itoa(result.Modified)},
	}
	fmt.Fprintln(p.out, p.renderTable([]string{"Snapshot", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
}

// PrintPending lists names that still lack a valid profile link.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintPending(entries []types.ResolutionEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(p.out, "Every name has a valid profile link.")
		return
	}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{e.Name, e.State.String(), e.LinkValue()})
	}
	fmt.Fprintln(p.out, p.renderTable([]string{"Name", "State", "Link"}, rows, nil))
	fmt.Fprintf(p.out, "%d pending\n", len(entries))
}

// PrintLookup shows everything known about one name.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintLookup(name, uid string, entry *types.ResolutionEntry) {
	state, link := "unknown", ""
	if entry != nil {
		state, link = entry.State.String(), entry.LinkValue()
	}
	if uid == "" {
		uid = "-"
	}
	rows := [][]string{
		{"Name", name},
		{"UID", uid},
		{"State", state},
		{"Link", link},
	}
	fmt.Fprintln(p.out, p.renderTable([]string{"Field", "Value"}, rows, nil))
}

func (p *Printer) renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(p.style)

	header := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}
