package observability

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Atypics3/About-My-Professor/internal/types"
)

func TestNewPrinter_BufferIsNotTerminal(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)
	assert.Equal(t, "StyleRounded", p.style.Name)
}

func TestPrintRunSummary(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintRunSummary(types.RunStats{RunID: "run-1", Pages: 2, Lookups: 7, Valid: 5})

	output := buf.String()
	assert.Contains(t, output, "Resolution run run-1")
	assert.Contains(t, output, "Lookups")
	assert.Contains(t, output, "7")
	assert.Contains(t, output, "╭")
}

func TestPrintMergeResult(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintMergeResult(types.MergeResult{Processed: 6, Added: 1, Skipped: 5})

	output := buf.String()
	assert.Contains(t, output, "Processed")
	assert.Contains(t, output, "6")
	assert.Contains(t, output, "Skipped")
}

func TestPrintSnapshotResult_Unchanged(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintSnapshotResult(types.SnapshotResult{Entries: 42})
	assert.Equal(t, "No changes detected (42 entries).\n", buf.String())
}

func TestPrintSnapshotResult_Changed(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintSnapshotResult(types.SnapshotResult{Changed: true, Entries: 3, Added: 1})
	assert.Contains(t, buf.String(), "Modified")
}

func TestPrintPending(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintPending([]types.ResolutionEntry{
		{Name: "Doe, A.", State: types.Absent},
		{Name: "Roe, B.", Link: types.StringPtr("https://other.com/roe"), State: types.Invalid},
	})

	output := buf.String()
	assert.Contains(t, output, "Doe, A.")
	assert.Contains(t, output, "absent")
	assert.Contains(t, output, "https://other.com/roe")
	assert.Contains(t, output, "2 pending")
}

func TestPrintPending_Empty(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintPending(nil)
	assert.Contains(t, buf.String(), "Every name has a valid profile link.")
}

func TestPrintLookup_Unknown(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintLookup("Nobody, N.", "", nil)

	output := buf.String()
	assert.Contains(t, output, "Nobody, N.")
	assert.Contains(t, output, "unknown")
}

func TestNewLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(&buf, false).Debug("hidden")
	assert.Empty(t, buf.String())

	NewLogger(&buf, true).Debug("shown", "name", "Lee, K.")
	assert.Contains(t, buf.String(), "shown")
	assert.Contains(t, buf.String(), `name="Lee, K."`)

	assert.False(t, Discard().Enabled(context.Background(), 12))
}
