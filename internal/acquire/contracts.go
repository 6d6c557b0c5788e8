package acquire

import (
	"context"
	"time"

	"github.com/Hk-V1/consignee-renamer/constants"
)

// TextAcquirer is Stage 1: archive entry -> searchable text.
type TextAcquirer interface {
	Acquire(ctx context.Context, path string) (AcquisitionResult, error)
}

type AcquisitionResult struct {
	Text       string
	Pages      int
	SourceType constants.DeclaredType
	Method     string // "pdf-pages" | "xlsx-grid" | "csv-grid" | "text-decode"
	Table      *TableView
	Duration   time.Duration
	Warnings   []string
}

// TableView preserves the tabular structure of spreadsheet sources so the
// column heuristic can run against headers and values, not just flat text.
type TableView struct {
	Headers []string
	Rows    [][]string
}

// Column returns all values under the given header index, top to bottom.
func (t *TableView) Column(idx int) []string {
	if t == nil || idx < 0 {
		return nil
	}
	values := make([]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		if idx < len(row) {
			values = append(values, row[idx])
		} else {
			values = append(values, "")
		}
	}
	return values
}
