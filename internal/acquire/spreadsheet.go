package acquire

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/Hk-V1/consignee-renamer/constants"
)

// acquireSpreadsheet parses a tabular file. The reader matching the declared
// extension runs first; on failure the alternate parser is tried before the
// whole acquisition fails.
func (a *Acquirer) acquireSpreadsheet(ctx context.Context, path, ext string) (AcquisitionResult, error) {
	if err := ctx.Err(); err != nil {
		return AcquisitionResult{SourceType: constants.TypeSpreadsheet}, err
	}

	type parser struct {
		method string
		read   func(string) ([][]string, error)
	}
	order := []parser{
		{method: "xlsx-grid", read: readWorkbookRows},
		{method: "csv-grid", read: readCSVRows},
	}
	if ext == "csv" {
		order[0], order[1] = order[1], order[0]
	}

	res := AcquisitionResult{SourceType: constants.TypeSpreadsheet}
	var firstErr error
	for i, p := range order {
		rows, err := p.read(path)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			if i == 0 {
				a.logger.Debug("primary spreadsheet parser failed, trying alternate",
					zap.String("path", path), zap.String("method", p.method), zap.Error(err))
				res.Warnings = append(res.Warnings, fmt.Sprintf("%s parser failed: %v", p.method, err))
			}
			continue
		}
		res.Method = p.method
		res.Table = tableFromRows(rows)
		res.Text = flattenRows(rows)
		return res, nil
	}
	return res, fmt.Errorf("parse spreadsheet: %w", firstErr)
}

func readWorkbookRows(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

func readCSVRows(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // ragged rows tolerated

	var rows [][]string
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		rows = append(rows, record)
	}
	return rows, nil
}

func tableFromRows(rows [][]string) *TableView {
	t := &TableView{}
	if len(rows) > 0 {
		t.Headers = rows[0]
		t.Rows = rows[1:]
	}
	return t
}

// flattenRows renders the grid as text, one row per line, so the label search
// sees headers and values the way they appear in the sheet.
func flattenRows(rows [][]string) string {
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, strings.Join(row, " "))
	}
	return strings.Join(lines, "\n")
}
