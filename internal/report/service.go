// Package report renders a run's audit records for display and export.
package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/Hk-V1/consignee-renamer/internal/entity"
)

// Column headers shared by every export format.
var headers = []string{
	"Original File Name",
	"Extracted Consignee",
	"New File Name",
}

// Service produces report bytes in the supported formats.
type Service struct {
	logger *zap.Logger
}

func NewService(logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{logger: logger}
}

// ExportXLSX returns an XLSX workbook (as bytes) of the audit records in
// processing order.
func (s *Service) ExportXLSX(records []entity.AuditRecord, summary entity.RunSummary) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	const sheet = "Renamed Files"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		_, err := f.NewSheet(sheet)
		if err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, r := range records {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
		write(1, r.OriginalName)
		write(2, r.ExtractedOrMarker())
		write(3, r.FinalName)
		row++
	}

	_ = f.SetColWidth(sheet, "A", "A", 40)
	_ = f.SetColWidth(sheet, "B", "B", 32)
	_ = f.SetColWidth(sheet, "C", "C", 40)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("report.xlsx.ok",
		zap.String("run_id", summary.ID.String()),
		zap.Int("rows", len(records)),
		zap.Int64("elapsed_ms", time.Since(start).Milliseconds()),
	)
	return buf.Bytes(), nil
}

// ExportCSV returns the records as CSV with the same columns as the workbook.
func (s *Service) ExportCSV(records []entity.AuditRecord) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(headers); err != nil {
		return nil, fmt.Errorf("csv write: %w", err)
	}
	for _, r := range records {
		if err := w.Write([]string{r.OriginalName, r.ExtractedOrMarker(), r.FinalName}); err != nil {
			return nil, fmt.Errorf("csv write: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("csv flush: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderTable renders the records as an aligned text table for terminals.
func (s *Service) RenderTable(records []entity.AuditRecord) string {
	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 2, 4, 2, ' ', 0)

	fmt.Fprintf(w, "%s\t%s\t%s\n", headers[0], headers[1], headers[2])
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\n",
			truncate(r.OriginalName, 48),
			truncate(r.ExtractedOrMarker(), 36),
			truncate(r.FinalName, 48),
		)
	}
	_ = w.Flush()
	return buf.String()
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
