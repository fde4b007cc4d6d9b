package reporter

import (
	"fmt"
	"io"
	"log/slog"
	"spyosint/internal/models"

	"github.com/xuri/excelize/v2"
)

const (
	sheetSummary      = "Summary"
	sheetResults      = "Results"
	sheetDetails      = "Details"
	sheetCorrelations = "Correlations"
	sheetEntities     = "Entities"
)

// WriteExcel workbook export with one sheet per concern
func WriteExcel(w io.Writer, doc *Document) error {
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			slog.Warn("failed to close Excel workbook", "error", err)
		}
	}()

	sheets := []struct {
		name string
		fn   func(*excelize.File, *Document) error
	}{
		{sheetSummary, writeSummarySheet},
		{sheetResults, writeResultsSheet},
		{sheetDetails, writeDetailsSheet},
		{sheetCorrelations, writeCorrelationsSheet},
		{sheetEntities, writeEntitiesSheet},
	}

	for i, sheet := range sheets {
		if _, err := f.NewSheet(sheet.name); err != nil {
			return fmt.Errorf("failed to create sheet %s: %w", sheet.name, err)
		}
		if i == 0 {
			// the first real sheet has to be active before Sheet1 can go
			if idx, err := f.GetSheetIndex(sheet.name); err == nil && idx >= 0 {
				f.SetActiveSheet(idx)
			}
			_ = f.DeleteSheet("Sheet1")
		}
		if err := sheet.fn(f, doc); err != nil {
			return fmt.Errorf("failed to write sheet %s: %w", sheet.name, err)
		}
	}

	if idx, err := f.GetSheetIndex(sheetSummary); err == nil && idx >= 0 {
		f.SetActiveSheet(idx)
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write Excel workbook: %w", err)
	}
	return nil
}

// writeTable writes header and rows starting at A1 and styles the header row
func writeTable(f *excelize.File, sheet string, header []string, rows [][]string) error {
	values := make([]interface{}, len(header))
	for i, h := range header {
		values[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &values); err != nil {
		return err
	}
	for r, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		values := make([]interface{}, len(row))
		for i, v := range row {
			values[i] = v
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return err
		}
	}

	style, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, "A1", last, style)
}

func writeSummarySheet(f *excelize.File, doc *Document) error {
	rows := [][]string{{"Title", doc.Title}}
	for _, field := range overview(doc) {
		rows = append(rows, []string{field.Label, field.Value})
	}
	if doc.Report != nil && doc.Report.SummaryText != "" {
		rows = append(rows, []string{"Summary", doc.Report.SummaryText})
	}
	if err := writeTable(f, sheetSummary, []string{"Item", "Value"}, rows); err != nil {
		return err
	}
	f.SetColWidth(sheetSummary, "A", "A", 20)
	f.SetColWidth(sheetSummary, "B", "B", 80)
	return nil
}

func writeResultsSheet(f *excelize.File, doc *Document) error {
	rows := make([][]string, 0, len(doc.Results))
	for _, r := range doc.Results {
		h := r.Header()
		rows = append(rows, []string{
			h.ID, providerName(h.ProviderID), string(h.Kind), h.Query.RawValue, string(h.Query.InferredType), formatTime(h.FetchedAt),
		})
	}
	if err := writeTable(f, sheetResults, []string{"ID", "Provider", "Kind", "Query", "Query Type", "Fetched"}, rows); err != nil {
		return err
	}
	f.SetColWidth(sheetResults, "A", "A", 38)
	f.SetColWidth(sheetResults, "B", "C", 20)
	f.SetColWidth(sheetResults, "D", "D", 40)
	f.SetColWidth(sheetResults, "E", "F", 20)
	return nil
}

// writeDetailsSheet flattens every field and table row of every result
func writeDetailsSheet(f *excelize.File, doc *Document) error {
	var rows [][]string
	for _, r := range doc.Results {
		s := describe(r)
		for _, field := range s.Fields {
			rows = append(rows, []string{s.Title, "", field.Label, field.Value})
		}
		for _, t := range s.Tables {
			for _, row := range t.Rows {
				for i, cell := range row {
					if cell == "" || i >= len(t.Header) {
						continue
					}
					rows = append(rows, []string{s.Title, t.Name, t.Header[i], cell})
				}
			}
		}
	}
	if err := writeTable(f, sheetDetails, []string{"Result", "Table", "Field", "Value"}, rows); err != nil {
		return err
	}
	f.SetColWidth(sheetDetails, "A", "A", 40)
	f.SetColWidth(sheetDetails, "B", "C", 20)
	f.SetColWidth(sheetDetails, "D", "D", 60)
	return nil
}

func writeCorrelationsSheet(f *excelize.File, doc *Document) error {
	if err := writeTable(f, sheetCorrelations, correlationHeader, correlationRows(doc)); err != nil {
		return err
	}
	f.SetColWidth(sheetCorrelations, "A", "B", 16)
	f.SetColWidth(sheetCorrelations, "C", "E", 40)
	return nil
}

func writeEntitiesSheet(f *excelize.File, doc *Document) error {
	if err := writeTable(f, sheetEntities, entityHeader, entityRows(doc)); err != nil {
		return err
	}
	f.SetColWidth(sheetEntities, "A", "A", 40)
	f.SetColWidth(sheetEntities, "B", "C", 16)

	// highlight high and critical entities
	if doc.Report == nil {
		return nil
	}
	alert, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "#C0392B"},
	})
	if err != nil {
		return err
	}
	for i, e := range doc.Report.Entities {
		if e.RiskLevel != models.RiskHigh && e.RiskLevel != models.RiskCritical {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(3, i+2)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(sheetEntities, cell, cell, alert); err != nil {
			return err
		}
	}
	return nil
}
