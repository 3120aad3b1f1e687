// Package export renders integration logs as CSV or Excel workbooks.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/jordanlanch/leadsync/pkg/domain"
	"github.com/jordanlanch/leadsync/pkg/models"
	"github.com/xuri/excelize/v2"
)

// Supported export formats
const (
	FormatCSV   = "csv"
	FormatExcel = "xlsx"
)

const sheetName = "Integration Logs"

var headers = []string{"ID", "Status", "Integration ID", "Lead", "Response Message", "Created At", "Updated At", "Data"}

func logRow(l *models.IntegrationLog) []string {
	return []string{
		l.ID,
		l.Status,
		l.IntegrationID,
		l.Lead,
		l.ResponseMessage,
		l.CreatedAt.UTC().Format(time.RFC3339),
		l.UpdatedAt.UTC().Format(time.RFC3339),
		l.Data,
	}
}

// ContentType returns the MIME type and file extension for format
func ContentType(format string) (string, string, error) {
	switch format {
	case FormatCSV, "":
		return "text/csv", FormatCSV, nil
	case FormatExcel:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", FormatExcel, nil
	}
	return "", "", domain.NewValidationError(fmt.Sprintf("unsupported export format %q", format))
}

// WriteLogs renders logs in format onto w
func WriteLogs(w io.Writer, format string, logs []*models.IntegrationLog) error {
	switch format {
	case FormatCSV, "":
		return writeCSV(w, logs)
	case FormatExcel:
		return writeExcel(w, logs)
	}
	return domain.NewValidationError(fmt.Sprintf("unsupported export format %q", format))
}

func writeCSV(w io.Writer, logs []*models.IntegrationLog) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(headers); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, l := range logs {
		if err := writer.Write(logRow(l)); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

func writeExcel(w io.Writer, logs []*models.IntegrationLog) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("failed to create style: %w", err)
	}

	if err := f.SetSheetRow(sheetName, "A1", &headers); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	if err := f.SetCellStyle(sheetName, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	for i, l := range logs {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := logRow(l)
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	lastCol, _ := excelize.ColumnNumberToName(len(headers))
	if err := f.SetColWidth(sheetName, "A", lastCol, 20); err != nil {
		return fmt.Errorf("failed to size columns: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
