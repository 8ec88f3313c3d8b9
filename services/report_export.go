package services

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// ExportReportXLSX writes the rent report for a period as an Excel workbook.
func ExportReportXLSX(w io.Writer, month string, year int, rows []ReportRow) error {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := fmt.Sprintf("%s %d", month, year)
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return err
	}

	headers := []string{"#", "Tenant", "Room", "Phone", "Status", "Amount", "Proof", "Source"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, header)
	}

	for i, r := range rows {
		row := i + 2
		amount, _ := r.Amount.Float64()
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), i+1)
		f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), r.Name)
		f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), r.RoomNo)
		f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), r.Phone)
		f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), r.Status)
		f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), amount)
		f.SetCellValue(sheetName, fmt.Sprintf("G%d", row), r.ProofURL)
		f.SetCellValue(sheetName, fmt.Sprintf("H%d", row), r.Source)
	}

	summary := Summarize(rows)
	collected, _ := summary.Collected.Float64()
	summaryRow := len(rows) + 3
	f.SetCellValue(sheetName, fmt.Sprintf("A%d", summaryRow), "Paid")
	f.SetCellValue(sheetName, fmt.Sprintf("C%d", summaryRow), fmt.Sprintf("%d / %d", summary.Paid, summary.Tenants))
	f.SetCellValue(sheetName, fmt.Sprintf("A%d", summaryRow+1), "Pending")
	f.SetCellValue(sheetName, fmt.Sprintf("C%d", summaryRow+1), summary.Pending)
	f.SetCellValue(sheetName, fmt.Sprintf("A%d", summaryRow+2), "Collected")
	f.SetCellValue(sheetName, fmt.Sprintf("C%d", summaryRow+2), collected)

	f.SetColWidth(sheetName, "A", "A", 6)
	f.SetColWidth(sheetName, "B", "B", 24)
	f.SetColWidth(sheetName, "C", "C", 8)
	f.SetColWidth(sheetName, "D", "D", 16)
	f.SetColWidth(sheetName, "E", "E", 16)
	f.SetColWidth(sheetName, "F", "F", 12)
	f.SetColWidth(sheetName, "G", "G", 40)
	f.SetColWidth(sheetName, "H", "H", 10)

	return f.Write(w)
}
