package history

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/jung-kurt/gofpdf"
)

var exportHeader = []string{"Date", "Time", "Type", "Before (%)", "After (%)", "Added (L)", "Duration (min)", "Status"}

// ExportCSV writes the currently visible rows as CSV. Numeric columns
// carry bare numbers; the "%" and "L" suffixes shown in the table are
// display-only.
func (c *Controller) ExportCSV(w io.Writer) error {
	rows := c.VisibleRows()

	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	for _, row := range rows {
		record := []string{
			row.Timestamp.Format("Jan 2, 2006"),
			row.Timestamp.Format("03:04 PM"),
			row.Type,
			strconv.FormatFloat(row.BeforePct, 'f', 0, 64),
			strconv.FormatFloat(row.AfterPct, 'f', 0, 64),
			strconv.FormatFloat(row.AddedLiters, 'f', 1, 64),
			strconv.FormatFloat(row.DurationMin, 'f', 0, 64),
			row.Status,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// ExportPDF writes the currently visible rows as a landscape A4 table,
// paginating as needed.
func (c *Controller) ExportPDF(w io.Writer) error {
	rows := c.VisibleRows()

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetTitle("Hydrolink Refill History", false)
	pdf.AddPage()

	colWidths := []float64{38, 28, 32, 32, 32, 32, 36, 32}

	writeHeader := func() {
		pdf.SetFont("Helvetica", "B", 9)
		pdf.SetFillColor(230, 230, 230)
		for i, h := range exportHeader {
			pdf.CellFormat(colWidths[i], 8, h, "1", 0, "L", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", 8)
	}
	writeHeader()

	for _, row := range rows {
		if pdf.GetY() > 185 {
			pdf.AddPage()
			writeHeader()
		}

		cells := []string{
			row.Timestamp.Format("Jan 2, 2006"),
			row.Timestamp.Format("03:04 PM"),
			row.Type,
			fmt.Sprintf("%.0f%%", row.BeforePct),
			fmt.Sprintf("%.0f%%", row.AfterPct),
			fmt.Sprintf("%.1fL", row.AddedLiters),
			fmt.Sprintf("%.0f min", row.DurationMin),
			row.Status,
		}
		for i, cell := range cells {
			pdf.CellFormat(colWidths[i], 7, cell, "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	return pdf.Output(w)
}
