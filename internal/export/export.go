// Package export renders booking lists as downloadable PDF and Excel
// reports for the admin dashboard.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"github.com/iliyamo/carwash-booking/internal/model"
)

// Supported formats.
const (
	FormatPDF   = "pdf"
	FormatExcel = "excel"
)

var columns = []string{"ID", "Date", "Time", "Customer", "Email", "Phone", "Service", "Status", "Total"}

// column widths in mm for the landscape A4 table, summing to 267
var pdfWidths = []float64{12, 22, 14, 38, 52, 30, 46, 24, 29}

func row(b model.Booking) []string {
	return []string{
		fmt.Sprint(b.ID),
		b.AppointmentDate,
		b.AppointmentTime,
		b.CustomerName,
		b.CustomerEmail,
		b.CustomerPhone,
		b.ServiceName,
		b.Status,
		b.TotalPrice.StringFixed(2),
	}
}

// ContentType and FileName describe the attachment for a format.
func ContentType(format string) string {
	if format == FormatPDF {
		return "application/pdf"
	}
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

func FileName(format, suffix string) string {
	name := "bookings"
	if suffix != "" {
		name += "-" + suffix
	}
	if format == FormatPDF {
		return name + ".pdf"
	}
	return name + ".xlsx"
}

// Write renders bookings in the given format.
func Write(w io.Writer, format, title string, bookings []model.Booking) error {
	switch format {
	case FormatPDF:
		return PDF(w, title, bookings)
	case FormatExcel:
		return Excel(w, bookings)
	}
	return fmt.Errorf("export: unsupported format %q", format)
}

// PDF writes a landscape table of bookings with a totals line.
func PDF(w io.Writer, title string, bookings []model.Booking) error {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	// Core fonts are cp1252; translate so accented names survive.
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	header := func() {
		pdf.SetFont("Helvetica", "B", 9)
		pdf.SetFillColor(230, 236, 245)
		for i, c := range columns {
			pdf.CellFormat(pdfWidths[i], 7, c, "1", 0, "L", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", 8)
	}
	pdf.SetHeaderFunc(func() {
		if pdf.PageNo() > 1 {
			header()
		}
	})
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Helvetica", "I", 7)
		pdf.CellFormat(0, 8, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "R", false, 0, "")
	})

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, tr(title))
	pdf.Ln(12)
	header()

	var total float64
	for _, b := range bookings {
		for i, v := range row(b) {
			pdf.CellFormat(pdfWidths[i], 6, tr(clip(v, pdfWidths[i])), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
		f, _ := b.TotalPrice.Float64()
		total += f
	}
	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.Cell(0, 8, fmt.Sprintf("%d bookings, total %.2f", len(bookings), total))

	if err := pdf.Error(); err != nil {
		return err
	}
	return pdf.Output(w)
}

// clip shortens text to roughly fit a cell of width mm at 8pt.
func clip(s string, mm float64) string {
	n := int(mm / 1.6)
	if r := []rune(s); len(r) > n && n > 1 {
		return strings.TrimSpace(string(r[:n-1])) + "."
	}
	return s
}

// Excel writes a single-sheet workbook with a header row.  Totals are
// stored as numbers so the sheet can be summed.
func Excel(w io.Writer, bookings []model.Booking) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Bookings"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}
	head := make([]any, len(columns))
	for i, c := range columns {
		head[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &head); err != nil {
		return err
	}
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	last, _ := excelize.CoordinatesToCellName(len(columns), 1)
	if err := f.SetCellStyle(sheet, "A1", last, style); err != nil {
		return err
	}

	for i, b := range bookings {
		vals := row(b)
		cells := make([]any, len(vals))
		for j, v := range vals {
			cells[j] = v
		}
		cells[0] = b.ID
		total, _ := b.TotalPrice.Float64()
		cells[len(cells)-1] = total
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(sheet, "A", "I", 18); err != nil {
		return err
	}
	return f.Write(w)
}
