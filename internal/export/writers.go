package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/go-pdf/fpdf"
)

// Write encodes t in the requested format. base is the file name without
// extension.
func Write(t Table, format Format, base string) (Document, error) {
	switch format {
	case FormatCSV:
		data, err := CSV(t)
		if err != nil {
			return Document{}, err
		}
		return Document{Filename: base + ".csv", ContentType: "text/csv", Data: data}, nil
	case FormatPDF:
		data, err := PDF(t)
		if err != nil {
			return Document{}, err
		}
		return Document{Filename: base + ".pdf", ContentType: "application/pdf", Data: data}, nil
	}
	return Document{}, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

// CSV writes the header and every row, totals included.
func CSV(t Table) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(t.Header); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	if err := w.WriteAll(t.Rows); err != nil {
		return nil, fmt.Errorf("write csv rows: %w", err)
	}
	return buf.Bytes(), nil
}

const (
	pdfFirstColWidth = 40.0
	pdfColWidth      = 18.0
	pdfRowHeight     = 8.0
	pdfHeaderRunes   = 15
	pdfPortraitWidth = 190.0
)

// PDF renders the table as a bordered grid on A4, switching to landscape
// when it does not fit in portrait.
func PDF(t Table) ([]byte, error) {
	return renderPDF(t, true)
}

func renderPDF(t Table, compress bool) ([]byte, error) {
	width := pdfFirstColWidth + pdfColWidth*float64(len(t.Header)-1)
	orientation := "P"
	if width > pdfPortraitWidth {
		orientation = "L"
	}

	pdf := fpdf.New(orientation, "mm", "A4", "")
	pdf.SetCompression(compress)
	pdf.SetAutoPageBreak(true, 10)
	pdf.AddPage()
	// Core fonts are cp1252; unit names arrive as UTF-8.
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	if t.Title != "" {
		pdf.SetFont("Arial", "B", 11)
		pdf.CellFormat(0, pdfRowHeight, tr(t.Title), "", 1, "L", false, 0, "")
	}

	pdf.SetFont("Arial", "B", 8)
	for i, h := range t.Header {
		pdf.CellFormat(cellWidth(i), pdfRowHeight, tr(truncate(h, pdfHeaderRunes)), "1", 0, "C", false, 0, "")
	}
	pdf.Ln(pdfRowHeight)

	pdf.SetFont("Arial", "", 8)
	for r, row := range t.Rows {
		if r == len(t.Rows)-1 {
			pdf.SetFont("Arial", "B", 8)
		}
		for i, v := range row {
			pdf.CellFormat(cellWidth(i), pdfRowHeight, tr(v), "1", 0, "C", false, 0, "")
		}
		pdf.Ln(pdfRowHeight)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func cellWidth(i int) float64 {
	if i == 0 {
		return pdfFirstColWidth
	}
	return pdfColWidth
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1).Align(lipgloss.Center)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1).Align(lipgloss.Right)
	nameStyle   = lipgloss.NewStyle().Padding(0, 1)
	totalStyle  = cellStyle.Bold(true)
	titleStyle  = lipgloss.NewStyle().Bold(true).MarginBottom(1)
)

// Render draws the table for a terminal.
func Render(t Table) string {
	last := len(t.Rows) - 1
	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(t.Header...).
		Rows(t.Rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case row == last:
				return totalStyle
			case col == 0:
				return nameStyle
			default:
				return cellStyle
			}
		})

	var b strings.Builder
	if t.Title != "" {
		b.WriteString(titleStyle.Render(t.Title))
		b.WriteString("\n")
	}
	b.WriteString(tbl.Render())
	return b.String()
}
