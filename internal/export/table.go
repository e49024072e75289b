// Package export turns a computed blueprint into a flat table and writes it
// as CSV, PDF, or a terminal table.
package export

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/godilite/exam-blueprint/internal/blueprint"
)

var ErrUnknownFormat = errors.New("unknown export format")

// Format is an export file format.
type Format string

const (
	FormatCSV Format = "csv"
	FormatPDF Format = "pdf"
)

// ParseFormat accepts "csv" or "pdf" in any case.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatCSV:
		return FormatCSV, nil
	case FormatPDF:
		return FormatPDF, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// Document is an exported file.
type Document struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"data"`
}

// Table is the blueprint laid out as rows of strings: Unit, IxF, Weightage %,
// Marks, one column per grid label, and Grid Total. The final row holds the
// totals.
type Table struct {
	Title  string
	Header []string
	Rows   [][]string
}

const fixedColumns = 4

// NewTable lays out alloc and grid. Rows follow the unit allocation order.
func NewTable(title string, alloc blueprint.Allocation, grid *blueprint.Grid) Table {
	header := []string{"Unit", "IxF", "Weightage %", "Marks"}
	for _, c := range alloc.Columns {
		header = append(header, c.Label)
	}
	header = append(header, "Grid Total")

	t := Table{Title: title, Header: header}

	var scoreTotal float64
	var marksTotal int
	for _, u := range alloc.Units {
		row := []string{
			u.Name,
			formatFloat(u.Weight),
			strconv.FormatFloat(u.WeightagePct, 'f', 1, 64),
			strconv.Itoa(u.Marks),
		}
		rowTotal := 0
		for _, c := range alloc.Columns {
			v, err := grid.Get(u.Name, c.Label)
			if err != nil {
				v = 0
			}
			rowTotal += v
			row = append(row, strconv.Itoa(v))
		}
		row = append(row, strconv.Itoa(rowTotal))
		t.Rows = append(t.Rows, row)

		scoreTotal += u.Weight
		marksTotal += u.Marks
	}

	totals := []string{"Total", formatFloat(scoreTotal), pctTotal(alloc), strconv.Itoa(marksTotal)}
	grand := 0
	for _, c := range alloc.Columns {
		v, err := grid.ColumnTotal(c.Label)
		if err != nil {
			v = 0
		}
		grand += v
		totals = append(totals, strconv.Itoa(v))
	}
	totals = append(totals, strconv.Itoa(grand))
	t.Rows = append(t.Rows, totals)

	return t
}

func pctTotal(alloc blueprint.Allocation) string {
	if len(alloc.Units) == 0 {
		return "0.0"
	}
	return "100.0"
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
