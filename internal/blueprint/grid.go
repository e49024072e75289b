package blueprint

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownRow    = errors.New("unknown grid row")
	ErrUnknownColumn = errors.New("unknown grid column")
	ErrNegativeCell  = errors.New("grid cell must be non-negative")
)

// Grid holds the user-edited item counts: one row per unit, one column per
// section/domain pair. Totals are always computed from the cells on read.
type Grid struct {
	rows    []string
	columns []Column
	rowIdx  map[string]int
	colIdx  map[string]int
	cells   [][]int
}

// NewGrid returns an all-zero grid. Duplicate row names or column labels
// collapse onto their first occurrence.
func NewGrid(rows []string, columns []Column) *Grid {
	g := &Grid{
		rowIdx: make(map[string]int, len(rows)),
		colIdx: make(map[string]int, len(columns)),
	}
	for _, r := range rows {
		if _, ok := g.rowIdx[r]; ok {
			continue
		}
		g.rowIdx[r] = len(g.rows)
		g.rows = append(g.rows, r)
	}
	for _, c := range columns {
		if _, ok := g.colIdx[c.Label]; ok {
			continue
		}
		g.colIdx[c.Label] = len(g.columns)
		g.columns = append(g.columns, c)
	}
	g.cells = make([][]int, len(g.rows))
	for i := range g.cells {
		g.cells[i] = make([]int, len(g.columns))
	}
	return g
}

// Rows returns the row names in order.
func (g *Grid) Rows() []string {
	return append([]string(nil), g.rows...)
}

// Columns returns the columns in order.
func (g *Grid) Columns() []Column {
	return append([]Column(nil), g.columns...)
}

// Set stores value at (row, label).
func (g *Grid) Set(row, label string, value int) error {
	i, j, err := g.locate(row, label)
	if err != nil {
		return err
	}
	if value < 0 {
		return fmt.Errorf("%w: %s/%s = %d", ErrNegativeCell, row, label, value)
	}
	g.cells[i][j] = value
	return nil
}

// Get returns the value at (row, label).
func (g *Grid) Get(row, label string) (int, error) {
	i, j, err := g.locate(row, label)
	if err != nil {
		return 0, err
	}
	return g.cells[i][j], nil
}

func (g *Grid) locate(row, label string) (int, int, error) {
	i, ok := g.rowIdx[row]
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q", ErrUnknownRow, row)
	}
	j, ok := g.colIdx[label]
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q", ErrUnknownColumn, label)
	}
	return i, j, nil
}

// RowTotal sums one row.
func (g *Grid) RowTotal(row string) (int, error) {
	i, ok := g.rowIdx[row]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownRow, row)
	}
	return g.rowTotal(i), nil
}

// ColumnTotal sums one column.
func (g *Grid) ColumnTotal(label string) (int, error) {
	j, ok := g.colIdx[label]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownColumn, label)
	}
	return g.columnTotal(j), nil
}

// RowTotals returns every row total in row order.
func (g *Grid) RowTotals() []int {
	out := make([]int, len(g.rows))
	for i := range g.rows {
		out[i] = g.rowTotal(i)
	}
	return out
}

// ColumnTotals returns every column total in column order.
func (g *Grid) ColumnTotals() []int {
	out := make([]int, len(g.columns))
	for j := range g.columns {
		out[j] = g.columnTotal(j)
	}
	return out
}

// Total sums every cell.
func (g *Grid) Total() int {
	total := 0
	for i := range g.rows {
		total += g.rowTotal(i)
	}
	return total
}

// Clone returns an independent copy of the grid.
func (g *Grid) Clone() *Grid {
	c := NewGrid(g.rows, g.columns)
	for i := range g.cells {
		copy(c.cells[i], g.cells[i])
	}
	return c
}

func (g *Grid) rowTotal(i int) int {
	total := 0
	for _, v := range g.cells[i] {
		total += v
	}
	return total
}

func (g *Grid) columnTotal(j int) int {
	total := 0
	for i := range g.cells {
		total += g.cells[i][j]
	}
	return total
}

// Snapshot is a serialisable copy of a grid with its totals.
type Snapshot struct {
	Rows         []string `json:"rows"`
	Columns      []Column `json:"columns"`
	Cells        [][]int  `json:"cells"`
	RowTotals    []int    `json:"row_totals"`
	ColumnTotals []int    `json:"column_totals"`
	Total        int      `json:"total"`
}

// Snapshot copies the grid's cells and computes its totals.
func (g *Grid) Snapshot() Snapshot {
	cells := make([][]int, len(g.cells))
	for i := range g.cells {
		cells[i] = append([]int(nil), g.cells[i]...)
	}
	return Snapshot{
		Rows:         g.Rows(),
		Columns:      g.Columns(),
		Cells:        cells,
		RowTotals:    g.RowTotals(),
		ColumnTotals: g.ColumnTotals(),
		Total:        g.Total(),
	}
}

// Grid rebuilds a grid from a snapshot. Negative cells are dropped.
func (s Snapshot) Grid() *Grid {
	g := NewGrid(s.Rows, s.Columns)
	for i, row := range s.Cells {
		if i >= len(g.rows) {
			break
		}
		for j, v := range row {
			if j < len(g.columns) && v >= 0 {
				g.cells[i][j] = v
			}
		}
	}
	return g
}
