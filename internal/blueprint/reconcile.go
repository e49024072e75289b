package blueprint

import "github.com/godilite/exam-blueprint/pkg/apportion"

// RowDelta compares a unit's grid row total with its allocated marks.
type RowDelta struct {
	Unit      string `json:"unit"`
	GridTotal int    `json:"grid_total"`
	Allocated int    `json:"allocated"`
	Delta     int    `json:"delta"`
}

// ColumnDelta compares a grid column total with the matching section/domain
// marks.
type ColumnDelta struct {
	Label     string `json:"label"`
	Section   string `json:"section"`
	Domain    string `json:"domain"`
	GridTotal int    `json:"grid_total"`
	Allocated int    `json:"allocated"`
	Delta     int    `json:"delta"`
}

// Report is the advisory result of comparing a grid with its allocations.
// A positive delta means the grid holds more than was allocated.
type Report struct {
	Rows       []RowDelta    `json:"rows"`
	Columns    []ColumnDelta `json:"columns"`
	Consistent bool          `json:"consistent"`
}

// Mismatches returns only the rows and columns with a non-zero delta.
func (r Report) Mismatches() ([]RowDelta, []ColumnDelta) {
	var rows []RowDelta
	for _, d := range r.Rows {
		if d.Delta != 0 {
			rows = append(rows, d)
		}
	}
	var cols []ColumnDelta
	for _, d := range r.Columns {
		if d.Delta != 0 {
			cols = append(cols, d)
		}
	}
	return rows, cols
}

// Reconcile compares grid totals with the unit and section/domain
// allocations. Rows follow the unit allocation order, followed by any grid
// rows that have no allocation. Columns follow the grid's column order,
// followed by any section/domain pair missing from the grid, labelled
// "<section>-<domain name>". The grid is not modified.
func Reconcile(grid *Grid, units []apportion.Share, sections []SectionAllocation) Report {
	return reconcile(grid, units, sections, nil)
}

// reconcile labels missing section/domain pairs from columns when it holds
// them.
func reconcile(grid *Grid, units []apportion.Share, sections []SectionAllocation, columns []Column) Report {
	report := Report{Consistent: true}

	allocatedUnits := make(map[string]struct{}, len(units))
	for _, u := range units {
		allocatedUnits[u.Name] = struct{}{}
		total := 0
		if t, err := grid.RowTotal(u.Name); err == nil {
			total = t
		}
		report.addRow(RowDelta{Unit: u.Name, GridTotal: total, Allocated: u.Marks, Delta: total - u.Marks})
	}
	for _, row := range grid.Rows() {
		if _, ok := allocatedUnits[row]; ok {
			continue
		}
		total, _ := grid.RowTotal(row)
		report.addRow(RowDelta{Unit: row, GridTotal: total, Delta: total})
	}

	type key struct{ section, domain string }
	expected := make(map[key]int)
	var order []key
	for _, s := range sections {
		for _, d := range s.Domains {
			k := key{s.Section, d.Name}
			if _, ok := expected[k]; !ok {
				order = append(order, k)
			}
			expected[k] = d.Marks
		}
	}

	covered := make(map[key]struct{}, len(expected))
	for _, c := range grid.Columns() {
		k := key{c.Section, c.Domain}
		covered[k] = struct{}{}
		total, _ := grid.ColumnTotal(c.Label)
		allocated := expected[k]
		report.addColumn(ColumnDelta{
			Label:     c.Label,
			Section:   c.Section,
			Domain:    c.Domain,
			GridTotal: total,
			Allocated: allocated,
			Delta:     total - allocated,
		})
	}
	labels := make(map[key]string, len(columns))
	for _, c := range columns {
		labels[key{c.Section, c.Domain}] = c.Label
	}
	for _, k := range order {
		if _, ok := covered[k]; ok {
			continue
		}
		label, ok := labels[k]
		if !ok {
			label = k.section + "-" + k.domain
		}
		allocated := expected[k]
		report.addColumn(ColumnDelta{
			Label:     label,
			Section:   k.section,
			Domain:    k.domain,
			Allocated: allocated,
			Delta:     -allocated,
		})
	}

	return report
}

func (r *Report) addRow(d RowDelta) {
	if d.Delta != 0 {
		r.Consistent = false
	}
	r.Rows = append(r.Rows, d)
}

func (r *Report) addColumn(d ColumnDelta) {
	if d.Delta != 0 {
		r.Consistent = false
	}
	r.Columns = append(r.Columns, d)
}

// Reconcile compares grid against the allocation's unit and section/domain
// marks.
func (a Allocation) Reconcile(grid *Grid) Report {
	return reconcile(grid, a.UnitShares(), a.SectionDomains, a.Columns)
}
