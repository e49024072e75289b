package blueprint

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/godilite/exam-blueprint/pkg/apportion"
)

// Section is a question type (MCQ, SAQ, LAQ...) with its weight of the total
// marks and its split across cognitive domains. DomainWeights follows the
// order of Input.Domains.
type Section struct {
	Name          string    `json:"name"`
	Weight        float64   `json:"weight"`
	DomainWeights []float64 `json:"domain_weights"`
}

// Domain is a cognitive level. Code is the suffix used in grid column labels.
type Domain struct {
	Name string `json:"name"`
	Code string `json:"code,omitempty"`
}

// Label returns Code, or the upper-cased first letter of Name when Code is empty.
func (d Domain) Label() string {
	if d.Code != "" {
		return d.Code
	}
	r, _ := utf8.DecodeRuneInString(d.Name)
	if r == utf8.RuneError {
		return ""
	}
	return string(unicode.ToUpper(r))
}

// Input is everything needed to compute a blueprint's allocations.
type Input struct {
	TotalMarks int                  `json:"total_marks"`
	Sections   []Section            `json:"sections"`
	Domains    []Domain             `json:"domains"`
	Units      []apportion.Category `json:"units"`
}

// SectionAllocation is a section's marks and their split across domains.
type SectionAllocation struct {
	Section string            `json:"section"`
	Marks   int               `json:"marks"`
	Domains []apportion.Share `json:"domains"`
}

// UnitAllocation is a curriculum unit's marks derived from its importance
// score. WeightagePct is the exact percentage of the total score.
type UnitAllocation struct {
	apportion.Share
	WeightagePct float64 `json:"weightage_pct"`
}

// Allocation is the result of all three allocation levels.
type Allocation struct {
	TotalMarks     int                 `json:"total_marks"`
	Sections       []apportion.Share   `json:"sections"`
	SectionDomains []SectionAllocation `json:"section_domains"`
	Units          []UnitAllocation    `json:"units"`
	Columns        []Column            `json:"columns"`
}

// UnitShares returns the unit allocations as plain shares.
func (a Allocation) UnitShares() []apportion.Share {
	out := make([]apportion.Share, len(a.Units))
	for i, u := range a.Units {
		out[i] = u.Share
	}
	return out
}

// DefaultSections returns MCQ/SAQ/LAQ at 30/30/40, each split 30/30/40 across
// the default domains.
func DefaultSections() []Section {
	return []Section{
		{Name: "MCQ", Weight: 30, DomainWeights: []float64{30, 30, 40}},
		{Name: "SAQ", Weight: 30, DomainWeights: []float64{30, 30, 40}},
		{Name: "LAQ", Weight: 40, DomainWeights: []float64{30, 30, 40}},
	}
}

// DefaultDomains returns Recall, Understand and Apply.
func DefaultDomains() []Domain {
	return []Domain{
		{Name: "Recall", Code: "R"},
		{Name: "Understand", Code: "U"},
		{Name: "Apply", Code: "A"},
	}
}

// Compute runs the three allocation levels. Each level calls the engine
// independently; Level B budgets are Level A's integer marks.
func Compute(in Input) (Allocation, error) {
	columns, err := Columns(in.Sections, in.Domains)
	if err != nil {
		return Allocation{}, err
	}

	sectionCats := make([]apportion.Category, len(in.Sections))
	for i, s := range in.Sections {
		sectionCats[i] = apportion.Category{Name: s.Name, Weight: s.Weight}
	}
	sections, err := apportion.Allocate(sectionCats, in.TotalMarks)
	if err != nil {
		return Allocation{}, fmt.Errorf("sections: %w", err)
	}

	sectionDomains := make([]SectionAllocation, len(in.Sections))
	for i, s := range in.Sections {
		cats := make([]apportion.Category, len(in.Domains))
		for j, d := range in.Domains {
			cats[j] = apportion.Category{Name: d.Name, Weight: s.DomainWeights[j]}
		}
		shares, err := apportion.Allocate(cats, sections[i].Marks)
		if err != nil {
			return Allocation{}, fmt.Errorf("section %q domains: %w", s.Name, err)
		}
		sectionDomains[i] = SectionAllocation{
			Section: s.Name,
			Marks:   sections[i].Marks,
			Domains: shares,
		}
	}

	unitShares, err := apportion.Allocate(in.Units, in.TotalMarks)
	if err != nil {
		return Allocation{}, fmt.Errorf("units: %w", err)
	}
	pcts, err := apportion.Percentages(in.Units)
	if err != nil {
		return Allocation{}, fmt.Errorf("units: %w", err)
	}
	units := make([]UnitAllocation, len(unitShares))
	for i, s := range unitShares {
		units[i] = UnitAllocation{Share: s, WeightagePct: pcts[i]}
	}

	return Allocation{
		TotalMarks:     in.TotalMarks,
		Sections:       sections,
		SectionDomains: sectionDomains,
		Units:          units,
		Columns:        columns,
	}, nil
}

// Column is one grid column: a section and cognitive domain pair.
type Column struct {
	Label   string `json:"label"`
	Section string `json:"section"`
	Domain  string `json:"domain"`
}

// Columns builds the grid column labels in section-major order, e.g. MCQ-R,
// MCQ-U, MCQ-A, SAQ-R...
func Columns(sections []Section, domains []Domain) ([]Column, error) {
	cols := make([]Column, 0, len(sections)*len(domains))
	seen := make(map[string]struct{}, cap(cols))
	for i, s := range sections {
		if strings.TrimSpace(s.Name) == "" {
			return nil, &apportion.InvalidInputError{
				Field:  fmt.Sprintf("sections[%d]", i),
				Reason: "name is empty",
			}
		}
		if len(s.DomainWeights) != len(domains) {
			return nil, &apportion.InvalidInputError{
				Field:  fmt.Sprintf("sections[%d]", i),
				Reason: fmt.Sprintf("%q has %d domain weights for %d domains", s.Name, len(s.DomainWeights), len(domains)),
			}
		}
		for j, d := range domains {
			code := d.Label()
			if code == "" {
				return nil, &apportion.InvalidInputError{
					Field:  fmt.Sprintf("domains[%d]", j),
					Reason: "name and code are empty",
				}
			}
			label := s.Name + "-" + code
			if _, dup := seen[label]; dup {
				return nil, &apportion.InvalidInputError{
					Field:  "columns",
					Reason: fmt.Sprintf("duplicate column label %q", label),
				}
			}
			seen[label] = struct{}{}
			cols = append(cols, Column{Label: label, Section: s.Name, Domain: d.Name})
		}
	}
	return cols, nil
}

// NewGrid returns an all-zero grid with one row per unit and the
// allocation's columns.
func (a Allocation) NewGrid() *Grid {
	rows := make([]string, len(a.Units))
	for i, u := range a.Units {
		rows[i] = u.Name
	}
	return NewGrid(rows, a.Columns)
}
