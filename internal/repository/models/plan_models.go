package models

import "time"

// PlanRecord is a stored exam plan with its ordered definition rows.
type PlanRecord struct {
	ID         string
	Name       string
	TotalMarks int
	CreatedAt  time.Time
	Sections   []SectionRecord
	Domains    []DomainRecord
	Units      []UnitRecord
}

type SectionRecord struct {
	Name          string
	Weight        float64
	DomainWeights []float64
}

type DomainRecord struct {
	Name string
	Code string
}

type UnitRecord struct {
	Name  string
	Score float64
}

// PlanSummary is a plan row without its definition.
type PlanSummary struct {
	ID         string
	Name       string
	TotalMarks int
	CreatedAt  time.Time
}

// GridCell is one stored grid value.
type GridCell struct {
	Unit   string
	Column string
	Value  int
}
