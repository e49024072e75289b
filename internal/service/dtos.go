package service

import (
	"time"

	"github.com/godilite/exam-blueprint/internal/blueprint"
	"github.com/godilite/exam-blueprint/internal/repository/models"
	"github.com/godilite/exam-blueprint/pkg/apportion"
)

type PlanInput struct {
	Name  string          `json:"name"`
	Input blueprint.Input `json:"input"`
}

type Plan struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	CreatedAt time.Time       `json:"created_at"`
	Input     blueprint.Input `json:"input"`
}

type PlanSummary struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	TotalMarks int       `json:"total_marks"`
	CreatedAt  time.Time `json:"created_at"`
}

// BlueprintView is a plan's allocations, its current grid, and how the two
// compare.
type BlueprintView struct {
	Plan       Plan                 `json:"plan"`
	Allocation blueprint.Allocation `json:"allocation"`
	Grid       blueprint.Snapshot   `json:"grid"`
	Report     blueprint.Report     `json:"report"`
}

func toRecord(p Plan) models.PlanRecord {
	rec := models.PlanRecord{
		ID:         p.ID,
		Name:       p.Name,
		TotalMarks: p.Input.TotalMarks,
		CreatedAt:  p.CreatedAt,
	}
	for _, s := range p.Input.Sections {
		rec.Sections = append(rec.Sections, models.SectionRecord{
			Name:          s.Name,
			Weight:        s.Weight,
			DomainWeights: append([]float64(nil), s.DomainWeights...),
		})
	}
	for _, d := range p.Input.Domains {
		rec.Domains = append(rec.Domains, models.DomainRecord{Name: d.Name, Code: d.Code})
	}
	for _, u := range p.Input.Units {
		rec.Units = append(rec.Units, models.UnitRecord{Name: u.Name, Score: u.Weight})
	}
	return rec
}

func fromRecord(rec models.PlanRecord) Plan {
	p := Plan{
		ID:        rec.ID,
		Name:      rec.Name,
		CreatedAt: rec.CreatedAt,
		Input:     blueprint.Input{TotalMarks: rec.TotalMarks},
	}
	for _, s := range rec.Sections {
		p.Input.Sections = append(p.Input.Sections, blueprint.Section{
			Name:          s.Name,
			Weight:        s.Weight,
			DomainWeights: s.DomainWeights,
		})
	}
	for _, d := range rec.Domains {
		p.Input.Domains = append(p.Input.Domains, blueprint.Domain{Name: d.Name, Code: d.Code})
	}
	for _, u := range rec.Units {
		p.Input.Units = append(p.Input.Units, apportion.Category{Name: u.Name, Weight: u.Score})
	}
	return p
}
