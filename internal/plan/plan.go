// Package plan loads exam plans from YAML files and parses the plain-text
// unit and weight lists users type in.
package plan

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/godilite/exam-blueprint/internal/blueprint"
	"github.com/godilite/exam-blueprint/pkg/apportion"
)

// ErrParse is returned for malformed unit or weight lists.
var ErrParse = errors.New("parse error")

// Section is a question type in a plan file.
type Section struct {
	Name          string    `yaml:"name" validate:"required"`
	Weight        float64   `yaml:"weight" validate:"gte=0"`
	DomainWeights []float64 `yaml:"domainWeights" validate:"dive,gte=0"`
}

// Domain is a cognitive level in a plan file.
type Domain struct {
	Name string `yaml:"name" validate:"required"`
	Code string `yaml:"code,omitempty"`
}

// Unit is a curriculum unit with its importance×frequency score.
type Unit struct {
	Name  string  `yaml:"name" validate:"required"`
	Score float64 `yaml:"score" validate:"gte=0"`
}

// File is the on-disk plan format. Units may be given as a list, as the
// "name, score" text block in UnitsText, or both (list first). Grid maps
// unit name to column label to item count.
type File struct {
	Name       string                    `yaml:"name" validate:"required"`
	TotalMarks int                       `yaml:"totalMarks" validate:"gte=0"`
	Sections   []Section                 `yaml:"sections,omitempty" validate:"dive"`
	Domains    []Domain                  `yaml:"domains,omitempty" validate:"dive"`
	Units      []Unit                    `yaml:"units,omitempty" validate:"dive"`
	UnitsText  string                    `yaml:"unitsText,omitempty"`
	Grid       map[string]map[string]int `yaml:"grid,omitempty"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Load reads and validates a plan file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates plan YAML.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse plan file: %w", err)
	}
	if err := Validate(&f); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks struct tags and that the units text block parses.
func Validate(f *File) error {
	if err := validate.Struct(f); err != nil {
		return fmt.Errorf("plan validation failed: %w", err)
	}
	if _, err := ParseUnits(f.UnitsText); err != nil {
		return fmt.Errorf("plan validation failed: unitsText: %w", err)
	}
	return nil
}

// Input converts the file into allocation input, filling in the default
// sections and domains when the file leaves them out.
func (f *File) Input() (blueprint.Input, error) {
	in := blueprint.Input{TotalMarks: f.TotalMarks}

	if len(f.Domains) == 0 {
		in.Domains = blueprint.DefaultDomains()
	} else {
		for _, d := range f.Domains {
			in.Domains = append(in.Domains, blueprint.Domain{Name: d.Name, Code: d.Code})
		}
	}

	if len(f.Sections) == 0 {
		in.Sections = blueprint.DefaultSections()
	} else {
		for _, s := range f.Sections {
			in.Sections = append(in.Sections, blueprint.Section{
				Name:          s.Name,
				Weight:        s.Weight,
				DomainWeights: append([]float64(nil), s.DomainWeights...),
			})
		}
	}

	for _, u := range f.Units {
		in.Units = append(in.Units, apportion.Category{Name: u.Name, Weight: u.Score})
	}
	parsed, err := ParseUnits(f.UnitsText)
	if err != nil {
		return blueprint.Input{}, err
	}
	in.Units = append(in.Units, parsed...)

	return in, nil
}

// EachCell calls fn for every grid cell in the file, sorted by unit then
// column label, stopping at the first error.
func (f *File) EachCell(fn func(unit, label string, value int) error) error {
	units := make([]string, 0, len(f.Grid))
	for u := range f.Grid {
		units = append(units, u)
	}
	sort.Strings(units)

	for _, u := range units {
		labels := make([]string, 0, len(f.Grid[u]))
		for l := range f.Grid[u] {
			labels = append(labels, l)
		}
		sort.Strings(labels)
		for _, l := range labels {
			if err := fn(u, l, f.Grid[u][l]); err != nil {
				return err
			}
		}
	}
	return nil
}

// ApplyGrid copies the file's grid cells into g.
func (f *File) ApplyGrid(g *blueprint.Grid) error {
	return f.EachCell(func(unit, label string, value int) error {
		if err := g.Set(unit, label, value); err != nil {
			return fmt.Errorf("grid: %w", err)
		}
		return nil
	})
}

// ParseUnits parses one "unit name, score" pair per line. Blank lines are
// skipped. The last comma separates the score, so names may contain commas.
func ParseUnits(text string) ([]apportion.Category, error) {
	var out []apportion.Category
	for n, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		idx := strings.LastIndex(line, ",")
		if idx < 0 {
			return nil, fmt.Errorf("%w: line %d: expected \"name, score\", got %q", ErrParse, n+1, line)
		}
		name := strings.TrimSpace(line[:idx])
		if name == "" {
			return nil, fmt.Errorf("%w: line %d: empty unit name", ErrParse, n+1)
		}
		score, err := strconv.ParseFloat(strings.TrimSpace(line[idx+1:]), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: invalid score: %v", ErrParse, n+1, err)
		}
		out = append(out, apportion.Category{Name: name, Weight: score})
	}
	return out, nil
}

// ParseWeights parses "name=weight" pairs separated by commas, e.g.
// "Recall=30,Understand=30,Apply=40".
func ParseWeights(s string) ([]apportion.Category, error) {
	var out []apportion.Category
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, value, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("%w: expected name=weight, got %q", ErrParse, part)
		}
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("%w: empty name in %q", ErrParse, part)
		}
		w, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid weight for %q: %v", ErrParse, name, err)
		}
		out = append(out, apportion.Category{Name: name, Weight: w})
	}
	return out, nil
}
