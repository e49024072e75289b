package blueprint

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/godilite/exam-blueprint/pkg/apportion"
)

func sampleInput() Input {
	return Input{
		TotalMarks: 100,
		Sections:   DefaultSections(),
		Domains:    DefaultDomains(),
		Units: []apportion.Category{
			{Name: "Gastrointestinal and Hepatobiliary", Weight: 143},
			{Name: "Renal and Genitourinary", Weight: 101},
			{Name: "Endocrine Disorders", Weight: 83},
			{Name: "Rheumatology and Connective Tissue", Weight: 34},
		},
	}
}

func TestCompute_Defaults(t *testing.T) {
	alloc, err := Compute(sampleInput())
	require.NoError(t, err)

	assert.Equal(t, 100, alloc.TotalMarks)
	assert.Equal(t, []int{30, 30, 40}, []int{alloc.Sections[0].Marks, alloc.Sections[1].Marks, alloc.Sections[2].Marks})

	want := map[string][]int{
		"MCQ": {9, 9, 12},
		"SAQ": {9, 9, 12},
		"LAQ": {12, 12, 16},
	}
	for _, sd := range alloc.SectionDomains {
		got := []int{sd.Domains[0].Marks, sd.Domains[1].Marks, sd.Domains[2].Marks}
		assert.Equal(t, want[sd.Section], got, sd.Section)
		assert.Equal(t, sd.Marks, apportion.Total(sd.Domains))
	}

	unitMarks := make([]int, len(alloc.Units))
	for i, u := range alloc.Units {
		unitMarks[i] = u.Marks
	}
	assert.Equal(t, []int{40, 28, 23, 9}, unitMarks)
	assert.InDelta(t, 39.612, alloc.Units[0].WeightagePct, 0.001)
	assert.Equal(t, 100, apportion.Total(alloc.UnitShares()))
}

func TestCompute_SectionMarksFeedDomainBudgets(t *testing.T) {
	in := sampleInput()
	in.TotalMarks = 31
	in.Sections = []Section{
		{Name: "MCQ", Weight: 1, DomainWeights: []float64{30, 30, 40}},
	}

	alloc, err := Compute(in)
	require.NoError(t, err)

	require.Len(t, alloc.SectionDomains, 1)
	assert.Equal(t, 31, alloc.SectionDomains[0].Marks)
	got := []int{
		alloc.SectionDomains[0].Domains[0].Marks,
		alloc.SectionDomains[0].Domains[1].Marks,
		alloc.SectionDomains[0].Domains[2].Marks,
	}
	assert.Equal(t, []int{9, 9, 13}, got)
}

func TestCompute_Errors(t *testing.T) {
	t.Run("domain weight count mismatch", func(t *testing.T) {
		in := sampleInput()
		in.Sections[1].DomainWeights = []float64{50, 50}

		_, err := Compute(in)
		assert.ErrorIs(t, err, apportion.ErrInvalidInput)
		assert.Contains(t, err.Error(), "2 domain weights for 3 domains")
	})

	t.Run("all unit scores zero", func(t *testing.T) {
		in := sampleInput()
		in.Units = []apportion.Category{{Name: "A"}, {Name: "B"}}

		_, err := Compute(in)
		assert.ErrorIs(t, err, apportion.ErrInvalidInput)
		assert.Contains(t, err.Error(), "units:")
	})

	t.Run("section with zero domain weights", func(t *testing.T) {
		in := sampleInput()
		in.Sections[2].DomainWeights = []float64{0, 0, 0}

		_, err := Compute(in)
		assert.ErrorIs(t, err, apportion.ErrInvalidInput)
		assert.Contains(t, err.Error(), `section "LAQ" domains`)
	})

	t.Run("negative total", func(t *testing.T) {
		in := sampleInput()
		in.TotalMarks = -5

		_, err := Compute(in)
		assert.ErrorIs(t, err, apportion.ErrInvalidInput)
	})
}

func TestColumns(t *testing.T) {
	cols, err := Columns(DefaultSections(), DefaultDomains())
	require.NoError(t, err)

	labels := make([]string, len(cols))
	for i, c := range cols {
		labels[i] = c.Label
	}
	want := []string{"MCQ-R", "MCQ-U", "MCQ-A", "SAQ-R", "SAQ-U", "SAQ-A", "LAQ-R", "LAQ-U", "LAQ-A"}
	if diff := cmp.Diff(want, labels); diff != "" {
		t.Errorf("labels mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, Column{Label: "SAQ-U", Section: "SAQ", Domain: "Understand"}, cols[4])
}

func TestColumns_DerivedCodes(t *testing.T) {
	domains := []Domain{{Name: "analyse"}, {Name: "Apply"}}
	sections := []Section{{Name: "MCQ", Weight: 1, DomainWeights: []float64{1, 1}}}

	_, err := Columns(sections, domains)
	assert.ErrorIs(t, err, apportion.ErrInvalidInput)
	assert.Contains(t, err.Error(), `duplicate column label "MCQ-A"`)

	domains[0].Code = "An"
	cols, err := Columns(sections, domains)
	require.NoError(t, err)
	assert.Equal(t, "MCQ-An", cols[0].Label)
	assert.Equal(t, "MCQ-A", cols[1].Label)
}

func TestAllocation_NewGrid(t *testing.T) {
	alloc, err := Compute(sampleInput())
	require.NoError(t, err)

	g := alloc.NewGrid()
	assert.Len(t, g.Rows(), 4)
	assert.Len(t, g.Columns(), 9)
	assert.Zero(t, g.Total())
}
