package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/godilite/exam-blueprint/internal/blueprint"
	"github.com/godilite/exam-blueprint/internal/export"
	"github.com/godilite/exam-blueprint/internal/repository"
	"github.com/godilite/exam-blueprint/internal/repository/models"
	"github.com/godilite/exam-blueprint/internal/service/mocks"
	"github.com/godilite/exam-blueprint/pkg/apportion"
)

func sampleInput() blueprint.Input {
	return blueprint.Input{
		TotalMarks: 100,
		Sections:   blueprint.DefaultSections(),
		Domains:    blueprint.DefaultDomains(),
		Units: []apportion.Category{
			{Name: "Gastro", Weight: 143},
			{Name: "Renal", Weight: 101},
		},
	}
}

func storedPlan() models.PlanRecord {
	return toRecord(Plan{
		ID:        "plan-1",
		Name:      "Medicine II",
		CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Input:     sampleInput(),
	})
}

// TestNewBlueprintService tests the constructor
func TestNewBlueprintService(t *testing.T) {
	t.Run("valid parameters", func(t *testing.T) {
		mockRepo := &mocks.MockPlanRepository{}
		logger := zap.NewNop()

		svc := NewBlueprintService(mockRepo, logger)

		assert.NotNil(t, svc)
		assert.Equal(t, mockRepo, svc.storage)
		assert.Equal(t, logger, svc.logger)
	})

	t.Run("nil storage panics", func(t *testing.T) {
		assert.Panics(t, func() {
			NewBlueprintService(nil, zap.NewNop())
		})
	})

	t.Run("nil logger gets default", func(t *testing.T) {
		svc := NewBlueprintService(&mocks.MockPlanRepository{}, nil)
		assert.NotNil(t, svc.logger)
	})
}

func TestAllocate(t *testing.T) {
	svc := NewBlueprintService(&mocks.MockPlanRepository{}, zap.NewNop())
	ctx := context.Background()

	shares, err := svc.Allocate(ctx, []apportion.Category{{Name: "A", Weight: 50}, {Name: "B", Weight: 50}}, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, shares[0].Marks)
	assert.Equal(t, 0, shares[1].Marks)

	_, err = svc.Allocate(ctx, []apportion.Category{{Name: "A"}, {Name: "B"}}, 10)
	assert.ErrorIs(t, err, apportion.ErrInvalidInput)
}

func TestCreatePlan(t *testing.T) {
	ctx := context.Background()
	created := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)

	t.Run("stores a validated plan", func(t *testing.T) {
		var stored models.PlanRecord
		mockRepo := &mocks.MockPlanRepository{
			CreatePlanFunc: func(ctx context.Context, p models.PlanRecord) error {
				_, hasDeadline := ctx.Deadline()
				assert.True(t, hasDeadline)
				stored = p
				return nil
			},
		}
		svc := NewBlueprintService(mockRepo, zap.NewNop())
		svc.newID = func() string { return "fixed-id" }
		svc.now = func() time.Time { return created }

		plan, err := svc.CreatePlan(ctx, PlanInput{Name: "  Medicine II ", Input: sampleInput()})
		require.NoError(t, err)

		assert.Equal(t, "fixed-id", plan.ID)
		assert.Equal(t, "Medicine II", plan.Name)
		assert.Equal(t, created, plan.CreatedAt)
		assert.Equal(t, "fixed-id", stored.ID)
		assert.Len(t, stored.Units, 2)
		assert.Equal(t, []float64{30, 30, 40}, stored.Sections[2].DomainWeights)
	})

	t.Run("rejects invalid allocations without storing", func(t *testing.T) {
		svc := NewBlueprintService(&mocks.MockPlanRepository{}, zap.NewNop())
		in := sampleInput()
		in.Units = []apportion.Category{{Name: "A"}, {Name: "B"}}

		_, err := svc.CreatePlan(ctx, PlanInput{Name: "x", Input: in})
		assert.ErrorIs(t, err, ErrInvalidPlan)
		assert.ErrorIs(t, err, apportion.ErrInvalidInput)
	})

	t.Run("requires a name", func(t *testing.T) {
		svc := NewBlueprintService(&mocks.MockPlanRepository{}, zap.NewNop())
		_, err := svc.CreatePlan(ctx, PlanInput{Name: " ", Input: sampleInput()})
		assert.ErrorIs(t, err, ErrInvalidPlan)
	})

	t.Run("storage failure", func(t *testing.T) {
		mockRepo := &mocks.MockPlanRepository{
			CreatePlanFunc: func(ctx context.Context, p models.PlanRecord) error {
				return errors.New("disk full")
			},
		}
		svc := NewBlueprintService(mockRepo, zap.NewNop())

		_, err := svc.CreatePlan(ctx, PlanInput{Name: "x", Input: sampleInput()})
		assert.ErrorIs(t, err, ErrStorageFailure)
		assert.Contains(t, err.Error(), "disk full")
	})
}

func TestGetPlanAndList(t *testing.T) {
	ctx := context.Background()
	rec := storedPlan()

	mockRepo := &mocks.MockPlanRepository{
		GetPlanFunc: func(ctx context.Context, id string) (models.PlanRecord, error) {
			if id != rec.ID {
				return models.PlanRecord{}, fmt.Errorf("%w: %s", repository.ErrPlanNotFound, id)
			}
			return rec, nil
		},
		ListPlansFunc: func(ctx context.Context) ([]models.PlanSummary, error) {
			return []models.PlanSummary{{ID: rec.ID, Name: rec.Name, TotalMarks: 100, CreatedAt: rec.CreatedAt}}, nil
		},
	}
	svc := NewBlueprintService(mockRepo, zap.NewNop())

	plan, err := svc.GetPlan(ctx, "plan-1")
	require.NoError(t, err)
	assert.Equal(t, sampleInput(), plan.Input)

	_, err = svc.GetPlan(ctx, "missing")
	assert.ErrorIs(t, err, ErrPlanNotFound)

	plans, err := svc.ListPlans(ctx)
	require.NoError(t, err)
	require.Len(t, plans, 1)
	assert.Equal(t, "Medicine II", plans[0].Name)
}

func TestDeletePlan(t *testing.T) {
	ctx := context.Background()
	mockRepo := &mocks.MockPlanRepository{
		DeletePlanFunc: func(ctx context.Context, id string) error {
			if id == "gone" {
				return repository.ErrPlanNotFound
			}
			return nil
		},
	}
	svc := NewBlueprintService(mockRepo, zap.NewNop())

	assert.NoError(t, svc.DeletePlan(ctx, "plan-1"))
	assert.ErrorIs(t, svc.DeletePlan(ctx, "gone"), ErrPlanNotFound)
}

// gridRepo serves storedPlan with an in-memory grid.
func gridRepo(cells map[string]models.GridCell) *mocks.MockPlanRepository {
	return &mocks.MockPlanRepository{
		GetPlanFunc: func(ctx context.Context, id string) (models.PlanRecord, error) {
			if id != "plan-1" {
				return models.PlanRecord{}, repository.ErrPlanNotFound
			}
			return storedPlan(), nil
		},
		GetGridCellsFunc: func(ctx context.Context, planID string) ([]models.GridCell, error) {
			out := make([]models.GridCell, 0, len(cells))
			for _, c := range cells {
				out = append(out, c)
			}
			return out, nil
		},
		UpsertGridCellFunc: func(ctx context.Context, planID string, cell models.GridCell) error {
			cells[cell.Unit+"|"+cell.Column] = cell
			return nil
		},
	}
}

func TestGetAllocation(t *testing.T) {
	svc := NewBlueprintService(gridRepo(map[string]models.GridCell{}), zap.NewNop())

	alloc, err := svc.GetAllocation(context.Background(), "plan-1")
	require.NoError(t, err)
	assert.Equal(t, 59, alloc.Units[0].Marks)
	assert.Equal(t, 41, alloc.Units[1].Marks)
	assert.Len(t, alloc.Columns, 9)

	_, err = svc.GetAllocation(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrPlanNotFound)
}

func TestSetGridCellAndBlueprint(t *testing.T) {
	ctx := context.Background()
	cells := map[string]models.GridCell{
		"Stale|XYZ-R": {Unit: "Stale", Column: "XYZ-R", Value: 7},
	}
	svc := NewBlueprintService(gridRepo(cells), zap.NewNop())

	require.NoError(t, svc.SetGridCell(ctx, "plan-1", "Gastro", "MCQ-R", 4))
	require.NoError(t, svc.SetGridCell(ctx, "plan-1", "Gastro", "LAQ-A", 5))
	require.NoError(t, svc.SetGridCell(ctx, "plan-1", "Renal", "MCQ-R", 2))

	err := svc.SetGridCell(ctx, "plan-1", "Unknown", "MCQ-R", 1)
	assert.ErrorIs(t, err, ErrInvalidCell)
	assert.ErrorIs(t, err, blueprint.ErrUnknownRow)

	err = svc.SetGridCell(ctx, "plan-1", "Gastro", "MCQ-R", -1)
	assert.ErrorIs(t, err, ErrInvalidCell)

	err = svc.SetGridCell(ctx, "nope", "Gastro", "MCQ-R", 1)
	assert.ErrorIs(t, err, ErrPlanNotFound)

	view, err := svc.GetBlueprint(ctx, "plan-1")
	require.NoError(t, err)

	assert.Equal(t, "Medicine II", view.Plan.Name)
	assert.Equal(t, []int{9, 2}, view.Grid.RowTotals)
	assert.Equal(t, 6, view.Grid.ColumnTotals[0])
	assert.Equal(t, 11, view.Grid.Total)

	assert.False(t, view.Report.Consistent)
	assert.Equal(t, 9-59, view.Report.Rows[0].Delta)
	assert.Equal(t, 2-41, view.Report.Rows[1].Delta)
	assert.Equal(t, 6-9, view.Report.Columns[0].Delta)
}

func TestReconcile(t *testing.T) {
	ctx := context.Background()
	cells := map[string]models.GridCell{}
	svc := NewBlueprintService(gridRepo(cells), zap.NewNop())

	alloc, err := svc.GetAllocation(ctx, "plan-1")
	require.NoError(t, err)

	// Lay each unit's marks across the columns without exceeding any
	// section/domain allocation.
	remaining := map[string]int{}
	for _, sd := range alloc.SectionDomains {
		for _, d := range sd.Domains {
			remaining[sd.Section+"/"+d.Name] = d.Marks
		}
	}
	for _, u := range alloc.Units {
		need := u.Marks
		for _, c := range alloc.Columns {
			take := min(need, remaining[c.Section+"/"+c.Domain])
			if take == 0 {
				continue
			}
			require.NoError(t, svc.SetGridCell(ctx, "plan-1", u.Name, c.Label, take))
			remaining[c.Section+"/"+c.Domain] -= take
			need -= take
		}
	}

	report, err := svc.Reconcile(ctx, "plan-1")
	require.NoError(t, err)
	assert.True(t, report.Consistent)

	require.NoError(t, svc.SetGridCell(ctx, "plan-1", "Renal", "LAQ-A", 0))
	report, err = svc.Reconcile(ctx, "plan-1")
	require.NoError(t, err)
	assert.False(t, report.Consistent)
	rows, _ := report.Mismatches()
	require.Len(t, rows, 1)
	assert.Equal(t, "Renal", rows[0].Unit)
	assert.Negative(t, rows[0].Delta)
}

func TestExport(t *testing.T) {
	ctx := context.Background()
	svc := NewBlueprintService(gridRepo(map[string]models.GridCell{}), zap.NewNop())

	doc, err := svc.Export(ctx, "plan-1", export.FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "blueprint_grid.csv", doc.Filename)
	assert.True(t, bytes.HasPrefix(doc.Data, []byte("Unit,IxF,Weightage %,Marks,MCQ-R")))

	doc, err = svc.Export(ctx, "plan-1", export.FormatPDF)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(doc.Data, []byte("%PDF-")))

	_, err = svc.Export(ctx, "plan-1", export.Format("xml"))
	assert.ErrorIs(t, err, export.ErrUnknownFormat)
}

func TestGetBlueprint_StorageFailure(t *testing.T) {
	mockRepo := &mocks.MockPlanRepository{
		GetPlanFunc: func(ctx context.Context, id string) (models.PlanRecord, error) {
			return storedPlan(), nil
		},
		GetGridCellsFunc: func(ctx context.Context, planID string) ([]models.GridCell, error) {
			return nil, errors.New("database connection failed")
		},
	}
	svc := NewBlueprintService(mockRepo, zap.NewNop())

	_, err := svc.GetBlueprint(context.Background(), "plan-1")
	assert.ErrorIs(t, err, ErrStorageFailure)
	assert.Contains(t, err.Error(), "database connection failed")
}
