package mocks

import (
	"context"
	"errors"

	"github.com/godilite/exam-blueprint/internal/blueprint"
	"github.com/godilite/exam-blueprint/internal/export"
	"github.com/godilite/exam-blueprint/internal/service"
	"github.com/godilite/exam-blueprint/pkg/apportion"
)

// MockBlueprintService is a function-field mock of the handler's service
// dependency.
type MockBlueprintService struct {
	AllocateFunc      func(ctx context.Context, categories []apportion.Category, budget int) ([]apportion.Share, error)
	CreatePlanFunc    func(ctx context.Context, in service.PlanInput) (service.Plan, error)
	GetPlanFunc       func(ctx context.Context, id string) (service.Plan, error)
	ListPlansFunc     func(ctx context.Context) ([]service.PlanSummary, error)
	DeletePlanFunc    func(ctx context.Context, id string) error
	GetAllocationFunc func(ctx context.Context, id string) (blueprint.Allocation, error)
	GetBlueprintFunc  func(ctx context.Context, id string) (service.BlueprintView, error)
	SetGridCellFunc   func(ctx context.Context, id, unit, column string, value int) error
	ReconcileFunc     func(ctx context.Context, id string) (blueprint.Report, error)
	ExportFunc        func(ctx context.Context, id string, format export.Format) (export.Document, error)
}

func (m *MockBlueprintService) Allocate(ctx context.Context, categories []apportion.Category, budget int) ([]apportion.Share, error) {
	if m.AllocateFunc != nil {
		return m.AllocateFunc(ctx, categories, budget)
	}
	return nil, errors.New("AllocateFunc not implemented")
}

func (m *MockBlueprintService) CreatePlan(ctx context.Context, in service.PlanInput) (service.Plan, error) {
	if m.CreatePlanFunc != nil {
		return m.CreatePlanFunc(ctx, in)
	}
	return service.Plan{}, errors.New("CreatePlanFunc not implemented")
}

func (m *MockBlueprintService) GetPlan(ctx context.Context, id string) (service.Plan, error) {
	if m.GetPlanFunc != nil {
		return m.GetPlanFunc(ctx, id)
	}
	return service.Plan{}, errors.New("GetPlanFunc not implemented")
}

func (m *MockBlueprintService) ListPlans(ctx context.Context) ([]service.PlanSummary, error) {
	if m.ListPlansFunc != nil {
		return m.ListPlansFunc(ctx)
	}
	return nil, errors.New("ListPlansFunc not implemented")
}

func (m *MockBlueprintService) DeletePlan(ctx context.Context, id string) error {
	if m.DeletePlanFunc != nil {
		return m.DeletePlanFunc(ctx, id)
	}
	return errors.New("DeletePlanFunc not implemented")
}

func (m *MockBlueprintService) GetAllocation(ctx context.Context, id string) (blueprint.Allocation, error) {
	if m.GetAllocationFunc != nil {
		return m.GetAllocationFunc(ctx, id)
	}
	return blueprint.Allocation{}, errors.New("GetAllocationFunc not implemented")
}

func (m *MockBlueprintService) GetBlueprint(ctx context.Context, id string) (service.BlueprintView, error) {
	if m.GetBlueprintFunc != nil {
		return m.GetBlueprintFunc(ctx, id)
	}
	return service.BlueprintView{}, errors.New("GetBlueprintFunc not implemented")
}

func (m *MockBlueprintService) SetGridCell(ctx context.Context, id, unit, column string, value int) error {
	if m.SetGridCellFunc != nil {
		return m.SetGridCellFunc(ctx, id, unit, column, value)
	}
	return errors.New("SetGridCellFunc not implemented")
}

func (m *MockBlueprintService) Reconcile(ctx context.Context, id string) (blueprint.Report, error) {
	if m.ReconcileFunc != nil {
		return m.ReconcileFunc(ctx, id)
	}
	return blueprint.Report{}, errors.New("ReconcileFunc not implemented")
}

func (m *MockBlueprintService) Export(ctx context.Context, id string, format export.Format) (export.Document, error) {
	if m.ExportFunc != nil {
		return m.ExportFunc(ctx, id, format)
	}
	return export.Document{}, errors.New("ExportFunc not implemented")
}
