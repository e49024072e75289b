package mocks

import (
	"context"
	"errors"

	"github.com/godilite/exam-blueprint/internal/repository/models"
)

// MockPlanRepository is a mock implementation of the PlanRepository interface
// for testing the service layer.
type MockPlanRepository struct {
	CreatePlanFunc     func(ctx context.Context, p models.PlanRecord) error
	GetPlanFunc        func(ctx context.Context, id string) (models.PlanRecord, error)
	ListPlansFunc      func(ctx context.Context) ([]models.PlanSummary, error)
	DeletePlanFunc     func(ctx context.Context, id string) error
	UpsertGridCellFunc func(ctx context.Context, planID string, cell models.GridCell) error
	GetGridCellsFunc   func(ctx context.Context, planID string) ([]models.GridCell, error)
}

// CreatePlan implements the PlanRepository interface
func (m *MockPlanRepository) CreatePlan(ctx context.Context, p models.PlanRecord) error {
	if m.CreatePlanFunc != nil {
		return m.CreatePlanFunc(ctx, p)
	}
	return errors.New("CreatePlanFunc not implemented")
}

// GetPlan implements the PlanRepository interface
func (m *MockPlanRepository) GetPlan(ctx context.Context, id string) (models.PlanRecord, error) {
	if m.GetPlanFunc != nil {
		return m.GetPlanFunc(ctx, id)
	}
	return models.PlanRecord{}, errors.New("GetPlanFunc not implemented")
}

// ListPlans implements the PlanRepository interface
func (m *MockPlanRepository) ListPlans(ctx context.Context) ([]models.PlanSummary, error) {
	if m.ListPlansFunc != nil {
		return m.ListPlansFunc(ctx)
	}
	return nil, errors.New("ListPlansFunc not implemented")
}

// DeletePlan implements the PlanRepository interface
func (m *MockPlanRepository) DeletePlan(ctx context.Context, id string) error {
	if m.DeletePlanFunc != nil {
		return m.DeletePlanFunc(ctx, id)
	}
	return errors.New("DeletePlanFunc not implemented")
}

// UpsertGridCell implements the PlanRepository interface
func (m *MockPlanRepository) UpsertGridCell(ctx context.Context, planID string, cell models.GridCell) error {
	if m.UpsertGridCellFunc != nil {
		return m.UpsertGridCellFunc(ctx, planID, cell)
	}
	return errors.New("UpsertGridCellFunc not implemented")
}

// GetGridCells implements the PlanRepository interface
func (m *MockPlanRepository) GetGridCells(ctx context.Context, planID string) ([]models.GridCell, error) {
	if m.GetGridCellsFunc != nil {
		return m.GetGridCellsFunc(ctx, planID)
	}
	return nil, errors.New("GetGridCellsFunc not implemented")
}
