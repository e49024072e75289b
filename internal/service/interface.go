package service

import (
	"context"

	"github.com/godilite/exam-blueprint/internal/repository/models"
)

// PlanRepository defines the storage operations the service needs.
type PlanRepository interface {
	CreatePlan(ctx context.Context, p models.PlanRecord) error
	GetPlan(ctx context.Context, id string) (models.PlanRecord, error)
	ListPlans(ctx context.Context) ([]models.PlanSummary, error)
	DeletePlan(ctx context.Context, id string) error
	UpsertGridCell(ctx context.Context, planID string, cell models.GridCell) error
	GetGridCells(ctx context.Context, planID string) ([]models.GridCell, error)
}
