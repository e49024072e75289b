package grpc

import (
	"context"
	"time"

	"github.com/godilite/exam-blueprint/internal/blueprint"
	"github.com/godilite/exam-blueprint/internal/export"
	"github.com/godilite/exam-blueprint/internal/service"
	"github.com/godilite/exam-blueprint/pkg/apportion"
)

// Cacher defines the interface for cache operations.
type Cacher interface {
	Close() error
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

type BlueprintService interface {
	Allocate(ctx context.Context, categories []apportion.Category, budget int) ([]apportion.Share, error)
	CreatePlan(ctx context.Context, in service.PlanInput) (service.Plan, error)
	GetPlan(ctx context.Context, id string) (service.Plan, error)
	ListPlans(ctx context.Context) ([]service.PlanSummary, error)
	DeletePlan(ctx context.Context, id string) error
	GetAllocation(ctx context.Context, id string) (blueprint.Allocation, error)
	GetBlueprint(ctx context.Context, id string) (service.BlueprintView, error)
	SetGridCell(ctx context.Context, id, unit, column string, value int) error
	Reconcile(ctx context.Context, id string) (blueprint.Report, error)
	Export(ctx context.Context, id string, format export.Format) (export.Document, error)
}
