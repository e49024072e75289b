package grpc

import (
	"github.com/godilite/exam-blueprint/internal/blueprint"
	"github.com/godilite/exam-blueprint/internal/export"
	"github.com/godilite/exam-blueprint/internal/service"
	"github.com/godilite/exam-blueprint/pkg/apportion"
)

// Request and response messages of blueprint.v1.BlueprintService. They are
// carried by the JSON codec.

type AllocateRequest struct {
	Categories []apportion.Category `json:"categories"`
	Budget     int                  `json:"budget"`
}

type AllocateResponse struct {
	Shares []apportion.Share `json:"shares"`
	Total  int               `json:"total"`
}

type CreatePlanRequest struct {
	Plan service.PlanInput `json:"plan"`
}

type PlanRequest struct {
	PlanID string `json:"plan_id"`
}

type PlanResponse struct {
	Plan service.Plan `json:"plan"`
}

type ListPlansRequest struct{}

type ListPlansResponse struct {
	Plans []service.PlanSummary `json:"plans"`
}

type DeletePlanResponse struct{}

type AllocationResponse struct {
	Allocation blueprint.Allocation `json:"allocation"`
}

type BlueprintResponse struct {
	Blueprint service.BlueprintView `json:"blueprint"`
}

type SetGridCellRequest struct {
	PlanID string `json:"plan_id"`
	Unit   string `json:"unit"`
	Column string `json:"column"`
	Value  int    `json:"value"`
}

type SetGridCellResponse struct {
	Report blueprint.Report `json:"report"`
}

type ReconcileResponse struct {
	Report blueprint.Report `json:"report"`
}

type ExportRequest struct {
	PlanID string `json:"plan_id"`
	Format string `json:"format"`
}

type ExportResponse struct {
	Document export.Document `json:"document"`
}
