package grpc

import (
	"context"

	"google.golang.org/grpc"

	"github.com/godilite/exam-blueprint/internal/blueprint"
	"github.com/godilite/exam-blueprint/internal/export"
	"github.com/godilite/exam-blueprint/internal/service"
	"github.com/godilite/exam-blueprint/pkg/apportion"
	"github.com/godilite/exam-blueprint/pkg/grpc/codec"
)

// Client calls blueprint.v1.BlueprintService over the JSON codec.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) invoke(ctx context.Context, method string, in, out any, opts ...grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(codec.Name)}, opts...)
	return c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...)
}

func (c *Client) Allocate(ctx context.Context, categories []apportion.Category, budget int, opts ...grpc.CallOption) ([]apportion.Share, error) {
	out := new(AllocateResponse)
	if err := c.invoke(ctx, "Allocate", &AllocateRequest{Categories: categories, Budget: budget}, out, opts...); err != nil {
		return nil, err
	}
	return out.Shares, nil
}

func (c *Client) CreatePlan(ctx context.Context, in service.PlanInput, opts ...grpc.CallOption) (service.Plan, error) {
	out := new(PlanResponse)
	if err := c.invoke(ctx, "CreatePlan", &CreatePlanRequest{Plan: in}, out, opts...); err != nil {
		return service.Plan{}, err
	}
	return out.Plan, nil
}

func (c *Client) GetPlan(ctx context.Context, id string, opts ...grpc.CallOption) (service.Plan, error) {
	out := new(PlanResponse)
	if err := c.invoke(ctx, "GetPlan", &PlanRequest{PlanID: id}, out, opts...); err != nil {
		return service.Plan{}, err
	}
	return out.Plan, nil
}

func (c *Client) ListPlans(ctx context.Context, opts ...grpc.CallOption) ([]service.PlanSummary, error) {
	out := new(ListPlansResponse)
	if err := c.invoke(ctx, "ListPlans", &ListPlansRequest{}, out, opts...); err != nil {
		return nil, err
	}
	return out.Plans, nil
}

func (c *Client) DeletePlan(ctx context.Context, id string, opts ...grpc.CallOption) error {
	return c.invoke(ctx, "DeletePlan", &PlanRequest{PlanID: id}, new(DeletePlanResponse), opts...)
}

func (c *Client) GetAllocation(ctx context.Context, id string, opts ...grpc.CallOption) (blueprint.Allocation, error) {
	out := new(AllocationResponse)
	if err := c.invoke(ctx, "GetAllocation", &PlanRequest{PlanID: id}, out, opts...); err != nil {
		return blueprint.Allocation{}, err
	}
	return out.Allocation, nil
}

func (c *Client) GetBlueprint(ctx context.Context, id string, opts ...grpc.CallOption) (service.BlueprintView, error) {
	out := new(BlueprintResponse)
	if err := c.invoke(ctx, "GetBlueprint", &PlanRequest{PlanID: id}, out, opts...); err != nil {
		return service.BlueprintView{}, err
	}
	return out.Blueprint, nil
}

// SetGridCell stores one cell and returns the updated reconciliation report.
func (c *Client) SetGridCell(ctx context.Context, id, unit, column string, value int, opts ...grpc.CallOption) (blueprint.Report, error) {
	in := &SetGridCellRequest{PlanID: id, Unit: unit, Column: column, Value: value}
	out := new(SetGridCellResponse)
	if err := c.invoke(ctx, "SetGridCell", in, out, opts...); err != nil {
		return blueprint.Report{}, err
	}
	return out.Report, nil
}

func (c *Client) Reconcile(ctx context.Context, id string, opts ...grpc.CallOption) (blueprint.Report, error) {
	out := new(ReconcileResponse)
	if err := c.invoke(ctx, "Reconcile", &PlanRequest{PlanID: id}, out, opts...); err != nil {
		return blueprint.Report{}, err
	}
	return out.Report, nil
}

func (c *Client) Export(ctx context.Context, id string, format export.Format, opts ...grpc.CallOption) (export.Document, error) {
	out := new(ExportResponse)
	if err := c.invoke(ctx, "ExportBlueprint", &ExportRequest{PlanID: id, Format: string(format)}, out, opts...); err != nil {
		return export.Document{}, err
	}
	return out.Document, nil
}
