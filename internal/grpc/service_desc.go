package grpc

import (
	"context"

	"google.golang.org/grpc"
)

const ServiceName = "blueprint.v1.BlueprintService"

// BlueprintServer is the server side of blueprint.v1.BlueprintService.
type BlueprintServer interface {
	Allocate(context.Context, *AllocateRequest) (*AllocateResponse, error)
	CreatePlan(context.Context, *CreatePlanRequest) (*PlanResponse, error)
	GetPlan(context.Context, *PlanRequest) (*PlanResponse, error)
	ListPlans(context.Context, *ListPlansRequest) (*ListPlansResponse, error)
	DeletePlan(context.Context, *PlanRequest) (*DeletePlanResponse, error)
	GetAllocation(context.Context, *PlanRequest) (*AllocationResponse, error)
	GetBlueprint(context.Context, *PlanRequest) (*BlueprintResponse, error)
	SetGridCell(context.Context, *SetGridCellRequest) (*SetGridCellResponse, error)
	Reconcile(context.Context, *PlanRequest) (*ReconcileResponse, error)
	ExportBlueprint(context.Context, *ExportRequest) (*ExportResponse, error)
}

func unaryMethod[Req, Resp any](name string, call func(BlueprintServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(BlueprintServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/" + ServiceName + "/" + name,
			}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(srv.(BlueprintServer), ctx, req.(*Req))
			})
		},
	}
}

// ServiceDesc describes blueprint.v1.BlueprintService. Messages are plain
// structs carried by the JSON codec.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*BlueprintServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod("Allocate", BlueprintServer.Allocate),
		unaryMethod("CreatePlan", BlueprintServer.CreatePlan),
		unaryMethod("GetPlan", BlueprintServer.GetPlan),
		unaryMethod("ListPlans", BlueprintServer.ListPlans),
		unaryMethod("DeletePlan", BlueprintServer.DeletePlan),
		unaryMethod("GetAllocation", BlueprintServer.GetAllocation),
		unaryMethod("GetBlueprint", BlueprintServer.GetBlueprint),
		unaryMethod("SetGridCell", BlueprintServer.SetGridCell),
		unaryMethod("Reconcile", BlueprintServer.Reconcile),
		unaryMethod("ExportBlueprint", BlueprintServer.ExportBlueprint),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "blueprint/v1/blueprint.proto",
}
