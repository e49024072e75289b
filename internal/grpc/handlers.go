package grpc

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/godilite/exam-blueprint/internal/blueprint"
	"github.com/godilite/exam-blueprint/internal/export"
	"github.com/godilite/exam-blueprint/internal/service"
	"github.com/godilite/exam-blueprint/pkg/apportion"
	"github.com/godilite/exam-blueprint/pkg/cache"
)

const (
	defaultCacheDuration = 10 * time.Minute
	defaultGRPCTimeout   = 10 * time.Second
)

const cacheKeyAllocation = "grpc:allocation:"

func allocationKey(planID string) string {
	return cacheKeyAllocation + planID
}

type GRPCHandlers struct {
	blueprints BlueprintService
	cache      Cacher
	logger     *zap.Logger
	sfGroup    singleflight.Group
	cacheTTL   time.Duration

	// fillMu is held shared by allocation reads and exclusively by
	// eviction, so a fill never lands after its plan was deleted.
	fillMu sync.RWMutex
}

var _ BlueprintServer = (*GRPCHandlers)(nil)

// NewGRPCHandlers initializes the gRPC handlers. A nil cache disables caching.
func NewGRPCHandlers(blueprints BlueprintService, c Cacher, logger *zap.Logger, ttl time.Duration) *GRPCHandlers {
	if blueprints == nil {
		panic("nil BlueprintService provided to NewGRPCHandlers")
	}
	if c == nil {
		c = cache.Noop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = defaultCacheDuration
	}
	return &GRPCHandlers{
		blueprints: blueprints,
		cache:      c,
		logger:     logger.Named("grpc-handler"),
		cacheTTL:   ttl,
	}
}

func requirePlanID(id string) error {
	if strings.TrimSpace(id) == "" {
		return status.Error(codes.InvalidArgument, "plan_id is required")
	}
	return nil
}

func (s *GRPCHandlers) handleError(ctx context.Context, op string, err error) error {
	switch ctx.Err() {
	case context.Canceled:
		s.logger.Warn("request canceled", zap.String("op", op))
		return status.Error(codes.Canceled, "request canceled")
	case context.DeadlineExceeded:
		s.logger.Warn("request timeout", zap.String("op", op))
		return status.Error(codes.DeadlineExceeded, "request timed out")
	}

	switch {
	case errors.Is(err, apportion.ErrInvalidInput),
		errors.Is(err, service.ErrInvalidPlan),
		errors.Is(err, service.ErrInvalidCell),
		errors.Is(err, export.ErrUnknownFormat):
		s.logger.Info("invalid argument", zap.String("op", op), zap.Error(err))
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, service.ErrPlanNotFound):
		s.logger.Info("plan not found", zap.String("op", op))
		return status.Error(codes.NotFound, "plan not found")
	case errors.Is(err, service.ErrStorageFailure):
		s.logger.Error("storage failure", zap.String("op", op), zap.Error(err))
		return status.Error(codes.Internal, "database error")
	default:
		s.logger.Error("unexpected error", zap.String("op", op), zap.Error(err))
		return status.Errorf(codes.Internal, "%s failed: %v", op, err)
	}
}

func (s *GRPCHandlers) Allocate(ctx context.Context, req *AllocateRequest) (*AllocateResponse, error) {
	shares, err := s.blueprints.Allocate(ctx, req.Categories, req.Budget)
	if err != nil {
		return nil, s.handleError(ctx, "Allocate", err)
	}
	return &AllocateResponse{Shares: shares, Total: apportion.Total(shares)}, nil
}

func (s *GRPCHandlers) CreatePlan(ctx context.Context, req *CreatePlanRequest) (*PlanResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultGRPCTimeout)
	defer cancel()

	plan, err := s.blueprints.CreatePlan(ctx, req.Plan)
	if err != nil {
		return nil, s.handleError(ctx, "CreatePlan", err)
	}
	return &PlanResponse{Plan: plan}, nil
}

func (s *GRPCHandlers) GetPlan(ctx context.Context, req *PlanRequest) (*PlanResponse, error) {
	if err := requirePlanID(req.PlanID); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultGRPCTimeout)
	defer cancel()

	plan, err := s.blueprints.GetPlan(ctx, req.PlanID)
	if err != nil {
		return nil, s.handleError(ctx, "GetPlan", err)
	}
	return &PlanResponse{Plan: plan}, nil
}

func (s *GRPCHandlers) ListPlans(ctx context.Context, _ *ListPlansRequest) (*ListPlansResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultGRPCTimeout)
	defer cancel()

	plans, err := s.blueprints.ListPlans(ctx)
	if err != nil {
		return nil, s.handleError(ctx, "ListPlans", err)
	}
	return &ListPlansResponse{Plans: plans}, nil
}

func (s *GRPCHandlers) DeletePlan(ctx context.Context, req *PlanRequest) (*DeletePlanResponse, error) {
	if err := requirePlanID(req.PlanID); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultGRPCTimeout)
	defer cancel()

	if err := s.blueprints.DeletePlan(ctx, req.PlanID); err != nil {
		return nil, s.handleError(ctx, "DeletePlan", err)
	}
	s.evictAllocation(ctx, req.PlanID)
	return &DeletePlanResponse{}, nil
}

// GetAllocation is served from the cache. Plans never change after creation,
// so a cached allocation stays valid until the plan is deleted.
func (s *GRPCHandlers) GetAllocation(ctx context.Context, req *PlanRequest) (*AllocationResponse, error) {
	if err := requirePlanID(req.PlanID); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultGRPCTimeout)
	defer cancel()

	s.fillMu.RLock()
	alloc, err := FindAndCache(ctx, s.cache, &s.sfGroup, allocationKey(req.PlanID), s.cacheTTL, s.logger,
		func(fetchCtx context.Context) (blueprint.Allocation, error) {
			return s.blueprints.GetAllocation(fetchCtx, req.PlanID)
		})
	s.fillMu.RUnlock()
	if err != nil {
		return nil, s.handleError(ctx, "GetAllocation", err)
	}
	return &AllocationResponse{Allocation: alloc}, nil
}

// evictAllocation waits for in-flight fills, then drops the cached
// allocation. Callers delete the plan first.
func (s *GRPCHandlers) evictAllocation(ctx context.Context, id string) {
	s.fillMu.Lock()
	defer s.fillMu.Unlock()

	key := allocationKey(id)
	s.sfGroup.Forget(key)
	if err := s.cache.Delete(ctx, key); err != nil {
		s.logger.Warn("failed to evict cached allocation", zap.String("plan_id", id), zap.Error(err))
	}
}

func (s *GRPCHandlers) GetBlueprint(ctx context.Context, req *PlanRequest) (*BlueprintResponse, error) {
	if err := requirePlanID(req.PlanID); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultGRPCTimeout)
	defer cancel()

	view, err := s.blueprints.GetBlueprint(ctx, req.PlanID)
	if err != nil {
		return nil, s.handleError(ctx, "GetBlueprint", err)
	}
	return &BlueprintResponse{Blueprint: view}, nil
}

func (s *GRPCHandlers) SetGridCell(ctx context.Context, req *SetGridCellRequest) (*SetGridCellResponse, error) {
	if err := requirePlanID(req.PlanID); err != nil {
		return nil, err
	}
	if req.Unit == "" || req.Column == "" {
		return nil, status.Error(codes.InvalidArgument, "unit and column are required")
	}

	ctx, cancel := context.WithTimeout(ctx, defaultGRPCTimeout)
	defer cancel()

	if err := s.blueprints.SetGridCell(ctx, req.PlanID, req.Unit, req.Column, req.Value); err != nil {
		return nil, s.handleError(ctx, "SetGridCell", err)
	}
	report, err := s.blueprints.Reconcile(ctx, req.PlanID)
	if err != nil {
		return nil, s.handleError(ctx, "SetGridCell", err)
	}
	return &SetGridCellResponse{Report: report}, nil
}

func (s *GRPCHandlers) Reconcile(ctx context.Context, req *PlanRequest) (*ReconcileResponse, error) {
	if err := requirePlanID(req.PlanID); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultGRPCTimeout)
	defer cancel()

	report, err := s.blueprints.Reconcile(ctx, req.PlanID)
	if err != nil {
		return nil, s.handleError(ctx, "Reconcile", err)
	}
	return &ReconcileResponse{Report: report}, nil
}

func (s *GRPCHandlers) ExportBlueprint(ctx context.Context, req *ExportRequest) (*ExportResponse, error) {
	if err := requirePlanID(req.PlanID); err != nil {
		return nil, err
	}
	format, err := export.ParseFormat(req.Format)
	if err != nil {
		return nil, s.handleError(ctx, "ExportBlueprint", err)
	}

	ctx, cancel := context.WithTimeout(ctx, defaultGRPCTimeout)
	defer cancel()

	doc, err := s.blueprints.Export(ctx, req.PlanID, format)
	if err != nil {
		return nil, s.handleError(ctx, "ExportBlueprint", err)
	}
	return &ExportResponse{Document: doc}, nil
}
