package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/godilite/exam-blueprint/internal/blueprint"
	"github.com/godilite/exam-blueprint/internal/export"
	"github.com/godilite/exam-blueprint/internal/repository"
	"github.com/godilite/exam-blueprint/internal/repository/models"
	"github.com/godilite/exam-blueprint/pkg/apportion"
	"github.com/godilite/exam-blueprint/pkg/tracing"
)

const (
	dbTimeout  = 1 * time.Second
	tracerName = "github.com/godilite/exam-blueprint/internal/service"
)

var (
	ErrPlanNotFound   = errors.New("plan not found")
	ErrStorageFailure = errors.New("storage failure")
	ErrInvalidPlan    = errors.New("invalid plan")
	ErrInvalidCell    = errors.New("invalid grid cell")
)

// BlueprintService manages exam plans and computes their blueprints.
type BlueprintService struct {
	storage PlanRepository
	logger  *zap.Logger
	now     func() time.Time
	newID   func() string
}

// NewBlueprintService creates a new BlueprintService instance.
func NewBlueprintService(storage PlanRepository, logger *zap.Logger) *BlueprintService {
	if storage == nil {
		panic("storage must not be nil")
	}
	if logger == nil {
		l, _ := zap.NewProduction()
		logger = l
	}
	return &BlueprintService{
		storage: storage,
		logger:  logger,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

func (s *BlueprintService) storageErr(err error) error {
	if errors.Is(err, repository.ErrPlanNotFound) {
		return fmt.Errorf("%w: %v", ErrPlanNotFound, err)
	}
	return fmt.Errorf("%w: %v", ErrStorageFailure, err)
}

// Allocate runs the engine on a single ad-hoc group.
func (s *BlueprintService) Allocate(ctx context.Context, categories []apportion.Category, budget int) (shares []apportion.Share, err error) {
	_, span := tracing.Start(ctx, tracerName, "BlueprintService.Allocate",
		attribute.Int("budget", budget),
		attribute.Int("categories", len(categories)))
	defer func() { tracing.End(span, err) }()

	shares, err = apportion.Allocate(categories, budget)
	if err != nil {
		s.logger.Debug("allocation rejected", zap.Int("budget", budget), zap.Error(err))
		return nil, err
	}
	return shares, nil
}

// CreatePlan validates the plan by computing its allocation once, then
// stores it under a new ID.
func (s *BlueprintService) CreatePlan(ctx context.Context, in PlanInput) (plan Plan, err error) {
	ctx, span := tracing.Start(ctx, tracerName, "BlueprintService.CreatePlan")
	defer func() { tracing.End(span, err) }()

	if strings.TrimSpace(in.Name) == "" {
		return Plan{}, fmt.Errorf("%w: name is required", ErrInvalidPlan)
	}
	if _, err := blueprint.Compute(in.Input); err != nil {
		return Plan{}, fmt.Errorf("%w: %w", ErrInvalidPlan, err)
	}

	plan = Plan{
		ID:        s.newID(),
		Name:      strings.TrimSpace(in.Name),
		CreatedAt: s.now().UTC(),
		Input:     in.Input,
	}
	span.SetAttributes(attribute.String("plan.id", plan.ID))

	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if err := s.storage.CreatePlan(dbCtx, toRecord(plan)); err != nil {
		s.logger.Error("failed to store plan", zap.String("plan_id", plan.ID), zap.Error(err))
		return Plan{}, s.storageErr(err)
	}

	s.logger.Info("plan created",
		zap.String("plan_id", plan.ID),
		zap.String("name", plan.Name),
		zap.Int("total_marks", plan.Input.TotalMarks),
		zap.Int("units", len(plan.Input.Units)))

	return plan, nil
}

// GetPlan loads a stored plan.
func (s *BlueprintService) GetPlan(ctx context.Context, id string) (Plan, error) {
	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rec, err := s.storage.GetPlan(dbCtx, id)
	if err != nil {
		return Plan{}, s.storageErr(err)
	}
	return fromRecord(rec), nil
}

// ListPlans returns a summary of every stored plan.
func (s *BlueprintService) ListPlans(ctx context.Context) ([]PlanSummary, error) {
	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	recs, err := s.storage.ListPlans(dbCtx)
	if err != nil {
		return nil, s.storageErr(err)
	}

	out := make([]PlanSummary, len(recs))
	for i, r := range recs {
		out[i] = PlanSummary{ID: r.ID, Name: r.Name, TotalMarks: r.TotalMarks, CreatedAt: r.CreatedAt}
	}
	return out, nil
}

// DeletePlan removes a plan and its grid.
func (s *BlueprintService) DeletePlan(ctx context.Context, id string) error {
	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if err := s.storage.DeletePlan(dbCtx, id); err != nil {
		return s.storageErr(err)
	}
	s.logger.Info("plan deleted", zap.String("plan_id", id))
	return nil
}

// GetAllocation recomputes the three allocation levels of a stored plan.
func (s *BlueprintService) GetAllocation(ctx context.Context, id string) (alloc blueprint.Allocation, err error) {
	ctx, span := tracing.Start(ctx, tracerName, "BlueprintService.GetAllocation", attribute.String("plan.id", id))
	defer func() { tracing.End(span, err) }()

	plan, err := s.GetPlan(ctx, id)
	if err != nil {
		return blueprint.Allocation{}, err
	}
	return s.compute(plan)
}

func (s *BlueprintService) compute(plan Plan) (blueprint.Allocation, error) {
	alloc, err := blueprint.Compute(plan.Input)
	if err != nil {
		// Stored plans were validated on creation.
		s.logger.Error("stored plan no longer computes", zap.String("plan_id", plan.ID), zap.Error(err))
		return blueprint.Allocation{}, fmt.Errorf("%w: %w", ErrInvalidPlan, err)
	}
	return alloc, nil
}

// load returns a plan, its allocation and its current grid.
func (s *BlueprintService) load(ctx context.Context, id string) (Plan, blueprint.Allocation, *blueprint.Grid, error) {
	plan, err := s.GetPlan(ctx, id)
	if err != nil {
		return Plan{}, blueprint.Allocation{}, nil, err
	}
	alloc, err := s.compute(plan)
	if err != nil {
		return Plan{}, blueprint.Allocation{}, nil, err
	}

	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	cells, err := s.storage.GetGridCells(dbCtx, id)
	if err != nil {
		return Plan{}, blueprint.Allocation{}, nil, s.storageErr(err)
	}

	grid := alloc.NewGrid()
	for _, c := range cells {
		if err := grid.Set(c.Unit, c.Column, c.Value); err != nil {
			s.logger.Warn("skipping stored grid cell",
				zap.String("plan_id", id),
				zap.String("unit", c.Unit),
				zap.String("column", c.Column),
				zap.Error(err))
		}
	}
	return plan, alloc, grid, nil
}

// GetBlueprint returns the plan's allocations, current grid and
// reconciliation report.
func (s *BlueprintService) GetBlueprint(ctx context.Context, id string) (view BlueprintView, err error) {
	ctx, span := tracing.Start(ctx, tracerName, "BlueprintService.GetBlueprint", attribute.String("plan.id", id))
	defer func() { tracing.End(span, err) }()

	plan, alloc, grid, err := s.load(ctx, id)
	if err != nil {
		return BlueprintView{}, err
	}

	return BlueprintView{
		Plan:       plan,
		Allocation: alloc,
		Grid:       grid.Snapshot(),
		Report:     alloc.Reconcile(grid),
	}, nil
}

// SetGridCell stores one grid value. The cell must exist in the plan's grid
// and the value must be non-negative.
func (s *BlueprintService) SetGridCell(ctx context.Context, id, unit, column string, value int) (err error) {
	ctx, span := tracing.Start(ctx, tracerName, "BlueprintService.SetGridCell",
		attribute.String("plan.id", id),
		attribute.String("grid.unit", unit),
		attribute.String("grid.column", column))
	defer func() { tracing.End(span, err) }()

	_, _, grid, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := grid.Set(unit, column, value); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidCell, err)
	}

	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	cell := models.GridCell{Unit: unit, Column: column, Value: value}
	if err := s.storage.UpsertGridCell(dbCtx, id, cell); err != nil {
		s.logger.Error("failed to store grid cell", zap.String("plan_id", id), zap.Error(err))
		return s.storageErr(err)
	}

	s.logger.Debug("grid cell updated",
		zap.String("plan_id", id),
		zap.String("unit", unit),
		zap.String("column", column),
		zap.Int("value", value))
	return nil
}

// Reconcile compares the plan's current grid with its allocations.
func (s *BlueprintService) Reconcile(ctx context.Context, id string) (report blueprint.Report, err error) {
	ctx, span := tracing.Start(ctx, tracerName, "BlueprintService.Reconcile", attribute.String("plan.id", id))
	defer func() { tracing.End(span, err) }()

	_, alloc, grid, err := s.load(ctx, id)
	if err != nil {
		return blueprint.Report{}, err
	}

	report = alloc.Reconcile(grid)
	if !report.Consistent {
		rows, cols := report.Mismatches()
		s.logger.Info("grid differs from allocation",
			zap.String("plan_id", id),
			zap.Int("row_mismatches", len(rows)),
			zap.Int("column_mismatches", len(cols)))
	}
	span.SetAttributes(attribute.Bool("report.consistent", report.Consistent))
	return report, nil
}

// Export renders the plan's blueprint table as CSV or PDF.
func (s *BlueprintService) Export(ctx context.Context, id string, format export.Format) (doc export.Document, err error) {
	ctx, span := tracing.Start(ctx, tracerName, "BlueprintService.Export",
		attribute.String("plan.id", id),
		attribute.String("export.format", string(format)))
	defer func() { tracing.End(span, err) }()

	plan, alloc, grid, err := s.load(ctx, id)
	if err != nil {
		return export.Document{}, err
	}

	doc, err = export.Write(export.NewTable(plan.Name, alloc, grid), format, "blueprint_grid")
	if err != nil {
		return export.Document{}, err
	}

	s.logger.Info("blueprint exported",
		zap.String("plan_id", id),
		zap.String("format", string(format)),
		zap.Int("bytes", len(doc.Data)))
	return doc, nil
}
