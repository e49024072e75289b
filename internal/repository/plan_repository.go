package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/godilite/exam-blueprint/internal/repository/models"
	"github.com/godilite/exam-blueprint/pkg/database"
)

// createdAtLayout is fixed width so created_at sorts chronologically as text.
const createdAtLayout = "2006-01-02T15:04:05.000000000Z07:00"

var ErrPlanNotFound = errors.New("plan not found")

var schema = []string{
	`CREATE TABLE IF NOT EXISTS plans (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		total_marks INTEGER NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS plan_sections (
		plan_id TEXT NOT NULL,
		ord INTEGER NOT NULL,
		name TEXT NOT NULL,
		weight DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (plan_id, ord)
	)`,
	`CREATE TABLE IF NOT EXISTS plan_domains (
		plan_id TEXT NOT NULL,
		ord INTEGER NOT NULL,
		name TEXT NOT NULL,
		code TEXT NOT NULL,
		PRIMARY KEY (plan_id, ord)
	)`,
	`CREATE TABLE IF NOT EXISTS plan_section_domains (
		plan_id TEXT NOT NULL,
		section_ord INTEGER NOT NULL,
		domain_ord INTEGER NOT NULL,
		weight DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (plan_id, section_ord, domain_ord)
	)`,
	`CREATE TABLE IF NOT EXISTS plan_units (
		plan_id TEXT NOT NULL,
		ord INTEGER NOT NULL,
		name TEXT NOT NULL,
		score DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (plan_id, ord)
	)`,
	`CREATE TABLE IF NOT EXISTS grid_cells (
		plan_id TEXT NOT NULL,
		unit TEXT NOT NULL,
		column_label TEXT NOT NULL,
		value INTEGER NOT NULL,
		PRIMARY KEY (plan_id, unit, column_label)
	)`,
}

// PlanRepository stores plans and their grid cells.
type PlanRepository struct {
	db     *sql.DB
	driver string
}

// NewPlanRepository wraps db. driver selects the placeholder style.
func NewPlanRepository(db *sql.DB, driver string) *PlanRepository {
	if driver == "" {
		driver = database.DriverSQLite
	}
	return &PlanRepository{db: db, driver: driver}
}

func (r *PlanRepository) q(query string) string {
	return database.Rebind(r.driver, query)
}

// Migrate creates the tables if they do not exist.
func (r *PlanRepository) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// CreatePlan stores a plan and its definition in one transaction.
func (r *PlanRepository) CreatePlan(ctx context.Context, p models.PlanRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin CreatePlan: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		r.q(`INSERT INTO plans (id, name, total_marks, created_at) VALUES (?, ?, ?, ?)`),
		p.ID, p.Name, p.TotalMarks, p.CreatedAt.UTC().Format(createdAtLayout),
	); err != nil {
		return fmt.Errorf("insert plan: %w", err)
	}

	for i, s := range p.Sections {
		if _, err := tx.ExecContext(ctx,
			r.q(`INSERT INTO plan_sections (plan_id, ord, name, weight) VALUES (?, ?, ?, ?)`),
			p.ID, i, s.Name, s.Weight,
		); err != nil {
			return fmt.Errorf("insert section %q: %w", s.Name, err)
		}
		for j, w := range s.DomainWeights {
			if _, err := tx.ExecContext(ctx,
				r.q(`INSERT INTO plan_section_domains (plan_id, section_ord, domain_ord, weight) VALUES (?, ?, ?, ?)`),
				p.ID, i, j, w,
			); err != nil {
				return fmt.Errorf("insert section %q domain weight: %w", s.Name, err)
			}
		}
	}

	for i, d := range p.Domains {
		if _, err := tx.ExecContext(ctx,
			r.q(`INSERT INTO plan_domains (plan_id, ord, name, code) VALUES (?, ?, ?, ?)`),
			p.ID, i, d.Name, d.Code,
		); err != nil {
			return fmt.Errorf("insert domain %q: %w", d.Name, err)
		}
	}

	for i, u := range p.Units {
		if _, err := tx.ExecContext(ctx,
			r.q(`INSERT INTO plan_units (plan_id, ord, name, score) VALUES (?, ?, ?, ?)`),
			p.ID, i, u.Name, u.Score,
		); err != nil {
			return fmt.Errorf("insert unit %q: %w", u.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit CreatePlan: %w", err)
	}
	return nil
}

// GetPlan loads a plan with its sections, domains and units in stored order.
func (r *PlanRepository) GetPlan(ctx context.Context, id string) (models.PlanRecord, error) {
	var (
		p       models.PlanRecord
		created string
	)
	err := r.db.QueryRowContext(ctx,
		r.q(`SELECT id, name, total_marks, created_at FROM plans WHERE id = ?`), id,
	).Scan(&p.ID, &p.Name, &p.TotalMarks, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return models.PlanRecord{}, fmt.Errorf("%w: %s", ErrPlanNotFound, id)
	}
	if err != nil {
		return models.PlanRecord{}, fmt.Errorf("query GetPlan: %w", err)
	}
	if p.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return models.PlanRecord{}, fmt.Errorf("parse created_at: %w", err)
	}

	if p.Domains, err = r.domains(ctx, id); err != nil {
		return models.PlanRecord{}, err
	}
	if p.Sections, err = r.sections(ctx, id, len(p.Domains)); err != nil {
		return models.PlanRecord{}, err
	}
	if p.Units, err = r.units(ctx, id); err != nil {
		return models.PlanRecord{}, err
	}
	return p, nil
}

func (r *PlanRepository) domains(ctx context.Context, id string) ([]models.DomainRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		r.q(`SELECT name, code FROM plan_domains WHERE plan_id = ? ORDER BY ord`), id)
	if err != nil {
		return nil, fmt.Errorf("query domains: %w", err)
	}
	defer rows.Close()

	var out []models.DomainRecord
	for rows.Next() {
		var d models.DomainRecord
		if err := rows.Scan(&d.Name, &d.Code); err != nil {
			return nil, fmt.Errorf("scan domain row: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate domains: %w", err)
	}
	return out, nil
}

func (r *PlanRepository) sections(ctx context.Context, id string, domainCount int) ([]models.SectionRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		r.q(`SELECT name, weight FROM plan_sections WHERE plan_id = ? ORDER BY ord`), id)
	if err != nil {
		return nil, fmt.Errorf("query sections: %w", err)
	}
	defer rows.Close()

	var out []models.SectionRecord
	for rows.Next() {
		s := models.SectionRecord{DomainWeights: make([]float64, domainCount)}
		if err := rows.Scan(&s.Name, &s.Weight); err != nil {
			return nil, fmt.Errorf("scan section row: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sections: %w", err)
	}

	wrows, err := r.db.QueryContext(ctx,
		r.q(`SELECT section_ord, domain_ord, weight FROM plan_section_domains
			WHERE plan_id = ? ORDER BY section_ord, domain_ord`), id)
	if err != nil {
		return nil, fmt.Errorf("query section domains: %w", err)
	}
	defer wrows.Close()

	for wrows.Next() {
		var (
			si, di int
			w      float64
		)
		if err := wrows.Scan(&si, &di, &w); err != nil {
			return nil, fmt.Errorf("scan section domain row: %w", err)
		}
		if si < 0 || si >= len(out) || di < 0 || di >= domainCount {
			return nil, fmt.Errorf("section domain weight (%d, %d) out of range", si, di)
		}
		out[si].DomainWeights[di] = w
	}
	if err := wrows.Err(); err != nil {
		return nil, fmt.Errorf("iterate section domains: %w", err)
	}
	return out, nil
}

func (r *PlanRepository) units(ctx context.Context, id string) ([]models.UnitRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		r.q(`SELECT name, score FROM plan_units WHERE plan_id = ? ORDER BY ord`), id)
	if err != nil {
		return nil, fmt.Errorf("query units: %w", err)
	}
	defer rows.Close()

	var out []models.UnitRecord
	for rows.Next() {
		var u models.UnitRecord
		if err := rows.Scan(&u.Name, &u.Score); err != nil {
			return nil, fmt.Errorf("scan unit row: %w", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate units: %w", err)
	}
	return out, nil
}

// ListPlans returns every plan, oldest first.
func (r *PlanRepository) ListPlans(ctx context.Context) ([]models.PlanSummary, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, total_marks, created_at FROM plans ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("query ListPlans: %w", err)
	}
	defer rows.Close()

	var out []models.PlanSummary
	for rows.Next() {
		var (
			p       models.PlanSummary
			created string
		)
		if err := rows.Scan(&p.ID, &p.Name, &p.TotalMarks, &created); err != nil {
			return nil, fmt.Errorf("scan ListPlans row: %w", err)
		}
		if p.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ListPlans: %w", err)
	}
	return out, nil
}

// DeletePlan removes a plan, its definition and its grid.
func (r *PlanRepository) DeletePlan(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin DeletePlan: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, r.q(`DELETE FROM plans WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete plan: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete plan: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrPlanNotFound, id)
	}

	for _, table := range []string{"plan_sections", "plan_domains", "plan_section_domains", "plan_units", "grid_cells"} {
		if _, err := tx.ExecContext(ctx, r.q(`DELETE FROM `+table+` WHERE plan_id = ?`), id); err != nil {
			return fmt.Errorf("delete %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit DeletePlan: %w", err)
	}
	return nil
}

// UpsertGridCell writes one grid value, replacing any previous value.
func (r *PlanRepository) UpsertGridCell(ctx context.Context, planID string, cell models.GridCell) error {
	const query = `
		INSERT INTO grid_cells (plan_id, unit, column_label, value)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (plan_id, unit, column_label) DO UPDATE SET value = excluded.value
	`
	if _, err := r.db.ExecContext(ctx, r.q(query), planID, cell.Unit, cell.Column, cell.Value); err != nil {
		return fmt.Errorf("upsert grid cell: %w", err)
	}
	return nil
}

// GetGridCells returns every stored cell of a plan.
func (r *PlanRepository) GetGridCells(ctx context.Context, planID string) ([]models.GridCell, error) {
	rows, err := r.db.QueryContext(ctx,
		r.q(`SELECT unit, column_label, value FROM grid_cells WHERE plan_id = ? ORDER BY unit, column_label`), planID)
	if err != nil {
		return nil, fmt.Errorf("query GetGridCells: %w", err)
	}
	defer rows.Close()

	var out []models.GridCell
	for rows.Next() {
		var c models.GridCell
		if err := rows.Scan(&c.Unit, &c.Column, &c.Value); err != nil {
			return nil, fmt.Errorf("scan GetGridCells row: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate GetGridCells: %w", err)
	}
	return out, nil
}
