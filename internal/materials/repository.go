package materials

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ridgeline-pm/ridgeline/internal/shared"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const specColumns = `id, ref, project_id, name, description, manufacturer, model, unit, quantity, unit_price, total_price, status, submitted_by, created_at, updated_at`

func scanSpec(row pgx.Row) (Spec, error) {
	var s Spec
	var status string
	if err := row.Scan(&s.ID, &s.Ref, &s.ProjectID, &s.Name, &s.Description, &s.Manufacturer, &s.Model, &s.Unit, &s.Quantity, &s.UnitPrice, &s.TotalPrice, &status, &s.SubmittedBy, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return Spec{}, err
	}
	s.Status = Status(status)
	return s, nil
}

// ListByProject returns specs for a project.
func (r *Repository) ListByProject(ctx context.Context, projectID int64) ([]Spec, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+specColumns+` FROM material_specs WHERE project_id=$1 ORDER BY id`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var specs []Spec
	for rows.Next() {
		s, err := scanSpec(rows)
		if err != nil {
			return nil, err
		}
		specs = append(specs, s)
	}
	return specs, rows.Err()
}

// Get fetches one spec.
func (r *Repository) Get(ctx context.Context, id int64) (Spec, error) {
	s, err := scanSpec(r.pool.QueryRow(ctx, `SELECT `+specColumns+` FROM material_specs WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Spec{}, shared.ErrNotFound
		}
		return Spec{}, err
	}
	return s, nil
}

// Create inserts a spec.
func (r *Repository) Create(ctx context.Context, s Spec) (Spec, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO material_specs (ref, project_id, name, description, manufacturer, model, unit, quantity, unit_price, total_price, status, submitted_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW()) RETURNING `+specColumns,
		s.Ref, s.ProjectID, s.Name, s.Description, s.Manufacturer, s.Model, s.Unit, s.Quantity, s.UnitPrice, s.TotalPrice, string(s.Status), s.SubmittedBy)
	return scanSpec(row)
}

// Update modifies a spec.
func (r *Repository) Update(ctx context.Context, s Spec) (Spec, error) {
	row := r.pool.QueryRow(ctx, `UPDATE material_specs SET name=$2, description=$3, manufacturer=$4, model=$5, unit=$6, quantity=$7, unit_price=$8, total_price=$9, status=$10, updated_at=NOW()
WHERE id=$1 RETURNING `+specColumns,
		s.ID, s.Name, s.Description, s.Manufacturer, s.Model, s.Unit, s.Quantity, s.UnitPrice, s.TotalPrice, string(s.Status))
	updated, err := scanSpec(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Spec{}, shared.ErrNotFound
		}
		return Spec{}, err
	}
	return updated, nil
}

// Delete removes a spec.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM material_specs WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
