package scope

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

const itemColumns = `id, project_id, title, description, category, unit, quantity, unit_cost, total_cost, status, created_by, created_at, updated_at`

func scanItem(row pgx.Row) (Item, error) {
	var i Item
	var status string
	if err := row.Scan(&i.ID, &i.ProjectID, &i.Title, &i.Description, &i.Category, &i.Unit, &i.Quantity, &i.UnitCost, &i.TotalCost, &status, &i.CreatedBy, &i.CreatedAt, &i.UpdatedAt); err != nil {
		return Item{}, err
	}
	i.Status = Status(status)
	return i, nil
}

// ListByProject returns scope items for a project.
func (r *Repository) ListByProject(ctx context.Context, projectID int64) ([]Item, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+itemColumns+` FROM scope_items WHERE project_id=$1 ORDER BY id`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Get fetches one item.
func (r *Repository) Get(ctx context.Context, id int64) (Item, error) {
	item, err := scanItem(r.pool.QueryRow(ctx, `SELECT `+itemColumns+` FROM scope_items WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Item{}, shared.ErrNotFound
		}
		return Item{}, err
	}
	return item, nil
}

// Create inserts an item.
func (r *Repository) Create(ctx context.Context, i Item) (Item, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO scope_items (project_id, title, description, category, unit, quantity, unit_cost, total_cost, status, created_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW()) RETURNING `+itemColumns,
		i.ProjectID, i.Title, i.Description, i.Category, i.Unit, i.Quantity, i.UnitCost, i.TotalCost, string(i.Status), i.CreatedBy)
	return scanItem(row)
}

// Update modifies an item.
func (r *Repository) Update(ctx context.Context, i Item) (Item, error) {
	row := r.pool.QueryRow(ctx, `UPDATE scope_items SET title=$2, description=$3, category=$4, unit=$5, quantity=$6, unit_cost=$7, total_cost=$8, status=$9, updated_at=NOW()
WHERE id=$1 RETURNING `+itemColumns,
		i.ID, i.Title, i.Description, i.Category, i.Unit, i.Quantity, i.UnitCost, i.TotalCost, string(i.Status))
	updated, err := scanItem(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Item{}, shared.ErrNotFound
		}
		return Item{}, err
	}
	return updated, nil
}

// Delete removes an item.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM scope_items WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
