package drawings

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

const drawingColumns = `id, ref, project_id, number, title, discipline, revision, status, file_url, submitted_by, created_at, updated_at`

func scanDrawing(row pgx.Row) (Drawing, error) {
	var d Drawing
	var status string
	if err := row.Scan(&d.ID, &d.Ref, &d.ProjectID, &d.Number, &d.Title, &d.Discipline, &d.Revision, &status, &d.FileURL, &d.SubmittedBy, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return Drawing{}, err
	}
	d.Status = Status(status)
	return d, nil
}

// ListByProject returns drawings for a project, newest first.
func (r *Repository) ListByProject(ctx context.Context, projectID int64) ([]Drawing, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+drawingColumns+` FROM shop_drawings WHERE project_id=$1 ORDER BY id DESC`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var drawings []Drawing
	for rows.Next() {
		d, err := scanDrawing(rows)
		if err != nil {
			return nil, err
		}
		drawings = append(drawings, d)
	}
	return drawings, rows.Err()
}

// Get fetches one drawing.
func (r *Repository) Get(ctx context.Context, id int64) (Drawing, error) {
	d, err := scanDrawing(r.pool.QueryRow(ctx, `SELECT `+drawingColumns+` FROM shop_drawings WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Drawing{}, shared.ErrNotFound
		}
		return Drawing{}, err
	}
	return d, nil
}

// Create inserts a drawing.
func (r *Repository) Create(ctx context.Context, d Drawing) (Drawing, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO shop_drawings (ref, project_id, number, title, discipline, revision, status, file_url, submitted_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW()) RETURNING `+drawingColumns,
		d.Ref, d.ProjectID, d.Number, d.Title, d.Discipline, d.Revision, string(d.Status), d.FileURL, d.SubmittedBy)
	return scanDrawing(row)
}

// Update modifies a drawing.
func (r *Repository) Update(ctx context.Context, d Drawing) (Drawing, error) {
	row := r.pool.QueryRow(ctx, `UPDATE shop_drawings SET number=$2, title=$3, discipline=$4, revision=$5, status=$6, file_url=$7, updated_at=NOW()
WHERE id=$1 RETURNING `+drawingColumns,
		d.ID, d.Number, d.Title, d.Discipline, d.Revision, string(d.Status), d.FileURL)
	updated, err := scanDrawing(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Drawing{}, shared.ErrNotFound
		}
		return Drawing{}, err
	}
	return updated, nil
}

// Delete removes a drawing.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM shop_drawings WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
