package tasks

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

const taskColumns = `id, project_id, title, description, status, priority, assignee_id, due_date, created_by, created_at, updated_at`

func scanTask(row pgx.Row) (Task, error) {
	var t Task
	var status, priority string
	if err := row.Scan(&t.ID, &t.ProjectID, &t.Title, &t.Description, &status, &priority, &t.AssigneeID, &t.DueDate, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return Task{}, err
	}
	t.Status = Status(status)
	t.Priority = Priority(priority)
	return t, nil
}

// ListByProject returns tasks for a project.
func (r *Repository) ListByProject(ctx context.Context, projectID int64) ([]Task, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+taskColumns+` FROM tasks WHERE project_id=$1 ORDER BY id`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTasks(rows)
}

// ListByAssignee returns tasks assigned to a user across projects.
func (r *Repository) ListByAssignee(ctx context.Context, userID int64) ([]Task, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+taskColumns+` FROM tasks WHERE assignee_id=$1 ORDER BY due_date NULLS LAST, id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTasks(rows)
}

func collectTasks(rows pgx.Rows) ([]Task, error) {
	var tasks []Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// Get fetches one task.
func (r *Repository) Get(ctx context.Context, id int64) (Task, error) {
	t, err := scanTask(r.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Task{}, shared.ErrNotFound
		}
		return Task{}, err
	}
	return t, nil
}

// Create inserts a task.
func (r *Repository) Create(ctx context.Context, t Task) (Task, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO tasks (project_id, title, description, status, priority, assignee_id, due_date, created_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW()) RETURNING `+taskColumns,
		t.ProjectID, t.Title, t.Description, string(t.Status), string(t.Priority), t.AssigneeID, t.DueDate, t.CreatedBy)
	return scanTask(row)
}

// Update modifies a task.
func (r *Repository) Update(ctx context.Context, t Task) (Task, error) {
	row := r.pool.QueryRow(ctx, `UPDATE tasks SET title=$2, description=$3, status=$4, priority=$5, assignee_id=$6, due_date=$7, updated_at=NOW()
WHERE id=$1 RETURNING `+taskColumns,
		t.ID, t.Title, t.Description, string(t.Status), string(t.Priority), t.AssigneeID, t.DueDate)
	updated, err := scanTask(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Task{}, shared.ErrNotFound
		}
		return Task{}, err
	}
	return updated, nil
}

// Delete removes a task.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM tasks WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
