package projects

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ridgeline-pm/ridgeline/internal/platform/db"
	"github.com/ridgeline-pm/ridgeline/internal/shared"
)

// ErrDuplicateApprover indicates the (project, user, type) row exists.
var ErrDuplicateApprover = errors.New("projects: approver already assigned")

// ErrDuplicateMember indicates the user is already assigned.
var ErrDuplicateMember = errors.New("projects: member already assigned")

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const projectColumns = `id, name, code, description, status, owner_id, start_date, end_date, created_at, updated_at`

func scanProject(row pgx.Row) (Project, error) {
	var p Project
	var status string
	if err := row.Scan(&p.ID, &p.Name, &p.Code, &p.Description, &status, &p.OwnerID, &p.StartDate, &p.EndDate, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return Project{}, err
	}
	p.Status = Status(status)
	return p, nil
}

// ListAll returns every project ordered by creation.
func (r *Repository) ListAll(ctx context.Context) ([]Project, error) {
	return r.queryProjects(ctx, `SELECT `+projectColumns+` FROM projects ORDER BY created_at DESC`)
}

// ListVisible returns projects the user owns or is assigned to.
func (r *Repository) ListVisible(ctx context.Context, userID int64) ([]Project, error) {
	return r.queryProjects(ctx, `SELECT `+projectColumns+` FROM projects p
WHERE p.owner_id=$1 OR EXISTS (SELECT 1 FROM project_members m WHERE m.project_id=p.id AND m.user_id=$1)
ORDER BY p.created_at DESC`, userID)
}

func (r *Repository) queryProjects(ctx context.Context, sql string, args ...any) ([]Project, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var projects []Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// Get fetches a project by id.
func (r *Repository) Get(ctx context.Context, id int64) (Project, error) {
	p, err := scanProject(r.pool.QueryRow(ctx, `SELECT `+projectColumns+` FROM projects WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Project{}, shared.ErrNotFound
		}
		return Project{}, err
	}
	return p, nil
}

// Create inserts a project.
func (r *Repository) Create(ctx context.Context, p Project) (Project, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO projects (name, code, description, status, owner_id, start_date, end_date, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW()) RETURNING `+projectColumns,
		p.Name, p.Code, p.Description, string(p.Status), p.OwnerID, p.StartDate, p.EndDate)
	return scanProject(row)
}

// Update modifies mutable project fields.
func (r *Repository) Update(ctx context.Context, p Project) (Project, error) {
	row := r.pool.QueryRow(ctx, `UPDATE projects SET name=$2, description=$3, status=$4, start_date=$5, end_date=$6, updated_at=NOW()
WHERE id=$1 RETURNING `+projectColumns,
		p.ID, p.Name, p.Description, string(p.Status), p.StartDate, p.EndDate)
	updated, err := scanProject(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Project{}, shared.ErrNotFound
		}
		return Project{}, err
	}
	return updated, nil
}

// Delete removes a project.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM projects WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// IsMember reports whether the user is assigned to the project.
func (r *Repository) IsMember(ctx context.Context, projectID, userID int64) (bool, error) {
	var assigned bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM project_members WHERE project_id=$1 AND user_id=$2)`,
		projectID, userID).Scan(&assigned)
	return assigned, err
}

// ListMembers returns assignments for a project.
func (r *Repository) ListMembers(ctx context.Context, projectID int64) ([]Member, error) {
	rows, err := r.pool.Query(ctx, `SELECT project_id, user_id, position, created_at FROM project_members WHERE project_id=$1 ORDER BY created_at`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var members []Member
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.ProjectID, &m.UserID, &m.Position, &m.CreatedAt); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// AddMember assigns a user to the project.
func (r *Repository) AddMember(ctx context.Context, m Member) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO project_members (project_id, user_id, position, created_at) VALUES ($1, $2, $3, NOW())`,
		m.ProjectID, m.UserID, m.Position)
	if db.IsUniqueViolation(err) {
		return ErrDuplicateMember
	}
	return err
}

// RemoveMember removes an assignment.
func (r *Repository) RemoveMember(ctx context.Context, projectID, userID int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM project_members WHERE project_id=$1 AND user_id=$2`, projectID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// IsApprover reports the overlay fact for one workflow.
func (r *Repository) IsApprover(ctx context.Context, projectID, userID int64, approvalType ApprovalType) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM project_approvers WHERE project_id=$1 AND user_id=$2 AND approval_type=$3)`,
		projectID, userID, string(approvalType)).Scan(&ok)
	return ok, err
}

// ListApprovers returns overlay assignments for a project.
func (r *Repository) ListApprovers(ctx context.Context, projectID int64) ([]Approver, error) {
	rows, err := r.pool.Query(ctx, `SELECT project_id, user_id, approval_type, granted_by, created_at
FROM project_approvers WHERE project_id=$1 ORDER BY created_at`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var approvers []Approver
	for rows.Next() {
		var a Approver
		var approvalType string
		if err := rows.Scan(&a.ProjectID, &a.UserID, &approvalType, &a.GrantedBy, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.ApprovalType = ApprovalType(approvalType)
		approvers = append(approvers, a)
	}
	return approvers, rows.Err()
}

// AddApprover inserts an overlay row. The table carries a unique
// constraint on (project_id, user_id, approval_type).
func (r *Repository) AddApprover(ctx context.Context, a Approver) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO project_approvers (project_id, user_id, approval_type, granted_by, created_at)
VALUES ($1, $2, $3, $4, NOW())`, a.ProjectID, a.UserID, string(a.ApprovalType), a.GrantedBy)
	if db.IsUniqueViolation(err) {
		return ErrDuplicateApprover
	}
	return err
}

// RemoveApprover revokes an overlay row.
func (r *Repository) RemoveApprover(ctx context.Context, projectID, userID int64, approvalType ApprovalType) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM project_approvers WHERE project_id=$1 AND user_id=$2 AND approval_type=$3`,
		projectID, userID, string(approvalType))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
