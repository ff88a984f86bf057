package users

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ridgeline-pm/ridgeline/internal/perm"
	"github.com/ridgeline-pm/ridgeline/internal/platform/db"
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

const userColumns = `id, email, name, password_hash, permissions, is_active, created_at, updated_at`

func scanUser(row pgx.Row) (User, error) {
	var u User
	var permissions int64
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &permissions, &u.IsActive, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return User{}, err
	}
	u.Permissions = perm.Value(permissions)
	return u, nil
}

// List returns all users ordered by id.
func (r *Repository) List(ctx context.Context) ([]User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// Get fetches a user by id.
func (r *Repository) Get(ctx context.Context, id int64) (User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, shared.ErrNotFound
		}
		return User{}, err
	}
	return u, nil
}

// GetByEmail fetches a user by email.
func (r *Repository) GetByEmail(ctx context.Context, email string) (User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email=$1`, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, shared.ErrNotFound
		}
		return User{}, err
	}
	return u, nil
}

// Create inserts a new account and returns it with generated fields.
func (r *Repository) Create(ctx context.Context, u User) (User, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO users (email, name, password_hash, permissions, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, NOW(), NOW()) RETURNING `+userColumns,
		u.Email, u.Name, u.PasswordHash, int64(u.Permissions), u.IsActive)
	created, err := scanUser(row)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return User{}, ErrEmailTaken
		}
		return User{}, err
	}
	return created, nil
}

// UpdatePermissions replaces the stored permission value with a single
// conditional update. The evaluator computes the next value; this
// compare-and-set keeps concurrent admin edits from losing updates. A
// row that exists but no longer carries old reports ErrStaleValue so the
// caller can re-read and retry.
func (r *Repository) UpdatePermissions(ctx context.Context, id int64, old, next perm.Value) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET permissions=$3, updated_at=NOW() WHERE id=$1 AND permissions=$2`,
		id, int64(old), int64(next))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id=$1)`, id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return shared.ErrNotFound
		}
		return shared.ErrStaleValue
	}
	return nil
}

// SetActive toggles the account. Deactivation zeroes the permission value
// in the same statement; the value is never deleted, only zeroed.
func (r *Repository) SetActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET is_active=$2, permissions=CASE WHEN $2 THEN permissions ELSE 0 END, updated_at=NOW() WHERE id=$1`,
		id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// PermissionValue loads the stored permission value for an active user.
// Implements authz.PermissionSource.
func (r *Repository) PermissionValue(ctx context.Context, userID int64) (perm.Value, error) {
	var raw int64
	var active bool
	err := r.pool.QueryRow(ctx, `SELECT permissions, is_active FROM users WHERE id=$1`, userID).Scan(&raw, &active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, shared.ErrNotFound
		}
		return 0, err
	}
	if !active {
		return 0, shared.ErrNotFound
	}
	return perm.Value(raw), nil
}
