package users

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/ridgeline-pm/ridgeline/internal/perm"
	"github.com/ridgeline-pm/ridgeline/internal/shared"
)

var (
	// ErrEmailTaken indicates the email is already registered.
	ErrEmailTaken = errors.New("users: email already registered")
	// ErrUnknownRole indicates a role name outside the defined templates.
	ErrUnknownRole = errors.New("users: unknown role")
	// ErrUnknownFlag indicates a permission name outside the catalog.
	ErrUnknownFlag = errors.New("users: unknown permission")
	// ErrInvalidValue indicates a raw permission integer with undefined bits.
	ErrInvalidValue = errors.New("users: invalid permission value")
)

// casRetries bounds the compare-and-set retry loop for flag updates.
const casRetries = 3

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	List(ctx context.Context) ([]User, error)
	Get(ctx context.Context, id int64) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	Create(ctx context.Context, u User) (User, error)
	UpdatePermissions(ctx context.Context, id int64, old, next perm.Value) error
	SetActive(ctx context.Context, id int64, active bool) error
}

// AuditPort records administrative actions.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service handles account management.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// List returns all users.
func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}

// Get fetches a user by id.
func (s *Service) Get(ctx context.Context, id int64) (User, error) {
	return s.repo.Get(ctx, id)
}

// CreateInput describes a new account.
type CreateInput struct {
	Email    string
	Name     string
	Password string
	Role     perm.Role
}

// Create registers a new account. The role template is copied into the
// user's permission value; later edits to the user never touch the
// template.
func (s *Service) Create(ctx context.Context, actorID int64, input CreateInput) (User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return User{}, errors.New("users: email required")
	}
	template, ok := perm.Template(input.Role)
	if !ok {
		return User{}, ErrUnknownRole
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, fmt.Errorf("users: hash password: %w", err)
	}
	created, err := s.repo.Create(ctx, User{
		Email:        email,
		Name:         strings.TrimSpace(input.Name),
		PasswordHash: string(hash),
		Permissions:  template,
		IsActive:     true,
	})
	if err != nil {
		return User{}, err
	}
	s.recordAudit(ctx, actorID, "user.create", created.ID, map[string]any{
		"role":        string(input.Role),
		"permissions": int64(template),
	})
	return created, nil
}

// GrantFlag adds a single capability to a user. The read-modify-write is
// retried on concurrent modification.
func (s *Service) GrantFlag(ctx context.Context, actorID, userID int64, flagName string) (User, error) {
	flag, ok := perm.FlagByName(flagName)
	if !ok {
		return User{}, ErrUnknownFlag
	}
	return s.mutatePermissions(ctx, actorID, userID, "user.grant", flagName, func(v perm.Value) perm.Value {
		return v.With(flag)
	})
}

// RevokeFlag removes a single capability from a user.
func (s *Service) RevokeFlag(ctx context.Context, actorID, userID int64, flagName string) (User, error) {
	flag, ok := perm.FlagByName(flagName)
	if !ok {
		return User{}, ErrUnknownFlag
	}
	return s.mutatePermissions(ctx, actorID, userID, "user.revoke", flagName, func(v perm.Value) perm.Value {
		return v.Without(flag)
	})
}

// ReplacePermissions overwrites the user's value with a validated raw
// integer, typically produced from a role template plus manual tweaks in
// the admin panel.
func (s *Service) ReplacePermissions(ctx context.Context, actorID, userID int64, raw int64) (User, error) {
	if !perm.Valid(raw) {
		return User{}, ErrInvalidValue
	}
	next := perm.Value(raw)
	return s.mutatePermissions(ctx, actorID, userID, "user.set_permissions", "", func(perm.Value) perm.Value {
		return next
	})
}

// AssignRole resets the user's value to a role template.
func (s *Service) AssignRole(ctx context.Context, actorID, userID int64, role perm.Role) (User, error) {
	template, ok := perm.Template(role)
	if !ok {
		return User{}, ErrUnknownRole
	}
	return s.mutatePermissions(ctx, actorID, userID, "user.assign_role", string(role), func(perm.Value) perm.Value {
		return template
	})
}

// Deactivate disables the account and zeroes its grants.
func (s *Service) Deactivate(ctx context.Context, actorID, userID int64) error {
	if err := s.repo.SetActive(ctx, userID, false); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "user.deactivate", userID, nil)
	return nil
}

// Reactivate enables the account again. Grants stay zeroed until an
// admin assigns a role or individual flags.
func (s *Service) Reactivate(ctx context.Context, actorID, userID int64) error {
	if err := s.repo.SetActive(ctx, userID, true); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "user.reactivate", userID, nil)
	return nil
}

func (s *Service) mutatePermissions(ctx context.Context, actorID, userID int64, action, detail string, apply func(perm.Value) perm.Value) (User, error) {
	var lastErr error
	for attempt := 0; attempt < casRetries; attempt++ {
		user, err := s.repo.Get(ctx, userID)
		if err != nil {
			return User{}, err
		}
		next := apply(user.Permissions)
		if next == user.Permissions {
			return user, nil
		}
		err = s.repo.UpdatePermissions(ctx, userID, user.Permissions, next)
		if err == nil {
			s.recordAudit(ctx, actorID, action, userID, map[string]any{
				"detail": detail,
				"before": int64(user.Permissions),
				"after":  int64(next),
			})
			user.Permissions = next
			return user, nil
		}
		if !errors.Is(err, shared.ErrStaleValue) {
			return User{}, err
		}
		lastErr = err
	}
	return User{}, lastErr
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, userID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "user",
		EntityID: strconv.FormatInt(userID, 10),
		Meta:     meta,
	})
}
