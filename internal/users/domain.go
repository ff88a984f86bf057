package users

import (
	"time"

	"github.com/ridgeline-pm/ridgeline/internal/perm"
)

// User represents an account. Permissions is the raw bitwise value; the
// role shown in the admin UI is derived from it, never stored.
type User struct {
	ID           int64
	Email        string
	Name         string
	PasswordHash string
	Permissions  perm.Value
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// View is the serializable representation returned by the API. Role is
// empty for custom flag combinations.
type View struct {
	ID          int64     `json:"id"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	Permissions int64     `json:"permissions"`
	Role        string    `json:"role,omitempty"`
	Grants      []string  `json:"grants"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewView derives the API representation of a user.
func NewView(u User) View {
	view := View{
		ID:          u.ID,
		Email:       u.Email,
		Name:        u.Name,
		Permissions: int64(u.Permissions),
		Grants:      u.Permissions.Names(),
		IsActive:    u.IsActive,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
	if role, ok := perm.RoleFromValue(u.Permissions); ok {
		view.Role = string(role)
	}
	return view
}
