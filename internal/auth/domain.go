package auth

import (
	"time"

	"github.com/ridgeline-pm/ridgeline/internal/perm"
)

// User represents an authenticated account.
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
