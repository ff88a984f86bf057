package projects

import "time"

// Status enumerates the project lifecycle.
type Status string

const (
	StatusPlanning  Status = "planning"
	StatusActive    Status = "active"
	StatusOnHold    Status = "on_hold"
	StatusCompleted Status = "completed"
)

// Project is a construction project. OwnerID is the creating user and
// never changes; ownership is the permanent management override.
type Project struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Code        string     `json:"code"`
	Description string     `json:"description,omitempty"`
	Status      Status     `json:"status"`
	OwnerID     int64      `json:"owner_id"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Member assigns a user to a project.
type Member struct {
	ProjectID int64     `json:"project_id"`
	UserID    int64     `json:"user_id"`
	Position  string    `json:"position,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ApprovalType names a per-project approval workflow.
type ApprovalType string

const (
	ApprovalShopDrawings  ApprovalType = "shop_drawings"
	ApprovalMaterialSpecs ApprovalType = "material_specs"
	ApprovalScopeChanges  ApprovalType = "scope_changes"
)

// ValidApprovalType reports whether t names a known workflow.
func ValidApprovalType(t ApprovalType) bool {
	switch t {
	case ApprovalShopDrawings, ApprovalMaterialSpecs, ApprovalScopeChanges:
		return true
	}
	return false
}

// Approver grants approval rights for one workflow on one project,
// independent of the user's global flags. At most one row exists per
// (project, user, approval type).
type Approver struct {
	ProjectID    int64        `json:"project_id"`
	UserID       int64        `json:"user_id"`
	ApprovalType ApprovalType `json:"approval_type"`
	GrantedBy    int64        `json:"granted_by"`
	CreatedAt    time.Time    `json:"created_at"`
}
