// Package materials manages material specifications and their approval
// workflow. Unit and total prices are cost-bearing and redacted for
// viewers lacking the financial flag.
package materials

import (
	"time"

	"github.com/google/uuid"
)

// Status enumerates the specification workflow states.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusSubmitted Status = "submitted"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
)

// Module is the approval-log module key for material specs.
const Module = "material_specs"

// Spec is one material specification on a project.
type Spec struct {
	ID           int64
	Ref          uuid.UUID
	ProjectID    int64
	Name         string
	Description  string
	Manufacturer string
	Model        string
	Unit         string
	Quantity     float64
	UnitPrice    float64
	TotalPrice   float64
	Status       Status
	SubmittedBy  int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CostFields names the spec's cost-bearing keys for redaction.
var CostFields = []string{"unit_price", "total_price"}

// Record converts the spec to the serializable form the redaction
// filter operates on.
func (s Spec) Record() map[string]any {
	return map[string]any{
		"id":           s.ID,
		"ref":          s.Ref,
		"project_id":   s.ProjectID,
		"name":         s.Name,
		"description":  s.Description,
		"manufacturer": s.Manufacturer,
		"model":        s.Model,
		"unit":         s.Unit,
		"quantity":     s.Quantity,
		"unit_price":   s.UnitPrice,
		"total_price":  s.TotalPrice,
		"status":       string(s.Status),
		"submitted_by": s.SubmittedBy,
		"created_at":   s.CreatedAt,
		"updated_at":   s.UpdatedAt,
	}
}
