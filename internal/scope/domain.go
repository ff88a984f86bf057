// Package scope manages scope items: the priced line items that make up
// a project's contracted work.
package scope

import "time"

// Status enumerates a scope item's change-approval state.
type Status string

const (
	StatusDraft    Status = "draft"
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Item is a single scope line on a project. UnitCost and TotalCost are
// the cost-bearing fields and are redacted for viewers lacking the
// financial flag.
type Item struct {
	ID          int64
	ProjectID   int64
	Title       string
	Description string
	Category    string
	Unit        string
	Quantity    float64
	UnitCost    float64
	TotalCost   float64
	Status      Status
	CreatedBy   int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CostFields names the item's cost-bearing keys for redaction.
var CostFields = []string{"unit_cost", "total_cost"}

// Record converts the item to the serializable form the redaction filter
// operates on.
func (i Item) Record() map[string]any {
	return map[string]any{
		"id":          i.ID,
		"project_id":  i.ProjectID,
		"title":       i.Title,
		"description": i.Description,
		"category":    i.Category,
		"unit":        i.Unit,
		"quantity":    i.Quantity,
		"unit_cost":   i.UnitCost,
		"total_cost":  i.TotalCost,
		"status":      string(i.Status),
		"created_by":  i.CreatedBy,
		"created_at":  i.CreatedAt,
		"updated_at":  i.UpdatedAt,
	}
}
