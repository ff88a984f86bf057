// Package drawings manages shop drawing submittals and their approval
// workflow, including the client co-approval path.
package drawings

import (
	"time"

	"github.com/google/uuid"
)

// Status enumerates the submittal workflow states.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusSubmitted Status = "submitted"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
)

// Module is the approval-log module key for shop drawings.
const Module = "shop_drawings"

// Drawing is one shop drawing submittal. Ref is the stable identifier
// used in approval history; Revision increments on resubmission.
type Drawing struct {
	ID          int64     `json:"id"`
	Ref         uuid.UUID `json:"ref"`
	ProjectID   int64     `json:"project_id"`
	Number      string    `json:"number"`
	Title       string    `json:"title"`
	Discipline  string    `json:"discipline,omitempty"`
	Revision    int       `json:"revision"`
	Status      Status    `json:"status"`
	FileURL     string    `json:"file_url,omitempty"`
	SubmittedBy int64     `json:"submitted_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
