// Package jobs defines the background task types and the Asynq worker
// that processes them.
package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSendEmail is the task type for sending transactional emails.
	TaskTypeSendEmail = "mail:send"
	// TaskTypeApprovalNotify fans out notifications when a document
	// enters an approval queue.
	TaskTypeApprovalNotify = "approvals:notify"
	// TaskTypeOverdueScan finds overdue tasks and notifies assignees.
	TaskTypeOverdueScan = "tasks:overdue_scan"
)

// SendEmailPayload describes the information required to send an email.
type SendEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// NewSendEmailTask constructs an Asynq task.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data), nil
}

// HandleSendEmailTask processes TaskTypeSendEmail tasks.
func HandleSendEmailTask(ctx context.Context, t *asynq.Task) error {
	var payload SendEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	// Placeholder: integrate with SMTP/Mailpit in phase 2.
	fmt.Printf("[jobs] send email to %s subject=%s\n", payload.To, payload.Subject)
	return nil
}

// ApprovalNotifyPayload identifies the document waiting on approval.
// Module is the approval-log module key (shop_drawings, material_specs,
// scope_changes) and Ref the document's stable identifier.
type ApprovalNotifyPayload struct {
	Module    string    `json:"module"`
	Ref       uuid.UUID `json:"ref"`
	ProjectID int64     `json:"project_id"`
}

// NewApprovalNotifyTask constructs an Asynq task.
func NewApprovalNotifyTask(payload ApprovalNotifyPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeApprovalNotify, data), nil
}

// NewOverdueScanTask constructs the periodic overdue scan task.
func NewOverdueScanTask() *asynq.Task {
	return asynq.NewTask(TaskTypeOverdueScan, nil)
}
