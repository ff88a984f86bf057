package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	jobmetrics "github.com/ridgeline-pm/ridgeline/internal/jobs"
)

// ApprovalNotifyJob emails the users entitled to act on a document that
// just entered an approval queue: the project owner plus any per-project
// approvers registered for the workflow.
type ApprovalNotifyJob struct {
	Pool    *pgxpool.Pool
	Client  *Client
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

const approvalRecipientsQuery = `
SELECT DISTINCT u.email, u.name FROM users u
WHERE u.is_active AND (
    u.id IN (SELECT owner_id FROM projects WHERE id = $1)
    OR u.id IN (
        SELECT user_id FROM project_approvers
        WHERE project_id = $1 AND approval_type = $2
    )
)`

// NewApprovalNotifyJob wires dependencies for the notify handler.
func NewApprovalNotifyJob(pool *pgxpool.Pool, client *Client, logger *slog.Logger, metrics *jobmetrics.Metrics) *ApprovalNotifyJob {
	return &ApprovalNotifyJob{Pool: pool, Client: client, Logger: logger, Metrics: metrics}
}

// Handle processes approval notification tasks.
func (j *ApprovalNotifyJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Pool == nil {
		return errors.New("approval notify: handler not configured")
	}
	var payload ApprovalNotifyPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.Metrics.Track(TaskTypeApprovalNotify)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	rows, err := j.Pool.Query(ctx, approvalRecipientsQuery, payload.ProjectID, payload.Module)
	if err != nil {
		resultErr = err
		return resultErr
	}
	defer rows.Close()

	type recipient struct{ email, name string }
	var recipients []recipient
	for rows.Next() {
		var rec recipient
		if err := rows.Scan(&rec.email, &rec.name); err != nil {
			resultErr = err
			return resultErr
		}
		recipients = append(recipients, rec)
	}
	if err := rows.Err(); err != nil {
		resultErr = err
		return resultErr
	}

	for _, rec := range recipients {
		_, err := j.Client.EnqueueSendEmail(ctx, SendEmailPayload{
			To:      rec.email,
			Subject: fmt.Sprintf("Approval requested: %s", payload.Module),
			Body:    fmt.Sprintf("Hi %s, document %s on project %d is waiting for your review.", rec.name, payload.Ref, payload.ProjectID),
		})
		if err != nil {
			j.Logger.Warn("enqueue approval email", slog.String("to", rec.email), slog.Any("error", err))
		}
	}
	j.Logger.Info("approval notifications queued",
		slog.String("module", payload.Module),
		slog.Int64("project_id", payload.ProjectID),
		slog.Int("recipients", len(recipients)))
	return nil
}
