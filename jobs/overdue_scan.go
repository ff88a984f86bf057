package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	jobmetrics "github.com/ridgeline-pm/ridgeline/internal/jobs"
)

// OverdueScanJob finds tasks past their due date and emails the
// assignee a reminder. Registered on a daily cron.
type OverdueScanJob struct {
	Pool    *pgxpool.Pool
	Client  *Client
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

const overdueTasksQuery = `
SELECT t.id, t.title, t.due_date, u.email, u.name, p.name
FROM tasks t
JOIN users u ON u.id = t.assignee_id AND u.is_active
JOIN projects p ON p.id = t.project_id
WHERE t.status <> 'done' AND t.due_date IS NOT NULL AND t.due_date < $1
ORDER BY t.due_date`

// NewOverdueScanJob wires dependencies for the scan handler.
func NewOverdueScanJob(pool *pgxpool.Pool, client *Client, logger *slog.Logger, metrics *jobmetrics.Metrics) *OverdueScanJob {
	return &OverdueScanJob{
		Pool:    pool,
		Client:  client,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes overdue scan tasks.
func (j *OverdueScanJob) Handle(ctx context.Context, _ *asynq.Task) error {
	if j == nil || j.Pool == nil {
		return errors.New("overdue scan: handler not configured")
	}

	tracker := j.Metrics.Track(TaskTypeOverdueScan)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	rows, err := j.Pool.Query(ctx, overdueTasksQuery, j.clock())
	if err != nil {
		resultErr = err
		return resultErr
	}
	defer rows.Close()

	var notified int
	for rows.Next() {
		var (
			taskID      int64
			title       string
			due         time.Time
			email, name string
			projectName string
		)
		if err := rows.Scan(&taskID, &title, &due, &email, &name, &projectName); err != nil {
			resultErr = err
			return resultErr
		}
		_, err := j.Client.EnqueueSendEmail(ctx, SendEmailPayload{
			To:      email,
			Subject: fmt.Sprintf("Overdue task: %s", title),
			Body:    fmt.Sprintf("Hi %s, task %q on %s was due %s.", name, title, projectName, due.Format("2006-01-02")),
		})
		if err != nil {
			j.Logger.Warn("enqueue overdue email", slog.Int64("task_id", taskID), slog.Any("error", err))
			continue
		}
		notified++
	}
	if err := rows.Err(); err != nil {
		resultErr = err
		return resultErr
	}
	j.Logger.Info("overdue scan complete", slog.Int("notified", notified))
	return nil
}
