package river

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/riverqueue/river"
)

// EventWorker processes committed-event broadcast jobs. For now it logs
// the event; webhook fan-out plugs in here.
type EventWorker struct {
	river.WorkerDefaults[EventJobArgs]
}

// Work processes a single event broadcast job.
func (w *EventWorker) Work(ctx context.Context, job *river.Job[EventJobArgs]) error {
	slog.InfoContext(ctx, "broadcasting event",
		"event_id", job.Args.EventID,
		"type", job.Args.Type,
		"targets", job.Args.Targets,
		"job_id", job.ID,
		"attempt", job.Attempt,
	)
	return nil
}

// NotificationWorker delivers user-facing alerts. Delivery channels
// (email, in-app) plug in here; until then the alert is logged.
type NotificationWorker struct {
	river.WorkerDefaults[NotificationJobArgs]
}

func (w *NotificationWorker) Work(ctx context.Context, job *river.Job[NotificationJobArgs]) error {
	slog.InfoContext(ctx, "delivering notification",
		"tenant_id", job.Args.TenantID,
		"type", job.Args.Type,
		"title", job.Args.Title,
		"priority", job.Args.Priority,
		"job_id", job.ID,
	)
	return nil
}

// ActivityWorker persists audit entries into the activity_log table.
type ActivityWorker struct {
	river.WorkerDefaults[ActivityJobArgs]

	db *sql.DB
}

func (w *ActivityWorker) Work(ctx context.Context, job *river.Job[ActivityJobArgs]) error {
	props, err := json.Marshal(job.Args.Properties)
	if err != nil {
		return fmt.Errorf("encoding activity properties: %w", err)
	}
	_, err = w.db.ExecContext(ctx,
		`INSERT INTO activity_log (subject_id, message, properties, recorded_at)
		 VALUES (?, ?, ?, ?)`,
		job.Args.SubjectID, job.Args.Message, string(props),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("inserting activity entry: %w", err)
	}
	return nil
}

// SubscriptionExpirer sweeps subscriptions whose trial or billing period
// has ended. Implemented by the subscription service.
type SubscriptionExpirer interface {
	ExpireDue(ctx context.Context) (int, error)
}

// ExpiryWorker runs the periodic subscription sweep. The expirer is bound
// after client construction because the services depend on the client's
// publisher; Bind must be called before the client starts.
type ExpiryWorker struct {
	river.WorkerDefaults[ExpiryJobArgs]

	expirer SubscriptionExpirer
}

// Bind attaches the subscription service the sweep delegates to.
func (w *ExpiryWorker) Bind(e SubscriptionExpirer) { w.expirer = e }

func (w *ExpiryWorker) Work(ctx context.Context, job *river.Job[ExpiryJobArgs]) error {
	if w.expirer == nil {
		return fmt.Errorf("expiry worker not bound")
	}
	expired, err := w.expirer.ExpireDue(ctx)
	if err != nil {
		return err
	}
	if expired > 0 {
		slog.InfoContext(ctx, "expired due subscriptions", "count", expired, "job_id", job.ID)
	}
	return nil
}
