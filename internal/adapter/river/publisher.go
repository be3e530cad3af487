package river

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/riverqueue/river"

	"github.com/mvelabs/boardroom/internal/domain"
)

// Compile-time checks: Publisher covers all three fire-and-forget ports.
var (
	_ domain.EventPublisher = (*Publisher)(nil)
	_ domain.Notifier       = (*Publisher)(nil)
	_ domain.ActivityLog    = (*Publisher)(nil)
)

// EventJobArgs carries a committed event for asynchronous broadcast.
// River serializes this as JSON into its job queue table; the snapshot is
// self-contained so the worker never reloads the event log.
type EventJobArgs struct {
	EventID    string            `json:"event_id"`
	Type       string            `json:"type"`
	Targets    map[string]string `json:"targets"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// Kind returns the unique job type identifier used by River's job routing.
func (EventJobArgs) Kind() string { return "event.published" }

// NotificationJobArgs carries one user-facing alert for delivery.
type NotificationJobArgs struct {
	TenantID string         `json:"tenant_id"`
	UserID   string         `json:"user_id,omitempty"`
	Type     string         `json:"type"`
	Title    string         `json:"title"`
	Message  string         `json:"message"`
	Data     map[string]any `json:"data,omitempty"`
	Priority string         `json:"priority"`
}

func (NotificationJobArgs) Kind() string { return "notification.send" }

// ActivityJobArgs carries one audit entry to be persisted.
type ActivityJobArgs struct {
	SubjectID  string         `json:"subject_id"`
	Message    string         `json:"message"`
	Properties map[string]any `json:"properties,omitempty"`
}

func (ActivityJobArgs) Kind() string { return "activity.record" }

// ExpiryJobArgs triggers the periodic sweep of due subscriptions.
type ExpiryJobArgs struct{}

func (ExpiryJobArgs) Kind() string { return "subscription.expire_due" }

// Client is the River client type parameterized for SQLite (*sql.Tx).
type Client = river.Client[*sql.Tx]

// Publisher enqueues River jobs for everything the dispatcher treats as
// fire-and-forget: event broadcast, notifications and the activity log.
type Publisher struct {
	client *Client
}

// NewPublisher creates a publisher backed by the given River client.
func NewPublisher(client *Client) *Publisher {
	return &Publisher{client: client}
}

// Publish enqueues a committed event for broadcast.
func (p *Publisher) Publish(ctx context.Context, env domain.Envelope) error {
	targets := make(map[string]string, len(env.Targets))
	for kind, id := range env.Targets {
		targets[string(kind)] = id
	}
	_, err := p.client.Insert(ctx, EventJobArgs{
		EventID:    env.ID,
		Type:       string(env.Type),
		Targets:    targets,
		OccurredAt: env.OccurredAt,
	}, nil)
	if err != nil {
		return fmt.Errorf("enqueuing event job: %w", err)
	}
	return nil
}

// Notify enqueues a user-facing alert for delivery.
func (p *Publisher) Notify(ctx context.Context, n domain.Notification) error {
	_, err := p.client.Insert(ctx, NotificationJobArgs{
		TenantID: n.TenantID,
		UserID:   n.UserID,
		Type:     n.Type,
		Title:    n.Title,
		Message:  n.Message,
		Data:     n.Data,
		Priority: n.Priority,
	}, nil)
	if err != nil {
		return fmt.Errorf("enqueuing notification job: %w", err)
	}
	return nil
}

// Record enqueues an audit entry.
func (p *Publisher) Record(ctx context.Context, subjectID string, properties map[string]any, message string) error {
	_, err := p.client.Insert(ctx, ActivityJobArgs{
		SubjectID:  subjectID,
		Message:    message,
		Properties: properties,
	}, nil)
	if err != nil {
		return fmt.Errorf("enqueuing activity job: %w", err)
	}
	return nil
}
