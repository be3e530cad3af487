package river

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riversqlite"
	"github.com/riverqueue/river/rivermigrate"
)

// ExpiryInterval is how often the subscription sweep runs.
const ExpiryInterval = time.Hour

// Setup creates a River client with all workers registered and runs
// River's internal migrations. The returned ExpiryWorker must be bound to
// the subscription service before client.Start(); the caller owns Start
// and Stop for graceful shutdown.
func Setup(ctx context.Context, db *sql.DB) (*Client, *ExpiryWorker, error) {
	driver := riversqlite.New(db)

	// Run River's own migrations (creates river_job, river_leader, etc.).
	// These are separate from the app's goose migrations.
	migrator, err := rivermigrate.New(driver, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("creating river migrator: %w", err)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
		return nil, nil, fmt.Errorf("running river migrations: %w", err)
	}

	expiry := &ExpiryWorker{}

	workers := river.NewWorkers()
	river.AddWorker(workers, &EventWorker{})
	river.AddWorker(workers, &NotificationWorker{})
	river.AddWorker(workers, &ActivityWorker{db: db})
	river.AddWorker(workers, expiry)

	client, err := river.NewClient(driver, &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: 2},
		},
		Workers: workers,
		PeriodicJobs: []*river.PeriodicJob{
			river.NewPeriodicJob(
				river.PeriodicInterval(ExpiryInterval),
				func() (river.JobArgs, *river.InsertOpts) {
					return ExpiryJobArgs{}, nil
				},
				&river.PeriodicJobOpts{RunOnStart: true},
			),
		},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("creating river client: %w", err)
	}

	return client, expiry, nil
}
