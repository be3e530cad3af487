package river_test

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	goriver "github.com/riverqueue/river"

	_ "modernc.org/sqlite"

	riveradapter "github.com/mvelabs/boardroom/internal/adapter/river"
	"github.com/mvelabs/boardroom/internal/domain"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dbPath := t.TempDir() + "/river_test.db"
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		t.Fatalf("setting WAL: %v", err)
	}

	// The activity worker writes audit rows.
	if _, err := db.Exec(`CREATE TABLE activity_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		subject_id TEXT NOT NULL,
		message TEXT NOT NULL,
		properties TEXT NOT NULL,
		recorded_at TEXT NOT NULL
	)`); err != nil {
		t.Fatalf("creating activity_log: %v", err)
	}

	return db
}

type stubExpirer struct {
	calls int
}

func (s *stubExpirer) ExpireDue(ctx context.Context) (int, error) {
	s.calls++
	return 0, nil
}

func setupClient(t *testing.T, db *sql.DB) *riveradapter.Client {
	t.Helper()

	client, expiry, err := riveradapter.Setup(context.Background(), db)
	if err != nil {
		t.Fatalf("river setup: %v", err)
	}
	expiry.Bind(&stubExpirer{})

	return client
}

func startClient(t *testing.T, client *riveradapter.Client) {
	t.Helper()

	if err := client.Start(context.Background()); err != nil {
		t.Fatalf("river start: %v", err)
	}
	t.Cleanup(func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Stop(stopCtx); err != nil {
			t.Errorf("river stop: %v", err)
		}
	})
}

func waitForJob(t *testing.T, ch <-chan *goriver.Event, kind string) *goriver.Event {
	t.Helper()

	deadline := time.After(5 * time.Second)
	for {
		select {
		case event := <-ch:
			if event.Job.Kind == kind {
				return event
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s job completion", kind)
		}
	}
}

func TestPublisher_Publish_EnqueuesJob(t *testing.T) {
	db := setupTestDB(t)
	client := setupClient(t, db)
	ctx := context.Background()

	// Subscribe to job completions before starting so we don't miss events.
	subscribeChan, subscribeCancel := client.Subscribe(goriver.EventKindJobCompleted)
	defer subscribeCancel()

	startClient(t, client)

	pub := riveradapter.NewPublisher(client)
	env := domain.NewEnvelope(
		domain.BookingConfirmedPayload{FinalPrice: 1200},
		map[domain.EntityKind]string{domain.KindBooking: "bk-1", domain.KindBillboard: "bb-1"},
		time.Now().UTC(),
	)

	if err := pub.Publish(ctx, env); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	event := waitForJob(t, subscribeChan, "event.published")
	argsStr := string(event.Job.EncodedArgs)
	for _, want := range []string{`"event_id":"` + env.ID + `"`, `"type":"booking.confirmed"`, `"booking":"bk-1"`} {
		if !strings.Contains(argsStr, want) {
			t.Errorf("encoded args missing %s, got: %s", want, argsStr)
		}
	}
}

func TestPublisher_Notify_EnqueuesJob(t *testing.T) {
	db := setupTestDB(t)
	client := setupClient(t, db)
	ctx := context.Background()

	subscribeChan, subscribeCancel := client.Subscribe(goriver.EventKindJobCompleted)
	defer subscribeCancel()

	startClient(t, client)

	pub := riveradapter.NewPublisher(client)
	err := pub.Notify(ctx, domain.Notification{
		TenantID: "tn-7",
		Type:     "booking.confirmed",
		Title:    "Booking confirmed",
		Message:  "Your booking was confirmed",
		Priority: "normal",
	})
	if err != nil {
		t.Fatalf("Notify failed: %v", err)
	}

	event := waitForJob(t, subscribeChan, "notification.send")
	argsStr := string(event.Job.EncodedArgs)
	for _, want := range []string{`"tenant_id":"tn-7"`, `"type":"booking.confirmed"`} {
		if !strings.Contains(argsStr, want) {
			t.Errorf("encoded args missing %s, got: %s", want, argsStr)
		}
	}
}

func TestPublisher_Record_WritesActivityRow(t *testing.T) {
	db := setupTestDB(t)
	client := setupClient(t, db)
	ctx := context.Background()

	subscribeChan, subscribeCancel := client.Subscribe(goriver.EventKindJobCompleted)
	defer subscribeCancel()

	startClient(t, client)

	pub := riveradapter.NewPublisher(client)
	err := pub.Record(ctx, "bb-1", map[string]any{"event": "billboard.retired"}, "billboard retired")
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	waitForJob(t, subscribeChan, "activity.record")

	var count int
	var subject, message string
	err = db.QueryRow(`SELECT COUNT(*), subject_id, message FROM activity_log`).Scan(&count, &subject, &message)
	if err != nil {
		t.Fatalf("querying activity_log: %v", err)
	}
	if count != 1 || subject != "bb-1" || message != "billboard retired" {
		t.Errorf("activity row = (%d, %q, %q)", count, subject, message)
	}
}

func TestExpiryWorker_RunsOnStart(t *testing.T) {
	db := setupTestDB(t)

	client, expiry, err := riveradapter.Setup(context.Background(), db)
	if err != nil {
		t.Fatalf("river setup: %v", err)
	}
	stub := &stubExpirer{}
	expiry.Bind(stub)

	subscribeChan, subscribeCancel := client.Subscribe(goriver.EventKindJobCompleted)
	defer subscribeCancel()

	startClient(t, client)

	// The periodic job is configured to run on start.
	waitForJob(t, subscribeChan, "subscription.expire_due")
	if stub.calls == 0 {
		t.Error("expirer was never called")
	}
}
