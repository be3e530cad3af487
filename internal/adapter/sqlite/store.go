package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mvelabs/boardroom/internal/domain"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite" // Register SQLite driver.
)

//go:embed migrations/*.sql
var migrations embed.FS

// Compile-time check: Store implements domain.ProjectionStore.
var _ domain.ProjectionStore = (*Store)(nil)

// Store implements domain.ProjectionStore using SQLite. Projections are
// stored as a JSON state blob next to the columns the queries filter on;
// the event log shares the commit transaction with the projection writes.
type Store struct {
	db    *sql.DB
	clock domain.Clock
}

// New opens a SQLite database, runs migrations, and returns a ready store.
func New(dataSourceName string) (*Store, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	return NewFromDB(db)
}

// NewFromDB wraps an existing database connection, runs migrations, and
// returns a ready store. Use this when the *sql.DB has been pre-configured
// (e.g., with otelsql instrumentation).
func NewFromDB(db *sql.DB) (*Store, error) {
	if err := runMigrations(db); err != nil {
		return nil, err
	}

	return &Store{db: db, clock: domain.SystemClock{}}, nil
}

// WithClock replaces the clock behind time-windowed queries such as the
// monthly usage count.
func (s *Store) WithClock(clock domain.Clock) *Store {
	s.clock = clock
	return s
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying database connection for use by other adapters
// (e.g., river).
func (s *Store) DB() *sql.DB {
	return s.db
}

func runMigrations(db *sql.DB) error {
	goose.SetBaseFS(migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}

	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	return nil
}

const timeFormat = time.RFC3339Nano

func (s *Store) GetTenant(ctx context.Context, id string) (domain.TenantState, error) {
	return getProjection[domain.TenantState](ctx, s.db, "tenants", id, domain.ErrTenantNotFound)
}

func (s *Store) GetBillboard(ctx context.Context, id string) (domain.BillboardState, error) {
	return getProjection[domain.BillboardState](ctx, s.db, "billboards", id, domain.ErrBillboardNotFound)
}

func (s *Store) GetBooking(ctx context.Context, id string) (domain.BookingState, error) {
	return getProjection[domain.BookingState](ctx, s.db, "bookings", id, domain.ErrBookingNotFound)
}

func (s *Store) GetPayment(ctx context.Context, id string) (domain.PaymentState, error) {
	return getProjection[domain.PaymentState](ctx, s.db, "payments", id, domain.ErrPaymentNotFound)
}

func (s *Store) GetSubscription(ctx context.Context, id string) (domain.SubscriptionState, error) {
	return getProjection[domain.SubscriptionState](ctx, s.db, "subscriptions", id, domain.ErrSubscriptionNotFound)
}

// versioned is the subset of a projection the store manages itself.
type versioned interface {
	domain.TenantState | domain.BillboardState | domain.BookingState | domain.PaymentState | domain.SubscriptionState
}

func getProjection[T versioned](ctx context.Context, db *sql.DB, table, id string, notFound error) (T, error) {
	var zero T
	var state string
	var version int64

	// Table names come from the fixed call sites above, never from input.
	err := db.QueryRowContext(ctx,
		`SELECT state, version FROM `+table+` WHERE id = ?`, id,
	).Scan(&state, &version)
	if err != nil {
		if err == sql.ErrNoRows {
			return zero, notFound
		}
		return zero, fmt.Errorf("loading from %s: %w", table, err)
	}

	var out T
	if err := json.Unmarshal([]byte(state), &out); err != nil {
		return zero, fmt.Errorf("decoding %s state: %w", table, err)
	}
	setVersion(&out, version)
	return out, nil
}

// setVersion writes the column-stored version back onto the decoded state.
// The Version field is excluded from the JSON blob on purpose.
func setVersion(v any, version int64) {
	switch t := v.(type) {
	case *domain.TenantState:
		t.Version = version
	case *domain.BillboardState:
		t.Version = version
	case *domain.BookingState:
		t.Version = version
	case *domain.PaymentState:
		t.Version = version
	case *domain.SubscriptionState:
		t.Version = version
	}
}

func (s *Store) ListBillboards(ctx context.Context, filter domain.BillboardFilter) ([]domain.BillboardState, error) {
	query := `SELECT state, version FROM billboards`
	var clauses []string
	var args []any

	if filter.TenantID != "" {
		clauses = append(clauses, `tenant_id = ?`)
		args = append(args, filter.TenantID)
	}
	if filter.Status != nil {
		clauses = append(clauses, `status = ?`)
		args = append(args, string(*filter.Status))
	}
	if len(clauses) > 0 {
		query += ` WHERE ` + strings.Join(clauses, ` AND `)
	}

	query += ` ORDER BY registered_at DESC, id`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing billboards: %w", err)
	}
	defer rows.Close()

	var billboards []domain.BillboardState
	for rows.Next() {
		var state string
		var version int64
		if err := rows.Scan(&state, &version); err != nil {
			return nil, fmt.Errorf("scanning billboard row: %w", err)
		}
		var b domain.BillboardState
		if err := json.Unmarshal([]byte(state), &b); err != nil {
			return nil, fmt.Errorf("decoding billboard state: %w", err)
		}
		b.Version = version
		billboards = append(billboards, b)
	}

	return billboards, rows.Err()
}

func (s *Store) ListSubscriptionsDue(ctx context.Context, before time.Time) ([]domain.SubscriptionState, error) {
	cutoff := before.UTC().Format(timeFormat)

	// A trial is due when the trial ends; a running subscription when its
	// billing period does. Closed subscriptions are never due.
	rows, err := s.db.QueryContext(ctx,
		`SELECT state, version FROM subscriptions
		 WHERE (status = ? AND trial_ends_at IS NOT NULL AND trial_ends_at <= ?)
		    OR (status = ? AND current_period_end <= ?)
		 ORDER BY current_period_end, id`,
		string(domain.SubscriptionTrial), cutoff,
		string(domain.SubscriptionActive), cutoff,
	)
	if err != nil {
		return nil, fmt.Errorf("listing due subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []domain.SubscriptionState
	for rows.Next() {
		var state string
		var version int64
		if err := rows.Scan(&state, &version); err != nil {
			return nil, fmt.Errorf("scanning subscription row: %w", err)
		}
		var sub domain.SubscriptionState
		if err := json.Unmarshal([]byte(state), &sub); err != nil {
			return nil, fmt.Errorf("decoding subscription state: %w", err)
		}
		sub.Version = version
		subs = append(subs, sub)
	}

	return subs, rows.Err()
}

// Applied reports whether the envelope id is already in the event log.
func (s *Store) Applied(ctx context.Context, eventID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM event_log WHERE id = ?`, eventID,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking event log: %w", err)
	}
	return true, nil
}

// Commit persists one event's change set atomically: the event log row and
// every touched projection land in a single transaction. A duplicate
// envelope id surfaces as domain.ErrEventAlreadyApplied; a stale projection
// version as a domain.ConflictError. Either one rolls the whole set back.
func (s *Store) Commit(ctx context.Context, cs domain.ChangeSet) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertEvent(ctx, tx, cs.Event); err != nil {
		return err
	}

	for _, t := range cs.Tenants {
		if err := upsert(ctx, tx, "tenants", t.ID, t.Version, t, nil); err != nil {
			return err
		}
	}
	for _, b := range cs.Billboards {
		cols := map[string]any{
			"tenant_id":     b.TenantID,
			"status":        string(b.Status),
			"registered_at": b.RegisteredAt.UTC().Format(timeFormat),
		}
		if err := upsert(ctx, tx, "billboards", b.ID, b.Version, b, cols); err != nil {
			return err
		}
	}
	for _, b := range cs.Bookings {
		cols := map[string]any{
			"billboard_id": b.BillboardID,
			"tenant_id":    b.TenantID,
			"status":       string(b.Status),
		}
		if err := upsert(ctx, tx, "bookings", b.ID, b.Version, b, cols); err != nil {
			return err
		}
	}
	for _, p := range cs.Payments {
		cols := map[string]any{
			"tenant_id": p.TenantID,
			"status":    string(p.Status),
		}
		if err := upsert(ctx, tx, "payments", p.ID, p.Version, p, cols); err != nil {
			return err
		}
	}
	for _, sub := range cs.Subscriptions {
		var trialEnds any
		if sub.TrialEndsAt != nil {
			trialEnds = sub.TrialEndsAt.UTC().Format(timeFormat)
		}
		cols := map[string]any{
			"tenant_id":          sub.TenantID,
			"status":             string(sub.Status),
			"current_period_end": sub.CurrentPeriodEnd.UTC().Format(timeFormat),
			"trial_ends_at":      trialEnds,
		}
		if err := upsert(ctx, tx, "subscriptions", sub.ID, sub.Version, sub, cols); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing change set: %w", err)
	}
	return nil
}

func insertEvent(ctx context.Context, tx *sql.Tx, env domain.Envelope) error {
	targets, err := json.Marshal(env.Targets)
	if err != nil {
		return fmt.Errorf("encoding event targets: %w", err)
	}
	payload, err := json.Marshal(env.Payload)
	if err != nil {
		return fmt.Errorf("encoding event payload: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO event_log (id, type, targets, payload, occurred_at, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		env.ID, string(env.Type), string(targets), string(payload),
		env.OccurredAt.UTC().Format(timeFormat),
		time.Now().UTC().Format(timeFormat),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrEventAlreadyApplied
		}
		return fmt.Errorf("inserting event log row: %w", err)
	}
	return nil
}

// upsert inserts a projection loaded at version 0 or updates an existing
// one, bumping the version. A stale version means another event committed
// in between; the caller retries against fresh state.
func upsert(ctx context.Context, tx *sql.Tx, table, id string, version int64, state any, cols map[string]any) error {
	blob, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encoding %s state: %w", table, err)
	}

	colNames := make([]string, 0, len(cols))
	colArgs := make([]any, 0, len(cols))
	for name := range cols {
		colNames = append(colNames, name)
	}
	// Deterministic statement text keeps prepared-statement caches warm.
	sort.Strings(colNames)
	for _, name := range colNames {
		colArgs = append(colArgs, cols[name])
	}

	if version == 0 {
		insertCols := append([]string{"id"}, colNames...)
		insertCols = append(insertCols, "state", "version")
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(insertCols)), ", ")

		args := append([]any{id}, colArgs...)
		args = append(args, string(blob), int64(1))

		_, err := tx.ExecContext(ctx,
			`INSERT INTO `+table+` (`+strings.Join(insertCols, ", ")+`) VALUES (`+placeholders+`)`,
			args...,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return &domain.ConflictError{Kind: kindForTable(table), ID: id}
			}
			return fmt.Errorf("inserting into %s: %w", table, err)
		}
		return nil
	}

	sets := make([]string, 0, len(colNames)+2)
	for _, name := range colNames {
		sets = append(sets, name+` = ?`)
	}
	sets = append(sets, `state = ?`, `version = version + 1`)

	args := append(colArgs, string(blob), id, version)
	result, err := tx.ExecContext(ctx,
		`UPDATE `+table+` SET `+strings.Join(sets, ", ")+` WHERE id = ? AND version = ?`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("updating %s: %w", table, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return &domain.ConflictError{Kind: kindForTable(table), ID: id}
	}
	return nil
}

func kindForTable(table string) domain.EntityKind {
	switch table {
	case "tenants":
		return domain.KindTenant
	case "billboards":
		return domain.KindBillboard
	case "bookings":
		return domain.KindBooking
	case "payments":
		return domain.KindPayment
	case "subscriptions":
		return domain.KindSubscription
	}
	return domain.EntityKind(table)
}

// isUniqueViolation checks if a SQLite error is a UNIQUE constraint violation.
func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
