package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"github.com/mvelabs/boardroom/internal/adapter/fsm"
	handler "github.com/mvelabs/boardroom/internal/adapter/http"
	"github.com/mvelabs/boardroom/internal/adapter/provider"
	"github.com/mvelabs/boardroom/internal/adapter/sqlite"
	"github.com/mvelabs/boardroom/internal/app"
	"github.com/mvelabs/boardroom/internal/domain"
)

func TestEnvOrDefault_Fallback(t *testing.T) {
	v := envOrDefault("BOARDROOM_TEST_NONEXISTENT_KEY", "fallback")
	if v != "fallback" {
		t.Errorf("got %q, want %q", v, "fallback")
	}
}

func TestEnvOrDefault_EnvSet(t *testing.T) {
	t.Setenv("BOARDROOM_TEST_KEY", "custom")

	v := envOrDefault("BOARDROOM_TEST_KEY", "fallback")
	if v != "custom" {
		t.Errorf("got %q, want %q", v, "custom")
	}
}

func TestProvidersFromEnv(t *testing.T) {
	t.Setenv("PAYMENT_PROVIDERS", "stripe, mollie")
	t.Setenv("PROVIDER_STRIPE_URL", "https://stripe.test")
	t.Setenv("PROVIDER_STRIPE_KEY", "sk_test")
	t.Setenv("PROVIDER_MOLLIE_URL", "https://mollie.test")
	t.Setenv("PROVIDER_MOLLIE_KEY", "mk_test")

	configs := providersFromEnv()
	if len(configs) != 2 {
		t.Fatalf("got %d configs, want 2", len(configs))
	}
	if configs[0].ID != "stripe" || configs[0].BaseURL != "https://stripe.test" || configs[0].APIKey != "sk_test" {
		t.Errorf("unexpected stripe config: %+v", configs[0])
	}
	if configs[1].ID != "mollie" {
		t.Errorf("got %q, want mollie", configs[1].ID)
	}
}

func TestProvidersFromEnv_Empty(t *testing.T) {
	t.Setenv("PAYMENT_PROVIDERS", "")

	if configs := providersFromEnv(); configs != nil {
		t.Errorf("got %v, want nil", configs)
	}
}

// noopSideEffects is a local publisher/notifier/activity stub for the
// smoke test. The smoke test verifies HTTP wiring, not River.
type noopSideEffects struct{}

func (noopSideEffects) Publish(_ context.Context, _ domain.Envelope) error     { return nil }
func (noopSideEffects) Notify(_ context.Context, _ domain.Notification) error  { return nil }
func (noopSideEffects) Record(_ context.Context, _ string, _ map[string]any, _ string) error {
	return nil
}

// TestSmoke wires the stack like run() and verifies it responds.
func TestSmoke(t *testing.T) {
	store, err := sqlite.New(t.TempDir() + "/test.db")
	if err != nil {
		t.Fatalf("database: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	noop := noopSideEffects{}
	clock := domain.SystemClock{}
	dispatcher := app.NewDispatcher(store, fsm.New(), noop, noop, noop, clock)

	svc := handler.Services{
		Billboards:    app.NewBillboardService(dispatcher, store, clock),
		Bookings:      app.NewBookingService(dispatcher, store, clock),
		Subscriptions: app.NewSubscriptionService(dispatcher, store, clock),
		Payments:      app.NewPaymentService(dispatcher, store, provider.New(nil), clock),
		Pricing:       app.NewPricingService(dispatcher, store, noop, clock),
		Usage:         app.NewUsageService(store, store, clock),
		Store:         store,
	}

	router := chi.NewMux()
	api := humachi.New(router, huma.DefaultConfig("boardroom", "0.1.0"))
	handler.Register(api, svc)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	// Verify the server responds to list billboards.
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, srv.URL+"/api/v1/billboards", nil)
	if err != nil {
		t.Fatalf("creating request: %v", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /api/v1/billboards failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var billboards []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&billboards); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if len(billboards) != 0 {
		t.Errorf("got %d billboards, want 0 (empty database)", len(billboards))
	}

	// And that it can register one end to end.
	body := `{"tenant_id":"tn-1","name":"Main St","location":"downtown","base_price":1000}`
	req, err = http.NewRequestWithContext(context.Background(), http.MethodPost, srv.URL+"/api/v1/billboards", strings.NewReader(body))
	if err != nil {
		t.Fatalf("creating request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST /api/v1/billboards failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
}

// TestRun exercises the real run() function end-to-end: OTel, River, HTTP
// server, and graceful shutdown. It uses stdout OTel exporter and a temp
// database to avoid external dependencies.
func TestRun(t *testing.T) {
	t.Setenv("DATABASE_PATH", t.TempDir()+"/test-run.db")
	t.Setenv("PORT", "19876")
	t.Setenv("OTEL_EXPORTER", "stdout")
	t.Setenv("OTEL_ENVIRONMENT", "test")

	// Discard OTel stdout exporter output during the test.
	origStdout := os.Stdout
	devNull, err := os.Open(os.DevNull)
	if err != nil {
		t.Fatalf("opening /dev/null: %v", err)
	}
	os.Stdout = devNull
	t.Cleanup(func() {
		os.Stdout = origStdout
		devNull.Close()
	})

	errCh := make(chan error, 1)
	go func() { errCh <- run() }()

	// Wait for the HTTP server to become ready.
	serverURL := "http://localhost:19876"
	ready := false
	for i := 0; i < 50; i++ {
		req, _ := http.NewRequestWithContext(context.Background(), http.MethodGet, serverURL+"/api/v1/billboards", nil)
		resp, reqErr := http.DefaultClient.Do(req)
		if reqErr == nil {
			resp.Body.Close()
			ready = true
			break
		}
		time.Sleep(100 * time.Millisecond)
	}
	if !ready {
		t.Fatal("server did not start within 5 seconds")
	}

	// Verify the API responds correctly.
	req, _ := http.NewRequestWithContext(context.Background(), http.MethodGet, serverURL+"/api/v1/billboards", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /api/v1/billboards failed: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	// Send SIGINT to trigger graceful shutdown.
	proc, err := os.FindProcess(os.Getpid())
	if err != nil {
		t.Fatalf("finding process: %v", err)
	}
	if err := proc.Signal(syscall.SIGINT); err != nil {
		t.Fatalf("sending SIGINT: %v", err)
	}

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("run() returned error: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("run() did not exit within 10 seconds")
	}
}

// TestRun_InvalidDB verifies run() returns an error for an invalid database path.
func TestRun_InvalidDB(t *testing.T) {
	t.Setenv("DATABASE_PATH", "/nonexistent/path/db.sqlite")
	t.Setenv("PORT", "19877")
	t.Setenv("OTEL_EXPORTER", "stdout")
	t.Setenv("OTEL_ENVIRONMENT", "test")

	// Discard OTel stdout output.
	origStdout := os.Stdout
	devNull, err := os.Open(os.DevNull)
	if err != nil {
		t.Fatalf("opening /dev/null: %v", err)
	}
	os.Stdout = devNull
	t.Cleanup(func() {
		os.Stdout = origStdout
		devNull.Close()
	})

	if err := run(); err == nil {
		t.Fatal("expected error for invalid database path, got nil")
	}
}
