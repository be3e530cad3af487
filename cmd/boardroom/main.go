package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/riandyrn/otelchi"

	"github.com/mvelabs/boardroom/internal/adapter/fsm"
	"github.com/mvelabs/boardroom/internal/adapter/otel"
	"github.com/mvelabs/boardroom/internal/adapter/provider"
	"github.com/mvelabs/boardroom/internal/adapter/river"
	"github.com/mvelabs/boardroom/internal/adapter/sqlite"
	"github.com/mvelabs/boardroom/internal/app"
	"github.com/mvelabs/boardroom/internal/domain"

	handler "github.com/mvelabs/boardroom/internal/adapter/http"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("boardroom: %v", err)
	}
}

func run() error {
	ctx := context.Background()

	port := envOrDefault("PORT", "8080")
	dbPath := envOrDefault("DATABASE_PATH", "boardroom.db")

	// --- Telemetry ---
	providers, err := otel.Setup(ctx, otel.ConfigFromEnv())
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			slog.Error("otel shutdown", "error", err)
		}
	}()

	// --- Adapters (out) ---
	db, err := otel.OpenDB(dbPath)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}

	store, err := sqlite.NewFromDB(db)
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	defer store.Close()

	riverClient, expiry, err := river.Setup(ctx, db)
	if err != nil {
		return fmt.Errorf("river: %w", err)
	}

	publisher := river.NewPublisher(riverClient)
	gateway := provider.New(providersFromEnv())

	tracedStore := otel.NewTracingStore(store)
	tracedPublisher := otel.NewTracingPublisher(publisher)

	// --- Application ---
	clock := domain.SystemClock{}
	dispatcher := app.NewDispatcher(tracedStore, fsm.New(), tracedPublisher, publisher, publisher, clock)

	subscriptions := app.NewSubscriptionService(dispatcher, tracedStore, clock)
	expiry.Bind(subscriptions)

	svc := handler.Services{
		Billboards:    app.NewBillboardService(dispatcher, tracedStore, clock),
		Bookings:      app.NewBookingService(dispatcher, tracedStore, clock),
		Subscriptions: subscriptions,
		Payments:      app.NewPaymentService(dispatcher, tracedStore, gateway, clock),
		Pricing:       app.NewPricingService(dispatcher, tracedStore, publisher, clock),
		Usage:         app.NewUsageService(tracedStore, store, clock),
		Store:         tracedStore,
	}

	if err := riverClient.Start(ctx); err != nil {
		return fmt.Errorf("starting river: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := riverClient.Stop(stopCtx); err != nil {
			slog.Error("river shutdown", "error", err)
		}
	}()

	// --- Adapters (in) ---
	router := chi.NewMux()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.RequestID)
	router.Use(otelchi.Middleware("boardroom", otelchi.WithChiRoutes(router)))

	api := humachi.New(router, huma.DefaultConfig("boardroom", "0.1.0"))
	handler.Register(api, svc)

	// --- Server ---
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown.
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("boardroom listening", "port", port)
		slog.Info("API docs", "url", "http://localhost:"+port+"/docs")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	case <-done:
	}

	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	slog.Info("stopped")
	return nil
}

// providersFromEnv reads the payment provider catalog from the
// environment: PAYMENT_PROVIDERS lists ids, and each id contributes
// PROVIDER_<ID>_URL and PROVIDER_<ID>_KEY.
func providersFromEnv() []provider.Config {
	raw := os.Getenv("PAYMENT_PROVIDERS")
	if raw == "" {
		return nil
	}

	var configs []provider.Config
	for _, id := range strings.Split(raw, ",") {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		prefix := "PROVIDER_" + strings.ToUpper(id)
		configs = append(configs, provider.Config{
			ID:      id,
			BaseURL: os.Getenv(prefix + "_URL"),
			APIKey:  os.Getenv(prefix + "_KEY"),
		})
	}
	return configs
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
