package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/riandyrn/otelchi"

	"github.com/fieldflow/fieldflow/internal/adapter/authz"
	"github.com/fieldflow/fieldflow/internal/adapter/flag"
	"github.com/fieldflow/fieldflow/internal/adapter/fsm"
	"github.com/fieldflow/fieldflow/internal/adapter/otel"
	riveradapter "github.com/fieldflow/fieldflow/internal/adapter/river"
	"github.com/fieldflow/fieldflow/internal/adapter/sqlite"
	"github.com/fieldflow/fieldflow/internal/app"

	handler "github.com/fieldflow/fieldflow/internal/adapter/http"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("fieldflow: %v", err)
	}
}

// run wires the full stack and blocks until SIGINT/SIGTERM. Split from
// main so tests can drive startup and shutdown.
func run() error {
	ctx := context.Background()

	port := envOrDefault("PORT", "8080")
	dbPath := envOrDefault("DATABASE_PATH", "fieldflow.db")

	// --- Observability ---
	providers, err := otel.Setup(ctx, otel.ConfigFromEnv())
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			log.Printf("otel shutdown: %v", err)
		}
	}()

	// --- Adapters (out) ---
	db, err := otel.OpenDB(dbPath)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer db.Close()

	repo, err := sqlite.NewFromDB(db)
	if err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	riverClient, err := riveradapter.Setup(ctx, db)
	if err != nil {
		return fmt.Errorf("river: %w", err)
	}
	if err := riverClient.Start(ctx); err != nil {
		return fmt.Errorf("river start: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := riverClient.Stop(stopCtx); err != nil {
			log.Printf("river stop: %v", err)
		}
	}()

	oracle, err := authz.NewOracle()
	if err != nil {
		return fmt.Errorf("ability rules: %w", err)
	}

	// --- Application ---
	svc := app.NewWorkOrderService(app.Deps{
		Repo:      otel.NewTracingRepository(repo),
		Timeline:  sqlite.NewTimelineStore(repo.DB()),
		Directory: sqlite.NewDirectory(repo.DB()),
		Validator: fsm.New(),
		Oracle:    oracle,
		Resolver:  authz.NewResolver(),
		Flags:     flag.NewEnv(),
		Publisher: otel.NewTracingPublisher(riveradapter.NewPublisher(riverClient)),
	})

	// --- Adapters (in) ---
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(otelchi.Middleware("fieldflow", otelchi.WithChiRoutes(router)))

	api := humachi.New(router, huma.DefaultConfig("fieldflow", "0.1.0"))
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

	serverErr := make(chan error, 1)
	go func() {
		log.Printf("fieldflow listening on :%s", port)
		log.Printf("API docs: http://localhost:%s/docs", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server: %w", err)
	case <-done:
	}

	log.Println("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	log.Println("stopped")
	return nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
