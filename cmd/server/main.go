/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the payroll engine server. Handles configuration,
  dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env (if present) and parse command-line flags
  2. Initialize SQLite store
  3. Parse engine configuration (optional JSON file)
  4. Create API handler and router
  5. Start the prediction scheduler
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port      HTTP server port (default: 8080, env PORT)
  -db        SQLite database path (default: payroll.db, env DB_PATH)
             Use ":memory:" for an in-memory database
  -config    Engine configuration JSON file (optional, env CONFIG_PATH)
  -scheduler Enable the background prediction refresher (default: true)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the scheduler and close the database
  4. Exit

EXAMPLES:
  # Run with file database and a config document
  ./server -db="./data/payroll.db" -config="./config.json"

  # Run with in-memory database
  ./server -db=":memory:"

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/warp/payroll-engine/api"
	"github.com/warp/payroll-engine/factory"
	"github.com/warp/payroll-engine/store/sqlite"
)

func main() {
	// .env is optional; flags win over environment values.
	_ = godotenv.Load()

	port := flag.Int("port", envInt("PORT", 8080), "HTTP server port")
	dbPath := flag.String("db", envString("DB_PATH", "payroll.db"), "SQLite database path")
	configPath := flag.String("config", envString("CONFIG_PATH", ""), "engine configuration JSON file")
	schedulerOn := flag.Bool("scheduler", true, "enable the background prediction refresher")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With(
		slog.String("app", "payroll-engine"),
	)

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		logger.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	// Engine configuration
	var cfg *factory.EngineConfig
	if *configPath != "" {
		doc, err := os.ReadFile(*configPath)
		if err != nil {
			logger.Error("failed to read config file", "path", *configPath, "error", err)
			os.Exit(1)
		}
		cfg, err = factory.NewConfigFactory().Parse(string(doc))
		if err != nil {
			logger.Error("invalid engine configuration", "path", *configPath, "error", err)
			os.Exit(1)
		}
		logger.Info("engine configuration loaded",
			"path", *configPath, "taxonomy_version", cfg.Taxonomy.Version())
	}

	// Handler and router
	handler := api.NewHandler(store, cfg)
	router := api.NewRouter(handler)

	// Background prediction refresher
	scheduler := api.NewPredictionScheduler(handler, logger)
	scheduler.Enabled = *schedulerOn
	scheduler.Start()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", "addr", fmt.Sprintf("http://localhost:%d", *port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	if *schedulerOn {
		scheduler.Stop()
	}

	logger.Info("server stopped")
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
