package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/quantbt/internal/api"
	"github.com/wonny/quantbt/internal/api/handlers"
	"github.com/wonny/quantbt/internal/store"
	"github.com/wonny/quantbt/pkg/config"
	"github.com/wonny/quantbt/pkg/database"
	"github.com/wonny/quantbt/pkg/logger"
)

// apiCmd starts the HTTP API server
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the backtest API server",
	Long: `Starts the REST API server over the Postgres-stored inputs.

Endpoints:
  GET  /health        - Health check
  POST /api/backtest  - Run a backtest for a date range

Example:
  quantbt api
  quantbt api --port 8080`,
	RunE: runAPIServer,
}

var apiPort string

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "API server port (default: PORT env)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if apiPort != "" {
		cfg.Port = apiPort
	}

	log := logger.New(cfg)

	db, err := database.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()
	log.Info("Connected to database")

	predictionRepo := store.NewPredictionRepository(db.Pool)
	barRepo := store.NewBarRepository(db.Pool)

	backtestHandler := handlers.NewBacktestHandler(predictionRepo, barRepo, log)
	router := api.NewRouter(backtestHandler, db, log)
	server := api.New(cfg, log, router)

	go func() {
		if err := server.Start(); err != nil {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	log.WithField("port", cfg.Port).Info("API server started")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return server.Shutdown(ctx)
}
