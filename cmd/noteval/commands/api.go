package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/calder/noteval/internal/api"
	"github.com/calder/noteval/internal/api/handlers"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the REST API server",
	Long: `Starts the HTTP API server.

Endpoints:
  GET    /health                        - Health check
  GET    /api/products                  - Live product ids
  GET    /api/products/{id}/report      - Current evaluation report
  POST   /api/products/{id}/evaluate    - Run an evaluation
  GET    /api/products/{id}/indicative  - "If matured today" value
  PUT    /api/products/{id}/override    - Set issuer-call override
  DELETE /api/products/{id}/override    - Clear issuer-call override

Example:
  go run ./cmd/noteval api
  go run ./cmd/noteval api --port 8090`,
	RunE: runAPIServer,
}

var apiPort string

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "API server port (overrides PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	application, err := buildApp()
	if err != nil {
		return err
	}
	defer application.close()

	if apiPort != "" {
		application.cfg.Port = apiPort
	}
	log := application.log

	productHandler := handlers.NewProductHandler(application.service, log)
	overrideHandler := handlers.NewOverrideHandler(application.service, log)

	router := api.NewRouter(productHandler, overrideHandler, log)
	server := api.New(application.cfg, log, router)

	go func() {
		if err := server.Start(); err != nil {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	fmt.Printf("Server running on http://localhost:%s\n", application.cfg.Port)
	fmt.Println("Press Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}
