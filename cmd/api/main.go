// Package main provides the entry point for the Nutriplan API server
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/fx"

	"github.com/alchemorsel/nutriplan/internal/infrastructure/container"
)

// configFileEnv names an optional YAML file; without it config.Load searches
// ./config.yaml, ./config/config.yaml and /etc/nutriplan/config.yaml
const configFileEnv = "NUTRIPLAN_CONFIG_FILE"

func main() {
	app := fx.New(
		fx.NopLogger,
		fx.Supply(container.ConfigPath(os.Getenv(configFileEnv))),
		container.Module,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	startCtx, startCancel := context.WithTimeout(ctx, 30*time.Second)
	defer startCancel()
	if err := app.Start(startCtx); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	// either a signal or a shutdown requested by a failed server
	exitCode := 0
	select {
	case <-ctx.Done():
	case sig := <-app.Wait():
		exitCode = sig.ExitCode
	}

	fmt.Println("Shutting down gracefully...")

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()
	if err := app.Stop(stopCtx); err != nil {
		log.Fatalf("Failed to stop application gracefully: %v", err)
	}
	os.Exit(exitCode)
}
