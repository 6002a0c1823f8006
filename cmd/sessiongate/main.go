// Command sessiongate serves the session gate HTTP API.
//
// Configuration comes from SESSIONGATE_* environment variables; see
// internal/appconfig.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/skillx/sessiongate/internal/appconfig"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

// run returns an error instead of exiting so deferred cleanup still runs.
func run() error {
	cfg, err := appconfig.Load()
	if err != nil {
		return err
	}
	logger := appconfig.NewLogger(cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	return a.serve(ctx)
}
