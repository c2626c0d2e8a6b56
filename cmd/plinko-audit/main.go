// Command plinko-audit verifies a Plinko bet export and simulates RTP
// convergence for every risk/rows configuration.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	_ "go.uber.org/automaxprocs"
	"go.uber.org/zap"

	"github.com/xtding233/plinko-audit/internal/platform/config"
	"github.com/xtding233/plinko-audit/internal/platform/logging"
	"github.com/xtding233/plinko-audit/internal/platform/otel"
	"github.com/xtding233/plinko-audit/internal/tools/plinkoaudit"
)

// go build -ldflags "-X main.Commit=$(git rev-parse HEAD)"
var Commit = "unknown"

func main() {
	cfg, err := plinkoaudit.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("parse flags: %v", err)
	}
	cfg.Commit = Commit

	logger, err := logging.New(cfg.LogLevel, false)
	if err != nil {
		config.Exitf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown, err := otel.Setup(ctx, "plinko-audit")
	if err != nil {
		logger.Warn("tracing disabled", zap.Error(err))
	}
	defer func() { _ = shutdown(context.Background()) }()

	err = plinkoaudit.Run(ctx, cfg, os.Stdout, logger)
	if errors.Is(err, plinkoaudit.ErrFindings) {
		// Reports are on disk; exit non-zero so CI marks the audit failed.
		_ = shutdown(context.Background())
		_ = logger.Sync()
		os.Exit(2)
	}
	if err != nil {
		config.Exitf("audit: %v", err)
	}
}
