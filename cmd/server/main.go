// Package main starts the public Plinko verifier.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	_ "go.uber.org/automaxprocs"
	"go.uber.org/zap"

	servercmd "github.com/xtding233/plinko-audit/internal/cmd/server"
	"github.com/xtding233/plinko-audit/internal/platform/config"
	"github.com/xtding233/plinko-audit/internal/platform/logging"
	"github.com/xtding233/plinko-audit/internal/platform/otel"
)

func main() {
	cfg, err := servercmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("parse flags: %v", err)
	}
	logger, err := logging.New(cfg.LogLevel, false)
	if err != nil {
		config.Exitf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown, err := otel.Setup(ctx, "plinko-verifier")
	if err != nil {
		logger.Warn("tracing disabled", zap.Error(err))
	}
	defer func() { _ = shutdown(context.Background()) }()

	if err := servercmd.Run(ctx, cfg, logger); err != nil {
		logger.Error("server failed", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}
