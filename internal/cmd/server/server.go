// Package server parses verifier server configuration and runs the HTTP
// process with hot-reloaded payout tables.
package server

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/xtding233/plinko-audit/internal/httpapi"
	"github.com/xtding233/plinko-audit/internal/paytable"
	"github.com/xtding233/plinko-audit/internal/platform/config"
)

const shutdownTimeout = 5 * time.Second

// Config holds verifier server configuration.
type Config struct {
	Addr     string        `env:"PLINKO_HTTP_ADDR" envDefault:":8080"`
	Paytable string        `env:"PLINKO_PAYTABLE"`
	Poll     time.Duration `env:"PLINKO_PAYTABLE_POLL" envDefault:"5s"`
	LogLevel string        `env:"PLINKO_LOG_LEVEL" envDefault:"info"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "listen address")
	fs.StringVar(&cfg.Paytable, "paytable", cfg.Paytable, "optional YAML payout table override")
	fs.DurationVar(&cfg.Poll, "poll", cfg.Poll, "payout table poll interval (0 disables reloads)")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run listens on cfg.Addr and serves until ctx is cancelled.
func Run(ctx context.Context, cfg Config, logger *zap.Logger) error {
	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Addr, err)
	}
	return Serve(ctx, ln, cfg, logger)
}

// Serve serves the verifier on ln until ctx is cancelled, then shuts down
// gracefully. The payout table must load before the first request is
// accepted; later reload failures keep the previous table.
func Serve(ctx context.Context, ln net.Listener, cfg Config, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	loader := paytable.NewLoader(cfg.Paytable)
	if _, err := loader.Table(); err != nil {
		_ = ln.Close()
		return fmt.Errorf("payout table: %w", err)
	}

	watchCtx, stopWatch := context.WithCancel(ctx)
	var watcher *paytable.FileWatcher
	if paths := loader.Paths(); len(paths) > 0 && cfg.Poll > 0 {
		watcher = paytable.NewFileWatcher(paths, cfg.Poll, func(path string) {
			if err := loader.Reload(); err != nil {
				logger.Error("payout table reload failed; keeping previous table", zap.String("path", path), zap.Error(err))
				return
			}
			logger.Info("payout table reloaded", zap.String("path", path), zap.String("version", loader.Version()))
		}, logger)
		watcher.Start(watchCtx)
	}
	defer func() {
		stopWatch()
		if watcher != nil {
			watcher.Wait()
		}
	}()

	srv := &http.Server{
		Handler:           httpapi.NewRouter(loader, nil, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	logger.Info("verifier listening", zap.String("addr", ln.Addr().String()), zap.String("paytable_version", loader.Version()))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("verifier stopped")
	return nil
}
