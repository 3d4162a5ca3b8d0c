package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/liamcoop/scholarship/applicant"
	"github.com/liamcoop/scholarship/internal/config"
	"github.com/liamcoop/scholarship/internal/logger"
	"github.com/liamcoop/scholarship/internal/metrics"
	"github.com/liamcoop/scholarship/internal/watcher"
	"github.com/liamcoop/scholarship/rules"
)

func main() {
	configPath := flag.String("config", os.Getenv("SCHOLARSHIP_CONFIG"), "Path to YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Setup(cfg.LoggerOptions()); err != nil {
		logger.Warn("Logger setup degraded", "error", err)
	}

	if err := run(cfg); err != nil {
		logger.Fatal("Server failed", "error", err)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var source rules.Source = rules.NewDefaultSource()
	if cfg.Rules.File != "" {
		source = rules.NewFileSource(cfg.Rules.File)
	}

	var applicants applicant.Source
	if cfg.Applicants.Enabled() {
		sqlSource, err := applicant.OpenSQLSource(ctx, cfg.Applicants.Driver, cfg.Applicants.DSN)
		if err != nil {
			return err
		}
		defer sqlSource.Close()
		applicants = sqlSource
		logger.Info("Applicant source connected", "driver", cfg.Applicants.Driver)
	}

	server, err := NewServer(ctx, cfg, source, applicants, metrics.NewCollector(nil))
	if err != nil {
		return err
	}

	if cfg.Rules.Watch {
		fw, err := watcher.New(watcher.Config{
			Path:             cfg.Rules.File,
			DebounceInterval: cfg.Rules.ReloadDebounce,
		}, logger.Logger)
		if err != nil {
			return err
		}
		go func() {
			if err := server.watchRules(ctx, fw); err != nil {
				logger.Error("Rule file watcher exited", "error", err)
			}
		}()
	}

	httpServer := &http.Server{
		Addr:         cfg.Server.ListenAddress,
		Handler:      server,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Server starting", "address", cfg.Server.ListenAddress, "rule_source", source.Describe())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("server failed to start: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}
	if err := logger.Shutdown(shutdownCtx); err != nil {
		logger.Error("Logger shutdown error", "error", err)
	}

	logger.Info("Server stopped")
	return nil
}
