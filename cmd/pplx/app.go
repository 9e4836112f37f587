package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/flemzord/pplx/internal/config"
	ctxengine "github.com/flemzord/pplx/internal/context"
	"github.com/flemzord/pplx/internal/metrics"
	"github.com/flemzord/pplx/internal/provider/perplexity"
	"github.com/flemzord/pplx/internal/security"
	"github.com/flemzord/pplx/internal/session"
	"github.com/flemzord/pplx/internal/session/sqlite"
	"github.com/flemzord/pplx/internal/telemetry"
)

const telemetryShutdownTimeout = 5 * time.Second

// app holds everything a command needs once configuration is resolved.
type app struct {
	cfg      *config.Config
	cfgPath  string
	logger   *slog.Logger
	recorder *metrics.Recorder
	client   *perplexity.Client

	closers []func() error
}

// loadConfig resolves and loads the configuration and builds the logger.
// It does not validate, so config subcommands can inspect a broken file.
func loadConfig(cmd *cobra.Command) (*app, error) {
	flagPath, _ := cmd.Flags().GetString("config")
	levelName, _ := cmd.Flags().GetString("log-level")

	level, err := parseLevel(levelName)
	if err != nil {
		return nil, err
	}

	path, err := config.ResolvePath(flagPath)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	redactor := security.NewRedactor(cfg.APIKey)
	return &app{
		cfg:     cfg,
		cfgPath: path,
		logger:  newLogger(level, redactor),
	}, nil
}

// setup loads and validates configuration, then starts tracing, the
// optional metrics listener, and the API client. Callers must defer close.
func setup(cmd *cobra.Command) (*app, error) {
	a, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if err := config.Validate(a.cfg); err != nil {
		return nil, err
	}
	ctx := cmd.Context()

	shutdown, err := telemetry.Setup(ctx, telemetry.Config{Endpoint: a.cfg.Tracing.Endpoint, Version: version})
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() error {
		ctx, cancel := context.WithTimeout(context.Background(), telemetryShutdownTimeout)
		defer cancel()
		return shutdown(ctx)
	})

	clientOpts := []perplexity.Option{perplexity.WithLogger(a.logger)}
	if a.cfg.MetricsAddr != "" {
		a.recorder = metrics.NewRecorder()
		if err := a.recorder.Serve(ctx, a.cfg.MetricsAddr, a.logger); err != nil {
			a.close()
			return nil, fmt.Errorf("metrics: listen on %s: %w", a.cfg.MetricsAddr, err)
		}
		clientOpts = append(clientOpts, perplexity.WithObserver(a.recorder))
	}

	a.client, err = perplexity.New(a.cfg.Provider(), clientOpts...)
	if err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

// newManager returns an empty conversation wired to the client for
// summaries.
func (a *app) newManager() *ctxengine.Manager {
	opts := []ctxengine.ManagerOption{ctxengine.WithLogger(a.logger)}
	if a.recorder != nil {
		opts = append(opts, ctxengine.WithObserver(a.recorder))
	}
	return ctxengine.NewManager(nil, ctxengine.DefaultEstimator(a.logger), a.client, opts...)
}

// openSessions opens the configured session backend.
func (a *app) openSessions(ctx context.Context) (session.Store, error) {
	switch a.cfg.SessionBackend {
	case config.BackendSQLite:
		store, err := sqlite.Open(ctx, filepath.Join(a.cfg.SessionDir, sqlite.DefaultFile), a.logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, store.Close)
		return store, nil
	default:
		return session.NewFileStore(a.cfg.SessionDir, a.logger)
	}
}

func (a *app) close() {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	if err := errors.Join(errs...); err != nil {
		a.logger.Warn("shutdown", "error", err)
	}
}
