package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/kozaktomas/face-detection/internal/config"
	"github.com/kozaktomas/face-detection/internal/database"
	"github.com/kozaktomas/face-detection/internal/database/mariadb"
	"github.com/kozaktomas/face-detection/internal/database/postgres"
	"github.com/kozaktomas/face-detection/internal/facematch"
	"github.com/kozaktomas/face-detection/internal/metrics"
	"github.com/kozaktomas/face-detection/internal/recognizer"
	"github.com/kozaktomas/face-detection/internal/storage"
)

// app holds everything a command needs to run the recognizer.
type app struct {
	cfg      *config.Config
	files    *storage.Store
	exporter *metrics.Exporter
	service  *recognizer.Service
	closers  []io.Closer
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			slog.Warn("close failed", "error", err)
		}
	}
}

// openDatabase connects the configured driver and registers it as the
// identity backend.
func openDatabase(ctx context.Context, cfg *config.DatabaseConfig) (io.Closer, error) {
	if cfg.URL == "" {
		return nil, errors.New("DATABASE_URL environment variable is required")
	}

	switch cfg.Driver {
	case config.DriverMySQL:
		slog.Info("connecting to MariaDB database")
		pool, err := mariadb.Initialize(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize MariaDB: %w", err)
		}
		return pool, nil
	default:
		slog.Info("connecting to PostgreSQL database")
		pool, err := postgres.Initialize(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
		}
		return pool, nil
	}
}

// newApp loads configuration and wires storage, database, pipeline and
// service. The caller must Close the returned app.
func newApp(ctx context.Context) (*app, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	a := &app{cfg: cfg, exporter: metrics.New(nil)}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	files, err := storage.New(cfg.Uploads.Folder, cfg.Uploads.AllowedExtensions)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare upload folder: %w", err)
	}
	a.files = files

	db, err := openDatabase(ctx, &cfg.Database)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, db)

	store, err := database.GetIdentityWriter(ctx)
	if err != nil {
		return nil, fmt.Errorf("identity store: %w", err)
	}

	pipeline, err := recognizer.NewPipeline(ctx, cfg, slog.Default())
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, pipeline)

	strategy, err := facematch.StrategyFor(pipeline.Encoder.Variant())
	if err != nil {
		return nil, err
	}
	svc, err := recognizer.New(recognizer.Options{
		Detector:  pipeline.Detector,
		Encoder:   pipeline.Encoder,
		Store:     store,
		Files:     files,
		Metrics:   a.exporter,
		Logger:    slog.Default(),
		Tolerance: cfg.Tolerance(strategy),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create recognizer: %w", err)
	}
	a.service = svc

	slog.Info("recognizer ready", "method", svc.Method(), "tolerance", svc.Tolerance(), "database", database.Backend())
	ok = true
	return a, nil
}
