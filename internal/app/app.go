// Package app builds the enrichment service from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/agenthands/seecat/internal/catalog"
	"github.com/agenthands/seecat/internal/config"
	"github.com/agenthands/seecat/internal/core"
	"github.com/agenthands/seecat/internal/driver"
	"github.com/agenthands/seecat/internal/llm"
	"github.com/agenthands/seecat/internal/metrics"
)

type App struct {
	Config   *config.Config
	Pipeline *core.Pipeline
	Store    driver.Store
	Metrics  *metrics.Metrics
	Logger   *zap.Logger

	closers []func(context.Context) error
}

// Options lets callers swap collaborators, mainly in tests.
type Options struct {
	Catalog  *catalog.Client
	LLM      llm.LLMClient
	Store    driver.Store
	Families *config.Families
}

// New connects every collaborator named in cfg.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts Options) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{Config: cfg, Logger: logger}
	if cfg.Metrics.Enabled {
		a.Metrics = metrics.New()
	}

	families := opts.Families
	if families == nil {
		fs, err := config.LoadFamilies(cfg.Pipeline.FamiliesFile)
		if err != nil {
			return nil, err
		}
		families = fs
		logger.Info("family tables loaded",
			zap.String("file", cfg.Pipeline.FamiliesFile),
			zap.String("version", fs.Version),
			zap.Int("families", len(fs.Families)),
		)
	}

	store := opts.Store
	if store == nil {
		s, err := driver.Open(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		store = s
		a.closers = append(a.closers, s.Close)
	}
	a.Store = store

	client := opts.LLM
	if client == nil {
		c, err := llm.NewClient(ctx, cfg.LLM, logger, a.Metrics)
		if err != nil {
			_ = a.Close(ctx)
			return nil, fmt.Errorf("failed to initialize llm client: %w", err)
		}
		client = c
		if closer, ok := c.(interface{ Close() error }); ok {
			a.closers = append(a.closers, func(context.Context) error { return closer.Close() })
		}
	}

	cat := opts.Catalog
	if cat == nil {
		cat = catalog.NewClient(cfg.Catalog.BaseURL, &http.Client{})
	}

	a.Pipeline = core.NewPipeline(cfg, core.Deps{
		Catalog:  cat,
		LLM:      client,
		Store:    store,
		Families: families,
		Metrics:  a.Metrics,
		Logger:   logger,
	})
	return a, nil
}

// Close releases connections in reverse order of creation.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
