package cli

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"partscout/internal/catalog"
	"partscout/internal/enginecode"
	"partscout/internal/events"
	"partscout/internal/partsprovider"
	"partscout/internal/reconcile"
	"partscout/internal/resolver"
	"partscout/internal/token"
	"partscout/internal/vin"
	"partscout/pkg/config"
	"partscout/pkg/database"
	"partscout/pkg/logging"
)

// App holds the wired components shared by every command.
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	Registry *enginecode.Registry
	Store    *catalog.Store
	Hub      *events.Hub
	Tokens   *token.Manager // nil without a live source
	Engine   *reconcile.Engine
	Service  *resolver.Service
}

// Build wires the application from cfg.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	logger = logging.OrNop(logger)
	reg, err := loadRegistry(cfg.Extractor.PatternsFile)
	if err != nil {
		return nil, err
	}
	extractor := enginecode.NewExtractor(reg,
		enginecode.WithEmbeddedDecay(cfg.Extractor.EmbeddedDecay),
		enginecode.WithMinConfidence(cfg.Extractor.MinConfidence),
	)

	store, err := catalog.Open(ctx, database.Config{Path: cfg.Catalog.Path}, cfg.Catalog.SeedFile, logger)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}

	app := &App{
		Config:   cfg,
		Logger:   logger,
		Registry: reg,
		Store:    store,
		Hub:      events.NewHub(logger),
	}

	// typed nils must not reach the engine as non-nil interfaces
	var (
		live   partsprovider.Provider
		tokens reconcile.TokenSource
	)
	if p := liveProvider(cfg, logger); p != nil {
		app.Tokens = token.NewManager(p, token.Config{
			SafetyMargin:   cfg.Token.SafetyMargin,
			AcquireTimeout: cfg.Token.AcquireTimeout,
		}, logger)
		live, tokens = p, app.Tokens
	}

	app.Engine = reconcile.NewEngine(store, live, tokens, reconcile.Options{
		LiveTimeout: cfg.PartsTech.Timeout,
		Logger:      logger,
		Events:      app.Hub,
	})
	app.Service = resolver.NewService(extractor, app.Engine, resolver.Options{
		Decoder:  vin.NewNHTSA(cfg.NHTSA.BaseURL, cfg.NHTSA.Timeout, logger),
		Profiles: store,
		Logger:   logger,
		Events:   app.Hub,
	})

	logger.Info("application wired",
		zap.Bool("live_enabled", app.Engine.LiveEnabled()),
		zap.Bool("live_demo", cfg.PartsTech.Demo),
		zap.Int("templates", len(reg.Templates())),
	)
	return app, nil
}

func (a *App) Close() error {
	a.Hub.Close()
	return a.Store.Close()
}

func loadRegistry(path string) (*enginecode.Registry, error) {
	if path == "" {
		return enginecode.DefaultRegistry(), nil
	}
	reg, err := enginecode.LoadRegistryFile(path)
	if err != nil {
		return nil, fmt.Errorf("load engine patterns: %w", err)
	}
	return reg, nil
}

// liveProvider returns nil when neither demo mode nor credentials are
// configured.
func liveProvider(cfg *config.Config, logger *zap.Logger) partsprovider.Provider {
	switch {
	case cfg.PartsTech.Demo:
		return partsprovider.NewDemo(cfg.Token.DefaultLifetime)
	case cfg.PartsTech.Enabled():
		return partsprovider.NewPartsTech(partsprovider.PartsTechConfig{
			BaseURL:   cfg.PartsTech.BaseURL,
			Username:  cfg.PartsTech.Username,
			APIKey:    cfg.PartsTech.APIKey,
			Timeout:   cfg.PartsTech.Timeout,
			RateLimit: cfg.PartsTech.RateLimit,
			RateBurst: cfg.PartsTech.RateBurst,
			Lifetime:  cfg.Token.DefaultLifetime,
		}, logger)
	}
	return nil
}
