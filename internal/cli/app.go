package cli

import (
	"context"
	"fmt"

	"coppia/internal/achievements"
	"coppia/internal/backend"
	"coppia/internal/cache"
	"coppia/internal/config"
	"coppia/internal/log"
	"coppia/internal/metrics"
	"coppia/internal/services"
)

// App is the service graph every binary runs on.
type App struct {
	Config  *config.Config
	Backend *backend.BackendResult
	Service *services.FinanceService
	Metrics *metrics.Metrics

	caches *cache.Manager
}

// AppOptions selects the optional pieces of the graph.
type AppOptions struct {
	// Metrics, when set, is shared by the service and the achievement engine.
	Metrics *metrics.Metrics
	// DashboardCache enables the per-user dashboard cache and its cleanup loop.
	DashboardCache bool
}

// NewApp opens the configured backend and builds the finance service over it.
func NewApp(ctx context.Context, cfg *config.Config, logger *log.Logger, opts AppOptions) (*App, error) {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		return nil, fmt.Errorf("create backend: %w", err)
	}

	engineOpts := []achievements.Option{achievements.WithLogger(logger.Slog())}
	if opts.Metrics != nil {
		engineOpts = append(engineOpts, achievements.WithFaultObserver(opts.Metrics.RuleFault))
	}
	engine, err := achievements.NewEngine(achievements.DefaultCatalog(), engineOpts...)
	if err != nil {
		_ = res.Cleanup()
		return nil, fmt.Errorf("build achievement engine: %w", err)
	}

	app := &App{Config: cfg, Backend: res, Metrics: opts.Metrics}

	svcOpts := append(res.ServiceOptions(), services.WithLogger(logger))
	if opts.Metrics != nil {
		svcOpts = append(svcOpts, services.WithMetrics(opts.Metrics))
	}
	if opts.DashboardCache && cfg.CacheTTL > 0 {
		dashboards := cache.NewLRUCache[services.Dashboard](cfg.CacheSize, cfg.CacheTTL)
		app.caches = cache.NewManager()
		app.caches.Register(dashboards)
		app.caches.StartCleanup(cfg.CacheTTL)
		svcOpts = append(svcOpts, services.WithDashboardCache(dashboards))
	}

	app.Service = services.NewFinanceService(res.Store, engine, svcOpts...)
	return app, nil
}

// Close stops the cache cleanup loop and releases the backend.
func (a *App) Close() error {
	if a.caches != nil {
		a.caches.Stop()
	}
	return a.Backend.Cleanup()
}
