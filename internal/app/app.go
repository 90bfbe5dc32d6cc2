package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/vk/opgraph/internal/config"
	"github.com/vk/opgraph/internal/ctxlog"
	"github.com/vk/opgraph/internal/hclgraph"
	"github.com/vk/opgraph/internal/metrics"
	"github.com/vk/opgraph/internal/registry"
	"github.com/vk/opgraph/internal/yamlgraph"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	config   *Config
	registry *registry.Registry
	loaders  []config.Loader

	promRegistry *prometheus.Registry
	metrics      *metrics.Metrics
	httpServer   *http.Server
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance, including its own isolated logger, registry and
// metrics registry. Without explicit modules the core operator bundle is
// registered. Registering two operators under one name panics.
func NewApp(outW io.Writer, cfg *Config, modules ...registry.Module) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	logger.Debug("Logger configured successfully.")

	if len(modules) == 0 {
		modules = coreModules(outW)
	}
	reg := registry.New(modules...)
	logger.Debug("All operator modules registered.", "modules", len(modules), "operators", reg.List())

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &App{
		outW:         outW,
		logger:       logger,
		config:       cfg,
		registry:     reg,
		loaders:      []config.Loader{hclgraph.NewLoader(), yamlgraph.NewLoader()},
		promRegistry: promReg,
		metrics:      metrics.New(promReg),
	}
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// withLogger attaches the application's logger to ctx.
func (a *App) withLogger(ctx context.Context) context.Context {
	return ctxlog.WithLogger(ctx, a.logger)
}
