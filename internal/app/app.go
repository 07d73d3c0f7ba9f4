package app

import (
	"context"
	"io"
	"log/slog"

	"github.com/vk/memsched/internal/config"
	"github.com/vk/memsched/internal/ctxlog"
	"github.com/vk/memsched/internal/hcl_adapter"
	"github.com/vk/memsched/internal/metrics"
	"github.com/vk/memsched/internal/yaml_adapter"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW    io.Writer
	logger  *slog.Logger
	config  *Config
	loaders map[string]config.Loader
	metrics *metrics.Recorder
}

// NewApp is the constructor for the main application. Reports go to outW and
// logs to logW. Without loaders, the HCL and YAML loaders are used.
func NewApp(outW, logW io.Writer, cfg *Config, loaders ...config.Loader) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, logW)
	logger.Debug("Logger configured successfully.")

	if len(loaders) == 0 {
		loaders = []config.Loader{hcl_adapter.NewLoader(), yaml_adapter.NewLoader()}
	}
	byExt := make(map[string]config.Loader)
	for _, l := range loaders {
		for _, ext := range l.Extensions() {
			byExt[ext] = l
		}
	}
	logger.Debug("Program loaders registered.", "count", len(loaders), "extensions", len(byExt))

	return &App{
		outW:    outW,
		logger:  logger,
		config:  cfg,
		loaders: byExt,
		metrics: metrics.NewRecorder(),
	}
}

// Metrics returns the application's metrics recorder. This is primarily for testing.
func (a *App) Metrics() *metrics.Recorder {
	return a.metrics
}

func (a *App) context(ctx context.Context) context.Context {
	return ctxlog.WithLogger(ctx, a.logger)
}
