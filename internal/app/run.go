package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/vk/memsched/internal/config"
	"github.com/vk/memsched/internal/driver"
	"github.com/vk/memsched/internal/fsutil"
	"github.com/vk/memsched/internal/hlo"
)

// ErrNoPrograms is returned when the configured path holds no program files.
var ErrNoPrograms = errors.New("no program files found")

// Run loads every program under the configured path, schedules each module
// and writes the report.
func (a *App) Run(ctx context.Context) error {
	ctx = a.context(ctx)
	a.logger.Debug("App.Run method started.")

	files, err := fsutil.FindFiles(a.config.Path, a.extensions()...)
	if err != nil {
		return fmt.Errorf("failed to discover programs: %w", err)
	}
	if len(files) == 0 {
		return fmt.Errorf("%w under %s", ErrNoPrograms, a.config.Path)
	}
	a.logger.Debug("Program files discovered.", "count", len(files))

	size := hlo.ByteSizeFunc(a.config.PointerSize)
	results := make([]*moduleResult, 0, len(files))
	for _, path := range files {
		res, err := a.scheduleFile(ctx, path, size)
		if err != nil {
			return err
		}
		results = append(results, res)
		a.logger.Info("Module scheduled.", "module", res.Module.Name(), "strategy", res.Strategy, "memory_bytes", res.Peak)
	}

	if err := a.writeReport(results); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	if a.config.MetricsOut != "" {
		if err := a.metrics.WriteTextfile(a.config.MetricsOut); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
		a.logger.Debug("Metrics written.", "path", a.config.MetricsOut)
	}

	a.logger.Debug("App.Run method finished.")
	return nil
}

func (a *App) extensions() []string {
	exts := make([]string, 0, len(a.loaders))
	for ext := range a.loaders {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

func (a *App) scheduleFile(ctx context.Context, path string, size hlo.SizeFunc) (*moduleResult, error) {
	loader, ok := a.loaders[filepath.Ext(path)]
	if !ok {
		return nil, fmt.Errorf("no loader for %s", path)
	}
	model, err := loader.Load(ctx, path)
	if err != nil {
		return nil, err
	}
	m, err := config.BuildModule(ctx, model)
	if err != nil {
		return nil, fmt.Errorf("failed to build module from %s: %w", path, err)
	}
	res, err := driver.Run(ctx, m, size,
		driver.WithStrategy(a.config.Strategy),
		driver.WithWorkers(a.config.Workers),
		driver.WithMetrics(a.metrics),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to schedule %s: %w", path, err)
	}
	return &moduleResult{Result: res, Source: path}, nil
}
