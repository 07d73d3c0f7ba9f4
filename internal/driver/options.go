package driver

import (
	"github.com/vk/memsched/internal/metrics"
	"github.com/vk/memsched/internal/scheduler"
	"github.com/vk/memsched/internal/schedulestore"
)

type options struct {
	strategy string
	factory  scheduler.Factory
	workers  int
	metrics  *metrics.Recorder
	store    schedulestore.Store
}

// Option configures a scheduling run.
type Option func(*options)

// WithStrategy selects a built-in strategy by name.
func WithStrategy(name string) Option {
	return func(o *options) { o.strategy = name }
}

// WithFactory schedules with f. name labels the strategy in logs and
// metrics.
func WithFactory(name string, f scheduler.Factory) Option {
	return func(o *options) {
		o.strategy = name
		o.factory = f
	}
}

// WithWorkers sets how many computations of one level may be scheduled at
// the same time. Values below 2 schedule sequentially.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithMetrics records every scheduled computation on r.
func WithMetrics(r *metrics.Recorder) Option {
	return func(o *options) { o.metrics = r }
}

// WithStore accumulates results in s instead of a fresh in-memory store.
func WithStore(s schedulestore.Store) Option {
	return func(o *options) { o.store = s }
}
