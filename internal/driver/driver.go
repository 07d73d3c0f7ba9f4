package driver

import (
	"context"
	"fmt"
	"time"

	"github.com/vk/memsched/internal/callgraph"
	"github.com/vk/memsched/internal/ctxlog"
	"github.com/vk/memsched/internal/hlo"
	"github.com/vk/memsched/internal/inmemoryschedule"
	"github.com/vk/memsched/internal/memory"
	"github.com/vk/memsched/internal/schedule"
	"github.com/vk/memsched/internal/scheduler"
	"golang.org/x/sync/errgroup"
)

// Result is the outcome of scheduling one module.
type Result struct {
	Module   *hlo.Module
	Strategy string
	Sequence schedule.ModuleSequence
	// Memory is the minimum memory of every computation under its sequence.
	Memory map[*hlo.Computation]int64
	// Peak is the minimum memory of the entry computation, invoked
	// computations included.
	Peak int64
}

type run struct {
	module *hlo.Module
	size   hlo.SizeFunc
	opts   options
}

// ScheduleModule returns a sequence for every computation of m.
func ScheduleModule(ctx context.Context, m *hlo.Module, size hlo.SizeFunc, opts ...Option) (schedule.ModuleSequence, error) {
	res, err := Run(ctx, m, size, opts...)
	if err != nil {
		return nil, err
	}
	return res.Sequence, nil
}

// Run schedules m and reports the memory of every computation.
func Run(ctx context.Context, m *hlo.Module, size hlo.SizeFunc, opts ...Option) (*Result, error) {
	ctx = ctxlog.With(ctx, "module", m.Name())
	logger := ctxlog.FromContext(ctx)

	r := &run{module: m, size: size, opts: options{workers: 1}}
	for _, opt := range opts {
		opt(&r.opts)
	}
	if r.opts.factory == nil {
		f, err := scheduler.Lookup(r.opts.strategy)
		if err != nil {
			return nil, err
		}
		r.opts.factory = f
	}
	if r.opts.strategy == "" {
		r.opts.strategy = scheduler.DefaultStrategy
	}
	if r.opts.store == nil {
		r.opts.store = inmemoryschedule.New()
	}

	g, err := callgraph.Build(m)
	if err != nil {
		return nil, fmt.Errorf("module '%s': %w", m.Name(), err)
	}
	logger.Debug("Scheduling module.", "computations", len(g.PostOrder()),
		"levels", len(g.Levels()), "strategy", r.opts.strategy, "workers", r.opts.workers)

	if r.opts.workers > 1 {
		err = r.parallel(ctx, g)
	} else {
		err = r.sequential(ctx, g)
	}
	if err != nil {
		return nil, fmt.Errorf("module '%s': %w", m.Name(), err)
	}

	res := &Result{
		Module:   m,
		Strategy: r.opts.strategy,
		Sequence: r.opts.store.Snapshot(ctx),
		Memory:   make(map[*hlo.Computation]int64, len(g.PostOrder())),
	}
	for _, c := range g.PostOrder() {
		res.Memory[c], _ = r.opts.store.MemoryFor(c)
	}
	res.Peak = res.Memory[m.EntryComputation()]
	r.opts.metrics.ObserveModule(m.Name(), res.Peak)

	logger.Debug("Module scheduled.", "memory_bytes", res.Peak)
	return res, nil
}

func (r *run) sequential(ctx context.Context, g *callgraph.Graph) error {
	for _, c := range g.PostOrder() {
		if err := r.scheduleOne(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

// parallel schedules one level at a time. A level only reads the costs of
// lower levels, which are complete once the previous Wait returns.
func (r *run) parallel(ctx context.Context, g *callgraph.Graph) error {
	for i, level := range g.Levels() {
		ctxlog.FromContext(ctx).Debug("Scheduling level.", "level", i, "computations", len(level))
		eg, egCtx := errgroup.WithContext(ctx)
		eg.SetLimit(r.opts.workers)
		for _, c := range level {
			eg.Go(func() error { return r.scheduleOne(egCtx, c) })
		}
		if err := eg.Wait(); err != nil {
			return err
		}
	}
	return nil
}

func (r *run) scheduleOne(ctx context.Context, c *hlo.Computation) error {
	logger := ctxlog.FromContext(ctx).With("computation", c.Name())
	store := r.opts.store
	start := time.Now()

	seq, err := r.opts.factory(r.size, store).Schedule(ctx, c)
	if err != nil {
		return fmt.Errorf("scheduling '%s': %w", c.Name(), err)
	}
	if err := seq.Validate(c); err != nil {
		return fmt.Errorf("strategy '%s' produced a bad sequence: %w", r.opts.strategy, err)
	}
	bytes, err := memory.MinimumMemoryForComputation(c, seq, r.size, store)
	if err != nil {
		return err
	}
	took := time.Since(start)

	if err := store.Put(ctx, c, seq, bytes); err != nil {
		return err
	}
	r.opts.metrics.ObserveComputation(r.opts.strategy, r.module.Name(), c.Name(), took, bytes)
	logger.Debug("Computation scheduled.", "instructions", len(seq), "memory_bytes", bytes, "took", took)
	return nil
}
