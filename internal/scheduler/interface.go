package scheduler

import (
	"context"

	"github.com/vk/memsched/internal/hlo"
	"github.com/vk/memsched/internal/memory"
	"github.com/vk/memsched/internal/schedule"
)

// Scheduler produces a sequence for a single computation.
//
// The returned sequence is a permutation of the computation's instructions in
// which every operand precedes its users. Implementations are deterministic:
// the same computation always yields the same sequence.
//
// Computations invoked by c must already have a cost in the CostTable the
// scheduler was created with, otherwise memory.ErrMissingSchedule is returned.
type Scheduler interface {
	Schedule(ctx context.Context, c *hlo.Computation) (schedule.Sequence, error)
}

// Factory creates a scheduler bound to a size function and to the costs of
// computations scheduled so far.
type Factory func(size hlo.SizeFunc, costs memory.CostTable) Scheduler
