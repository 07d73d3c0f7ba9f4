package scheduler

import (
	"context"

	"github.com/vk/memsched/internal/ctxlog"
	"github.com/vk/memsched/internal/hlo"
	"github.com/vk/memsched/internal/memory"
	"github.com/vk/memsched/internal/schedule"
)

// DependencyOrder places instructions in depth-first post-order over their
// operands. Traversal starts from every instruction without users in
// creation order and from the root last, so a root without users ends the
// sequence.
type DependencyOrder struct{}

// NewDependencyOrder ignores size and costs; the order depends only on the
// graph.
func NewDependencyOrder(hlo.SizeFunc, memory.CostTable) Scheduler {
	return &DependencyOrder{}
}

// Schedule implements the Scheduler interface.
func (s *DependencyOrder) Schedule(ctx context.Context, c *hlo.Computation) (schedule.Sequence, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	seq := make(schedule.Sequence, 0, c.InstructionCount())
	visited := make(map[*hlo.Instruction]bool, c.InstructionCount())

	var visit func(instr *hlo.Instruction)
	visit = func(instr *hlo.Instruction) {
		if visited[instr] {
			return
		}
		visited[instr] = true
		for _, op := range instr.Operands() {
			visit(op)
		}
		seq = append(seq, instr)
	}

	for _, instr := range c.Instructions() {
		if instr != c.Root() && instr.UserCount() == 0 {
			visit(instr)
		}
	}
	visit(c.Root())

	ctxlog.FromContext(ctx).Debug("Computation scheduled in dependency order.",
		"computation", c.Name(), "instructions", len(seq))
	return seq, nil
}
