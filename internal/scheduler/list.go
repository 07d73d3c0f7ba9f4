package scheduler

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/memsched/internal/buffers"
	"github.com/vk/memsched/internal/ctxlog"
	"github.com/vk/memsched/internal/hlo"
	"github.com/vk/memsched/internal/memory"
	"github.com/vk/memsched/internal/schedule"
)

// ErrIncompleteSchedule is returned when the ready set empties before every
// instruction was placed.
var ErrIncompleteSchedule = errors.New("incomplete schedule")

// List is the greedy memory-aware scheduler.
type List struct {
	size  hlo.SizeFunc
	costs memory.CostTable
}

// NewList creates a list scheduler. costs must know every computation the
// scheduled computations invoke.
func NewList(size hlo.SizeFunc, costs memory.CostTable) Scheduler {
	return &List{size: size, costs: costs}
}

// listState is the bookkeeping of one Schedule call.
type listState struct {
	computation *hlo.Computation
	liveness    *memory.Liveness
	// remaining counts the readers of each buffer not yet placed, plus one
	// for live-out buffers.
	remaining []int
	// pending counts the distinct operands of each instruction not yet placed.
	pending   map[*hlo.Instruction]int
	transient map[*hlo.Instruction]int64
	ready     []*hlo.Instruction
	placed    schedule.Sequence
}

// Schedule implements the Scheduler interface.
func (s *List) Schedule(ctx context.Context, c *hlo.Computation) (schedule.Sequence, error) {
	logger := ctxlog.FromContext(ctx)

	st, err := s.newState(c)
	if err != nil {
		return nil, err
	}

	for len(st.ready) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		best := st.pick()
		st.place(best)
	}

	if len(st.placed) != c.InstructionCount() {
		return nil, fmt.Errorf("%w: computation '%s' placed %d of %d instructions",
			ErrIncompleteSchedule, c.Name(), len(st.placed), c.InstructionCount())
	}
	logger.Debug("Computation scheduled by list scheduler.",
		"computation", c.Name(), "instructions", len(st.placed))
	return st.placed, nil
}

func (s *List) newState(c *hlo.Computation) (*listState, error) {
	l := memory.NewLiveness(buffers.Analyze(c), s.size)
	st := &listState{
		computation: c,
		liveness:    l,
		remaining:   l.InitialUseCounts(),
		pending:     make(map[*hlo.Instruction]int, c.InstructionCount()),
		transient:   make(map[*hlo.Instruction]int64),
		placed:      make(schedule.Sequence, 0, c.InstructionCount()),
	}
	for _, instr := range c.Instructions() {
		if len(instr.CalledComputations()) > 0 {
			bytes, err := l.SubcomputationBytes(instr, s.costs)
			if err != nil {
				return nil, fmt.Errorf("computation '%s': %w", c.Name(), err)
			}
			st.transient[instr] = bytes
		}
		n := len(instr.UniqueOperands())
		st.pending[instr] = n
		if n == 0 {
			st.ready = append(st.ready, instr)
		}
	}
	return st, nil
}

// priority is the bytes freed by placing instr now minus the bytes it
// allocates, including its transient invoked-computation cost.
func (st *listState) priority(instr *hlo.Instruction) int64 {
	var freed int64
	for _, id := range st.liveness.Uses(instr) {
		if st.remaining[id] == 1 {
			freed += st.liveness.BufferSize(id)
		}
	}
	return freed - st.liveness.BytesDefined(instr) - st.transient[instr]
}

// deferred reports whether instr must wait for every other candidate. A root
// nobody reads is the computation's output and always goes last.
func (st *listState) deferred(instr *hlo.Instruction) bool {
	return instr == st.computation.Root() && instr.UserCount() == 0 && len(st.ready) > 1
}

// pick returns the candidate with the highest priority, breaking ties by
// creation order.
func (st *listState) pick() *hlo.Instruction {
	var best *hlo.Instruction
	var bestPriority int64
	for _, instr := range st.ready {
		if st.deferred(instr) {
			continue
		}
		p := st.priority(instr)
		if best == nil || p > bestPriority || (p == bestPriority && instr.ID() < best.ID()) {
			best, bestPriority = instr, p
		}
	}
	return best
}

func (st *listState) place(instr *hlo.Instruction) {
	st.placed = append(st.placed, instr)
	for i, r := range st.ready {
		if r == instr {
			st.ready = append(st.ready[:i], st.ready[i+1:]...)
			break
		}
	}
	for _, id := range st.liveness.Uses(instr) {
		st.remaining[id]--
	}
	for _, user := range instr.Users() {
		st.pending[user]--
		if st.pending[user] == 0 {
			st.ready = append(st.ready, user)
		}
	}
}
