package memory

import (
	"fmt"

	"github.com/vk/memsched/internal/buffers"
	"github.com/vk/memsched/internal/hlo"
	"github.com/vk/memsched/internal/schedule"
)

// Step is the simulated state right after one instruction was placed.
type Step struct {
	Instruction *hlo.Instruction
	// Live is the persistent live bytes after freeing.
	Live int64
	// Transient is the invoked-computation cost charged during the step.
	Transient int64
	// Peak is the highest total seen during the step.
	Peak int64
}

// Profile is the full simulation of one sequence.
type Profile struct {
	Steps  []Step
	Peak   int64
	PeakAt *hlo.Instruction
}

// Simulate walks seq over c and records the live bytes of every step.
func Simulate(c *hlo.Computation, seq schedule.Sequence, size hlo.SizeFunc, costs CostTable) (*Profile, error) {
	if err := seq.Validate(c); err != nil {
		return nil, err
	}
	l := NewLiveness(buffers.Analyze(c), size)
	remaining := l.InitialUseCounts()

	p := &Profile{Steps: make([]Step, 0, len(seq))}
	var live int64
	for _, instr := range seq {
		transient, err := l.SubcomputationBytes(instr, costs)
		if err != nil {
			return nil, err
		}
		live += l.BytesDefined(instr)
		step := Step{Instruction: instr, Transient: transient, Peak: live + transient}
		if step.Peak > p.Peak || p.PeakAt == nil {
			p.Peak, p.PeakAt = step.Peak, instr
		}

		for _, id := range l.Uses(instr) {
			remaining[id]--
			if remaining[id] == 0 {
				live -= l.BufferSize(id)
			}
		}
		// Dead definitions are released right after they are produced.
		for _, id := range l.Analysis().Defined(instr) {
			if remaining[id] == 0 {
				live -= l.BufferSize(id)
			}
		}
		step.Live = live
		p.Steps = append(p.Steps, step)
	}
	return p, nil
}

// MinimumMemoryForComputation returns the peak bytes of running c in the
// order seq. costs must know every computation c invokes.
func MinimumMemoryForComputation(c *hlo.Computation, seq schedule.Sequence, size hlo.SizeFunc, costs CostTable) (int64, error) {
	p, err := Simulate(c, seq, size, costs)
	if err != nil {
		return 0, fmt.Errorf("computation '%s': %w", c.Name(), err)
	}
	return p.Peak, nil
}

// MinimumMemoryForModule returns the peak bytes of the entry computation of
// m. The cost of every computation it transitively invokes is derived from
// seqs first.
func MinimumMemoryForModule(m *hlo.Module, seqs schedule.ModuleSequence, size hlo.SizeFunc) (int64, error) {
	entry := m.EntryComputation()
	if entry == nil {
		return 0, fmt.Errorf("%w: module '%s' has no entry computation", hlo.ErrMalformedGraph, m.Name())
	}
	costs := make(Costs)
	visiting := make(map[*hlo.Computation]bool)

	var visit func(c *hlo.Computation) error
	visit = func(c *hlo.Computation) error {
		if _, done := costs[c]; done {
			return nil
		}
		if visiting[c] {
			return fmt.Errorf("%w: computation '%s' invokes itself", hlo.ErrMalformedGraph, c.Name())
		}
		visiting[c] = true
		for _, callee := range c.CalledComputations() {
			if err := visit(callee); err != nil {
				return err
			}
		}
		visiting[c] = false

		seq, ok := seqs[c]
		if !ok {
			return fmt.Errorf("%w: '%s'", ErrMissingSchedule, c.Name())
		}
		bytes, err := MinimumMemoryForComputation(c, seq, size, costs)
		if err != nil {
			return err
		}
		costs[c] = bytes
		return nil
	}

	if err := visit(entry); err != nil {
		return 0, err
	}
	return costs[entry], nil
}
