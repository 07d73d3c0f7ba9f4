// Package schedule holds the produced artifact of a scheduling run: a total
// order over one computation's instructions and the per-module map of them.
package schedule

import (
	"errors"
	"fmt"
	"sort"

	"github.com/vk/memsched/internal/hlo"
)

// ErrInvalidSequence is returned when an order is not a dependency-respecting
// permutation of a computation's instructions.
var ErrInvalidSequence = errors.New("invalid sequence")

// Sequence is a total order over the instructions of one computation.
type Sequence []*hlo.Instruction

// Validate checks that s contains exactly the instructions of c, each once,
// and that every operand appears strictly before its user.
func (s Sequence) Validate(c *hlo.Computation) error {
	if len(s) != c.InstructionCount() {
		return fmt.Errorf("%w: computation '%s' has %d instructions, sequence has %d",
			ErrInvalidSequence, c.Name(), c.InstructionCount(), len(s))
	}
	placed := make(map[*hlo.Instruction]struct{}, len(s))
	for _, instr := range s {
		if instr == nil || !c.Contains(instr) {
			return fmt.Errorf("%w: sequence for '%s' contains a foreign instruction %v",
				ErrInvalidSequence, c.Name(), instr)
		}
		if _, dup := placed[instr]; dup {
			return fmt.Errorf("%w: instruction '%s' appears twice", ErrInvalidSequence, instr.Name())
		}
		for _, op := range instr.Operands() {
			if _, ok := placed[op]; !ok {
				return fmt.Errorf("%w: '%s' is placed before its operand '%s'",
					ErrInvalidSequence, instr.Name(), op.Name())
			}
		}
		placed[instr] = struct{}{}
	}
	return nil
}

// Positions maps every instruction to its index in s.
func (s Sequence) Positions() map[*hlo.Instruction]int {
	pos := make(map[*hlo.Instruction]int, len(s))
	for i, instr := range s {
		pos[instr] = i
	}
	return pos
}

// Names returns the instruction names in order.
func (s Sequence) Names() []string {
	names := make([]string, len(s))
	for i, instr := range s {
		names[i] = instr.Name()
	}
	return names
}

// ModuleSequence maps every computation of a module to its sequence.
type ModuleSequence map[*hlo.Computation]Sequence

// Validate checks the sequence of every computation in m. A computation
// without a sequence is reported as invalid.
func (ms ModuleSequence) Validate(m *hlo.Module) error {
	for _, c := range m.Computations() {
		seq, ok := ms[c]
		if !ok {
			return fmt.Errorf("%w: computation '%s' has no sequence", ErrInvalidSequence, c.Name())
		}
		if err := seq.Validate(c); err != nil {
			return err
		}
	}
	return nil
}

// Names returns the instruction names of every sequence keyed by
// computation name.
func (ms ModuleSequence) Names() map[string][]string {
	out := make(map[string][]string, len(ms))
	for c, seq := range ms {
		out[c.Name()] = seq.Names()
	}
	return out
}

// Computations returns the scheduled computations sorted by name.
func (ms ModuleSequence) Computations() []*hlo.Computation {
	out := make([]*hlo.Computation, 0, len(ms))
	for c := range ms {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}
