// Package ordering answers "does a run before b" over a scheduled module.
//
// Inside one computation the answer is the position in its sequence. An
// instruction of an invoked computation is lifted to its call site first, so
// it runs after everything placed before the call site and before everything
// placed after it. Lifting only passes through computations with a single
// call site. Two instructions that lift to the same call site, such as the
// arms of a conditional or the condition and body of a loop, are
// incomparable: ExecutesBefore is false in both directions.
package ordering

import (
	"fmt"
	"strings"

	"github.com/vk/memsched/internal/callgraph"
	"github.com/vk/memsched/internal/hlo"
	"github.com/vk/memsched/internal/schedule"
)

// Sequential is the ordering induced by one sequence per computation.
type Sequential struct {
	graph     *callgraph.Graph
	seqs      schedule.ModuleSequence
	positions map[*hlo.Instruction]int
}

// NewSequential builds the ordering. seqs must hold a valid sequence for
// every computation of m.
func NewSequential(m *hlo.Module, seqs schedule.ModuleSequence) (*Sequential, error) {
	g, err := callgraph.Build(m)
	if err != nil {
		return nil, err
	}
	if err := seqs.Validate(m); err != nil {
		return nil, err
	}
	s := &Sequential{graph: g, seqs: seqs, positions: make(map[*hlo.Instruction]int)}
	for _, seq := range seqs {
		for i, instr := range seq {
			s.positions[instr] = i
		}
	}
	return s, nil
}

// ExecutesBefore reports whether a is known to run before b.
func (s *Sequential) ExecutesBefore(a, b *hlo.Instruction) bool {
	if a == b {
		return false
	}
	liftedA, liftedB := s.graph.NearestAncestorsInSameComputation(a, b)
	if liftedA == nil || liftedA == liftedB {
		return false
	}
	return s.positions[liftedA] < s.positions[liftedB]
}

// SequenceOf returns the sequence of c.
func (s *Sequential) SequenceOf(c *hlo.Computation) schedule.Sequence {
	return s.seqs[c]
}

// String dumps the sequences, callees first.
func (s *Sequential) String() string {
	var sb strings.Builder
	sb.WriteString("SequentialOrdering\n")
	for _, c := range s.graph.PostOrder() {
		fmt.Fprintf(&sb, "computation %s order:\n", c.Name())
		for _, instr := range s.seqs[c] {
			fmt.Fprintf(&sb, "  %s\n", instr.Name())
		}
	}
	return sb.String()
}
