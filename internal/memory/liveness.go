package memory

import (
	"errors"
	"fmt"

	"github.com/vk/memsched/internal/buffers"
	"github.com/vk/memsched/internal/hlo"
)

// ErrMissingSchedule is returned when a computation invoked by a control-flow
// instruction has no known cost yet.
var ErrMissingSchedule = errors.New("missing schedule for invoked computation")

// CostTable answers the minimum memory of already scheduled computations.
type CostTable interface {
	MemoryFor(c *hlo.Computation) (int64, bool)
}

// Costs is a map-backed CostTable.
type Costs map[*hlo.Computation]int64

func (c Costs) MemoryFor(comp *hlo.Computation) (int64, bool) {
	bytes, ok := c[comp]
	return bytes, ok
}

// Liveness is the per-instruction cost model over one buffer analysis.
type Liveness struct {
	analysis *buffers.Analysis
	sizes    []int64
	defined  map[*hlo.Instruction]int64
}

// NewLiveness sizes every buffer of a with size.
func NewLiveness(a *buffers.Analysis, size hlo.SizeFunc) *Liveness {
	l := &Liveness{
		analysis: a,
		sizes:    make([]int64, a.NumBuffers()),
		defined:  make(map[*hlo.Instruction]int64),
	}
	for i := range l.sizes {
		b := a.Buffer(buffers.ID(i))
		l.sizes[i] = size(b.Shape)
		l.defined[b.Instruction] += l.sizes[i]
	}
	return l
}

func (l *Liveness) Analysis() *buffers.Analysis { return l.analysis }

func (l *Liveness) BufferSize(id buffers.ID) int64 { return l.sizes[id] }

// BytesDefined is what instr allocates. Aliasing instructions define
// nothing.
func (l *Liveness) BytesDefined(instr *hlo.Instruction) int64 { return l.defined[instr] }

// Uses returns the distinct buffers instr reads.
func (l *Liveness) Uses(instr *hlo.Instruction) []buffers.ID { return l.analysis.Uses(instr) }

// InitialUseCounts returns, per buffer, the number of instructions still to
// read it. Live-out buffers carry one extra use so they are never freed.
func (l *Liveness) InitialUseCounts() []int {
	counts := make([]int, len(l.sizes))
	for i := range counts {
		id := buffers.ID(i)
		counts[i] = len(l.analysis.Users(id))
		if l.analysis.IsLiveOut(id) {
			counts[i]++
		}
	}
	return counts
}

// SubcomputationBytes is the transient cost of the computations instr
// invokes. They never run concurrently, so the cost is their maximum.
func (l *Liveness) SubcomputationBytes(instr *hlo.Instruction, costs CostTable) (int64, error) {
	var peak int64
	for _, called := range instr.CalledComputations() {
		if costs == nil {
			return 0, fmt.Errorf("%w: '%s' invoked by '%s'", ErrMissingSchedule, called.Name(), instr.Name())
		}
		bytes, ok := costs.MemoryFor(called)
		if !ok {
			return 0, fmt.Errorf("%w: '%s' invoked by '%s'", ErrMissingSchedule, called.Name(), instr.Name())
		}
		peak = max(peak, bytes)
	}
	return peak, nil
}
