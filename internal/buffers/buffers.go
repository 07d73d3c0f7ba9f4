// Package buffers assigns logical buffers to the values of a computation and
// records which instructions alias them.
//
// Every buffer gets a small integer ID, so "same buffer" is an equality check.
// Each instruction carries a points-to list aligned with the pre-order
// subshapes of its shape; aliasing instructions reuse IDs of their operands
// instead of defining new ones:
//
//   - tuple defines its pointer table; elements alias the operands,
//   - get-tuple-element defines nothing and aliases the operand's element,
//   - bitcast defines nothing and aliases its operand,
//   - while updates loop state in place: its top-level buffer is the init
//     operand's when the shapes match and the loop is the only reader of
//     that value; nested elements are fresh,
//   - everything else defines a buffer at every subshape.
//
// An instruction uses every buffer reachable from its operands' points-to
// lists. Buffers the root points to are live-out.
package buffers

import (
	"sort"

	"github.com/vk/memsched/internal/hlo"
)

// ID identifies a logical buffer within one Analysis.
type ID int32

// Buffer is a storage region defined by one instruction at one shape index.
type Buffer struct {
	ID          ID
	Instruction *hlo.Instruction
	Index       hlo.ShapeIndex
	Shape       hlo.Shape
}

// Analysis is the per-computation aliasing result.
type Analysis struct {
	computation *hlo.Computation
	buffers     []Buffer
	defined     map[*hlo.Instruction][]ID
	pointsTo    map[*hlo.Instruction][]ID
	uses        map[*hlo.Instruction][]ID
	users       [][]*hlo.Instruction
	liveOut     map[ID]struct{}

	// inPlace maps each while that reuses its init buffer to that buffer.
	inPlace map[*hlo.Instruction]ID
	// fresh holds the whiles that must not update their init in place.
	fresh map[*hlo.Instruction]bool
}

// Analyze runs the analysis over c.
func Analyze(c *hlo.Computation) *Analysis {
	fresh := make(map[*hlo.Instruction]bool)
	for {
		a := analyze(c, fresh)
		conflicts := a.inPlaceConflicts()
		if len(conflicts) == 0 {
			return a
		}
		for _, w := range conflicts {
			fresh[w] = true
		}
	}
}

func analyze(c *hlo.Computation, fresh map[*hlo.Instruction]bool) *Analysis {
	a := &Analysis{
		computation: c,
		defined:     make(map[*hlo.Instruction][]ID),
		pointsTo:    make(map[*hlo.Instruction][]ID),
		uses:        make(map[*hlo.Instruction][]ID),
		liveOut:     make(map[ID]struct{}),
		inPlace:     make(map[*hlo.Instruction]ID),
		fresh:       fresh,
	}
	for _, instr := range c.Instructions() {
		a.pointsTo[instr] = a.assign(instr)
	}
	a.users = make([][]*hlo.Instruction, len(a.buffers))
	for _, instr := range c.Instructions() {
		seen := make(map[ID]struct{})
		var used []ID
		for _, op := range instr.Operands() {
			for _, id := range a.pointsTo[op] {
				if _, ok := seen[id]; ok {
					continue
				}
				seen[id] = struct{}{}
				used = append(used, id)
			}
		}
		sort.Slice(used, func(i, j int) bool { return used[i] < used[j] })
		a.uses[instr] = used
		for _, id := range used {
			a.users[id] = append(a.users[id], instr)
		}
	}
	for _, id := range a.pointsTo[c.Root()] {
		a.liveOut[id] = struct{}{}
	}
	return a
}

func (a *Analysis) define(instr *hlo.Instruction, index hlo.ShapeIndex, shape hlo.Shape) ID {
	id := ID(len(a.buffers))
	a.buffers = append(a.buffers, Buffer{ID: id, Instruction: instr, Index: index, Shape: shape})
	a.defined[instr] = append(a.defined[instr], id)
	return id
}

func (a *Analysis) defineAll(instr *hlo.Instruction) []ID {
	ids := make([]ID, 0, instr.Shape().SubshapeCount())
	instr.Shape().ForEachSubshape(func(sub hlo.Shape, index hlo.ShapeIndex) {
		ids = append(ids, a.define(instr, index, sub))
	})
	return ids
}

func (a *Analysis) assign(instr *hlo.Instruction) []ID {
	switch instr.Opcode() {
	case hlo.OpTuple:
		ids := []ID{a.define(instr, hlo.ShapeIndex{}, instr.Shape())}
		for _, op := range instr.Operands() {
			ids = append(ids, a.pointsTo[op]...)
		}
		return ids

	case hlo.OpGetTupleElement:
		op := instr.Operand(0)
		start, end := elementRange(op.Shape(), instr.TupleIndex())
		return append([]ID(nil), a.pointsTo[op][start:end]...)

	case hlo.OpBitcast:
		return append([]ID(nil), a.pointsTo[instr.Operand(0)]...)

	case hlo.OpWhile:
		init := instr.Operand(0)
		if a.fresh[instr] || !init.Shape().Equal(instr.Shape()) {
			return a.defineAll(instr)
		}
		ids := []ID{a.pointsTo[init][0]}
		a.inPlace[instr] = ids[0]
		instr.Shape().ForEachSubshape(func(sub hlo.Shape, index hlo.ShapeIndex) {
			if len(index) > 0 {
				ids = append(ids, a.define(instr, index, sub))
			}
		})
		return ids

	default:
		return a.defineAll(instr)
	}
}

// inPlaceConflicts returns the in-place whiles whose init buffer is still
// read by someone other than the loop. Readers that reach the buffer
// through the loop's own output are fine.
func (a *Analysis) inPlaceConflicts() []*hlo.Instruction {
	var conflicts []*hlo.Instruction
	for _, w := range a.computation.Instructions() {
		id, ok := a.inPlace[w]
		if !ok {
			continue
		}
		// before holds the instructions carrying id without going through w.
		before := make(map[*hlo.Instruction]bool)
		for _, instr := range a.computation.Instructions() {
			if instr == w || !containsID(a.pointsTo[instr], id) {
				continue
			}
			if a.buffers[id].Instruction == instr {
				before[instr] = true
				continue
			}
			for _, op := range instr.Operands() {
				if before[op] && containsID(a.pointsTo[op], id) {
					before[instr] = true
					break
				}
			}
		}
		for instr := range before {
			if a.readOutside(instr, w, before) {
				conflicts = append(conflicts, w)
				break
			}
		}
	}
	return conflicts
}

// readOutside reports whether instr's value is read by anything but w or
// another carrier of the same buffer. The root is read by the caller.
func (a *Analysis) readOutside(instr, w *hlo.Instruction, before map[*hlo.Instruction]bool) bool {
	if instr == a.computation.Root() {
		return true
	}
	for _, u := range instr.Users() {
		if u != w && !before[u] {
			return true
		}
	}
	return false
}

func containsID(ids []ID, id ID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

// elementRange locates the pre-order slice of tuple element n of s.
func elementRange(s hlo.Shape, n int) (int, int) {
	start := 1
	for i := 0; i < n; i++ {
		start += s.Tuple[i].SubshapeCount()
	}
	return start, start + s.Tuple[n].SubshapeCount()
}

// Computation returns the analysed computation.
func (a *Analysis) Computation() *hlo.Computation { return a.computation }

func (a *Analysis) NumBuffers() int { return len(a.buffers) }

func (a *Analysis) Buffer(id ID) Buffer { return a.buffers[id] }

// Defined returns the buffers instr allocates.
func (a *Analysis) Defined(instr *hlo.Instruction) []ID { return a.defined[instr] }

// PointsTo returns the buffers backing instr's value, in subshape pre-order.
func (a *Analysis) PointsTo(instr *hlo.Instruction) []ID { return a.pointsTo[instr] }

// Uses returns the distinct buffers read by instr, sorted by ID.
func (a *Analysis) Uses(instr *hlo.Instruction) []ID { return a.uses[instr] }

// Users returns the instructions using buffer id, in creation order.
func (a *Analysis) Users(id ID) []*hlo.Instruction { return a.users[id] }

func (a *Analysis) IsLiveOut(id ID) bool {
	_, ok := a.liveOut[id]
	return ok
}

// LiveOut returns the buffers that outlive the computation, sorted.
func (a *Analysis) LiveOut() []ID {
	out := make([]ID, 0, len(a.liveOut))
	for id := range a.liveOut {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
