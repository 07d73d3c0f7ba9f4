// Package testutil holds program fixtures and assertions shared by the
// scheduling tests.
package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/memsched/internal/hlo"
)

// Program is a built module plus name lookups for assertions.
type Program struct {
	Module       *hlo.Module
	Computations map[string]*hlo.Computation
	Instructions map[string]*hlo.Instruction
}

// Entry returns the entry computation.
func (p *Program) Entry() *hlo.Computation { return p.Module.EntryComputation() }

// I returns the named instruction, failing the test when it is missing.
func (p *Program) I(t *testing.T, name string) *hlo.Instruction {
	t.Helper()
	instr, ok := p.Instructions[name]
	require.True(t, ok, "fixture has no instruction %q", name)
	return instr
}

// C returns the named computation, failing the test when it is missing.
func (p *Program) C(t *testing.T, name string) *hlo.Computation {
	t.Helper()
	c, ok := p.Computations[name]
	require.True(t, ok, "fixture has no computation %q", name)
	return c
}

type programBuilder struct {
	t *testing.T
	p *Program
}

func newProgram(t *testing.T, name string) *programBuilder {
	return &programBuilder{t: t, p: &Program{
		Module:       hlo.NewModule(name),
		Computations: make(map[string]*hlo.Computation),
		Instructions: make(map[string]*hlo.Instruction),
	}}
}

func (pb *programBuilder) finish(b *hlo.Builder, entry bool) *hlo.Computation {
	pb.t.Helper()
	c, err := b.Build()
	require.NoError(pb.t, err)
	if entry {
		_, err = pb.p.Module.AddEntryComputation(c)
		require.NoError(pb.t, err)
	} else {
		pb.p.Module.AddEmbeddedComputation(c)
	}
	pb.p.Computations[c.Name()] = c
	for _, instr := range c.Instructions() {
		pb.p.Instructions[instr.Name()] = instr
	}
	return c
}

func named(b *hlo.Builder, name string, spec hlo.InstructionSpec) *hlo.Instruction {
	spec.Name = name
	return b.AddInstruction(spec)
}

// WhileTupleProgram is a while loop over a two-element f32 tuple. With an
// 8-byte pointer width and the order [param_iter, param_data, tuple, while]
// the entry needs exactly 56 bytes.
func WhileTupleProgram(t *testing.T) *Program {
	t.Helper()
	pb := newProgram(t, "while_tuple")
	scalar := hlo.MakeShape(hlo.F32)
	pair := hlo.MakeTupleShape(scalar, scalar)

	cb := hlo.NewBuilder("WhileCond")
	condParam := cb.AddParameter(0, pair, "cond_param")
	iter := named(cb, "cond_iter", hlo.InstructionSpec{Opcode: hlo.OpGetTupleElement, Shape: scalar, Operands: []*hlo.Instruction{condParam}, TupleIndex: 0})
	data := named(cb, "cond_data", hlo.InstructionSpec{Opcode: hlo.OpGetTupleElement, Shape: scalar, Operands: []*hlo.Instruction{condParam}, TupleIndex: 1})
	named(cb, "cond_lt", hlo.InstructionSpec{Opcode: hlo.OpLt, Shape: hlo.MakeShape(hlo.PRED), Operands: []*hlo.Instruction{iter, data}})
	cond := pb.finish(cb, false)

	bb := hlo.NewBuilder("WhileBody")
	bb.AddParameter(0, pair, "body_param")
	body := pb.finish(bb, false)

	eb := hlo.NewBuilder("entry")
	pIter := eb.AddParameter(0, scalar, "param_iter")
	pData := eb.AddParameter(1, scalar, "param_data")
	tuple := named(eb, "tuple", hlo.InstructionSpec{Opcode: hlo.OpTuple, Shape: pair, Operands: []*hlo.Instruction{pIter, pData}})
	named(eb, "while", hlo.InstructionSpec{Opcode: hlo.OpWhile, Shape: pair, Operands: []*hlo.Instruction{tuple}, Called: []*hlo.Computation{cond, body}})
	pb.finish(eb, true)
	return pb.p
}

// LastUseProgram computes sub(add(abs(p), exp(p)), negate(exp(p))) over
// f32[42]. Scheduling add before negate frees the abs buffer early.
func LastUseProgram(t *testing.T) *Program {
	t.Helper()
	pb := newProgram(t, "last_use")
	vec := hlo.MakeShape(hlo.F32, 42)

	b := hlo.NewBuilder("entry")
	param := b.AddParameter(0, vec, "param")
	ab := named(b, "ab", hlo.InstructionSpec{Opcode: hlo.OpAbs, Shape: vec, Operands: []*hlo.Instruction{param}})
	exp := named(b, "exp", hlo.InstructionSpec{Opcode: hlo.OpExp, Shape: vec, Operands: []*hlo.Instruction{param}})
	add := named(b, "add", hlo.InstructionSpec{Opcode: hlo.OpAdd, Shape: vec, Operands: []*hlo.Instruction{ab, exp}})
	negate := named(b, "negate", hlo.InstructionSpec{Opcode: hlo.OpNegate, Shape: vec, Operands: []*hlo.Instruction{exp}})
	named(b, "sub", hlo.InstructionSpec{Opcode: hlo.OpSubtract, Shape: vec, Operands: []*hlo.Instruction{add, negate}})
	pb.finish(b, true)
	return pb.p
}

// AliasingProgram threads two copies through a tuple and reads them back
// with get-tuple-element. d and e become ready together; only d frees p1.
func AliasingProgram(t *testing.T) *Program {
	t.Helper()
	pb := newProgram(t, "test_aliasing_module")
	vec := hlo.MakeShape(hlo.S32, 1000)
	pair := hlo.MakeTupleShape(vec, vec)

	b := hlo.NewBuilder("root")
	param := b.AddParameter(0, vec, "param")
	p0 := named(b, "p0", hlo.InstructionSpec{Opcode: hlo.OpCopy, Shape: vec, Operands: []*hlo.Instruction{param}})
	p1 := named(b, "p1", hlo.InstructionSpec{Opcode: hlo.OpCopy, Shape: vec, Operands: []*hlo.Instruction{param}})
	tuple := named(b, "t", hlo.InstructionSpec{Opcode: hlo.OpTuple, Shape: pair, Operands: []*hlo.Instruction{p0, p1}})
	a := named(b, "a", hlo.InstructionSpec{Opcode: hlo.OpGetTupleElement, Shape: vec, Operands: []*hlo.Instruction{tuple}, TupleIndex: 0})
	bb := named(b, "b", hlo.InstructionSpec{Opcode: hlo.OpGetTupleElement, Shape: vec, Operands: []*hlo.Instruction{tuple}, TupleIndex: 1})
	c := named(b, "c", hlo.InstructionSpec{Opcode: hlo.OpAdd, Shape: vec, Operands: []*hlo.Instruction{a, bb}})
	d := named(b, "d", hlo.InstructionSpec{Opcode: hlo.OpAdd, Shape: vec, Operands: []*hlo.Instruction{c, bb}})
	e := named(b, "e", hlo.InstructionSpec{Opcode: hlo.OpAdd, Shape: vec, Operands: []*hlo.Instruction{c, c}})
	f := named(b, "f", hlo.InstructionSpec{Opcode: hlo.OpAdd, Shape: vec, Operands: []*hlo.Instruction{e, e}})
	named(b, "result", hlo.InstructionSpec{
		Opcode:   hlo.OpTuple,
		Shape:    hlo.MakeTupleShape(vec, vec, vec),
		Operands: []*hlo.Instruction{d, e, f},
	})
	pb.finish(b, true)
	return pb.p
}

// SubcomputationsProgram adds transpose(matrix) to broadcast(while(...)).
// The greedy scheduler defers the expensive while into the busy window,
// which is a known suboptimal choice of the heuristic.
func SubcomputationsProgram(t *testing.T) *Program {
	t.Helper()
	pb := newProgram(t, "subcomputations")
	r1 := hlo.MakeShape(hlo.F32, 4)
	r2 := hlo.MakeShape(hlo.F32, 2, 4)
	row := hlo.MakeShape(hlo.F32, 1, 4)

	cb := hlo.NewBuilder("WhileCond")
	condParam := cb.AddParameter(0, r1, "cond_param")
	zero := cb.AddConstant(row, "zero_vector")
	named(cb, "not-equal-to", hlo.InstructionSpec{Opcode: hlo.OpNe, Shape: hlo.MakeShape(hlo.PRED), Operands: []*hlo.Instruction{condParam, zero}})
	cond := pb.finish(cb, false)

	bb := hlo.NewBuilder("WhileBody")
	bodyParam := bb.AddParameter(0, r1, "body_param")
	one := bb.AddConstant(row, "one_vector")
	named(bb, "subtract", hlo.InstructionSpec{Opcode: hlo.OpSubtract, Shape: r1, Operands: []*hlo.Instruction{bodyParam, one}})
	body := pb.finish(bb, false)

	eb := hlo.NewBuilder("entry")
	init := eb.AddConstant(row, "while_init")
	loop := named(eb, "while_loop", hlo.InstructionSpec{Opcode: hlo.OpWhile, Shape: r1, Operands: []*hlo.Instruction{init}, Called: []*hlo.Computation{cond, body}})
	bcast := named(eb, "bcast", hlo.InstructionSpec{Opcode: hlo.OpBroadcast, Shape: r2, Operands: []*hlo.Instruction{loop}, Dimensions: []int64{0}})
	matrix := eb.AddConstant(r2, "matrix")
	transpose := named(eb, "transpose", hlo.InstructionSpec{Opcode: hlo.OpTranspose, Shape: r2, Operands: []*hlo.Instruction{matrix}, Dimensions: []int64{0, 1}})
	named(eb, "add", hlo.InstructionSpec{Opcode: hlo.OpAdd, Shape: r2, Operands: []*hlo.Instruction{transpose, bcast}})
	pb.finish(eb, true)
	return pb.p
}

// ConditionalProgram selects between two branch computations of different
// cost and feeds the result through a call.
func ConditionalProgram(t *testing.T) *Program {
	t.Helper()
	pb := newProgram(t, "conditional")
	vec := hlo.MakeShape(hlo.F32, 8)
	pred := hlo.MakeShape(hlo.PRED)

	tb := hlo.NewBuilder("TrueBranch")
	tp := tb.AddParameter(0, vec, "true_param")
	named(tb, "true_neg", hlo.InstructionSpec{Opcode: hlo.OpNegate, Shape: vec, Operands: []*hlo.Instruction{tp}})
	trueBranch := pb.finish(tb, false)

	fb := hlo.NewBuilder("FalseBranch")
	fp := fb.AddParameter(0, vec, "false_param")
	fexp := named(fb, "false_exp", hlo.InstructionSpec{Opcode: hlo.OpExp, Shape: vec, Operands: []*hlo.Instruction{fp}})
	fabs := named(fb, "false_abs", hlo.InstructionSpec{Opcode: hlo.OpAbs, Shape: vec, Operands: []*hlo.Instruction{fp}})
	named(fb, "false_add", hlo.InstructionSpec{Opcode: hlo.OpAdd, Shape: vec, Operands: []*hlo.Instruction{fexp, fabs}})
	falseBranch := pb.finish(fb, false)

	sb := hlo.NewBuilder("Scale")
	sp := sb.AddParameter(0, vec, "scale_param")
	named(sb, "scale_mul", hlo.InstructionSpec{Opcode: hlo.OpMultiply, Shape: vec, Operands: []*hlo.Instruction{sp, sp}})
	scale := pb.finish(sb, false)

	eb := hlo.NewBuilder("entry")
	p := eb.AddParameter(0, pred, "pred")
	x := eb.AddParameter(1, vec, "x")
	y := eb.AddParameter(2, vec, "y")
	before := named(eb, "before", hlo.InstructionSpec{Opcode: hlo.OpAdd, Shape: vec, Operands: []*hlo.Instruction{x, y}})
	cond := named(eb, "cond", hlo.InstructionSpec{
		Opcode:   hlo.OpConditional,
		Shape:    vec,
		Operands: []*hlo.Instruction{p, before, y},
		Called:   []*hlo.Computation{trueBranch, falseBranch},
	})
	call := named(eb, "call", hlo.InstructionSpec{Opcode: hlo.OpCall, Shape: vec, Operands: []*hlo.Instruction{cond}, Called: []*hlo.Computation{scale}})
	named(eb, "after", hlo.InstructionSpec{Opcode: hlo.OpNegate, Shape: vec, Operands: []*hlo.Instruction{call}})
	pb.finish(eb, true)
	return pb.p
}

// LoopStateProgram runs a while over an f32[4] constant. With readAfter the
// entry root is add(loop, c), so c is still read once the loop is done;
// otherwise the root is negate(loop).
func LoopStateProgram(t *testing.T, readAfter bool) *Program {
	t.Helper()
	pb := newProgram(t, "loop_state")
	vec := hlo.MakeShape(hlo.F32, 4)

	cb := hlo.NewBuilder("LoopCond")
	condParam := cb.AddParameter(0, vec, "loop_cond_param")
	named(cb, "loop_cond_lt", hlo.InstructionSpec{Opcode: hlo.OpLt, Shape: hlo.MakeShape(hlo.PRED), Operands: []*hlo.Instruction{condParam, condParam}})
	cond := pb.finish(cb, false)

	bb := hlo.NewBuilder("LoopBody")
	bb.AddParameter(0, vec, "loop_body_param")
	body := pb.finish(bb, false)

	eb := hlo.NewBuilder("entry")
	c := eb.AddConstant(vec, "c")
	loop := named(eb, "loop", hlo.InstructionSpec{Opcode: hlo.OpWhile, Shape: vec, Operands: []*hlo.Instruction{c}, Called: []*hlo.Computation{cond, body}})
	if readAfter {
		named(eb, "a", hlo.InstructionSpec{Opcode: hlo.OpAdd, Shape: vec, Operands: []*hlo.Instruction{loop, c}})
	} else {
		named(eb, "a", hlo.InstructionSpec{Opcode: hlo.OpNegate, Shape: vec, Operands: []*hlo.Instruction{loop}})
	}
	pb.finish(eb, true)
	return pb.p
}
