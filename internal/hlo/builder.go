package hlo

import (
	"errors"
	"fmt"
)

// ErrMalformedGraph reports a structural defect in a program graph: an
// operand from another computation, a broken arity rule, an unknown callee.
var ErrMalformedGraph = errors.New("malformed graph")

// InstructionSpec is the generic description consumed by AddInstruction.
type InstructionSpec struct {
	Name            string
	Opcode          Opcode
	Shape           Shape
	Operands        []*Instruction
	Called          []*Computation
	TupleIndex      int
	ParameterNumber int
	Dimensions      []int64
}

// Builder assembles a computation. Operands must be added before the
// instructions that use them, so built computations are acyclic. Errors are
// collected and reported by Build.
type Builder struct {
	comp  *Computation
	err   error
	built bool
}

// NewBuilder starts a new computation with the given name.
func NewBuilder(name string) *Builder {
	return &Builder{comp: &Computation{
		name:   name,
		users:  make(map[*Instruction][]*Instruction),
		byName: make(map[string]*Instruction),
	}}
}

func (b *Builder) fail(format string, args ...any) {
	if b.err == nil {
		b.err = fmt.Errorf("computation %q: %w: %s", b.comp.name, ErrMalformedGraph, fmt.Sprintf(format, args...))
	}
}

// AddInstruction validates spec and appends the instruction.
func (b *Builder) AddInstruction(spec InstructionSpec) *Instruction {
	instr := &Instruction{
		id:              len(b.comp.instructions),
		name:            spec.Name,
		opcode:          spec.Opcode,
		shape:           spec.Shape,
		operands:        append([]*Instruction(nil), spec.Operands...),
		called:          append([]*Computation(nil), spec.Called...),
		tupleIndex:      spec.TupleIndex,
		parameterNumber: spec.ParameterNumber,
		dimensions:      append([]int64(nil), spec.Dimensions...),
		parent:          b.comp,
	}
	if instr.name == "" {
		instr.name = fmt.Sprintf("%s.%d", instr.opcode, instr.id)
	}

	if b.built {
		b.fail("instruction %q added after Build", instr.name)
		return instr
	}
	if _, dup := b.comp.byName[instr.name]; dup {
		b.fail("duplicate instruction name %q", instr.name)
	}
	for n, op := range instr.operands {
		if op == nil {
			b.fail("instruction %q: operand %d is nil", instr.name, n)
			continue
		}
		if op.parent != b.comp {
			b.fail("instruction %q: operand %q is not a member of this computation", instr.name, op.name)
		}
	}
	for _, callee := range instr.called {
		if callee == nil {
			b.fail("instruction %q: called computation is nil", instr.name)
		}
	}
	if err := checkArity(instr); err != nil {
		b.fail("instruction %q: %v", instr.name, err)
	}

	b.comp.instructions = append(b.comp.instructions, instr)
	b.comp.byName[instr.name] = instr
	return instr
}

func checkArity(instr *Instruction) error {
	nOps, nCalls := len(instr.operands), len(instr.called)
	op := instr.opcode
	if !op.CallsComputations() && nCalls > 0 {
		return fmt.Errorf("%s cannot invoke computations", op)
	}
	switch {
	case op == OpParameter || op == OpConstant:
		if nOps != 0 {
			return fmt.Errorf("%s takes no operands, got %d", op, nOps)
		}
	case op.IsUnary(), op == OpBitcast, op == OpBroadcast, op == OpTranspose, op == OpReshape:
		if nOps != 1 {
			return fmt.Errorf("%s takes 1 operand, got %d", op, nOps)
		}
	case op.IsBinary():
		if nOps != 2 {
			return fmt.Errorf("%s takes 2 operands, got %d", op, nOps)
		}
	case op == OpTuple:
		if !instr.shape.IsTuple() || instr.shape.TupleCount() != nOps {
			return fmt.Errorf("tuple shape %s does not match %d operands", instr.shape, nOps)
		}
	case op == OpGetTupleElement:
		if nOps != 1 {
			return fmt.Errorf("get-tuple-element takes 1 operand, got %d", nOps)
		}
		if operand := instr.operands[0]; operand != nil {
			if instr.tupleIndex < 0 || instr.tupleIndex >= operand.shape.TupleCount() {
				return fmt.Errorf("tuple index %d out of range for %s", instr.tupleIndex, operand.shape)
			}
		}
	case op == OpWhile:
		if nOps != 1 || nCalls != 2 {
			return fmt.Errorf("while takes 1 operand and 2 computations, got %d and %d", nOps, nCalls)
		}
	case op == OpConditional:
		if nCalls == 0 || nOps != nCalls+1 {
			return fmt.Errorf("conditional takes a predicate plus one operand per branch, got %d operands for %d branches", nOps, nCalls)
		}
	case op == OpCall:
		if nCalls != 1 {
			return fmt.Errorf("call invokes exactly 1 computation, got %d", nCalls)
		}
	default:
		return fmt.Errorf("unsupported opcode %s", op)
	}
	return nil
}

func (b *Builder) AddParameter(number int, shape Shape, name string) *Instruction {
	return b.AddInstruction(InstructionSpec{Name: name, Opcode: OpParameter, Shape: shape, ParameterNumber: number})
}

func (b *Builder) AddConstant(shape Shape, name string) *Instruction {
	return b.AddInstruction(InstructionSpec{Name: name, Opcode: OpConstant, Shape: shape})
}

func (b *Builder) AddUnary(shape Shape, op Opcode, operand *Instruction) *Instruction {
	return b.AddInstruction(InstructionSpec{Opcode: op, Shape: shape, Operands: []*Instruction{operand}})
}

func (b *Builder) AddBinary(shape Shape, op Opcode, lhs, rhs *Instruction) *Instruction {
	return b.AddInstruction(InstructionSpec{Opcode: op, Shape: shape, Operands: []*Instruction{lhs, rhs}})
}

// AddTuple derives the tuple shape from the element operands.
func (b *Builder) AddTuple(elements ...*Instruction) *Instruction {
	shapes := make([]Shape, len(elements))
	for i, e := range elements {
		if e != nil {
			shapes[i] = e.shape
		}
	}
	return b.AddInstruction(InstructionSpec{Opcode: OpTuple, Shape: MakeTupleShape(shapes...), Operands: elements})
}

// AddGetTupleElement derives its shape from the operand's element at index.
func (b *Builder) AddGetTupleElement(operand *Instruction, index int) *Instruction {
	var shape Shape
	if operand != nil && index >= 0 && index < operand.shape.TupleCount() {
		shape = operand.shape.Tuple[index]
	}
	return b.AddInstruction(InstructionSpec{Opcode: OpGetTupleElement, Shape: shape, Operands: []*Instruction{operand}, TupleIndex: index})
}

func (b *Builder) AddBitcast(shape Shape, operand *Instruction) *Instruction {
	return b.AddInstruction(InstructionSpec{Opcode: OpBitcast, Shape: shape, Operands: []*Instruction{operand}})
}

func (b *Builder) AddWhile(shape Shape, condition, body *Computation, init *Instruction) *Instruction {
	return b.AddInstruction(InstructionSpec{
		Opcode:   OpWhile,
		Shape:    shape,
		Operands: []*Instruction{init},
		Called:   []*Computation{condition, body},
	})
}

func (b *Builder) AddConditional(shape Shape, pred *Instruction, branches []*Computation, branchOperands ...*Instruction) *Instruction {
	return b.AddInstruction(InstructionSpec{
		Opcode:   OpConditional,
		Shape:    shape,
		Operands: append([]*Instruction{pred}, branchOperands...),
		Called:   branches,
	})
}

func (b *Builder) AddCall(shape Shape, target *Computation, operands ...*Instruction) *Instruction {
	return b.AddInstruction(InstructionSpec{Opcode: OpCall, Shape: shape, Operands: operands, Called: []*Computation{target}})
}

func (b *Builder) AddBroadcast(shape Shape, operand *Instruction, dims []int64) *Instruction {
	return b.AddInstruction(InstructionSpec{Opcode: OpBroadcast, Shape: shape, Operands: []*Instruction{operand}, Dimensions: dims})
}

func (b *Builder) AddTranspose(shape Shape, operand *Instruction, dims []int64) *Instruction {
	return b.AddInstruction(InstructionSpec{Opcode: OpTranspose, Shape: shape, Operands: []*Instruction{operand}, Dimensions: dims})
}

func (b *Builder) AddReshape(shape Shape, operand *Instruction) *Instruction {
	return b.AddInstruction(InstructionSpec{Opcode: OpReshape, Shape: shape, Operands: []*Instruction{operand}})
}

// SetRoot designates the output instruction. Without it the last added
// instruction is the root.
func (b *Builder) SetRoot(instr *Instruction) {
	if instr == nil || instr.parent != b.comp {
		b.fail("root is not a member of this computation")
		return
	}
	b.comp.root = instr
}

// Build freezes the computation and derives the user index.
func (b *Builder) Build() (*Computation, error) {
	if b.built {
		return nil, fmt.Errorf("computation %q: Build called twice", b.comp.name)
	}
	if len(b.comp.instructions) == 0 {
		b.fail("computation has no instructions")
	}
	if b.err != nil {
		return nil, b.err
	}
	b.built = true

	c := b.comp
	if c.root == nil {
		c.root = c.instructions[len(c.instructions)-1]
	}
	for _, instr := range c.instructions {
		for _, op := range instr.UniqueOperands() {
			c.users[op] = append(c.users[op], instr)
		}
	}
	return c, nil
}
