package hlo

import "fmt"

// Instruction is a single operation node of a computation. It is immutable
// once its computation has been built.
type Instruction struct {
	id              int
	name            string
	opcode          Opcode
	shape           Shape
	operands        []*Instruction
	called          []*Computation
	tupleIndex      int
	parameterNumber int
	dimensions      []int64
	parent          *Computation
}

// ID is the creation index of the instruction within its computation. It is
// the deterministic tie-breaker used by every scheduler.
func (i *Instruction) ID() int { return i.id }

func (i *Instruction) Name() string   { return i.name }
func (i *Instruction) Opcode() Opcode { return i.opcode }
func (i *Instruction) Shape() Shape   { return i.shape }

// Parent is the computation owning the instruction.
func (i *Instruction) Parent() *Computation { return i.parent }

// Operands returns the ordered operand list. Callers must not modify it.
func (i *Instruction) Operands() []*Instruction { return i.operands }

func (i *Instruction) Operand(n int) *Instruction { return i.operands[n] }
func (i *Instruction) OperandCount() int          { return len(i.operands) }

// UniqueOperands returns the operands with duplicates removed, keeping the
// first occurrence order.
func (i *Instruction) UniqueOperands() []*Instruction {
	seen := make(map[*Instruction]struct{}, len(i.operands))
	out := make([]*Instruction, 0, len(i.operands))
	for _, op := range i.operands {
		if _, ok := seen[op]; ok {
			continue
		}
		seen[op] = struct{}{}
		out = append(out, op)
	}
	return out
}

// Users returns the instructions that take i as an operand, in creation
// order. This is an index derived from the operand relation.
func (i *Instruction) Users() []*Instruction {
	if i.parent == nil {
		return nil
	}
	return i.parent.users[i]
}

func (i *Instruction) UserCount() int { return len(i.Users()) }

// CalledComputations lists the computations the instruction invokes: the
// condition then the body for a while, one per branch for a conditional, the
// target for a call.
func (i *Instruction) CalledComputations() []*Computation { return i.called }

// WhileCondition returns the condition computation of a while instruction.
func (i *Instruction) WhileCondition() *Computation {
	if i.opcode != OpWhile {
		return nil
	}
	return i.called[0]
}

// WhileBody returns the body computation of a while instruction.
func (i *Instruction) WhileBody() *Computation {
	if i.opcode != OpWhile {
		return nil
	}
	return i.called[1]
}

// TupleIndex is the element accessed by a get-tuple-element instruction.
func (i *Instruction) TupleIndex() int { return i.tupleIndex }

// ParameterNumber is the position of a parameter instruction.
func (i *Instruction) ParameterNumber() int { return i.parameterNumber }

// Dimensions holds the dimension attribute of broadcast and transpose.
func (i *Instruction) Dimensions() []int64 { return i.dimensions }

func (i *Instruction) String() string {
	return fmt.Sprintf("%%%s = %s %s", i.name, i.shape, i.opcode)
}
