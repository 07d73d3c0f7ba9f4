package hlo

// Computation is a DAG of instructions under the operand relation with one
// designated root. A computation may be invoked from any number of call sites.
type Computation struct {
	name         string
	instructions []*Instruction
	root         *Instruction
	users        map[*Instruction][]*Instruction
	byName       map[string]*Instruction
}

func (c *Computation) Name() string { return c.name }

// Instructions returns the instructions in creation order. Callers must not
// modify the slice.
func (c *Computation) Instructions() []*Instruction { return c.instructions }

func (c *Computation) InstructionCount() int { return len(c.instructions) }

// Root is the instruction whose value is the computation's output.
func (c *Computation) Root() *Instruction { return c.root }

// Parameters returns the parameter instructions ordered by parameter number.
func (c *Computation) Parameters() []*Instruction {
	var params []*Instruction
	for _, instr := range c.instructions {
		if instr.opcode == OpParameter {
			params = append(params, instr)
		}
	}
	for i := 1; i < len(params); i++ {
		for j := i; j > 0 && params[j].parameterNumber < params[j-1].parameterNumber; j-- {
			params[j], params[j-1] = params[j-1], params[j]
		}
	}
	return params
}

// Contains reports whether instr belongs to this computation.
func (c *Computation) Contains(instr *Instruction) bool {
	return instr != nil && instr.parent == c
}

// InstructionByName looks an instruction up by name.
func (c *Computation) InstructionByName(name string) (*Instruction, bool) {
	instr, ok := c.byName[name]
	return instr, ok
}

// CalledComputations returns every computation invoked by an instruction of
// c, deduplicated, in first-call order.
func (c *Computation) CalledComputations() []*Computation {
	seen := make(map[*Computation]struct{})
	var out []*Computation
	for _, instr := range c.instructions {
		for _, callee := range instr.called {
			if _, ok := seen[callee]; ok {
				continue
			}
			seen[callee] = struct{}{}
			out = append(out, callee)
		}
	}
	return out
}
