package config

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/memsched/internal/ctxlog"
	"github.com/vk/memsched/internal/hlo"
)

// ErrCycle is returned when operands or calls in a program description form
// a cycle.
var ErrCycle = errors.New("cycle detected")

// BuildModule resolves every name in model and builds the module.
// Computations and instructions may be listed in any order; callees are built
// before callers and operands before users, otherwise file order is kept.
// If no computation is marked entry, the last one is the entry.
func BuildModule(ctx context.Context, model *Model) (*hlo.Module, error) {
	logger := ctxlog.FromContext(ctx)

	byName := make(map[string]*Computation, len(model.Computations))
	var entry *Computation
	for _, c := range model.Computations {
		if _, dup := byName[c.Name]; dup {
			return nil, fmt.Errorf("%s: computation '%s' is defined twice", model.Source, c.Name)
		}
		byName[c.Name] = c
		if c.Entry {
			if entry != nil {
				return nil, fmt.Errorf("%s: both '%s' and '%s' are marked entry", model.Source, entry.Name, c.Name)
			}
			entry = c
		}
	}
	if len(model.Computations) == 0 {
		return nil, fmt.Errorf("%s: program has no computations", model.Source)
	}
	if entry == nil {
		entry = model.Computations[len(model.Computations)-1]
	}

	order, err := orderComputations(model.Computations, byName)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", model.Source, err)
	}

	m := hlo.NewModule(model.Name)
	built := make(map[string]*hlo.Computation, len(order))
	for _, c := range order {
		comp, err := buildComputation(c, built)
		if err != nil {
			return nil, fmt.Errorf("%s: computation '%s': %w", model.Source, c.Name, err)
		}
		built[c.Name] = comp
		if c == entry {
			if _, err := m.AddEntryComputation(comp); err != nil {
				return nil, err
			}
		} else {
			m.AddEmbeddedComputation(comp)
		}
	}

	logger.Debug("Module built from description.", "module", m.Name(), "computations", len(order), "entry", entry.Name)
	return m, nil
}

// orderComputations sorts callees before callers with a depth-first search
// that tracks the current path to report recursive calls.
func orderComputations(comps []*Computation, byName map[string]*Computation) ([]*Computation, error) {
	visiting := make(map[string]bool)
	visited := make(map[string]bool)
	order := make([]*Computation, 0, len(comps))

	var visit func(c *Computation) error
	visit = func(c *Computation) error {
		visiting[c.Name] = true
		for _, instr := range c.Instructions {
			for _, callee := range instr.Calls {
				dep, ok := byName[callee]
				if !ok {
					return fmt.Errorf("instruction '%s' calls unknown computation '%s'", instr.Name, callee)
				}
				if visiting[dep.Name] {
					return fmt.Errorf("%w: computation '%s' calls '%s'", ErrCycle, c.Name, dep.Name)
				}
				if !visited[dep.Name] {
					if err := visit(dep); err != nil {
						return err
					}
				}
			}
		}
		delete(visiting, c.Name)
		visited[c.Name] = true
		order = append(order, c)
		return nil
	}

	for _, c := range comps {
		if !visited[c.Name] {
			if err := visit(c); err != nil {
				return nil, err
			}
		}
	}
	return order, nil
}

// orderInstructions sorts operands before users, keeping file order where
// it is already valid.
func orderInstructions(c *Computation) ([]*Instruction, error) {
	byName := make(map[string]*Instruction, len(c.Instructions))
	for _, instr := range c.Instructions {
		if _, dup := byName[instr.Name]; dup {
			return nil, fmt.Errorf("instruction '%s' is defined twice", instr.Name)
		}
		byName[instr.Name] = instr
	}

	visiting := make(map[string]bool)
	visited := make(map[string]bool)
	order := make([]*Instruction, 0, len(c.Instructions))

	var visit func(instr *Instruction) error
	visit = func(instr *Instruction) error {
		visiting[instr.Name] = true
		for _, name := range instr.Operands {
			op, ok := byName[name]
			if !ok {
				return fmt.Errorf("instruction '%s' references unknown operand '%s'", instr.Name, name)
			}
			if visiting[name] {
				return fmt.Errorf("%w: instruction '%s' depends on '%s'", ErrCycle, instr.Name, name)
			}
			if !visited[name] {
				if err := visit(op); err != nil {
					return err
				}
			}
		}
		delete(visiting, instr.Name)
		visited[instr.Name] = true
		order = append(order, instr)
		return nil
	}

	for _, instr := range c.Instructions {
		if !visited[instr.Name] {
			if err := visit(instr); err != nil {
				return nil, err
			}
		}
	}
	return order, nil
}

func buildComputation(c *Computation, built map[string]*hlo.Computation) (*hlo.Computation, error) {
	order, err := orderInstructions(c)
	if err != nil {
		return nil, err
	}

	b := hlo.NewBuilder(c.Name)
	instrs := make(map[string]*hlo.Instruction, len(order))
	for _, desc := range order {
		op, err := hlo.ParseOpcode(desc.Op)
		if err != nil {
			return nil, fmt.Errorf("instruction '%s': %w", desc.Name, err)
		}
		shape, err := desc.Shape.Resolve()
		if err != nil {
			return nil, fmt.Errorf("instruction '%s': %w", desc.Name, err)
		}
		spec := hlo.InstructionSpec{
			Name:            desc.Name,
			Opcode:          op,
			Shape:           shape,
			TupleIndex:      desc.Index,
			ParameterNumber: desc.Number,
			Dimensions:      desc.Dimensions,
		}
		for _, name := range desc.Operands {
			spec.Operands = append(spec.Operands, instrs[name])
		}
		for _, name := range desc.Calls {
			spec.Called = append(spec.Called, built[name])
		}
		instrs[desc.Name] = b.AddInstruction(spec)
	}

	if c.Root != "" {
		root, ok := instrs[c.Root]
		if !ok {
			return nil, fmt.Errorf("root '%s' is not an instruction of this computation", c.Root)
		}
		b.SetRoot(root)
	}
	return b.Build()
}
