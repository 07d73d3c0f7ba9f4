package config

import (
	"fmt"

	"github.com/vk/memsched/internal/hlo"
)

// Model is the format-agnostic representation of one program file.
type Model struct {
	// Name of the module. Defaults to the file name without extension.
	Name         string
	Source       string
	Computations []*Computation
}

// Computation is the format-agnostic representation of a `computation`
// block.
type Computation struct {
	Name  string
	Entry bool
	// Root names the output instruction. Empty means the last instruction.
	Root         string
	Instructions []*Instruction
}

// Instruction is the format-agnostic representation of an `instruction`
// block.
type Instruction struct {
	Name       string
	Op         string
	Shape      Shape
	Operands   []string
	Calls      []string
	Index      int
	Number     int
	Dimensions []int64
}

// Shape describes an array (Type plus Dims) or a tuple of shapes.
type Shape struct {
	Type  string
	Dims  []int64
	Tuple []Shape
}

// IsTuple reports whether s describes a tuple.
func (s Shape) IsTuple() bool { return s.Tuple != nil }

// Resolve converts s into an hlo.Shape.
func (s Shape) Resolve() (hlo.Shape, error) {
	if s.IsTuple() {
		if s.Type != "" && s.Type != "tuple" {
			return hlo.Shape{}, fmt.Errorf("shape has both element type '%s' and tuple elements", s.Type)
		}
		elems := make([]hlo.Shape, len(s.Tuple))
		for i, e := range s.Tuple {
			resolved, err := e.Resolve()
			if err != nil {
				return hlo.Shape{}, fmt.Errorf("tuple element %d: %w", i, err)
			}
			elems[i] = resolved
		}
		return hlo.MakeTupleShape(elems...), nil
	}
	t, err := hlo.ParsePrimitiveType(s.Type)
	if err != nil {
		return hlo.Shape{}, err
	}
	if t == hlo.TUPLE {
		return hlo.MakeTupleShape(), nil
	}
	for _, d := range s.Dims {
		if d < 0 {
			return hlo.Shape{}, fmt.Errorf("negative dimension %d in %s shape", d, s.Type)
		}
	}
	return hlo.MakeShape(t, s.Dims...), nil
}
