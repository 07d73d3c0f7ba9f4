package testutil

import (
	"fmt"
	"reflect"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/vk/memsched/internal/hlo"
)

// RandomNode describes one instruction of a generated graph. Operands index
// earlier nodes, which keeps the graph acyclic.
type RandomNode struct {
	Operands []int
	Width    int64
}

// RandomGraph is a generated single-computation program.
type RandomGraph struct {
	Nodes []RandomNode
}

// GenRandomGraph generates graphs of 1..maxNodes instructions.
func GenRandomGraph(maxNodes int) gopter.Gen {
	return gen.IntRange(1, maxNodes).FlatMap(func(n any) gopter.Gen {
		return gen.SliceOfN(n.(int), gen.UInt64()).Map(func(seeds []uint64) RandomGraph {
			return graphFromSeeds(seeds)
		})
	}, reflect.TypeOf(RandomGraph{}))
}

func graphFromSeeds(seeds []uint64) RandomGraph {
	g := RandomGraph{Nodes: make([]RandomNode, len(seeds))}
	for i, seed := range seeds {
		node := RandomNode{Width: int64(1 + (seed>>8)%64)}
		if i > 0 && seed%4 != 0 {
			node.Operands = append(node.Operands, int((seed>>16)%uint64(i)))
			if seed%3 == 0 {
				node.Operands = append(node.Operands, int((seed>>32)%uint64(i)))
			}
		}
		g.Nodes[i] = node
	}
	return g
}

// Build materialises the graph as a single-entry module. Leaf nodes
// alternate between parameters and constants.
func (g RandomGraph) Build() (*hlo.Module, error) {
	b := hlo.NewBuilder("random")
	instrs := make([]*hlo.Instruction, len(g.Nodes))
	params := 0
	for i, node := range g.Nodes {
		shape := hlo.MakeShape(hlo.F32, node.Width)
		name := fmt.Sprintf("n%d", i)
		switch len(node.Operands) {
		case 0:
			if i%2 == 0 {
				instrs[i] = b.AddParameter(params, shape, name)
				params++
			} else {
				instrs[i] = b.AddConstant(shape, name)
			}
		case 1:
			instrs[i] = b.AddInstruction(hlo.InstructionSpec{
				Name: name, Opcode: hlo.OpNegate, Shape: shape,
				Operands: []*hlo.Instruction{instrs[node.Operands[0]]},
			})
		default:
			instrs[i] = b.AddInstruction(hlo.InstructionSpec{
				Name: name, Opcode: hlo.OpAdd, Shape: shape,
				Operands: []*hlo.Instruction{instrs[node.Operands[0]], instrs[node.Operands[1]]},
			})
		}
	}
	c, err := b.Build()
	if err != nil {
		return nil, err
	}
	m := hlo.NewModule("random")
	if _, err := m.AddEntryComputation(c); err != nil {
		return nil, err
	}
	return m, nil
}
