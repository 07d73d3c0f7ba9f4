// Package callgraph builds the invocation relation between the computations
// of a module. Schedulers use it to visit callees before callers, and the
// sequential ordering uses it to lift instructions to a common computation.
package callgraph

import (
	"errors"
	"fmt"

	"github.com/vk/memsched/internal/hlo"
)

// ErrRecursiveCall is returned when a computation transitively invokes
// itself.
var ErrRecursiveCall = errors.New("recursive computation call")

type node struct {
	computation *hlo.Computation
	callSites   []*hlo.Instruction
	callees     []*hlo.Computation
	callers     []*hlo.Computation
	level       int
}

// Graph is the call graph of one module. It is immutable once built.
type Graph struct {
	module    *hlo.Module
	nodes     map[*hlo.Computation]*node
	postOrder []*hlo.Computation
	levels    [][]*hlo.Computation
}

// Build validates the invocation relation of m and indexes it.
func Build(m *hlo.Module) (*Graph, error) {
	entry := m.EntryComputation()
	if entry == nil {
		return nil, fmt.Errorf("%w: module '%s' has no entry computation", hlo.ErrMalformedGraph, m.Name())
	}

	g := &Graph{module: m, nodes: make(map[*hlo.Computation]*node)}
	for _, c := range m.Computations() {
		g.nodes[c] = &node{computation: c}
	}
	for _, c := range m.Computations() {
		for _, instr := range c.Instructions() {
			for _, callee := range instr.CalledComputations() {
				cn, ok := g.nodes[callee]
				if !ok {
					return nil, fmt.Errorf("%w: '%s' invokes computation '%s' which is not part of module '%s'",
						hlo.ErrMalformedGraph, instr.Name(), callee.Name(), m.Name())
				}
				if callee == entry {
					return nil, fmt.Errorf("%w: '%s' invokes the entry computation", hlo.ErrMalformedGraph, instr.Name())
				}
				cn.callSites = append(cn.callSites, instr)
			}
		}
		for _, callee := range c.CalledComputations() {
			g.nodes[c].callees = append(g.nodes[c].callees, callee)
			g.nodes[callee].callers = append(g.nodes[callee].callers, c)
		}
	}

	if err := g.order(entry); err != nil {
		return nil, err
	}
	return g, nil
}

// order computes the post-order and levels, failing on recursion.
func (g *Graph) order(entry *hlo.Computation) error {
	permanent := make(map[*hlo.Computation]bool)
	temporary := make(map[*hlo.Computation]bool)

	var visit func(c *hlo.Computation) error
	visit = func(c *hlo.Computation) error {
		if permanent[c] {
			return nil
		}
		if temporary[c] {
			return fmt.Errorf("%w: cycle detected involving computation '%s'", ErrRecursiveCall, c.Name())
		}
		temporary[c] = true

		n := g.nodes[c]
		for _, callee := range n.callees {
			if err := visit(callee); err != nil {
				return err
			}
			n.level = max(n.level, g.nodes[callee].level+1)
		}

		delete(temporary, c)
		permanent[c] = true
		g.postOrder = append(g.postOrder, c)
		return nil
	}

	if err := visit(entry); err != nil {
		return err
	}
	// Computations nobody reaches still get scheduled.
	for _, c := range g.module.Computations() {
		if err := visit(c); err != nil {
			return err
		}
	}

	for _, c := range g.postOrder {
		level := g.nodes[c].level
		for len(g.levels) <= level {
			g.levels = append(g.levels, nil)
		}
		g.levels[level] = append(g.levels[level], c)
	}
	return nil
}

func (g *Graph) Module() *hlo.Module { return g.module }

// CallSites returns the instructions invoking c, across the module.
func (g *Graph) CallSites(c *hlo.Computation) []*hlo.Instruction {
	if n, ok := g.nodes[c]; ok {
		return n.callSites
	}
	return nil
}

// Callees returns the distinct computations c invokes.
func (g *Graph) Callees(c *hlo.Computation) []*hlo.Computation {
	if n, ok := g.nodes[c]; ok {
		return n.callees
	}
	return nil
}

// Callers returns the distinct computations invoking c.
func (g *Graph) Callers(c *hlo.Computation) []*hlo.Computation {
	if n, ok := g.nodes[c]; ok {
		return n.callers
	}
	return nil
}

// PostOrder lists every computation after all computations it invokes.
// Computations reachable from the entry come first, ending with the entry.
func (g *Graph) PostOrder() []*hlo.Computation { return g.postOrder }

// Levels groups computations into wavefronts. Level 0 invokes nothing; a
// computation at level n only invokes computations below n, so the members
// of one level never depend on each other.
func (g *Graph) Levels() [][]*hlo.Computation { return g.levels }

// NearestAncestorsInSameComputation lifts a and b through their call sites
// until both live in the same computation and returns the lifted pair. It
// only walks through computations with a single call site and returns nils
// when no common computation exists.
func (g *Graph) NearestAncestorsInSameComputation(a, b *hlo.Instruction) (*hlo.Instruction, *hlo.Instruction) {
	fromA := make(map[*hlo.Computation]*hlo.Instruction)
	for instr := a; instr != nil; instr = g.uniqueCallSite(instr.Parent()) {
		fromA[instr.Parent()] = instr
	}
	for instr := b; instr != nil; instr = g.uniqueCallSite(instr.Parent()) {
		if lifted, ok := fromA[instr.Parent()]; ok {
			return lifted, instr
		}
	}
	return nil, nil
}

func (g *Graph) uniqueCallSite(c *hlo.Computation) *hlo.Instruction {
	sites := g.CallSites(c)
	if len(sites) != 1 {
		return nil
	}
	return sites[0]
}
