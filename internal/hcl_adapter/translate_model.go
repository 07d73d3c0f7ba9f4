// This file contains the logic for translating HCL schema structs into the
// format-agnostic program model defined in the config package.

package hcl_adapter

import (
	"context"
	"fmt"

	"github.com/vk/memsched/internal/config"
	"github.com/vk/memsched/internal/ctxlog"
)

func (l *Loader) translateModel(ctx context.Context, path string, root *fileRoot) (*config.Model, error) {
	model := &config.Model{Name: root.Module, Source: path}
	if model.Name == "" {
		model.Name = moduleNameFromPath(path)
	}
	for _, c := range root.Computations {
		comp, err := l.translateComputation(ctx, c)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		model.Computations = append(model.Computations, comp)
	}
	return model, nil
}

// translateComputation converts the HCL computation schema into the
// agnostic model.
func (l *Loader) translateComputation(ctx context.Context, c *Computation) (*config.Computation, error) {
	logger := ctxlog.FromContext(ctx).With("computation", c.Name)
	logger.Debug("Translating HCL computation to internal config model.", "instructions", len(c.Instructions))

	out := &config.Computation{Name: c.Name, Entry: c.Entry, Root: c.Root}
	for _, instr := range c.Instructions {
		shape, err := shapeFromExpr(instr.Shape)
		if err != nil {
			return nil, fmt.Errorf("computation '%s', instruction '%s': %w", c.Name, instr.Name, err)
		}
		out.Instructions = append(out.Instructions, &config.Instruction{
			Name:       instr.Name,
			Op:         instr.Op,
			Shape:      shape,
			Operands:   instr.Operands,
			Calls:      instr.Calls,
			Index:      instr.Index,
			Number:     instr.Number,
			Dimensions: instr.Dimensions,
		})
	}
	return out, nil
}
