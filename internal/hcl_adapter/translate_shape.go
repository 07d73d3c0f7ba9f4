// This file contains the logic for reading HCL shape expressions such as
// `f32`, `f32(2, 4)` or `tuple(f32(), pred())` into config shapes.

package hcl_adapter

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/vk/memsched/internal/config"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

// shapeFromExpr reads a shape expression without evaluating it: element
// types and `tuple` look like function calls but are never executed.
func shapeFromExpr(expr hcl.Expression) (config.Shape, error) {
	switch v := expr.(type) {
	case *hclsyntax.ScopeTraversalExpr:
		// A bare type name is a scalar.
		if len(v.Traversal) != 1 {
			return config.Shape{}, fmt.Errorf("invalid shape starting with %q: expected a type name", v.Traversal.RootName())
		}
		return config.Shape{Type: v.Traversal.RootName()}, nil

	case *hclsyntax.FunctionCallExpr:
		if v.Name == "tuple" {
			elems := make([]config.Shape, 0, len(v.Args))
			for i, arg := range v.Args {
				elem, err := shapeFromExpr(arg)
				if err != nil {
					return config.Shape{}, fmt.Errorf("tuple element %d: %w", i, err)
				}
				elems = append(elems, elem)
			}
			return config.Shape{Tuple: elems}, nil
		}
		dims := make([]int64, 0, len(v.Args))
		for i, arg := range v.Args {
			d, err := dimension(arg)
			if err != nil {
				return config.Shape{}, fmt.Errorf("%s dimension %d: %w", v.Name, i, err)
			}
			dims = append(dims, d)
		}
		return config.Shape{Type: v.Name, Dims: dims}, nil

	case *hclsyntax.TemplateExpr:
		return config.Shape{}, fmt.Errorf("shapes are written unquoted, e.g. f32(2, 4)")

	default:
		return config.Shape{}, fmt.Errorf("unsupported shape expression %T", expr)
	}
}

// dimension evaluates a constant dimension expression.
func dimension(expr hcl.Expression) (int64, error) {
	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return 0, diags
	}
	if !val.Type().Equals(cty.Number) {
		return 0, fmt.Errorf("expected a number, got %s", val.Type().FriendlyName())
	}
	var d int64
	if err := gocty.FromCtyValue(val, &d); err != nil {
		return 0, err
	}
	return d, nil
}
