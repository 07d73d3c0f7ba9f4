package hcl_adapter

import "github.com/hashicorp/hcl/v2"

// fileRoot decodes the top level of a program file.
type fileRoot struct {
	Module       string         `hcl:"module,optional"`
	Computations []*Computation `hcl:"computation,block"`
}

// Computation is the HCL schema of a `computation "name" { ... }` block.
type Computation struct {
	Name         string         `hcl:"name,label"`
	Entry        bool           `hcl:"entry,optional"`
	Root         string         `hcl:"root,optional"`
	Instructions []*Instruction `hcl:"instruction,block"`
}

// Instruction is the HCL schema of an `instruction "name" { ... }` block.
// Shape is kept as an expression and read statically, see shapeFromExpr.
type Instruction struct {
	Name       string         `hcl:"name,label"`
	Op         string         `hcl:"op"`
	Shape      hcl.Expression `hcl:"shape"`
	Operands   []string       `hcl:"operands,optional"`
	Calls      []string       `hcl:"calls,optional"`
	Index      int            `hcl:"index,optional"`
	Number     int            `hcl:"number,optional"`
	Dimensions []int64        `hcl:"dimensions,optional"`
}
