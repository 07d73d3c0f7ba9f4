package hlo

import "fmt"

// Opcode tags the operation an instruction performs.
type Opcode int

const (
	OpInvalid Opcode = iota
	OpParameter
	OpConstant
	OpAbs
	OpExp
	OpNegate
	OpCopy
	OpAdd
	OpSubtract
	OpMultiply
	OpDivide
	OpMaximum
	OpMinimum
	OpLt
	OpNe
	OpTuple
	OpGetTupleElement
	OpBitcast
	OpWhile
	OpConditional
	OpCall
	OpBroadcast
	OpTranspose
	OpReshape
)

var opcodeNames = [...]string{
	OpInvalid:         "invalid",
	OpParameter:       "parameter",
	OpConstant:        "constant",
	OpAbs:             "abs",
	OpExp:             "exp",
	OpNegate:          "negate",
	OpCopy:            "copy",
	OpAdd:             "add",
	OpSubtract:        "subtract",
	OpMultiply:        "multiply",
	OpDivide:          "divide",
	OpMaximum:         "maximum",
	OpMinimum:         "minimum",
	OpLt:              "less-than",
	OpNe:              "not-equal-to",
	OpTuple:           "tuple",
	OpGetTupleElement: "get-tuple-element",
	OpBitcast:         "bitcast",
	OpWhile:           "while",
	OpConditional:     "conditional",
	OpCall:            "call",
	OpBroadcast:       "broadcast",
	OpTranspose:       "transpose",
	OpReshape:         "reshape",
}

func (o Opcode) String() string {
	if o >= 0 && int(o) < len(opcodeNames) {
		return opcodeNames[o]
	}
	return fmt.Sprintf("opcode(%d)", int(o))
}

// ParseOpcode maps a textual opcode name to its value.
func ParseOpcode(name string) (Opcode, error) {
	for i, n := range opcodeNames {
		if i != int(OpInvalid) && n == name {
			return Opcode(i), nil
		}
	}
	return OpInvalid, fmt.Errorf("unknown opcode %q", name)
}

// CallsComputations reports whether instructions with this opcode invoke
// sub-computations.
func (o Opcode) CallsComputations() bool {
	return o == OpWhile || o == OpConditional || o == OpCall
}

// IsUnary reports element-wise opcodes with a single operand.
func (o Opcode) IsUnary() bool {
	switch o {
	case OpAbs, OpExp, OpNegate, OpCopy:
		return true
	}
	return false
}

// IsBinary reports element-wise opcodes with two operands.
func (o Opcode) IsBinary() bool {
	switch o {
	case OpAdd, OpSubtract, OpMultiply, OpDivide, OpMaximum, OpMinimum, OpLt, OpNe:
		return true
	}
	return false
}
