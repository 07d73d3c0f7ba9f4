package hlo

import (
	"fmt"
	"strings"
)

// PrimitiveType is the element type of an array shape, or TUPLE.
type PrimitiveType int

const (
	PrimitiveInvalid PrimitiveType = iota
	PRED
	S8
	S16
	S32
	S64
	U8
	U16
	U32
	U64
	F16
	BF16
	F32
	F64
	TUPLE
)

var primitiveNames = map[PrimitiveType]string{
	PRED:  "pred",
	S8:    "s8",
	S16:   "s16",
	S32:   "s32",
	S64:   "s64",
	U8:    "u8",
	U16:   "u16",
	U32:   "u32",
	U64:   "u64",
	F16:   "f16",
	BF16:  "bf16",
	F32:   "f32",
	F64:   "f64",
	TUPLE: "tuple",
}

// String returns the lower-case textual name of the type.
func (t PrimitiveType) String() string {
	if name, ok := primitiveNames[t]; ok {
		return name
	}
	return fmt.Sprintf("primitive(%d)", int(t))
}

// ParsePrimitiveType maps a textual element type name back to its value.
func ParsePrimitiveType(name string) (PrimitiveType, error) {
	lower := strings.ToLower(name)
	for t, n := range primitiveNames {
		if n == lower {
			return t, nil
		}
	}
	return PrimitiveInvalid, fmt.Errorf("unknown primitive type %q", name)
}

// ByteWidth is the size of one element. TUPLE has no element width.
func (t PrimitiveType) ByteWidth() int64 {
	switch t {
	case PRED, S8, U8:
		return 1
	case S16, U16, F16, BF16:
		return 2
	case S32, U32, F32:
		return 4
	case S64, U64, F64:
		return 8
	default:
		return 0
	}
}

// Shape describes the value produced by an instruction: either a dense array
// of a primitive type or a tuple of nested shapes.
type Shape struct {
	Element    PrimitiveType
	Dimensions []int64
	Tuple      []Shape
}

// MakeShape returns an array shape. No dimensions means a scalar.
func MakeShape(t PrimitiveType, dims ...int64) Shape {
	return Shape{Element: t, Dimensions: append([]int64(nil), dims...)}
}

// MakeTupleShape returns a tuple shape over the given elements.
func MakeTupleShape(elems ...Shape) Shape {
	return Shape{Element: TUPLE, Tuple: append([]Shape(nil), elems...)}
}

func (s Shape) IsTuple() bool { return s.Element == TUPLE }

// TupleCount is the number of elements of a tuple shape and 0 otherwise.
func (s Shape) TupleCount() int {
	if !s.IsTuple() {
		return 0
	}
	return len(s.Tuple)
}

// ElementCount is the product of the dimensions of an array shape.
func (s Shape) ElementCount() int64 {
	n := int64(1)
	for _, d := range s.Dimensions {
		n *= d
	}
	return n
}

// Equal reports structural equality.
func (s Shape) Equal(o Shape) bool {
	if s.Element != o.Element {
		return false
	}
	if s.IsTuple() {
		if len(s.Tuple) != len(o.Tuple) {
			return false
		}
		for i := range s.Tuple {
			if !s.Tuple[i].Equal(o.Tuple[i]) {
				return false
			}
		}
		return true
	}
	if len(s.Dimensions) != len(o.Dimensions) {
		return false
	}
	for i := range s.Dimensions {
		if s.Dimensions[i] != o.Dimensions[i] {
			return false
		}
	}
	return true
}

// String renders the shape as f32[2,4] or (f32[], pred[]).
func (s Shape) String() string {
	var sb strings.Builder
	s.write(&sb)
	return sb.String()
}

func (s Shape) write(sb *strings.Builder) {
	if s.IsTuple() {
		sb.WriteRune('(')
		for i, e := range s.Tuple {
			if i > 0 {
				sb.WriteString(", ")
			}
			e.write(sb)
		}
		sb.WriteRune(')')
		return
	}
	sb.WriteString(s.Element.String())
	sb.WriteRune('[')
	for i, d := range s.Dimensions {
		if i > 0 {
			sb.WriteRune(',')
		}
		fmt.Fprintf(sb, "%d", d)
	}
	sb.WriteRune(']')
}

// ShapeIndex addresses a subshape by its path of tuple element indices. The
// empty index is the top level.
type ShapeIndex []int

func (i ShapeIndex) String() string {
	parts := make([]string, len(i))
	for k, v := range i {
		parts[k] = fmt.Sprintf("%d", v)
	}
	return "{" + strings.Join(parts, ",") + "}"
}

// ForEachSubshape visits the shape and every nested subshape in pre-order.
// The top level is visited with the empty, non-nil ShapeIndex{}.
func (s Shape) ForEachSubshape(fn func(sub Shape, index ShapeIndex)) {
	s.forEach(ShapeIndex{}, fn)
}

func (s Shape) forEach(prefix ShapeIndex, fn func(Shape, ShapeIndex)) {
	idx := make(ShapeIndex, len(prefix))
	copy(idx, prefix)
	fn(s, idx)
	for i, e := range s.Tuple {
		e.forEach(append(idx, i), fn)
	}
}

// SubshapeCount is the number of subshapes ForEachSubshape visits.
func (s Shape) SubshapeCount() int {
	n := 1
	for _, e := range s.Tuple {
		n += e.SubshapeCount()
	}
	return n
}

// SizeFunc is the size oracle: the byte footprint of one buffer of the given
// shape. It must be pure and total over the shapes of a program.
type SizeFunc func(Shape) int64

// DefaultPointerSize is the width of one entry of a tuple pointer table.
const DefaultPointerSize int64 = 8

// ByteSizeOf returns the footprint of a single buffer of shape s. Tuples
// only own their pointer table; element payloads live in their own buffers.
func ByteSizeOf(s Shape, pointerSize int64) int64 {
	if s.IsTuple() {
		return int64(len(s.Tuple)) * pointerSize
	}
	return s.ElementCount() * s.Element.ByteWidth()
}

// ByteSizeFunc binds a pointer width into a SizeFunc.
func ByteSizeFunc(pointerSize int64) SizeFunc {
	return func(s Shape) int64 { return ByteSizeOf(s, pointerSize) }
}
