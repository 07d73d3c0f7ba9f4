// Package hlo holds the program graph consumed by the schedulers: shapes,
// opcodes, instructions, computations and modules.
//
// Graphs are built with a Builder and are read-only afterwards. The user
// relation is an index derived from operands at Build time and is never an
// ownership edge. ByteSizeOf and SizeFunc provide the size oracle used by the
// memory estimator.
package hlo
