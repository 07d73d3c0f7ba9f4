// Package memory simulates the live bytes of a scheduled computation.
//
// The simulation walks a sequence once. At every step it adds the bytes the
// instruction defines, adds the most expensive computation it invokes as a
// transient that never persists, records the peak and then frees every
// buffer whose last use was this step. Buffers that alias an operand
// (tuple elements, get-tuple-element, bitcast, in-place loop state) are never
// charged twice, and live-out buffers are never freed.
//
// The same per-instruction cost model (Liveness) drives the list scheduler,
// so the heuristic and the estimator agree on what an instruction costs.
package memory
