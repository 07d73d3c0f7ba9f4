// Package scheduler orders the instructions of one computation.
//
// # Why Scheduler Exists
//
// Every valid topological order of a computation computes the same result,
// but they differ in how many buffers are alive at once. The scheduler picks
// the order; the memory package measures it.
//
// # Strategies
//
//   - **dependency-order:** a depth-first post-order over operands. Cheap and
//     reproducible, with no memory guarantee.
//   - **list:** a greedy ready-set scheduler. At each step it places the
//     ready instruction that frees the most bytes net of what it allocates,
//     counting the most expensive computation it invokes as part of that
//     allocation. Ties go to the instruction created first. It is a local
//     heuristic: an expensive instruction may be deferred into a window where
//     many other buffers are live even though placing it earlier would lower
//     the peak.
//
// Strategies are looked up by name through a Registry, so new heuristics can
// be added without touching the module driver.
package scheduler
