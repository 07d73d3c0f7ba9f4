// Package schedulestore defines the interface for accumulating the sequences
// of a module while it is being scheduled.
//
// # Why Schedule Store Exists
//
// Callers can only be scheduled once the cost of every computation they
// invoke is known. The store is where finished computations land: the driver
// writes each computation exactly once, and schedulers of later callers read
// the recorded costs through the memory.CostTable view.
//
// # Lifecycle and Usage
//
// The store is:
//  1. **Created** once per scheduling run (not persistent across runs)
//  2. **Filled** callees first, one Put per computation
//  3. **Read** by list schedulers of callers through MemoryFor
//  4. **Snapshotted** into a schedule.ModuleSequence at the end of the run
package schedulestore

import (
	"context"
	"errors"

	"github.com/vk/memsched/internal/hlo"
	"github.com/vk/memsched/internal/schedule"
)

// ErrAlreadyScheduled is returned when a computation is stored twice.
var ErrAlreadyScheduled = errors.New("computation already scheduled")

// Store holds the sequence and minimum memory of scheduled computations.
//
// # Thread-Safety Requirements
//
// Implementations MUST be safe for concurrent use. Independent computations of
// one call-graph level are scheduled in parallel and write concurrently while
// their schedulers read the costs of lower levels.
//
// See internal/inmemoryschedule for the reference implementation.
type Store interface {
	// Put records the sequence and minimum memory of c.
	//
	// Every computation is written exactly once; a second Put for the same
	// computation fails with ErrAlreadyScheduled and leaves the first entry
	// untouched.
	Put(ctx context.Context, c *hlo.Computation, seq schedule.Sequence, memoryBytes int64) error

	// Sequence returns the recorded sequence of c.
	Sequence(ctx context.Context, c *hlo.Computation) (schedule.Sequence, bool)

	// MemoryFor returns the recorded minimum memory of c. It makes every
	// Store a memory.CostTable.
	MemoryFor(c *hlo.Computation) (int64, bool)

	// Snapshot copies every recorded sequence. The returned map is owned by
	// the caller.
	Snapshot(ctx context.Context) schedule.ModuleSequence
}
