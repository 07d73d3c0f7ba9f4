// Package driver schedules every computation of a module.
//
// Computations are visited callees first, so that when a caller is scheduled
// the minimum memory of everything it invokes is already in the store. The
// call graph is split into levels whose members never invoke each other;
// with more than one worker, the members of a level are scheduled
// concurrently. The output does not depend on the number of workers.
//
// Every sequence a strategy returns is validated before it is stored.
package driver
