// Package inmemoryschedule provides a thread-safe, in-memory implementation
// of the schedulestore.Store interface. A scheduling run is short-lived and
// its output fits in memory, so nothing is persisted.
package inmemoryschedule
