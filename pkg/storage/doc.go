// Package storage owns node and node-instance state for a single local
// deployment. It implements the optimistic-concurrency update protocol and
// the per-instance locking discipline shared by every backend.
//
// Three backends are provided behind the Storage interface: an in-memory
// backend, a file backend persisting one file per node instance, and a
// SQLite backend persisting one row per node instance. All three are
// behaviorally indistinguishable for the same operation sequence.
//
// Property updates carry the caller's known version and are rejected with a
// ConflictError when stale. Lifecycle state transitions are engine-driven
// and always accepted regardless of version. Either accepted path bumps the
// stored version by exactly one. Conflicts are ordinary, recoverable
// conditions: reload the instance and resubmit.
package storage
