// Package engine dispatches named workflows against a compiled deployment
// plan. An Environment is constructed from a plan and a storage backend,
// eagerly validates every operation mapping so bad wiring fails at startup
// instead of mid-execution, and then executes workflows or resolves
// deployment outputs on demand.
//
// Workflow and operation implementations are external: they are registered
// by dotted "<module>.<attribute>" path in a Registry and invoked with the
// execution Context, which carries the storage handle they read and write
// instance state through.
package engine
