// Package plan defines the compiled deployment plan consumed by the
// orchard execution engine: node templates, running node instances, named
// workflows and deployment outputs.
//
// A plan is produced by an external blueprint compiler. This package only
// decodes and normalizes the compiled document; it never parses blueprint
// source. All plan types are immutable after Normalize — the storage layer
// hands out deep copies so callers cannot reach shared state.
package plan
