// Package store defines the step journal that records graph runs.
//
// A Journal receives one StepRecord per executed node, carrying the run id,
// the step index, the node name, the updated field names, the successor and
// the merged state. Backends live in sub-packages:
//
//   - store/memory: in-process, for tests and short-lived runs
//   - store/redis: one list per run, with optional expiry
//   - store/sqlite: a local database file
//   - store/postgres: a shared PostgreSQL table
//
// Journals are diagnostic. A run cannot be resumed from its records.
package store
