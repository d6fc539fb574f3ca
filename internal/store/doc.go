// Package store persists the reminder snapshot.
//
// Two drivers are available:
//   - "file": one JSON object keyed by chat id, rewritten atomically
//   - "sqlite": the same snapshot in a single SQLite table
//
// Both drivers treat Save as a full rewrite and Load on a missing backend
// as an empty snapshot.
package store
