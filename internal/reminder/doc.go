// Package reminder implements the timer-backed scheduling engine.
//
// Each pending reminder owns a one-shot timer kept in a side map keyed by a
// synthetic id. Firing and cancellation are mutually exclusive: a canceled
// timer never delivers, and a fired reminder is removed from its list
// before any further event can re-trigger it. Persistence is a full
// snapshot rewrite handed to a coalescing background saver.
package reminder
