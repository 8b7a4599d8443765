// Package ledger provides the durable occupancy store shared by the resource
// trackers. It is a thin persistence layer over an embedded SQLite database:
// each tracked slot maps to exactly one row keyed by (tracker identity, slot
// index), and every state change is written through before the in-memory view
// is allowed to advance. The store carries no allocation logic of its own.
package ledger
