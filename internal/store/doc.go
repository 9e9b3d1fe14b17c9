// Package store owns all durable state: series position, episodes, scenes,
// characters, narrative context, and the generation audit trail, backed by
// SQLite. It is the single source of truth; every other package re-reads
// from here rather than caching state in memory.
package store
