// Package store defines the persistence interfaces consumed by the
// application core, along with shared error types and transaction helpers.
// Concrete implementations live in internal/platform/postgres.
package store
