// Package postgres provides PostgreSQL implementations of the store
// interfaces defined in internal/store. All implementations accept a
// store.DBTX so they run identically against a connection pool or a
// transaction, and expose WithTx for transactional composition.
package postgres
