// Package database provides the database abstraction layer for Tempo.
//
// The Database interface abstracts SurrealDB operations so the repository
// layer stays independent of the driver. Handles are constructed explicitly
// and injected; there is no package-level connection state.
//
// # Interface Design
//
// Three query methods cover the repository layer's needs:
//   - Query: returns multiple results (SELECT queries returning lists)
//   - QueryOne: returns a single result (SELECT by ID)
//   - Execute: no return value (CREATE/UPDATE mutations)
//
// # Transactions
//
// Transactions are BATCH-BASED: statements accumulate in a TxBuilder and are
// wrapped in BEGIN TRANSACTION / COMMIT TRANSACTION at execution time, so the
// whole batch succeeds or fails atomically. SurrealQL guard statements
// (LET / IF ... THROW) inside the batch make check-and-commit indivisible,
// which is how the booking layer closes its check-then-write race. See
// transaction.go.
//
// # Error Handling
//
// Standard errors for common failure cases:
//   - ErrNotFound: record does not exist
//   - ErrConflict: a transaction guard rejected the batch
//   - ErrConnection: connection or communication failure
//   - ErrQuery: query execution failure
//
// Check them with errors.Is:
//
//	if errors.Is(err, database.ErrNotFound) {
//	    // handle missing record
//	}
package database
