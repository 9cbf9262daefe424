// Package repository implements data access for Tempo's domain entities on
// top of the database abstraction.
//
// Each repository owns one table: EventRepository (event), UserRepository
// (user), OutboxRepository (calendar_op). Repositories build SurrealQL
// directly and parse the driver's loosely-typed results back into model
// structs.
//
// Mutations that must be conflict-safe (booking create and reschedule) are
// executed as guarded transaction batches: the overlap re-check and the write
// run inside one BEGIN/COMMIT block, and a guard THROW cancels the whole
// batch. Callers receive database.ErrConflict when a guard fires.
package repository
