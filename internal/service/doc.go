// Package service implements the business logic layer for the Tempo API.
//
// The booking core lives here: overlap detection, the transactional booking
// coordinator, cache invalidation, and the scheduling of external calendar
// sync. Services define their own repository interfaces so tests can mock
// data access, and return sentinel errors (or typed errors carrying detail)
// that handlers translate into HTTP problem responses.
//
// The central invariant is that no email may be attached to two active events
// with intersecting half-open intervals. Services enforce it twice: a
// readable pre-check before any write, and transaction guards inside the
// write itself for races that slip past the pre-check.
package service
