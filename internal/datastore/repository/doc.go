// Package repository provides repository interfaces and GORM implementations
// for the gazetteer schema.
//
// # Error Handling
//
// Repositories return sentinel errors (ErrPlaceNotFound,
// ErrReferencedEntityDeleteBlocked, ...) instead of leaking GORM errors.
// Every *NotFound sentinel wraps ErrNotFound:
//
//	if errors.Is(err, repository.ErrNotFound) { ... }
//
// # Delete Policy
//
//   - Place: names are deleted with their join rows, evidence links are set to NULL.
//   - Language, Period, PlaceType: deletion is refused with
//     ErrReferencedEntityDeleteBlocked while any row references them.
//   - Informant, Author: join rows are removed, attested records survive.
//
// Checks and deletes run in one transaction.
//
// # Transactions
//
// WithTx returns a repository bound to an open transaction, which is how the
// search service loads a result page inside its read transaction.
package repository
