// Package store is the persistence adapter behind GET /api/{key}.
//
// Every backend implements Store: a read-only lookup of one top-level key
// returning the raw JSON sub-document, or ErrNotFound when the record is
// absent or its data is null/empty.
//
// Backends:
//
//	memory  : the embedded fixture document, no persistence
//	mongodb : one collection of {name, data} records (go.mongodb.org/mongo-driver)
//	bolt    : one bbolt bucket, key = name, value = JSON data (go.etcd.io/bbolt)
//
// Connector is the process-wide lazy handle: at most one connect attempt is
// in flight, every concurrent caller observes that same attempt, and a
// successful Store is cached for the life of the process. Attempts are
// bounded by the configured connect timeout and retried with exponential
// backoff inside that bound.
//
// WithBreaker wraps a Store in a circuit breaker; ErrNotFound never counts
// as a failure.
package store
