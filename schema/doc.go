// Package schema guards the message boundary of the profiler.
//
// Every payload that enters or leaves the service is decoded as UTF-8 JSON
// and validated against one of two embedded JSON Schemas (draft-07):
//
//   - vehicle-apc-mapping: the vehicle catalogue of one feed publisher
//   - profile-collection: the produced snapshot, also read back as the cache
//
// Validate returns a Result that is either a success carrying the typed value
// or a failure carrying a FailureKind. Callers reach the typed value only
// through Result.Catalog or Result.Collection, which report ok=false for any
// failure, so an unvalidated payload cannot be used by accident.
//
// Boundary wraps a Validator with logging. It never panics and never returns
// an error: every failure is logged with its diagnostic fields and degrades to
// "no message this cycle" for the source.
package schema
