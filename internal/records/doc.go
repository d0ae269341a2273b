// Package records is the access facade consumed by the presentation layer.
//
// A Service bundles the record store, its attachment store and the query
// engine behind one set of context-aware operations. Every operation returns
// a value and an error; classified failures are *domain.Error values so a
// caller can render validation fields inline or show "record no longer
// exists" for a stale id.
package records
