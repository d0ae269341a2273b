// Package query answers read-only questions over the record store: patient
// search and the per-patient timeline.
//
// Search criteria are compiled to parameterized SQL. Every compiled query
// carries an ORDER BY with an id tiebreaker so repeated searches over
// unchanged data return identical sequences. Values are never interpolated.
//
// The engine holds no state between calls. A timeline is rebuilt from the
// current examination and intervention rows on every request.
package query
