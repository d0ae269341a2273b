// Package domain defines the clinical record types shared by every layer of
// gaitdoc: patients, their examinations and interventions, file attachments,
// and the derived timeline projection.
//
// The package is pure. It holds no storage handles and performs no I/O, so
// validation, BMI derivation and age-at-event arithmetic can be tested and
// called without a database.
//
// # Ownership
//
// Ownership is a strict tree:
//
//	Patient → {Examination, Intervention} → Attachment
//
// Deleting a node deletes its whole subtree. An Attachment belongs to exactly
// one Examination or one Intervention, never to a bare Patient.
//
// # Dates
//
// Clinical dates are civil dates (no time of day, no zone). They are stored
// as YYYY-MM-DD text so lexical order equals chronological order.
package domain
