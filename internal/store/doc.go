// Package store provides SQLite-backed durable storage for clinical records.
//
// The store owns the data invariants:
//   - Patients: demographics, surrogate id assigned by AUTOINCREMENT
//   - Examinations and Interventions: dated events, each owned by one patient
//   - Attachments: file references owned by exactly one examination or one
//     intervention (CHECK constraint on the two nullable foreign keys)
//
// # Critical Patterns
//
// One Transaction Per Operation
//   - Every public mutation runs in a single BEGIN IMMEDIATE transaction
//   - Validation happens inside the transaction, before any write
//
// Cascade Deletion
//   - Child rows reference parents with ON DELETE CASCADE
//   - Attachment files are collected inside the transaction, deleted after
//     commit, best-effort: a file that cannot be removed is logged, never
//     blocks metadata deletion
//
// Row Before File
//   - Unlinking deletes the row first, then the file. A crash in between
//     leaves an orphan file (recoverable via OrphanFiles/Sweep), never a
//     reference without a file
//
// Deterministic Query Results
//   - List queries order by date ASC, id ASC
//   - Patient search orders by last name (UNICODE_CI), id ASC
//
// # Database Configuration
//
// Every pooled connection is configured by the driver's connect hook:
//
//   - WAL mode: readers do not block the writer
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: bounded wait for the write lock, never indefinite
//   - foreign_keys=ON: enforce referential integrity and cascades
//   - fold(text) and COLLATE UNICODE_CI: Unicode case-insensitive matching
//     and ordering backed by golang.org/x/text
//
// The database is designed for one process. Opening the same file from
// several processes is not supported.
package store
