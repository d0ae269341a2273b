// Package attach keeps attachment files in a managed directory.
//
// Files are copied, never moved or linked, so a record stays intact when the
// user's original lives on removable media. Every copy is written to a
// temporary name in the destination directory, synced, then renamed into
// place: a failed copy never leaves a visible partial file.
//
// Stored names are relative to the store root:
//
//	<kind>/<owner id>/<kind>-<owner id>-<uuidv7><ext>
//
// so two attachments with the same original file name under different owners
// never collide, and the root can be copied together with the database as a
// complete backup.
//
// The store does not interpret file contents.
package attach
