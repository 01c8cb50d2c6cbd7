// Package changelog implements the per-record mutation history of the store.
// Every field mutation of a tracked record is appended here as a Change, and
// the cursor-based undo/redo of records is entirely driven by this package.
//
// The package focuses on:
//   - Keeping an ordered, linear history of field mutations per record
//   - Cursor-based undo/redo without compensating entries
//   - Tracking a persistence watermark so callers know when a record's
//     applied state differs from its document on disk
//
// Key Components:
//
//   - Change: One field mutation (key, field name, previous value, new value,
//     timestamp). Its JSON tags define the document format of history entries.
//
//   - ChangeLog: The ordered entry list plus cursor and watermark. Append
//     discards any undone tail first, so the history never branches.
//
//   - Time: Timestamp wrapper marshaling as ISO-8601 with fixed microsecond
//     precision in UTC, tolerant of zone-less documents on read.
//
// Implementation Details:
//
//	A log rebuilt from a document (FromEntries) treats every entry as applied
//	and persisted: cursor and watermark start at the end. Undone entries are
//	therefore an in-memory affordance only; once a record is saved and
//	reloaded, its redo tail is gone.
//
// Thread Safety:
//
//	ChangeLog performs no locking. It is confined to a single record and
//	inherits the store's single-threaded contract.
package changelog
