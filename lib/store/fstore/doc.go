// Package fstore implements the file-backed record store. It provides a
// complete implementation of the store.IStore interface with a focus on
// transparency: every record is one indented JSON document in the store
// directory, meant to be opened, diffed and even edited by a person.
//
// The package focuses on:
//   - One document file per record, human-readable at all times
//   - Field-level change tracking with cursor based undo/redo per record
//   - Save-on-change semantics so disk follows memory by default
//   - Tolerant loading: one broken document never takes the directory down
//
// Key Components:
//
//   - storeImpl: The central store structure implementing store.IStore. It
//     owns the record map, the insertion order, the change hooks and the
//     persistence plumbing. Construction claims the store directory in a
//     process-wide registry so a second store on the same directory fails
//     with RetCDirBusy instead of silently racing the first one.
//
//   - recordImpl: The tracked handle for one entity. Every mutation goes
//     through it, lands in the record's change log and, with SaveOnChange
//     enabled, is written to disk before the call returns. Deleting a record
//     marks the handle removed; later mutations through a stale handle fail
//     with RetCRecordRemoved instead of resurrecting the file.
//
// Implementation Details:
//
//   - File Layout: A record with key K lives in <directory>/<sanitized K>.json
//     where sanitization lowercases the key and replaces path separators and
//     other awkward characters with underscores. The document itself carries
//     the original key, so sanitization never loses information. Distinct
//     keys that sanitize to the same file name must not be mixed in one
//     store.
//
//   - Atomic Writes: Documents are written to a temp file in the store
//     directory and renamed over the target. A reader (or a crash) never
//     observes a half-written document. The directory is created lazily on
//     the first write; Load of a directory that never existed fails with
//     RetCDirNotFound.
//
//   - Insertion Order: Iteration (All, Filter, Records, Keys) follows record
//     insertion order. Load inserts in file-name order (os.ReadDir sorts),
//     after which new records append. Iterators are lazy range-over-func
//     sequences; they can be restarted and observe the store's current state
//     at each restart. Mutating the store in the middle of an iteration is
//     not supported.
//
//   - Partial Failure: Load, CommitAll, AddRange, Update and Clear keep
//     going when individual records fail and return all collected errors
//     joined. Callers can match specific conditions with store.IsCode.
//
//   - Metrics: Commits, deletes, load results and change counts feed
//     process-wide VictoriaMetrics counters, and a size histogram samples
//     every written document for the GetInfo estimates.
//
// Performance Considerations:
//
//	Save-on-change writes the full document on every tracked mutation. That
//	is the point of this store (disk always mirrors memory) but it caps
//	write throughput at file-system speed. Batch mutations with AddRange or
//	disable SaveOnChange and commit explicitly when loading larger data
//	sets. Documents are not fsynced; the rename keeps them intact across
//	process crashes, not across power loss.
//
// Thread Safety:
//
//	The store is single-threaded by contract and takes no locks. The
//	directory registry and the metrics are the only process-global state.
//
// Usage:
//
//	store, err := fstore.New("./users", NewUser, nil)
//	if err != nil { ... }
//	if err := store.Load(); err != nil { ... }
//	defer store.Close()
//
//	rec, err := store.Upsert("dennis", &User{Name: "denis", Age: 32})
//	if err != nil { ... }
//	_ = rec.Set("name", "DENIS") // written to users/dennis.json immediately
package fstore
