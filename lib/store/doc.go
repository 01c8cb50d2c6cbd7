// Package store defines the contract for file-backed record stores in the
// slowstore system. It contains the IStore and IRecord interfaces, the change
// hook types, the store metadata struct and the error type shared by all
// implementations.
//
// A record store keeps one entity per key and persists every entity as one
// human-readable document in a single directory. Records track their own
// field-level change history, so every mutation can be undone, redone and
// audited. The design goal is transparency over throughput: the files on
// disk are meant to be opened, read and edited by a person.
//
// The package focuses on:
//   - Defining the store contract independently of the persistence format
//   - Tracked, per-field mutation of entities through IRecord
//   - A uniform error model (Error + RetCode) across all implementations
//   - Observer hooks for record mutations
//
// Key Components:
//
//   - IStore Interface: The core abstraction for loading, upserting,
//     committing, deleting and lazily iterating records in insertion order.
//     All methods return custom Error values that carry typed return codes.
//
//   - IRecord Interface: The tracked handle for a single entity. All
//     mutations go through Set/Undo/Redo/Commit so they are captured in the
//     record's change history.
//
//   - ChangeHook / ChangeEvent: Synchronous observers notified after every
//     record mutation (add, update, remove, undo, redo).
//
//   - Error System: A structured error reporting mechanism using typed error
//     codes and descriptive messages. Callers match on codes with IsCode,
//     which also sees through the joined errors of batch operations.
//
// Error Handling:
//
//	Operations touching a single record fail fast and return one *Error.
//	Batch operations (Load, CommitAll, AddRange, Update, Clear) keep going
//	on individual failures and return all of them joined with errors.Join;
//	a nil result means every item succeeded.
//
// Thread Safety:
//
//	The store contract is explicitly single-threaded: implementations take
//	no locks and callers must not share a store between goroutines without
//	external synchronization. This mirrors the intended use as a state
//	container for small tools, prototypes and tests.
//
// Usage:
//
//	store, err := fstore.New[*User]("./data", NewUser, nil)
//	if err != nil { ... }
//	if err := store.Load(); err != nil { ... }
//
//	rec, err := store.Upsert("user-1", &User{Name: "denis", Age: 32})
//	if err != nil { ... }
//	_ = rec.Set("name", "DENIS") // tracked and, by default, saved
//
//	for user := range store.Filter(func(u *User) bool { return u.Age > 30 }) {
//	    fmt.Println(user.Name)
//	}
//
// The file-backed implementation lives in the
// "github.com/slowstore/slowstore/lib/store/fstore" package; the shared
// contract test suite in "github.com/slowstore/slowstore/lib/store/testing".
package store
