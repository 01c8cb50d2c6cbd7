package store

import (
	"errors"
	"fmt"
	"iter"

	"github.com/slowstore/slowstore/lib/changelog"
	"github.com/slowstore/slowstore/lib/model"
)

// --------------------------------------------------------------------------
// Interface Definitions
// --------------------------------------------------------------------------

// KeySelector derives the storage key for an entity, e.g. from one of its
// fields. Used by Add, Create and AddRange when no explicit key is given.
type KeySelector[E model.IModel] func(entity E) string

// IRecord is the tracked handle for one stored entity. All field mutations
// must go through it so they end up in the record's change history.
type IRecord[E model.IModel] interface {
	// Key returns the storage key of the record
	Key() string
	// Entity returns the tracked entity. Mutating it directly bypasses
	// change tracking; use Set instead.
	Entity() E
	// Get returns the current value of the named entity field
	Get(field string) (value any, err error)
	// Set assigns a new value to the named entity field and appends a
	// change entry. Setting a field to a value equal to its current one is
	// a no-op and records nothing.
	Set(field string, value any) (err error)
	// Undo reverts the most recent applied change. It returns false (and
	// no error) if there is nothing to undo.
	Undo() (applied bool, err error)
	// Redo re-applies the most recently undone change. It returns false
	// (and no error) if there is nothing to redo.
	Redo() (applied bool, err error)
	// Commit persists the record unconditionally, dirty or not
	Commit() (err error)
	// IsDirty reports whether the record has in-memory state that has not
	// been persisted yet
	IsDirty() bool
	// History returns a copy of all change entries of the record,
	// including any currently undone tail
	History() []changelog.Change
	// Removed reports whether the record was deleted from its store.
	// Every mutation on a removed record fails with RetCRecordRemoved.
	Removed() bool
}

// IStore is the generic interface for a file-backed record store. One store
// manages one directory; every record is one document file inside it.
//
// Thread-safety: implementations are single-threaded by contract and take
// no locks. Callers that share a store between goroutines must synchronize
// themselves.
type IStore[E model.IModel] interface {
	// -----------------------------------------------------
	// Loading / Persistence
	// -----------------------------------------------------

	// Load reads every record document from the store directory into
	// memory. It fails with RetCDirNotFound if the directory does not
	// exist. Undecodable documents are skipped; their errors are joined
	// into the returned error while the load keeps going.
	Load() (err error)
	// Commit persists the record with the given key unconditionally.
	// It fails with RetCKeyNotFound for unknown keys.
	Commit(key string) (err error)
	// CommitAll persists every dirty record. Individual failures do not
	// stop the pass; they are joined into the returned error.
	CommitAll() (err error)
	// Close flushes dirty records (if configured) and releases the
	// store's claim on its directory.
	Close() (err error)

	// -----------------------------------------------------
	// Write Operations
	// -----------------------------------------------------

	// Upsert inserts a new record or merges the entity's fields into an
	// existing one. Merged field mutations are recorded in the existing
	// record's history.
	Upsert(key string, entity E) (rec IRecord[E], err error)
	// Add inserts or merges an entity under a derived key (KeySelector,
	// else the entity's "id" field). It fails with RetCNoKey if no key
	// can be derived.
	Add(entity E) (rec IRecord[E], err error)
	// Create inserts an entity under a derived key and fails with
	// RetCDuplicateKey if the key is already present.
	Create(entity E) (rec IRecord[E], err error)
	// AddRange upserts several entities, deferring persistence to one
	// flush at the end. Individual failures are joined.
	AddRange(entities ...E) (recs []IRecord[E], err error)
	// Update applies the update function to every record whose entity
	// matches the filter and returns how many matched.
	Update(filter func(E) bool, update func(rec IRecord[E]) error) (updated int, err error)
	// Delete removes the record from memory and its document from disk.
	// A record that was never persisted has no file; that is not an
	// error. Unknown keys fail with RetCKeyNotFound.
	Delete(key string) (err error)
	// Clear removes every record and its document. The directory itself
	// stays.
	Clear() (err error)

	// -----------------------------------------------------
	// Read Operations
	// -----------------------------------------------------

	// Get returns the record for a key. The boolean return value
	// indicates whether the key was found.
	Get(key string) (rec IRecord[E], loaded bool, err error)
	// Contains reports whether a record with the given key exists
	Contains(key string) bool
	// Len returns the number of records in the store
	Len() int
	// Keys returns all record keys in insertion order
	Keys() []string
	// All iterates over all entities in insertion order. The sequence is
	// lazy and can be ranged over multiple times.
	All() iter.Seq[E]
	// Filter iterates over the entities matching the predicate, lazily
	// and in insertion order. A nil predicate matches nothing.
	Filter(pred func(E) bool) iter.Seq[E]
	// First returns the first entity matching the predicate. The boolean
	// return value indicates whether any entity matched; a nil predicate
	// matches nothing.
	First(pred func(E) bool) (entity E, found bool)
	// Records iterates over key/record pairs in insertion order
	Records() iter.Seq2[string, IRecord[E]]

	// -----------------------------------------------------
	// Observers / Metadata
	// -----------------------------------------------------

	// AddChangeHook registers a hook that fires synchronously after every
	// record mutation (add, update, remove, undo, redo)
	AddChangeHook(hook ChangeHook)
	// ClearChangeHooks removes all registered hooks
	ClearChangeHooks()
	// GetInfo returns metadata about the store and its directory.
	// It is not guaranteed that all fields are filled in or that the information is up-to-date!
	GetInfo() (info StoreInfo, err error)
	// Directory returns the directory this store persists to
	Directory() string
}

// --------------------------------------------------------------------------
// Change Hooks
// --------------------------------------------------------------------------

// ChangeKind classifies the mutation a ChangeEvent describes
type ChangeKind uint8

const (
	ChangeKindUpdate ChangeKind = iota
	ChangeKindAdd
	ChangeKindRemove
	ChangeKindUndo
	ChangeKindRedo
)

// String implements the stringer interface
func (k ChangeKind) String() string {
	switch k {
	case ChangeKindUpdate:
		return "Update"
	case ChangeKindAdd:
		return "Add"
	case ChangeKindRemove:
		return "Remove"
	case ChangeKindUndo:
		return "Undo"
	case ChangeKindRedo:
		return "Redo"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(k))
	}
}

// ChangeEvent describes one record mutation for observers
type ChangeEvent struct {
	Kind ChangeKind
	// Key is the key of the mutated record
	Key string
	// Changes holds the change entries of this mutation. Add and Remove
	// events carry no entries; merge upserts may carry several.
	Changes []changelog.Change
}

// ChangeHook observes record mutations. Hooks run synchronously on the
// mutating call; a slow hook slows the store down. Hooks cannot be removed
// individually (function values are not comparable), only all at once via
// ClearChangeHooks.
type ChangeHook func(event ChangeEvent)

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is a custom error type that wraps a return code (of type RetCode)
// and an error message.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message.
}

// Error implements the error interface.
func (e *Error) Error() string {
	errorCode := ""
	switch e.Code {
	case RetCInternalError:
		errorCode = "RetCInternalError"
	case RetCInvalidOperation:
		errorCode = "RetCInvalidOperation"
	case RetCKeyNotFound:
		errorCode = "RetCKeyNotFound"
	case RetCRecordRemoved:
		errorCode = "RetCRecordRemoved"
	case RetCDirNotFound:
		errorCode = "RetCDirNotFound"
	case RetCDirBusy:
		errorCode = "RetCDirBusy"
	case RetCReservedField:
		errorCode = "RetCReservedField"
	case RetCSchemaMismatch:
		errorCode = "RetCSchemaMismatch"
	case RetCPersistence:
		errorCode = "RetCPersistence"
	case RetCDuplicateKey:
		errorCode = "RetCDuplicateKey"
	case RetCNoKey:
		errorCode = "RetCNoKey"
	default:
		errorCode = "Unknown"
	}

	return fmt.Sprintf("StoreError (code %s): %s", errorCode, e.Msg)
}

// NewError creates a new store Error with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// IsCode reports whether err is or wraps (also via errors.Join) a store
// Error with the given code.
func IsCode(err error, code RetCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess          RetCode = iota // 0: Command executed successfully.
	RetCInternalError                   // 1: Command failed due to an internal error.
	RetCInvalidOperation                // 2: Invalid operation (e.g. unknown field name).
	RetCKeyNotFound                     // 3: No record with the given key exists.
	RetCRecordRemoved                   // 4: The record was deleted from its store.
	RetCDirNotFound                     // 5: The store directory does not exist.
	RetCDirBusy                         // 6: The directory is already claimed by another store in this process.
	RetCReservedField                   // 7: An entity field collides with a reserved document key.
	RetCSchemaMismatch                  // 8: A document does not match the entity schema.
	RetCPersistence                     // 9: Writing or removing a document failed.
	RetCDuplicateKey                    // 10: Create found an existing record under the derived key.
	RetCNoKey                           // 11: No key could be derived for the entity.
)
