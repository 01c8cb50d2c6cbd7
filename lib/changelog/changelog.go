package changelog

// --------------------------------------------------------------------------
// Change Entry
// --------------------------------------------------------------------------

// Change describes a single field mutation. The JSON tags are the document
// field names and must not change, or existing stores become unreadable.
type Change struct {
	Key      string `json:"key"`
	Field    string `json:"prop_name"`
	OldValue any    `json:"prev_val"`
	NewValue any    `json:"new_val"`
	Date     Time   `json:"date"`
}

// --------------------------------------------------------------------------
// Change Log
// --------------------------------------------------------------------------

// ChangeLog is an ordered history of field mutations with a cursor for
// undo/redo. Entries below the cursor are applied to the entity; entries at
// or above it have been undone and are re-applied by Redo. Appending while
// the cursor sits below the end discards the undone tail first, so the log
// always describes a single linear history.
//
// The log also tracks a persistence watermark: Dirty reports whether the
// applied prefix differs from what was last marked saved.
//
// Thread-safety: a ChangeLog is confined to its record and inherits the
// store's single-threaded contract. It performs no locking.
type ChangeLog struct {
	key     string
	entries []Change
	cursor  int
	saved   int
}

// New creates an empty change log for the record with the given key
func New(key string) *ChangeLog {
	return &ChangeLog{key: key}
}

// FromEntries rebuilds a change log from decoded document entries. Every
// entry counts as applied and as persisted: the cursor and the watermark
// both sit at the end, so a freshly loaded log is clean and has nothing to
// redo.
func FromEntries(key string, entries []Change) *ChangeLog {
	copied := make([]Change, len(entries))
	copy(copied, entries)
	return &ChangeLog{
		key:     key,
		entries: copied,
		cursor:  len(copied),
		saved:   len(copied),
	}
}

// --------------------------------------------------------------------------
// Mutation
// --------------------------------------------------------------------------

// Append records a new field mutation at the cursor and returns the created
// entry. Any undone tail above the cursor is discarded; if that tail had
// already been persisted, the log stays dirty until the next MarkSaved.
func (l *ChangeLog) Append(field string, oldValue, newValue any) Change {
	l.entries = l.entries[:l.cursor]
	if l.saved > len(l.entries) {
		// The persisted state contains entries that no longer exist
		l.saved = -1
	}

	change := Change{
		Key:      l.key,
		Field:    field,
		OldValue: oldValue,
		NewValue: newValue,
		Date:     Now(),
	}
	l.entries = append(l.entries, change)
	l.cursor = len(l.entries)
	return change
}

// Undo steps the cursor back by one and returns the entry that was undone.
// At the beginning of the log it returns false and changes nothing.
func (l *ChangeLog) Undo() (Change, bool) {
	if l.cursor == 0 {
		return Change{}, false
	}
	l.cursor--
	return l.entries[l.cursor], true
}

// Redo re-applies the entry at the cursor and steps forward. At the end of
// the log it returns false and changes nothing.
func (l *ChangeLog) Redo() (Change, bool) {
	if l.cursor == len(l.entries) {
		return Change{}, false
	}
	change := l.entries[l.cursor]
	l.cursor++
	return change, true
}

// --------------------------------------------------------------------------
// Persistence Watermark
// --------------------------------------------------------------------------

// Dirty reports whether the applied prefix differs from the last saved state
func (l *ChangeLog) Dirty() bool {
	return l.cursor != l.saved
}

// MarkSaved moves the persistence watermark to the current cursor
func (l *ChangeLog) MarkSaved() {
	l.saved = l.cursor
}

// --------------------------------------------------------------------------
// Accessors
// --------------------------------------------------------------------------

// Key returns the record key this log belongs to
func (l *ChangeLog) Key() string {
	return l.key
}

// Len returns the total number of entries, applied or not
func (l *ChangeLog) Len() int {
	return len(l.entries)
}

// Cursor returns the number of currently applied entries
func (l *ChangeLog) Cursor() int {
	return l.cursor
}

// Applied returns a copy of the applied prefix (the entries below the
// cursor). This is what a codec persists.
func (l *ChangeLog) Applied() []Change {
	copied := make([]Change, l.cursor)
	copy(copied, l.entries[:l.cursor])
	return copied
}

// Entries returns a copy of all entries, including any undone tail
func (l *ChangeLog) Entries() []Change {
	copied := make([]Change, len(l.entries))
	copy(copied, l.entries)
	return copied
}
