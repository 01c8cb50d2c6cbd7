package fstore

import (
	"github.com/slowstore/slowstore/lib/codec"
	"github.com/slowstore/slowstore/lib/model"
	"github.com/slowstore/slowstore/lib/store"
)

// --------------------------------------------------------------------------
// Store Options
// --------------------------------------------------------------------------

// Options configures a file store. Use DefaultOptions as the baseline and
// change individual fields; a nil *Options passed to New means defaults.
type Options[E model.IModel] struct {
	// SaveOnChange persists a record after every tracked mutation (set,
	// undo, redo, merge upsert). Disabled, mutations stay in memory until
	// an explicit commit.
	SaveOnChange bool

	// SaveOnClose flushes all dirty records when the store is closed
	SaveOnClose bool

	// PersistHistory writes the change history into documents. Disabled,
	// documents contain only the entity fields and the record key.
	PersistHistory bool

	// LoadHistory rebuilds the change history from documents on Load.
	// Disabled, loaded records start with an empty history.
	LoadHistory bool

	// KeySelector derives storage keys for Add, Create and AddRange.
	// Without a selector the entity's "id" field is used.
	KeySelector store.KeySelector[E]

	// Codec converts records to documents and back. Defaults to the JSON
	// codec.
	Codec codec.IRecordCodec[E]
}

// DefaultOptions returns the default store configuration
func DefaultOptions[E model.IModel]() *Options[E] {
	return &Options[E]{
		SaveOnChange:   true,
		SaveOnClose:    true,
		PersistHistory: true,
		LoadHistory:    true,
	}
}
