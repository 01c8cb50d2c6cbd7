package model

import (
	"errors"
)

// --------------------------------------------------------------------------
// Interface Definitions
// --------------------------------------------------------------------------

// IModel is the structural contract every stored entity type must satisfy.
// The store never inspects an entity through reflection; it only talks to it
// through these three methods.
type IModel interface {
	// FieldNames returns the names of all fields of the entity in a stable
	// (sorted) order. For schema-less entities this is the set of fields
	// currently present.
	FieldNames() []string

	// GetField returns the current value of the named field. Names outside
	// the entity's schema return an error wrapping ErrUnknownField.
	GetField(name string) (any, error)

	// SetField assigns a new value to the named field. Implementations are
	// expected to coerce JSON-decoded values (e.g. float64 for numeric
	// fields) where that can be done losslessly and to reject everything
	// else with an error.
	SetField(name string, value any) error
}

// Factory creates a new empty entity. Codecs populate the result field by
// field when decoding a document.
type Factory[E IModel] func() E

// --------------------------------------------------------------------------
// Errors
// --------------------------------------------------------------------------

// ErrUnknownField is returned (possibly wrapped) by GetField and SetField
// for field names outside the entity's schema. Codecs skip document keys
// that produce it instead of failing the whole document.
var ErrUnknownField = errors.New("unknown field")
