package codec

import (
	"fmt"

	"github.com/slowstore/slowstore/lib/changelog"
	"github.com/slowstore/slowstore/lib/model"
	"github.com/slowstore/slowstore/lib/store"
)

// --------------------------------------------------------------------------
// Document Format
// --------------------------------------------------------------------------

// Reserved document keys. They hold record bookkeeping inside the document
// and are therefore forbidden as entity field names.
const (
	// KeyField holds the record key inside the document
	KeyField = "__key__"

	// ChangesField holds the record's change history inside the document
	ChangesField = "__changes__"
)

// CheckFieldNames validates entity field names against the reserved document
// keys. Stores run this once at construction against their entity schema.
func CheckFieldNames(names []string) error {
	for _, name := range names {
		if name == KeyField || name == ChangesField {
			return store.NewError(store.RetCReservedField,
				fmt.Sprintf("entity field %q collides with a reserved document key", name))
		}
	}
	return nil
}

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// IRecordCodec converts between a record (key, entity, change history) and
// its document bytes. One record always maps to one document.
type IRecordCodec[E model.IModel] interface {
	// Encode serializes a record into document bytes. A nil change log
	// produces a document without a history entry; otherwise only the
	// applied prefix of the log is written.
	Encode(key string, entity E, log *changelog.ChangeLog) (data []byte, err error)

	// Decode parses document bytes back into a record. The returned
	// change log counts every persisted entry as applied and saved. A
	// document without a history entry decodes to an empty log.
	Decode(data []byte) (key string, entity E, log *changelog.ChangeLog, err error)
}
