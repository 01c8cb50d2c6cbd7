package codec

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/slowstore/slowstore/lib/changelog"
	"github.com/slowstore/slowstore/lib/model"
	"github.com/slowstore/slowstore/lib/store"
)

// --------------------------------------------------------------------------
// JSON Codec Implementation
// --------------------------------------------------------------------------

// jsonCodecImpl implements the IRecordCodec interface using indented JSON.
// The output is deliberately human-oriented: two-space indentation, one
// document per record, field values exactly as the entity reports them.
type jsonCodecImpl[E model.IModel] struct {
	factory model.Factory[E]
}

// NewJSONCodec creates a new JSON record codec. The factory is used by
// Decode to create the entity that the document fields are loaded into.
func NewJSONCodec[E model.IModel](factory model.Factory[E]) IRecordCodec[E] {
	return &jsonCodecImpl[E]{factory: factory}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see codec.IRecordCodec)
// --------------------------------------------------------------------------

func (c *jsonCodecImpl[E]) Encode(key string, entity E, log *changelog.ChangeLog) ([]byte, error) {
	doc := make(map[string]any)

	for _, name := range entity.FieldNames() {
		// Schema-less entities can grow reserved names after the store's
		// construction-time check, so Encode re-checks every time
		if name == KeyField || name == ChangesField {
			return nil, store.NewError(store.RetCReservedField,
				fmt.Sprintf("entity field %q collides with a reserved document key", name))
		}

		value, err := entity.GetField(name)
		if err != nil {
			return nil, store.NewError(store.RetCInternalError,
				fmt.Sprintf("read entity field %q: %v", name, err))
		}
		doc[name] = value
	}

	doc[KeyField] = key
	if log != nil {
		doc[ChangesField] = log.Applied()
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, store.NewError(store.RetCInternalError,
			fmt.Sprintf("marshal document for key %q: %v", key, err))
	}
	return data, nil
}

func (c *jsonCodecImpl[E]) Decode(data []byte) (string, E, *changelog.ChangeLog, error) {
	var zero E

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return "", zero, nil, store.NewError(store.RetCSchemaMismatch,
			fmt.Sprintf("parse document: %v", err))
	}

	rawKey, ok := doc[KeyField]
	if !ok {
		return "", zero, nil, store.NewError(store.RetCSchemaMismatch,
			fmt.Sprintf("document has no %s entry", KeyField))
	}
	var key string
	if err := json.Unmarshal(rawKey, &key); err != nil {
		return "", zero, nil, store.NewError(store.RetCSchemaMismatch,
			fmt.Sprintf("%s entry is not a string: %v", KeyField, err))
	}

	// History is optional: documents written without it (or edited by hand)
	// load as records with an empty change log
	var entries []changelog.Change
	if rawChanges, ok := doc[ChangesField]; ok {
		if err := json.Unmarshal(rawChanges, &entries); err != nil {
			return "", zero, nil, store.NewError(store.RetCSchemaMismatch,
				fmt.Sprintf("parse %s entries of key %q: %v", ChangesField, key, err))
		}
	}

	entity := c.factory()

	// Every schema field must be present in the document
	for _, name := range entity.FieldNames() {
		if _, ok := doc[name]; !ok {
			return "", zero, nil, store.NewError(store.RetCSchemaMismatch,
				fmt.Sprintf("document for key %q misses entity field %q", key, name))
		}
	}

	for name, raw := range doc {
		if name == KeyField || name == ChangesField {
			continue
		}

		var value any
		if err := json.Unmarshal(raw, &value); err != nil {
			return "", zero, nil, store.NewError(store.RetCSchemaMismatch,
				fmt.Sprintf("parse field %q of key %q: %v", name, key, err))
		}

		if err := entity.SetField(name, value); err != nil {
			if errors.Is(err, model.ErrUnknownField) {
				// Stale keys from an older schema are ignored
				continue
			}
			return "", zero, nil, store.NewError(store.RetCSchemaMismatch,
				fmt.Sprintf("set field %q of key %q: %v", name, key, err))
		}
	}

	return key, entity, changelog.FromEntries(key, entries), nil
}
