package model

import (
	"sort"
)

// --------------------------------------------------------------------------
// Dynamic Model
// --------------------------------------------------------------------------

// Dynamic is a schema-less entity backed by a plain map. Every field name is
// valid; reading a field that was never set yields nil. It is the entity
// type used by the CLI, where no Go struct for the stored data exists.
type Dynamic struct {
	fields map[string]any
}

// NewDynamic creates an empty dynamic entity. The function satisfies
// Factory[*Dynamic] and can be passed to a store constructor directly.
func NewDynamic() *Dynamic {
	return &Dynamic{fields: map[string]any{}}
}

// DynamicFromMap creates a dynamic entity pre-populated with the given fields
func DynamicFromMap(fields map[string]any) *Dynamic {
	d := NewDynamic()
	for name, value := range fields {
		d.fields[name] = value
	}
	return d
}

// --------------------------------------------------------------------------
// Interface Methods (docu see model.IModel)
// --------------------------------------------------------------------------

func (d *Dynamic) FieldNames() []string {
	names := make([]string, 0, len(d.fields))
	for name := range d.fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (d *Dynamic) GetField(name string) (any, error) {
	return d.fields[name], nil
}

func (d *Dynamic) SetField(name string, value any) error {
	if d.fields == nil {
		d.fields = map[string]any{}
	}
	d.fields[name] = value
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// Fields returns a copy of all fields, e.g. for JSON display
func (d *Dynamic) Fields() map[string]any {
	fields := make(map[string]any, len(d.fields))
	for name, value := range d.fields {
		fields[name] = value
	}
	return fields
}
