package testing

import (
	"fmt"

	"github.com/slowstore/slowstore/lib/model"
)

// --------------------------------------------------------------------------
// Test Fixture Entity
// --------------------------------------------------------------------------

// Person is the entity type the suite stores. It covers the typed-model
// surface: string, integer and list fields with coercion from decoded
// documents, plus an id field for key derivation.
type Person struct {
	ID   string
	Name string
	Age  int
	Tags []string
}

// NewPerson creates an empty person. It satisfies model.Factory[*Person].
func NewPerson() *Person { return &Person{} }

func (p *Person) FieldNames() []string { return []string{"age", "id", "name", "tags"} }

func (p *Person) GetField(name string) (any, error) {
	switch name {
	case "id":
		return p.ID, nil
	case "name":
		return p.Name, nil
	case "age":
		return p.Age, nil
	case "tags":
		return p.Tags, nil
	}
	return nil, fmt.Errorf("%w: %s", model.ErrUnknownField, name)
}

func (p *Person) SetField(name string, value any) (err error) {
	switch name {
	case "id":
		p.ID, err = model.AsString(value)
	case "name":
		p.Name, err = model.AsString(value)
	case "age":
		p.Age, err = model.AsInt(value)
	case "tags":
		p.Tags, err = model.AsStringSlice(value)
	default:
		err = fmt.Errorf("%w: %s", model.ErrUnknownField, name)
	}
	return err
}
