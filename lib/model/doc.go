// Package model defines the entity abstraction stored by the record store.
// The store, the codec and the change tracking all talk to entities through
// the small IModel interface instead of reflection, so any type that can
// enumerate, read and write its fields by name can be persisted.
//
// The package focuses on:
//   - Keeping the store decoupled from concrete entity types
//   - Making decode a pure field-by-field reconstruction (Factory + SetField)
//   - Coercing JSON-decoded values into typed fields without reflection
//
// Key Components:
//
//   - IModel: Core interface every entity must satisfy (FieldNames, GetField,
//     SetField). Typed entities return ErrUnknownField for names outside their
//     schema, which codecs use to skip stale document keys.
//
//   - Factory: Constructor function for an empty entity, used by codecs when
//     rebuilding a record from its document.
//
//   - Dynamic: A schema-less, map-backed implementation for callers without a
//     Go struct for their data (the CLI uses it exclusively).
//
//   - Conversion helpers (AsString, AsInt, AsFloat, AsBool, AsStringSlice):
//     Coerce values out of decoded documents for hand-written SetField
//     implementations, since JSON decoding yields float64 for every number.
//
// Thread Safety:
//
//	Entities are plain data and carry no synchronization. The store contract
//	is single-threaded; sharing an entity between goroutines requires
//	external coordination.
//
// Usage:
//
//	A minimal typed entity:
//
//	  type User struct {
//	      Name string
//	      Age  int
//	  }
//
//	  func (u *User) FieldNames() []string { return []string{"age", "name"} }
//
//	  func (u *User) GetField(name string) (any, error) {
//	      switch name {
//	      case "name":
//	          return u.Name, nil
//	      case "age":
//	          return u.Age, nil
//	      }
//	      return nil, fmt.Errorf("%w: %s", model.ErrUnknownField, name)
//	  }
//
//	  func (u *User) SetField(name string, value any) (err error) {
//	      switch name {
//	      case "name":
//	          u.Name, err = model.AsString(value)
//	      case "age":
//	          u.Age, err = model.AsInt(value)
//	      default:
//	          err = fmt.Errorf("%w: %s", model.ErrUnknownField, name)
//	      }
//	      return err
//	  }
package model
