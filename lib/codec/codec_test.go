package codec

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/slowstore/slowstore/lib/changelog"
	"github.com/slowstore/slowstore/lib/model"
	"github.com/slowstore/slowstore/lib/store"
)

// testCodecs contains factory functions for all codecs to test
var testCodecs = map[string]func() IRecordCodec[*user]{
	"JSON": func() IRecordCodec[*user] {
		return NewJSONCodec(newUser)
	},
}

// --------------------------------------------------------------------------
// Test Model
// --------------------------------------------------------------------------

// user is a minimal typed entity for codec tests
type user struct {
	Name string
	Age  int
}

func newUser() *user { return &user{} }

func (u *user) FieldNames() []string { return []string{"age", "name"} }

func (u *user) GetField(name string) (any, error) {
	switch name {
	case "name":
		return u.Name, nil
	case "age":
		return u.Age, nil
	}
	return nil, fmt.Errorf("%w: %s", model.ErrUnknownField, name)
}

func (u *user) SetField(name string, value any) (err error) {
	switch name {
	case "name":
		u.Name, err = model.AsString(value)
	case "age":
		u.Age, err = model.AsInt(value)
	default:
		err = fmt.Errorf("%w: %s", model.ErrUnknownField, name)
	}
	return err
}

// --------------------------------------------------------------------------
// Round Trip
// --------------------------------------------------------------------------

// TestCodecRoundTrip verifies that a record survives encode/decode intact
func TestCodecRoundTrip(t *testing.T) {
	for name, factory := range testCodecs {
		t.Run(name, func(t *testing.T) {
			c := factory()

			log := changelog.New("dennis")
			log.Append("name", "denis", "DENIS")
			log.Append("age", 32, 33)

			data, err := c.Encode("dennis", &user{Name: "DENIS", Age: 33}, log)
			if err != nil {
				t.Fatalf("Failed to encode record: %v", err)
			}

			key, entity, decoded, err := c.Decode(data)
			if err != nil {
				t.Fatalf("Failed to decode record: %v", err)
			}

			if key != "dennis" {
				t.Errorf("Expected key %q, got %q", "dennis", key)
			}
			if entity.Name != "DENIS" || entity.Age != 33 {
				t.Errorf("Expected entity {DENIS 33}, got %+v", entity)
			}

			// A loaded history counts as fully applied
			if decoded.Len() != 2 || decoded.Cursor() != 2 {
				t.Fatalf("Expected len=cursor=2, got len=%d cursor=%d", decoded.Len(), decoded.Cursor())
			}
			if decoded.Dirty() {
				t.Errorf("Expected decoded log to be clean")
			}

			entries := decoded.Entries()
			if entries[0].Field != "name" || entries[1].Field != "age" {
				t.Errorf("Expected entry order [name age], got %+v", entries)
			}
			// JSON decoding yields float64 for numbers, so values are
			// compared by their string form
			if fmt.Sprint(entries[1].OldValue) != "32" || fmt.Sprint(entries[1].NewValue) != "33" {
				t.Errorf("Expected age change 32 -> 33, got %+v", entries[1])
			}
			if entries[0].Key != "dennis" {
				t.Errorf("Expected entry key %q, got %q", "dennis", entries[0].Key)
			}
			if time.Since(entries[0].Date.Time) > time.Minute {
				t.Errorf("Expected a recent timestamp, got %v", entries[0].Date)
			}
		})
	}
}

// --------------------------------------------------------------------------
// Document Shape
// --------------------------------------------------------------------------

// TestDocumentShape verifies the exact document layout on disk
func TestDocumentShape(t *testing.T) {
	c := NewJSONCodec(newUser)

	log := changelog.New("dennis")
	log.Append("name", "denis", "DENIS")

	data, err := c.Encode("dennis", &user{Name: "DENIS", Age: 32}, log)
	if err != nil {
		t.Fatalf("Failed to encode record: %v", err)
	}

	// Documents are indented for human readers
	if !strings.HasPrefix(string(data), "{\n  \"") {
		t.Errorf("Expected indented document, got %q", string(data)[:20])
	}

	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("Document is not valid JSON: %v", err)
	}

	if doc[KeyField] != "dennis" {
		t.Errorf("Expected %s entry %q, got %v", KeyField, "dennis", doc[KeyField])
	}
	if doc["name"] != "DENIS" {
		t.Errorf("Expected field name=DENIS, got %v", doc["name"])
	}
	if doc["age"] != float64(32) {
		t.Errorf("Expected field age=32, got %v", doc["age"])
	}

	changes, ok := doc[ChangesField].([]any)
	if !ok || len(changes) != 1 {
		t.Fatalf("Expected one history entry, got %v", doc[ChangesField])
	}

	entry, ok := changes[0].(map[string]any)
	if !ok {
		t.Fatalf("Expected history entry object, got %T", changes[0])
	}
	for _, field := range []string{"key", "prop_name", "prev_val", "new_val", "date"} {
		if _, ok := entry[field]; !ok {
			t.Errorf("Expected history entry field %q, got %v", field, entry)
		}
	}
	if entry["prop_name"] != "name" || entry["prev_val"] != "denis" || entry["new_val"] != "DENIS" {
		t.Errorf("Expected name change denis -> DENIS, got %v", entry)
	}

	// Timestamps use the fixed microsecond layout
	if _, err := time.Parse(changelog.Layout, entry["date"].(string)); err != nil {
		t.Errorf("Expected timestamp in document layout, got %v: %v", entry["date"], err)
	}
}

// TestEncodeAppliedPrefixOnly verifies that undone entries are not persisted
func TestEncodeAppliedPrefixOnly(t *testing.T) {
	c := NewJSONCodec(newUser)

	log := changelog.New("dennis")
	log.Append("name", "a", "b")
	log.Append("name", "b", "c")
	log.Undo()

	data, err := c.Encode("dennis", &user{Name: "b", Age: 1}, log)
	if err != nil {
		t.Fatalf("Failed to encode record: %v", err)
	}

	_, _, decoded, err := c.Decode(data)
	if err != nil {
		t.Fatalf("Failed to decode record: %v", err)
	}
	if decoded.Len() != 1 {
		t.Errorf("Expected only the applied entry to persist, got %d entries", decoded.Len())
	}
	if _, ok := decoded.Redo(); ok {
		t.Errorf("Expected no redo tail after a reload")
	}
}

// TestEncodeWithoutHistory verifies that a nil log omits the history entry
func TestEncodeWithoutHistory(t *testing.T) {
	c := NewJSONCodec(newUser)

	data, err := c.Encode("dennis", &user{Name: "DENIS", Age: 32}, nil)
	if err != nil {
		t.Fatalf("Failed to encode record: %v", err)
	}

	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("Document is not valid JSON: %v", err)
	}
	if _, ok := doc[ChangesField]; ok {
		t.Errorf("Expected no %s entry, got %v", ChangesField, doc[ChangesField])
	}

	// Documents without history must still load
	_, _, log, err := c.Decode(data)
	if err != nil {
		t.Fatalf("Failed to decode record without history: %v", err)
	}
	if log.Len() != 0 {
		t.Errorf("Expected empty change log, got %d entries", log.Len())
	}
}

// --------------------------------------------------------------------------
// Decode Errors
// --------------------------------------------------------------------------

// TestDecodeInvalidDocuments verifies the schema checks on decode
func TestDecodeInvalidDocuments(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"Not JSON", `this is not json`},
		{"Missing key entry", `{"age": 1, "name": "x"}`},
		{"Key entry not a string", `{"__key__": 42, "age": 1, "name": "x"}`},
		{"Missing entity field", `{"__key__": "x", "name": "x"}`},
		{"Wrong field type", `{"__key__": "x", "age": "old", "name": "x"}`},
		{"Fractional integer field", `{"__key__": "x", "age": 1.5, "name": "x"}`},
		{"Malformed history", `{"__key__": "x", "age": 1, "name": "x", "__changes__": 42}`},
	}

	c := NewJSONCodec(newUser)
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, _, err := c.Decode([]byte(tc.data))
			if err == nil {
				t.Fatalf("Expected decode error for %s", tc.name)
			}
			if !store.IsCode(err, store.RetCSchemaMismatch) {
				t.Errorf("Expected RetCSchemaMismatch, got %v", err)
			}
		})
	}
}

// TestDecodeIgnoresStaleFields verifies that document keys outside the
// entity schema are skipped instead of failing the document
func TestDecodeIgnoresStaleFields(t *testing.T) {
	c := NewJSONCodec(newUser)

	data := `{"__key__": "x", "age": 1, "name": "x", "nickname": "stale"}`
	_, entity, _, err := c.Decode([]byte(data))
	if err != nil {
		t.Fatalf("Expected stale field to be ignored, got %v", err)
	}
	if entity.Name != "x" || entity.Age != 1 {
		t.Errorf("Expected entity {x 1}, got %+v", entity)
	}
}

// --------------------------------------------------------------------------
// Schema-less Entities
// --------------------------------------------------------------------------

// TestDynamicEntities verifies codec behavior for map-backed entities
func TestDynamicEntities(t *testing.T) {
	c := NewJSONCodec(model.NewDynamic)

	data := `{"__key__": "x", "name": "denis", "age": 32, "__changes__": []}`
	key, entity, _, err := c.Decode([]byte(data))
	if err != nil {
		t.Fatalf("Failed to decode dynamic record: %v", err)
	}
	if key != "x" {
		t.Errorf("Expected key %q, got %q", "x", key)
	}

	// Reserved keys must not leak into the entity
	if names := entity.FieldNames(); len(names) != 2 {
		t.Errorf("Expected fields [age name], got %v", names)
	}
	if v, _ := entity.GetField("name"); v != "denis" {
		t.Errorf("Expected name=denis, got %v", v)
	}

	// A reserved name smuggled into a schema-less entity fails on encode
	bad := model.NewDynamic()
	_ = bad.SetField(KeyField, "boom")
	if _, err := c.Encode("x", bad, nil); !store.IsCode(err, store.RetCReservedField) {
		t.Errorf("Expected RetCReservedField, got %v", err)
	}
}

// TestCheckFieldNames verifies the construction-time schema validation
func TestCheckFieldNames(t *testing.T) {
	if err := CheckFieldNames([]string{"age", "name"}); err != nil {
		t.Errorf("Expected clean schema to pass, got %v", err)
	}
	if err := CheckFieldNames([]string{"name", ChangesField}); !store.IsCode(err, store.RetCReservedField) {
		t.Errorf("Expected RetCReservedField, got %v", err)
	}
}
