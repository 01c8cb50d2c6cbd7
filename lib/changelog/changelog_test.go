package changelog

import (
	"encoding/json"
	"testing"
	"time"
)

// TestAppendUndoRedo verifies the cursor round trip over a small history
func TestAppendUndoRedo(t *testing.T) {
	log := New("user-1")

	log.Append("name", "denis", "DENIS")
	log.Append("age", 32, 33)

	if log.Len() != 2 || log.Cursor() != 2 {
		t.Fatalf("Expected len=2 cursor=2, got len=%d cursor=%d", log.Len(), log.Cursor())
	}

	// Undo walks backwards through the entries
	change, ok := log.Undo()
	if !ok {
		t.Fatalf("Expected undo to succeed")
	}
	if change.Field != "age" || change.OldValue != 32 || change.NewValue != 33 {
		t.Errorf("Expected age change back, got %+v", change)
	}
	if log.Cursor() != 1 {
		t.Errorf("Expected cursor=1 after undo, got %d", log.Cursor())
	}

	change, ok = log.Undo()
	if !ok || change.Field != "name" {
		t.Fatalf("Expected name change back, got %+v (ok=%v)", change, ok)
	}

	// At the beginning undo is a no-op
	if _, ok := log.Undo(); ok {
		t.Errorf("Expected undo at cursor 0 to report false")
	}
	if log.Cursor() != 0 {
		t.Errorf("Expected cursor to stay at 0, got %d", log.Cursor())
	}

	// Redo walks forward again
	change, ok = log.Redo()
	if !ok || change.Field != "name" {
		t.Fatalf("Expected name change on redo, got %+v (ok=%v)", change, ok)
	}
	change, ok = log.Redo()
	if !ok || change.Field != "age" {
		t.Fatalf("Expected age change on redo, got %+v (ok=%v)", change, ok)
	}

	// At the end redo is a no-op
	if _, ok := log.Redo(); ok {
		t.Errorf("Expected redo at the end to report false")
	}
	if log.Cursor() != 2 {
		t.Errorf("Expected cursor=2 after full redo, got %d", log.Cursor())
	}
}

// TestAppendTruncatesUndoneTail verifies that appending after undo discards
// the undone entries
func TestAppendTruncatesUndoneTail(t *testing.T) {
	log := New("user-1")
	log.Append("name", "a", "b")
	log.Append("name", "b", "c")

	if _, ok := log.Undo(); !ok {
		t.Fatalf("Expected undo to succeed")
	}

	log.Append("name", "b", "x")

	if log.Len() != 2 {
		t.Fatalf("Expected truncated history of len 2, got %d", log.Len())
	}
	entries := log.Entries()
	if entries[1].NewValue != "x" {
		t.Errorf("Expected new branch entry, got %+v", entries[1])
	}

	// The discarded entry must not come back
	if _, ok := log.Redo(); ok {
		t.Errorf("Expected nothing to redo after branching")
	}
}

// TestFromEntries verifies that a loaded history counts as fully applied and clean
func TestFromEntries(t *testing.T) {
	entries := []Change{
		{Key: "user-1", Field: "name", OldValue: "a", NewValue: "b", Date: Now()},
		{Key: "user-1", Field: "age", OldValue: 1, NewValue: 2, Date: Now()},
	}

	log := FromEntries("user-1", entries)

	if log.Cursor() != 2 || log.Len() != 2 {
		t.Errorf("Expected cursor=len=2, got cursor=%d len=%d", log.Cursor(), log.Len())
	}
	if log.Dirty() {
		t.Errorf("Expected a loaded log to be clean")
	}
	if _, ok := log.Redo(); ok {
		t.Errorf("Expected nothing to redo on a loaded log")
	}

	// The log must own its entries
	entries[0].Field = "mutated"
	if log.Entries()[0].Field != "name" {
		t.Errorf("Expected log to copy entries on construction")
	}
}

// TestDirtyWatermark verifies the persistence watermark semantics
func TestDirtyWatermark(t *testing.T) {
	log := New("user-1")

	if log.Dirty() {
		t.Errorf("Expected a fresh log to be clean")
	}

	log.Append("name", "a", "b")
	if !log.Dirty() {
		t.Errorf("Expected log to be dirty after append")
	}

	log.MarkSaved()
	if log.Dirty() {
		t.Errorf("Expected log to be clean after MarkSaved")
	}

	// Undo moves away from the saved state ...
	log.Undo()
	if !log.Dirty() {
		t.Errorf("Expected log to be dirty after undo")
	}

	// ... and redo moves back onto it
	log.Redo()
	if log.Dirty() {
		t.Errorf("Expected log to be clean after redoing back to the saved state")
	}
}

// TestTruncationInvalidatesWatermark verifies that discarding persisted
// entries keeps the log dirty until the next save
func TestTruncationInvalidatesWatermark(t *testing.T) {
	log := New("user-1")
	log.Append("name", "a", "b")
	log.Append("name", "b", "c")
	log.MarkSaved()

	log.Undo()
	log.Append("name", "b", "x")

	if !log.Dirty() {
		t.Errorf("Expected log to stay dirty after truncating persisted entries")
	}

	// Even stepping the cursor around must not make it clean by accident
	log.Undo()
	if !log.Dirty() {
		t.Errorf("Expected log to stay dirty at any cursor position")
	}
	log.Redo()

	log.MarkSaved()
	if log.Dirty() {
		t.Errorf("Expected log to be clean after MarkSaved")
	}
}

// TestAppliedVsEntries verifies that Applied only covers the cursor prefix
func TestAppliedVsEntries(t *testing.T) {
	log := New("user-1")
	log.Append("a", 1, 2)
	log.Append("b", 2, 3)
	log.Undo()

	if applied := log.Applied(); len(applied) != 1 || applied[0].Field != "a" {
		t.Errorf("Expected applied prefix [a], got %+v", applied)
	}
	if entries := log.Entries(); len(entries) != 2 {
		t.Errorf("Expected all entries, got %+v", entries)
	}
}

// TestTimeFormat verifies the document timestamp layout and its tolerant parsing
func TestTimeFormat(t *testing.T) {
	ts := Time{time.Date(2025, 3, 14, 9, 26, 53, 589793000, time.UTC)}

	data, err := json.Marshal(ts)
	if err != nil {
		t.Fatalf("Failed to marshal timestamp: %v", err)
	}
	if string(data) != `"2025-03-14T09:26:53.589793Z"` {
		t.Errorf("Expected fixed microsecond layout, got %s", data)
	}

	tests := []struct {
		name  string
		input string
	}{
		{"With zone", `"2025-03-14T09:26:53.589793Z"`},
		{"Naive microseconds", `"2025-03-14T09:26:53.589793"`},
		{"Naive seconds", `"2025-03-14T09:26:53"`},
		{"RFC3339 offset", `"2025-03-14T10:26:53.589793+01:00"`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var parsed Time
			if err := json.Unmarshal([]byte(tc.input), &parsed); err != nil {
				t.Fatalf("Failed to parse %s: %v", tc.input, err)
			}
			if parsed.Year() != 2025 || parsed.Month() != 3 || parsed.Day() != 14 {
				t.Errorf("Expected date 2025-03-14, got %v", parsed)
			}
			if parsed.UTC().Hour() != 9 {
				t.Errorf("Expected 09h UTC, got %v", parsed.UTC())
			}
		})
	}

	if err := json.Unmarshal([]byte(`"not a date"`), &Time{}); err == nil {
		t.Errorf("Expected error for unparseable timestamp")
	}
}
