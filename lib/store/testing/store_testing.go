package testing

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/slowstore/slowstore/lib/store"
)

// StoreFactory is a function that creates a store implementation under test,
// bound to the given directory. The saveOnChange switch controls whether
// tracked mutations persist immediately; everything else uses the
// implementation's defaults.
type StoreFactory func(t testing.TB, directory string, saveOnChange bool) store.IStore[*Person]

// RunStoreTests runs a comprehensive test suite for an IStore implementation.
func RunStoreTests(t *testing.T, name string, factory StoreFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("UpsertAndGet", func(t *testing.T) {
			testUpsertAndGet(t, factory)
		})

		t.Run("TrackedSet", func(t *testing.T) {
			testTrackedSet(t, factory)
		})

		t.Run("UndoRedo", func(t *testing.T) {
			testUndoRedo(t, factory)
		})

		t.Run("MergeUpsert", func(t *testing.T) {
			testMergeUpsert(t, factory)
		})

		t.Run("KeyDerivation", func(t *testing.T) {
			testKeyDerivation(t, factory)
		})

		t.Run("AddRange", func(t *testing.T) {
			testAddRange(t, factory)
		})

		t.Run("CommitSemantics", func(t *testing.T) {
			testCommitSemantics(t, factory)
		})

		t.Run("Delete", func(t *testing.T) {
			testDelete(t, factory)
		})

		t.Run("Iteration", func(t *testing.T) {
			testIteration(t, factory)
		})

		t.Run("Update", func(t *testing.T) {
			testUpdate(t, factory)
		})

		t.Run("ChangeHooks", func(t *testing.T) {
			testChangeHooks(t, factory)
		})

		t.Run("Reload", func(t *testing.T) {
			testReload(t, factory)
		})

		t.Run("Clear", func(t *testing.T) {
			testClear(t, factory)
		})

		t.Run("GetInfo", func(t *testing.T) {
			testGetInfo(t, factory)
		})

		t.Run("EdgeCases", func(t *testing.T) {
			testEdgeCases(t, factory)
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// readDocument parses the raw document file with the given name from the
// store's directory. Plain lowercase keys map to <key>.json.
func readDocument(t *testing.T, st store.IStore[*Person], fileName string) map[string]any {
	t.Helper()

	data, err := os.ReadFile(filepath.Join(st.Directory(), fileName))
	if err != nil {
		t.Fatalf("Failed to read document %s: %v", fileName, err)
	}

	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("Document %s is not valid JSON: %v", fileName, err)
	}
	return doc
}

// documentExists reports whether a document file with the given name exists
func documentExists(t *testing.T, st store.IStore[*Person], fileName string) bool {
	t.Helper()

	_, err := os.Stat(filepath.Join(st.Directory(), fileName))
	if err == nil {
		return true
	}
	if os.IsNotExist(err) {
		return false
	}
	t.Fatalf("Failed to stat document %s: %v", fileName, err)
	return false
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testUpsertAndGet(t *testing.T, factory StoreFactory) {
	st := factory(t, t.TempDir(), true)
	defer st.Close()

	rec, err := st.Upsert("dennis", &Person{Name: "denis", Age: 32})
	if err != nil {
		t.Fatalf("Failed to upsert record: %v", err)
	}

	if rec.Key() != "dennis" {
		t.Errorf("Expected key %q, got %q", "dennis", rec.Key())
	}
	if rec.Entity().Name != "denis" || rec.Entity().Age != 32 {
		t.Errorf("Expected entity {denis 32}, got %+v", rec.Entity())
	}
	// With save-on-change the new record is already persisted
	if rec.IsDirty() {
		t.Errorf("Expected record to be clean after autosaved upsert")
	}

	if !st.Contains("dennis") {
		t.Errorf("Expected store to contain key after upsert")
	}
	if st.Len() != 1 {
		t.Errorf("Expected store length 1, got %d", st.Len())
	}

	got, loaded, err := st.Get("dennis")
	if err != nil || !loaded {
		t.Fatalf("Expected to get the record back, got loaded=%v err=%v", loaded, err)
	}
	if got.Key() != "dennis" {
		t.Errorf("Expected key %q, got %q", "dennis", got.Key())
	}

	if _, loaded, err := st.Get("nonexistent"); loaded || err != nil {
		t.Errorf("Expected nonexistent key to return loaded=false, got loaded=%v err=%v", loaded, err)
	}

	if _, err := st.Upsert("", &Person{}); !store.IsCode(err, store.RetCInvalidOperation) {
		t.Errorf("Expected RetCInvalidOperation for empty key, got %v", err)
	}
}

func testTrackedSet(t *testing.T, factory StoreFactory) {
	st := factory(t, t.TempDir(), true)
	defer st.Close()

	rec, err := st.Upsert("dennis", &Person{Name: "denis", Age: 32})
	if err != nil {
		t.Fatalf("Failed to upsert record: %v", err)
	}

	if err := rec.Set("name", "DENIS"); err != nil {
		t.Fatalf("Failed to set field: %v", err)
	}

	// Save-on-change: the document reflects the mutation before any commit
	doc := readDocument(t, st, "dennis.json")
	if doc["name"] != "DENIS" {
		t.Errorf("Expected document field name=DENIS, got %v", doc["name"])
	}

	if err := st.Commit("dennis"); err != nil {
		t.Fatalf("Failed to commit record: %v", err)
	}

	doc = readDocument(t, st, "dennis.json")
	if doc["name"] != "DENIS" {
		t.Errorf("Expected document field name=DENIS, got %v", doc["name"])
	}
	if doc["age"] != float64(32) {
		t.Errorf("Expected document field age=32, got %v", doc["age"])
	}
	if doc["__key__"] != "dennis" {
		t.Errorf("Expected document key entry dennis, got %v", doc["__key__"])
	}

	changes, ok := doc["__changes__"].([]any)
	if !ok || len(changes) != 1 {
		t.Fatalf("Expected exactly one history entry, got %v", doc["__changes__"])
	}
	entry := changes[0].(map[string]any)
	if entry["prop_name"] != "name" || entry["prev_val"] != "denis" || entry["new_val"] != "DENIS" {
		t.Errorf("Expected history entry name: denis -> DENIS, got %v", entry)
	}

	// Setting an equal value records nothing
	if err := rec.Set("name", "DENIS"); err != nil {
		t.Fatalf("Failed to set equal value: %v", err)
	}
	if len(rec.History()) != 1 {
		t.Errorf("Expected no-op set to record nothing, history has %d entries", len(rec.History()))
	}

	// Unknown fields are rejected
	if err := rec.Set("nickname", "x"); !store.IsCode(err, store.RetCInvalidOperation) {
		t.Errorf("Expected RetCInvalidOperation for unknown field, got %v", err)
	}

	if v, err := rec.Get("name"); err != nil || v != "DENIS" {
		t.Errorf("Expected to read name=DENIS, got %v, %v", v, err)
	}
	if _, err := rec.Get("nickname"); err == nil {
		t.Errorf("Expected error reading unknown field")
	}
}

func testUndoRedo(t *testing.T, factory StoreFactory) {
	st := factory(t, t.TempDir(), true)
	defer st.Close()

	rec, err := st.Upsert("dennis", &Person{Name: "denis", Age: 32})
	if err != nil {
		t.Fatalf("Failed to upsert record: %v", err)
	}
	if err := rec.Set("name", "DENIS"); err != nil {
		t.Fatalf("Failed to set field: %v", err)
	}
	if err := rec.Set("age", 33); err != nil {
		t.Fatalf("Failed to set field: %v", err)
	}

	// Undo reverts the age change, in memory and on disk
	applied, err := rec.Undo()
	if err != nil || !applied {
		t.Fatalf("Expected undo to apply, got applied=%v err=%v", applied, err)
	}
	if rec.Entity().Age != 32 {
		t.Errorf("Expected age reverted to 32, got %d", rec.Entity().Age)
	}

	doc := readDocument(t, st, "dennis.json")
	if doc["age"] != float64(32) {
		t.Errorf("Expected document age=32 after undo, got %v", doc["age"])
	}
	// Only the applied prefix of the history is persisted
	if changes := doc["__changes__"].([]any); len(changes) != 1 {
		t.Errorf("Expected one persisted history entry after undo, got %d", len(changes))
	}

	// Redo re-applies it
	applied, err = rec.Redo()
	if err != nil || !applied {
		t.Fatalf("Expected redo to apply, got applied=%v err=%v", applied, err)
	}
	if rec.Entity().Age != 33 {
		t.Errorf("Expected age back at 33, got %d", rec.Entity().Age)
	}
	doc = readDocument(t, st, "dennis.json")
	if changes := doc["__changes__"].([]any); len(changes) != 2 {
		t.Errorf("Expected two persisted history entries after redo, got %d", len(changes))
	}

	// Walk back to the beginning; the step beyond it reports false
	if applied, err := rec.Undo(); err != nil || !applied {
		t.Fatalf("Expected second undo to apply, got applied=%v err=%v", applied, err)
	}
	if applied, err := rec.Undo(); err != nil || !applied {
		t.Fatalf("Expected third undo to apply, got applied=%v err=%v", applied, err)
	}
	if applied, err := rec.Undo(); err != nil || applied {
		t.Errorf("Expected undo at the beginning to report false, got applied=%v err=%v", applied, err)
	}
	if rec.Entity().Name != "denis" {
		t.Errorf("Expected name reverted to denis, got %q", rec.Entity().Name)
	}

	// A new mutation discards the undone tail
	if err := rec.Set("age", 40); err != nil {
		t.Fatalf("Failed to set field: %v", err)
	}
	if applied, err := rec.Redo(); err != nil || applied {
		t.Errorf("Expected nothing to redo after branching, got applied=%v err=%v", applied, err)
	}
	if len(rec.History()) != 1 {
		t.Errorf("Expected truncated history of length 1, got %d", len(rec.History()))
	}
}

func testMergeUpsert(t *testing.T, factory StoreFactory) {
	st := factory(t, t.TempDir(), true)
	defer st.Close()

	if _, err := st.Upsert("dennis", &Person{Name: "denis", Age: 32}); err != nil {
		t.Fatalf("Failed to upsert record: %v", err)
	}

	// Upserting an existing key merges fields into the tracked record
	rec, err := st.Upsert("dennis", &Person{Name: "denis", Age: 40, Tags: []string{"admin"}})
	if err != nil {
		t.Fatalf("Failed to merge upsert: %v", err)
	}

	if st.Len() != 1 {
		t.Errorf("Expected merge to keep one record, got %d", st.Len())
	}
	if rec.Entity().Age != 40 || len(rec.Entity().Tags) != 1 {
		t.Errorf("Expected merged entity, got %+v", rec.Entity())
	}

	// Only the differing fields became history entries (name was equal)
	history := rec.History()
	if len(history) != 2 {
		t.Fatalf("Expected two history entries from the merge, got %d", len(history))
	}
	for _, change := range history {
		if change.Field == "name" {
			t.Errorf("Expected no entry for the unchanged name field, got %+v", change)
		}
	}
}

func testKeyDerivation(t *testing.T, factory StoreFactory) {
	st := factory(t, t.TempDir(), true)
	defer st.Close()

	// Add derives the key from the entity's id field
	rec, err := st.Add(&Person{ID: "p-1", Name: "alice"})
	if err != nil {
		t.Fatalf("Failed to add entity: %v", err)
	}
	if rec.Key() != "p-1" {
		t.Errorf("Expected derived key p-1, got %q", rec.Key())
	}

	// Without a usable id there is no key
	if _, err := st.Add(&Person{Name: "nobody"}); !store.IsCode(err, store.RetCNoKey) {
		t.Errorf("Expected RetCNoKey, got %v", err)
	}

	// Create refuses existing keys, Add merges into them
	if _, err := st.Create(&Person{ID: "p-1", Name: "impostor"}); !store.IsCode(err, store.RetCDuplicateKey) {
		t.Errorf("Expected RetCDuplicateKey, got %v", err)
	}
	if _, err := st.Create(&Person{ID: "p-2", Name: "bob"}); err != nil {
		t.Errorf("Failed to create record: %v", err)
	}
	if _, err := st.Add(&Person{ID: "p-1", Name: "alice2"}); err != nil {
		t.Errorf("Failed to merge add: %v", err)
	}
	if rec.Entity().Name != "alice2" {
		t.Errorf("Expected merged name alice2, got %q", rec.Entity().Name)
	}
}

func testAddRange(t *testing.T, factory StoreFactory) {
	st := factory(t, t.TempDir(), true)
	defer st.Close()

	recs, err := st.AddRange(
		&Person{ID: "p-1", Name: "alice", Age: 31},
		&Person{ID: "p-2", Name: "bob", Age: 25},
		&Person{ID: "p-3", Name: "carol", Age: 45},
	)
	if err != nil {
		t.Fatalf("Failed to add range: %v", err)
	}
	if len(recs) != 3 || st.Len() != 3 {
		t.Fatalf("Expected three records, got %d/%d", len(recs), st.Len())
	}

	// The batch was flushed: all records clean, all documents on disk
	for _, rec := range recs {
		if rec.IsDirty() {
			t.Errorf("Expected record %q to be clean after AddRange", rec.Key())
		}
	}
	for _, name := range []string{"p-1.json", "p-2.json", "p-3.json"} {
		if !documentExists(t, st, name) {
			t.Errorf("Expected document %s on disk", name)
		}
	}

	if got := st.Keys(); !slices.Equal(got, []string{"p-1", "p-2", "p-3"}) {
		t.Errorf("Expected insertion order [p-1 p-2 p-3], got %v", got)
	}

	// One bad entity fails alone, the rest of the batch goes through
	recs, err = st.AddRange(&Person{ID: "p-4", Name: "dave"}, &Person{Name: "nobody"})
	if !store.IsCode(err, store.RetCNoKey) {
		t.Errorf("Expected joined RetCNoKey, got %v", err)
	}
	if len(recs) != 1 || !st.Contains("p-4") {
		t.Errorf("Expected the valid entity to be added, got %d records", len(recs))
	}
}

func testCommitSemantics(t *testing.T, factory StoreFactory) {
	st := factory(t, t.TempDir(), false)
	defer st.Close()

	recA, err := st.Upsert("a", &Person{Name: "alice"})
	if err != nil {
		t.Fatalf("Failed to upsert record: %v", err)
	}
	recB, err := st.Upsert("b", &Person{Name: "bob"})
	if err != nil {
		t.Fatalf("Failed to upsert record: %v", err)
	}

	// Without save-on-change nothing is on disk yet
	if !recA.IsDirty() || !recB.IsDirty() {
		t.Errorf("Expected fresh records to be dirty without save-on-change")
	}
	if documentExists(t, st, "a.json") {
		t.Errorf("Expected no document before commit")
	}

	if err := st.CommitAll(); err != nil {
		t.Fatalf("Failed to commit all: %v", err)
	}
	if recA.IsDirty() || recB.IsDirty() {
		t.Errorf("Expected records to be clean after CommitAll")
	}
	if !documentExists(t, st, "a.json") || !documentExists(t, st, "b.json") {
		t.Errorf("Expected documents on disk after CommitAll")
	}

	// Commit is unconditional, also on clean records
	if err := st.Commit("a"); err != nil {
		t.Errorf("Expected commit of a clean record to succeed, got %v", err)
	}
	if err := st.Commit("missing"); !store.IsCode(err, store.RetCKeyNotFound) {
		t.Errorf("Expected RetCKeyNotFound, got %v", err)
	}

	// Record-level commit persists a single record
	if err := recA.Set("name", "ALICE"); err != nil {
		t.Fatalf("Failed to set field: %v", err)
	}
	if !recA.IsDirty() {
		t.Errorf("Expected record to be dirty after set without save-on-change")
	}
	if err := recA.Commit(); err != nil {
		t.Fatalf("Failed to commit record: %v", err)
	}
	if recA.IsDirty() {
		t.Errorf("Expected record to be clean after commit")
	}
	if doc := readDocument(t, st, "a.json"); doc["name"] != "ALICE" {
		t.Errorf("Expected committed document name=ALICE, got %v", doc["name"])
	}
}

func testDelete(t *testing.T, factory StoreFactory) {
	st := factory(t, t.TempDir(), true)
	defer st.Close()

	rec, err := st.Upsert("dennis", &Person{Name: "denis", Age: 32})
	if err != nil {
		t.Fatalf("Failed to upsert record: %v", err)
	}
	if !documentExists(t, st, "dennis.json") {
		t.Fatalf("Expected document on disk before delete")
	}

	if err := st.Delete("dennis"); err != nil {
		t.Fatalf("Failed to delete record: %v", err)
	}

	if st.Contains("dennis") || st.Len() != 0 {
		t.Errorf("Expected record to be gone from the store")
	}
	if documentExists(t, st, "dennis.json") {
		t.Errorf("Expected document to be gone from disk")
	}

	// The stale handle refuses every mutation but still reads
	if !rec.Removed() {
		t.Errorf("Expected record handle to be marked removed")
	}
	if err := rec.Set("name", "x"); !store.IsCode(err, store.RetCRecordRemoved) {
		t.Errorf("Expected RetCRecordRemoved on set, got %v", err)
	}
	if _, err := rec.Undo(); !store.IsCode(err, store.RetCRecordRemoved) {
		t.Errorf("Expected RetCRecordRemoved on undo, got %v", err)
	}
	if err := rec.Commit(); !store.IsCode(err, store.RetCRecordRemoved) {
		t.Errorf("Expected RetCRecordRemoved on commit, got %v", err)
	}
	if v, err := rec.Get("name"); err != nil || v != "denis" {
		t.Errorf("Expected removed record to stay readable, got %v, %v", v, err)
	}

	if err := st.Delete("dennis"); !store.IsCode(err, store.RetCKeyNotFound) {
		t.Errorf("Expected RetCKeyNotFound for double delete, got %v", err)
	}

	// Re-inserting the key creates a fresh record
	fresh, err := st.Upsert("dennis", &Person{Name: "denis"})
	if err != nil {
		t.Fatalf("Failed to re-insert deleted key: %v", err)
	}
	if err := fresh.Set("name", "DENIS"); err != nil {
		t.Errorf("Expected fresh record to be mutable, got %v", err)
	}

	// Deleting a record that was never persisted is fine
	st2 := factory(t, t.TempDir(), false)
	defer st2.Close()
	if _, err := st2.Upsert("ghost", &Person{Name: "ghost"}); err != nil {
		t.Fatalf("Failed to upsert record: %v", err)
	}
	if err := st2.Delete("ghost"); err != nil {
		t.Errorf("Expected delete without document to succeed, got %v", err)
	}
}

func testIteration(t *testing.T, factory StoreFactory) {
	st := factory(t, t.TempDir(), true)
	defer st.Close()

	for _, p := range []*Person{
		{ID: "alice", Name: "alice", Age: 31},
		{ID: "bob", Name: "bob", Age: 25},
		{ID: "carol", Name: "carol", Age: 45},
	} {
		if _, err := st.Add(p); err != nil {
			t.Fatalf("Failed to add entity: %v", err)
		}
	}

	collect := func(people func(func(*Person) bool)) []string {
		var names []string
		for p := range people {
			names = append(names, p.Name)
		}
		return names
	}

	// All iterates in insertion order
	if got := collect(st.All()); !slices.Equal(got, []string{"alice", "bob", "carol"}) {
		t.Errorf("Expected insertion order [alice bob carol], got %v", got)
	}

	// Filter is lazy and restartable
	adults := st.Filter(func(p *Person) bool { return p.Age > 30 })
	if got := collect(adults); !slices.Equal(got, []string{"alice", "carol"}) {
		t.Errorf("Expected [alice carol], got %v", got)
	}
	if got := collect(adults); !slices.Equal(got, []string{"alice", "carol"}) {
		t.Errorf("Expected the sequence to be restartable, got %v", got)
	}

	// First short-circuits after the first match
	calls := 0
	p, found := st.First(func(p *Person) bool {
		calls++
		return p.Age > 20
	})
	if !found || p.Name != "alice" {
		t.Errorf("Expected to find alice, got %+v (found=%v)", p, found)
	}
	if calls != 1 {
		t.Errorf("Expected the predicate to run once, ran %d times", calls)
	}

	if _, found := st.First(func(p *Person) bool { return p.Age > 100 }); found {
		t.Errorf("Expected no match for age > 100")
	}

	// A nil predicate matches nothing instead of panicking
	if got := collect(st.Filter(nil)); got != nil {
		t.Errorf("Expected a nil predicate to match nothing, got %v", got)
	}
	if _, found := st.First(nil); found {
		t.Errorf("Expected a nil predicate to find nothing")
	}

	// Records yields key/record pairs in the same order
	var keys []string
	for key, rec := range st.Records() {
		if rec.Key() != key {
			t.Errorf("Expected matching key, got %q vs %q", key, rec.Key())
		}
		keys = append(keys, key)
	}
	if !slices.Equal(keys, []string{"alice", "bob", "carol"}) {
		t.Errorf("Expected [alice bob carol], got %v", keys)
	}

	// Breaking out of a range is fine
	for range st.All() {
		break
	}

	// Deleted keys leave the order, re-inserted keys append
	if err := st.Delete("bob"); err != nil {
		t.Fatalf("Failed to delete record: %v", err)
	}
	if _, err := st.Add(&Person{ID: "bob", Name: "bob", Age: 26}); err != nil {
		t.Fatalf("Failed to re-add entity: %v", err)
	}
	if got := st.Keys(); !slices.Equal(got, []string{"alice", "carol", "bob"}) {
		t.Errorf("Expected [alice carol bob], got %v", got)
	}
}

func testUpdate(t *testing.T, factory StoreFactory) {
	st := factory(t, t.TempDir(), true)
	defer st.Close()

	if _, err := st.AddRange(
		&Person{ID: "alice", Name: "alice", Age: 31},
		&Person{ID: "bob", Name: "bob", Age: 25},
		&Person{ID: "carol", Name: "carol", Age: 45},
	); err != nil {
		t.Fatalf("Failed to add range: %v", err)
	}

	updated, err := st.Update(
		func(p *Person) bool { return p.Age > 30 },
		func(rec store.IRecord[*Person]) error { return rec.Set("tags", []string{"senior"}) },
	)
	if err != nil {
		t.Fatalf("Failed to update records: %v", err)
	}
	if updated != 2 {
		t.Errorf("Expected 2 updated records, got %d", updated)
	}

	for p := range st.All() {
		senior := len(p.Tags) == 1 && p.Tags[0] == "senior"
		if (p.Age > 30) != senior {
			t.Errorf("Expected tags to follow the filter, got %+v", p)
		}
	}

	if _, err := st.Update(nil, nil); !store.IsCode(err, store.RetCInvalidOperation) {
		t.Errorf("Expected RetCInvalidOperation for nil functions, got %v", err)
	}
}

func testChangeHooks(t *testing.T, factory StoreFactory) {
	st := factory(t, t.TempDir(), true)
	defer st.Close()

	var events []store.ChangeEvent
	st.AddChangeHook(func(event store.ChangeEvent) {
		events = append(events, event)
	})
	secondCalls := 0
	st.AddChangeHook(func(event store.ChangeEvent) {
		secondCalls++
	})

	rec, err := st.Upsert("dennis", &Person{Name: "denis", Age: 32})
	if err != nil {
		t.Fatalf("Failed to upsert record: %v", err)
	}
	if err := rec.Set("name", "DENIS"); err != nil {
		t.Fatalf("Failed to set field: %v", err)
	}
	if _, err := st.Upsert("dennis", &Person{Name: "DENIS", Age: 40, Tags: []string{"admin"}}); err != nil {
		t.Fatalf("Failed to merge upsert: %v", err)
	}
	if _, err := rec.Undo(); err != nil {
		t.Fatalf("Failed to undo: %v", err)
	}
	if _, err := rec.Redo(); err != nil {
		t.Fatalf("Failed to redo: %v", err)
	}
	if err := st.Delete("dennis"); err != nil {
		t.Fatalf("Failed to delete record: %v", err)
	}

	expectedKinds := []store.ChangeKind{
		store.ChangeKindAdd,
		store.ChangeKindUpdate,
		store.ChangeKindUpdate,
		store.ChangeKindUndo,
		store.ChangeKindRedo,
		store.ChangeKindRemove,
	}
	if len(events) != len(expectedKinds) {
		t.Fatalf("Expected %d events, got %d (%+v)", len(expectedKinds), len(events), events)
	}
	for i, kind := range expectedKinds {
		if events[i].Kind != kind {
			t.Errorf("Expected event %d to be %s, got %s", i, kind, events[i].Kind)
		}
		if events[i].Key != "dennis" {
			t.Errorf("Expected event key dennis, got %q", events[i].Key)
		}
	}

	// The single set carries one change, the merge carries two
	if len(events[1].Changes) != 1 {
		t.Errorf("Expected one change in the set event, got %d", len(events[1].Changes))
	}
	if len(events[2].Changes) != 2 {
		t.Errorf("Expected two changes in the merge event, got %d", len(events[2].Changes))
	}
	// Add and Remove carry none
	if len(events[0].Changes) != 0 || len(events[5].Changes) != 0 {
		t.Errorf("Expected add/remove events without changes, got %+v", events)
	}

	if secondCalls != len(expectedKinds) {
		t.Errorf("Expected both hooks to fire %d times, second fired %d times", len(expectedKinds), secondCalls)
	}

	// After clearing, no hook fires anymore
	st.ClearChangeHooks()
	if _, err := st.Upsert("other", &Person{Name: "other"}); err != nil {
		t.Fatalf("Failed to upsert record: %v", err)
	}
	if len(events) != len(expectedKinds) {
		t.Errorf("Expected no events after ClearChangeHooks, got %d", len(events))
	}
}

func testReload(t *testing.T, factory StoreFactory) {
	dir := t.TempDir()

	st := factory(t, dir, true)
	rec, err := st.Upsert("dennis", &Person{Name: "denis", Age: 32})
	if err != nil {
		t.Fatalf("Failed to upsert record: %v", err)
	}
	if err := rec.Set("name", "DENIS"); err != nil {
		t.Fatalf("Failed to set field: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Failed to close store: %v", err)
	}

	// A second store on the same directory sees everything
	st2 := factory(t, dir, true)
	if err := st2.Load(); err != nil {
		t.Fatalf("Failed to load store: %v", err)
	}
	if st2.Len() != 1 {
		t.Fatalf("Expected one loaded record, got %d", st2.Len())
	}

	rec2, loaded, err := st2.Get("dennis")
	if err != nil || !loaded {
		t.Fatalf("Expected to get the loaded record, got loaded=%v err=%v", loaded, err)
	}
	if rec2.Entity().Name != "DENIS" || rec2.Entity().Age != 32 {
		t.Errorf("Expected loaded entity {DENIS 32}, got %+v", rec2.Entity())
	}
	if rec2.IsDirty() {
		t.Errorf("Expected loaded record to be clean")
	}

	// The loaded history is fully applied: nothing to redo, undo works
	if len(rec2.History()) != 1 {
		t.Errorf("Expected one history entry, got %d", len(rec2.History()))
	}
	if applied, err := rec2.Redo(); err != nil || applied {
		t.Errorf("Expected nothing to redo after load, got applied=%v err=%v", applied, err)
	}
	if applied, err := rec2.Undo(); err != nil || !applied {
		t.Fatalf("Expected undo to apply after load, got applied=%v err=%v", applied, err)
	}
	if rec2.Entity().Name != "denis" {
		t.Errorf("Expected undone name denis, got %q", rec2.Entity().Name)
	}
	if err := st2.Close(); err != nil {
		t.Fatalf("Failed to close store: %v", err)
	}

	// The undone entry was dropped from the document, so a third store
	// sees the shorter history
	st3 := factory(t, dir, true)
	if err := st3.Load(); err != nil {
		t.Fatalf("Failed to load store: %v", err)
	}
	rec3, _, err := st3.Get("dennis")
	if err != nil {
		t.Fatalf("Failed to get record: %v", err)
	}
	if rec3.Entity().Name != "denis" {
		t.Errorf("Expected persisted undo, got name %q", rec3.Entity().Name)
	}
	if len(rec3.History()) != 0 {
		t.Errorf("Expected empty history after persisted undo, got %d entries", len(rec3.History()))
	}
	if err := st3.Close(); err != nil {
		t.Fatalf("Failed to close store: %v", err)
	}

	// Load fails for a directory that does not exist yet
	missing := factory(t, filepath.Join(t.TempDir(), "missing"), true)
	defer missing.Close()
	if err := missing.Load(); !store.IsCode(err, store.RetCDirNotFound) {
		t.Errorf("Expected RetCDirNotFound, got %v", err)
	}
	// The first write creates it
	if _, err := missing.Upsert("x", &Person{Name: "x"}); err != nil {
		t.Fatalf("Failed to upsert record: %v", err)
	}
	if err := missing.Load(); err != nil {
		t.Errorf("Expected load to succeed after first write, got %v", err)
	}
}

func testClear(t *testing.T, factory StoreFactory) {
	st := factory(t, t.TempDir(), true)
	defer st.Close()

	if _, err := st.AddRange(
		&Person{ID: "p-1", Name: "alice"},
		&Person{ID: "p-2", Name: "bob"},
	); err != nil {
		t.Fatalf("Failed to add range: %v", err)
	}

	if err := st.Clear(); err != nil {
		t.Fatalf("Failed to clear store: %v", err)
	}

	if st.Len() != 0 {
		t.Errorf("Expected empty store after clear, got %d records", st.Len())
	}
	if documentExists(t, st, "p-1.json") || documentExists(t, st, "p-2.json") {
		t.Errorf("Expected all documents to be removed")
	}

	// The directory itself stays, so the store remains loadable
	if _, err := os.Stat(st.Directory()); err != nil {
		t.Errorf("Expected store directory to survive clear: %v", err)
	}
	if err := st.Load(); err != nil {
		t.Errorf("Expected load of a cleared store to succeed, got %v", err)
	}
}

func testGetInfo(t *testing.T, factory StoreFactory) {
	st := factory(t, t.TempDir(), true)
	defer st.Close()

	rec, err := st.Upsert("dennis", &Person{Name: "denis", Age: 32})
	if err != nil {
		t.Fatalf("Failed to upsert record: %v", err)
	}
	if err := rec.Set("name", "DENIS"); err != nil {
		t.Fatalf("Failed to set field: %v", err)
	}
	if _, err := st.Upsert("bob", &Person{Name: "bob"}); err != nil {
		t.Fatalf("Failed to upsert record: %v", err)
	}

	info, err := st.GetInfo()
	if err != nil {
		t.Fatalf("Failed to get store info: %v", err)
	}

	if info.RecordCount != 2 {
		t.Errorf("Expected record count 2, got %d", info.RecordCount)
	}
	if info.DirtyCount != 0 {
		t.Errorf("Expected no dirty records, got %d", info.DirtyCount)
	}
	if info.ChangeCount != 1 {
		t.Errorf("Expected one applied change, got %d", info.ChangeCount)
	}
	if info.SizeBytes == 0 {
		t.Errorf("Expected a non-zero document size")
	}
	if info.Directory != st.Directory() {
		t.Errorf("Expected directory %q, got %q", st.Directory(), info.Directory)
	}
	if info.String() == "" {
		t.Errorf("Expected a printable info string")
	}
}

func testEdgeCases(t *testing.T, factory StoreFactory) {
	st := factory(t, t.TempDir(), true)

	// Keys with path separators, spaces and dots map onto safe file names
	// while the store keeps the original key
	weirdKey := "Group A/Dennis R. Jr"
	if _, err := st.Upsert(weirdKey, &Person{Name: "dennis"}); err != nil {
		t.Fatalf("Failed to upsert weird key: %v", err)
	}
	unicodeKey := "münchen"
	if _, err := st.Upsert(unicodeKey, &Person{Name: "m"}); err != nil {
		t.Fatalf("Failed to upsert unicode key: %v", err)
	}

	dirEntries, err := os.ReadDir(st.Directory())
	if err != nil {
		t.Fatalf("Failed to read store directory: %v", err)
	}
	for _, entry := range dirEntries {
		if filepath.Ext(entry.Name()) != ".json" {
			t.Errorf("Unexpected file in store directory: %s", entry.Name())
		}
		if filepath.Dir(filepath.Join(st.Directory(), entry.Name())) != st.Directory() {
			t.Errorf("Expected flat directory layout, got %s", entry.Name())
		}
	}
	if len(dirEntries) != 2 {
		t.Errorf("Expected two documents, got %d", len(dirEntries))
	}

	if err := st.Close(); err != nil {
		t.Fatalf("Failed to close store: %v", err)
	}

	// The original keys survive a reload
	st2 := factory(t, st.Directory(), true)
	defer st2.Close()
	if err := st2.Load(); err != nil {
		t.Fatalf("Failed to load store: %v", err)
	}
	if !st2.Contains(weirdKey) || !st2.Contains(unicodeKey) {
		t.Errorf("Expected original keys after reload, got %v", st2.Keys())
	}

	// Larger stores keep their keys apart
	many := factory(t, t.TempDir(), true)
	defer many.Close()
	for i := 0; i < 25; i++ {
		if _, err := many.Upsert(fmt.Sprintf("key-%02d", i), &Person{Age: i}); err != nil {
			t.Fatalf("Failed to upsert record %d: %v", i, err)
		}
	}
	if many.Len() != 25 {
		t.Errorf("Expected 25 records, got %d", many.Len())
	}
	for i := 0; i < 25; i++ {
		p, _, _ := many.Get(fmt.Sprintf("key-%02d", i))
		if p == nil || p.Entity().Age != i {
			t.Errorf("Expected record %d to keep its value", i)
		}
	}
}
