package fstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/slowstore/slowstore/lib/codec"
	"github.com/slowstore/slowstore/lib/store"
	storetesting "github.com/slowstore/slowstore/lib/store/testing"
)

func newTestStore(t testing.TB, directory string, saveOnChange bool) store.IStore[*storetesting.Person] {
	opts := DefaultOptions[*storetesting.Person]()
	opts.SaveOnChange = saveOnChange

	st, err := New(directory, storetesting.NewPerson, opts)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	return st
}

func Test(t *testing.T) {
	storetesting.RunStoreTests(t, "FStore", newTestStore)
}

func Benchmark(b *testing.B) {
	storetesting.RunStoreBenchmarks(b, "FStore", newTestStore)
}

/*
BENCH RESULTS (Apple M1 Max, 64GB RAM, macOS 15.3.2, go version go1.24.1 darwin/arm64):

goos: darwin
goarch: arm64
pkg: github.com/slowstore/slowstore/lib/store/fstore
cpu: Apple M1 Max
Benchmark
Benchmark/Upsert
Benchmark/Upsert-10         	   17514	     68343 ns/op
Benchmark/Set
Benchmark/Set-10            	 3041785	       391.2 ns/op
Benchmark/Get
Benchmark/Get-10            	18231250	        64.44 ns/op
Benchmark/Contains
Benchmark/Contains-10       	29210761	        41.08 ns/op
Benchmark/Commit
Benchmark/Commit-10         	   20389	     58714 ns/op
Benchmark/UndoRedo
Benchmark/UndoRedo-10       	 1064959	      1128 ns/op
Benchmark/Iterate
Benchmark/Iterate-10        	   66842	     17939 ns/op
Benchmark/UpsertDelete
Benchmark/UpsertDelete-10   	    9158	    130522 ns/op
Benchmark/Load
Benchmark/Load-10           	      38	  31237542 ns/op
PASS

Process finished with the exit code 0
*/

// --------------------------------------------------------------------------
// File store specific tests (contract coverage lives in the shared suite)
// --------------------------------------------------------------------------

func TestNewValidation(t *testing.T) {
	if _, err := New("", storetesting.NewPerson, nil); !store.IsCode(err, store.RetCInvalidOperation) {
		t.Errorf("Expected RetCInvalidOperation for empty directory, got %v", err)
	}
	if _, err := New[*storetesting.Person](t.TempDir(), nil, nil); !store.IsCode(err, store.RetCInvalidOperation) {
		t.Errorf("Expected RetCInvalidOperation for nil factory, got %v", err)
	}
}

func TestDirectoryClaim(t *testing.T) {
	dir := t.TempDir()

	first, err := New(dir, storetesting.NewPerson, nil)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	// A second store on the same directory is refused until the first one
	// is closed
	if _, err := New(dir, storetesting.NewPerson, nil); !store.IsCode(err, store.RetCDirBusy) {
		t.Errorf("Expected RetCDirBusy for a claimed directory, got %v", err)
	}

	// Relative and absolute spellings claim the same directory
	if cwd, err := os.Getwd(); err == nil {
		if rel, err := filepath.Rel(cwd, dir); err == nil {
			if _, err := New(rel, storetesting.NewPerson, nil); !store.IsCode(err, store.RetCDirBusy) {
				t.Errorf("Expected RetCDirBusy for the relative spelling, got %v", err)
			}
		}
	}

	if err := first.Close(); err != nil {
		t.Fatalf("Failed to close store: %v", err)
	}

	second, err := New(dir, storetesting.NewPerson, nil)
	if err != nil {
		t.Fatalf("Expected the claim to be released on close, got %v", err)
	}
	defer second.Close()
}

func TestDoubleClose(t *testing.T) {
	st := newTestStore(t, t.TempDir(), true)

	if err := st.Close(); err != nil {
		t.Fatalf("Failed to close store: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Errorf("Expected closing twice to be harmless, got %v", err)
	}
}

func TestSanitizeKey(t *testing.T) {
	tests := []struct {
		key      string
		expected string
	}{
		{"dennis", "dennis"},
		{"Dennis", "dennis"},
		{"Hello World", "hello_world"},
		{"a/b\\c:d", "a_b_c_d"},
		{"file.name!with?special&chars;here|end", "file_name_with_special_chars_here_end"},
		{"münchen", "münchen"},
		{"", ""},
	}

	for _, tc := range tests {
		if got := SanitizeKey(tc.key); got != tc.expected {
			t.Errorf("SanitizeKey(%q): expected %q, got %q", tc.key, tc.expected, got)
		}
	}
}

func TestDocumentFileName(t *testing.T) {
	st := newTestStore(t, t.TempDir(), true)
	defer st.Close()

	key := "Group A/Dennis R. Jr"
	if _, err := st.Upsert(key, &storetesting.Person{Name: "dennis"}); err != nil {
		t.Fatalf("Failed to upsert record: %v", err)
	}

	path := filepath.Join(st.Directory(), "group_a_dennis_r__jr.json")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Expected document at %s: %v", path, err)
	}

	// The document carries the original key, not the sanitized one
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("Document is not valid JSON: %v", err)
	}
	if doc[codec.KeyField] != key {
		t.Errorf("Expected document key %q, got %v", key, doc[codec.KeyField])
	}
}

func TestLoadSkipsForeignFiles(t *testing.T) {
	dir := t.TempDir()

	seed := newTestStore(t, dir, true)
	if _, err := seed.Upsert("dennis", &storetesting.Person{Name: "dennis"}); err != nil {
		t.Fatalf("Failed to upsert record: %v", err)
	}
	if err := seed.Close(); err != nil {
		t.Fatalf("Failed to close store: %v", err)
	}

	// Files without the document suffix and subdirectories are not
	// documents
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not a document"), 0o644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
	if err := os.Mkdir(filepath.Join(dir, "backup"), 0o755); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}

	st := newTestStore(t, dir, true)
	defer st.Close()
	if err := st.Load(); err != nil {
		t.Fatalf("Expected foreign files to be skipped, got %v", err)
	}
	if st.Len() != 1 {
		t.Errorf("Expected one record, got %d", st.Len())
	}
}

func TestLoadCollectsBrokenDocuments(t *testing.T) {
	dir := t.TempDir()

	seed := newTestStore(t, dir, true)
	if _, err := seed.Upsert("alice", &storetesting.Person{Name: "alice"}); err != nil {
		t.Fatalf("Failed to upsert record: %v", err)
	}
	if _, err := seed.Upsert("bob", &storetesting.Person{Name: "bob"}); err != nil {
		t.Fatalf("Failed to upsert record: %v", err)
	}
	if err := seed.Close(); err != nil {
		t.Fatalf("Failed to close store: %v", err)
	}

	// One document that is not JSON, one that lacks the key entry
	if err := os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{ not json"), 0o644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "stray.json"), []byte(`{"name": "x"}`), 0o644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	st := newTestStore(t, dir, true)
	defer st.Close()

	err := st.Load()
	if !store.IsCode(err, store.RetCSchemaMismatch) {
		t.Errorf("Expected RetCSchemaMismatch in the collected errors, got %v", err)
	}

	// The intact documents are loaded regardless
	if st.Len() != 2 {
		t.Errorf("Expected the two intact records, got %d", st.Len())
	}
	if !st.Contains("alice") || !st.Contains("bob") {
		t.Errorf("Expected alice and bob to be loaded, got %v", st.Keys())
	}
}

func TestKeySelectorOption(t *testing.T) {
	opts := DefaultOptions[*storetesting.Person]()
	opts.KeySelector = func(p *storetesting.Person) string {
		if p.Name == "" {
			return ""
		}
		return "person:" + p.Name
	}

	st, err := New(t.TempDir(), storetesting.NewPerson, opts)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer st.Close()

	// The selector wins over the entity's id field
	rec, err := st.Add(&storetesting.Person{ID: "p-1", Name: "alice"})
	if err != nil {
		t.Fatalf("Failed to add entity: %v", err)
	}
	if rec.Key() != "person:alice" {
		t.Errorf("Expected selector key person:alice, got %q", rec.Key())
	}

	// A configured selector is authoritative: an empty result is an error,
	// not a fallback to the id field
	if _, err := st.Add(&storetesting.Person{ID: "p-2"}); !store.IsCode(err, store.RetCNoKey) {
		t.Errorf("Expected RetCNoKey for an empty selector result, got %v", err)
	}
}

func TestPersistHistoryOff(t *testing.T) {
	opts := DefaultOptions[*storetesting.Person]()
	opts.PersistHistory = false

	st, err := New(t.TempDir(), storetesting.NewPerson, opts)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer st.Close()

	rec, err := st.Upsert("dennis", &storetesting.Person{Name: "denis"})
	if err != nil {
		t.Fatalf("Failed to upsert record: %v", err)
	}
	if err := rec.Set("name", "DENIS"); err != nil {
		t.Fatalf("Failed to set field: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(st.Directory(), "dennis.json"))
	if err != nil {
		t.Fatalf("Failed to read document: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("Document is not valid JSON: %v", err)
	}

	if _, ok := doc[codec.ChangesField]; ok {
		t.Errorf("Expected no history entry in the document, got %v", doc[codec.ChangesField])
	}
	if doc[codec.KeyField] != "dennis" || doc["name"] != "DENIS" {
		t.Errorf("Expected key and entity fields to be written, got %v", doc)
	}

	// The in-memory record still tracks its history
	if len(rec.History()) != 1 {
		t.Errorf("Expected one in-memory history entry, got %d", len(rec.History()))
	}
}

func TestLoadHistoryOff(t *testing.T) {
	dir := t.TempDir()

	seed := newTestStore(t, dir, true)
	rec, err := seed.Upsert("dennis", &storetesting.Person{Name: "denis"})
	if err != nil {
		t.Fatalf("Failed to upsert record: %v", err)
	}
	if err := rec.Set("name", "DENIS"); err != nil {
		t.Fatalf("Failed to set field: %v", err)
	}
	if err := seed.Close(); err != nil {
		t.Fatalf("Failed to close store: %v", err)
	}

	opts := DefaultOptions[*storetesting.Person]()
	opts.LoadHistory = false

	st, err := New(dir, storetesting.NewPerson, opts)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer st.Close()
	if err := st.Load(); err != nil {
		t.Fatalf("Failed to load store: %v", err)
	}

	loaded, _, err := st.Get("dennis")
	if err != nil {
		t.Fatalf("Failed to get record: %v", err)
	}
	if loaded.Entity().Name != "DENIS" {
		t.Errorf("Expected entity state to be loaded, got %q", loaded.Entity().Name)
	}
	if len(loaded.History()) != 0 {
		t.Errorf("Expected empty history, got %d entries", len(loaded.History()))
	}
	if applied, err := loaded.Undo(); err != nil || applied {
		t.Errorf("Expected nothing to undo, got applied=%v err=%v", applied, err)
	}
}

func TestSaveOnClose(t *testing.T) {
	dir := t.TempDir()

	st := newTestStore(t, dir, false)
	rec, err := st.Upsert("dennis", &storetesting.Person{Name: "denis"})
	if err != nil {
		t.Fatalf("Failed to upsert record: %v", err)
	}
	if err := rec.Set("name", "DENIS"); err != nil {
		t.Fatalf("Failed to set field: %v", err)
	}

	// Nothing on disk before close, everything after
	if _, err := os.Stat(filepath.Join(dir, "dennis.json")); !os.IsNotExist(err) {
		t.Fatalf("Expected no document before close, got %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Failed to close store: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "dennis.json"))
	if err != nil {
		t.Fatalf("Expected document after close: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("Document is not valid JSON: %v", err)
	}
	if doc["name"] != "DENIS" {
		t.Errorf("Expected flushed document with name=DENIS, got %v", doc["name"])
	}
}

func TestSaveOnCloseOff(t *testing.T) {
	dir := t.TempDir()

	opts := DefaultOptions[*storetesting.Person]()
	opts.SaveOnChange = false
	opts.SaveOnClose = false

	st, err := New(dir, storetesting.NewPerson, opts)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	if _, err := st.Upsert("dennis", &storetesting.Person{Name: "denis"}); err != nil {
		t.Fatalf("Failed to upsert record: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Failed to close store: %v", err)
	}

	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("Failed to read directory: %v", err)
	}
	if len(dirEntries) != 0 {
		t.Errorf("Expected nothing on disk without save-on-close, got %d entries", len(dirEntries))
	}
}

func TestNoTempFilesLeftBehind(t *testing.T) {
	st := newTestStore(t, t.TempDir(), true)
	defer st.Close()

	for _, key := range []string{"a", "b", "c"} {
		rec, err := st.Upsert(key, &storetesting.Person{Name: key})
		if err != nil {
			t.Fatalf("Failed to upsert record: %v", err)
		}
		if err := rec.Set("age", 1); err != nil {
			t.Fatalf("Failed to set field: %v", err)
		}
	}

	dirEntries, err := os.ReadDir(st.Directory())
	if err != nil {
		t.Fatalf("Failed to read directory: %v", err)
	}
	for _, entry := range dirEntries {
		if filepath.Ext(entry.Name()) != docSuffix {
			t.Errorf("Unexpected file in store directory: %s", entry.Name())
		}
	}
	if len(dirEntries) != 3 {
		t.Errorf("Expected three documents, got %d", len(dirEntries))
	}
}

func TestInfoMetadata(t *testing.T) {
	st := newTestStore(t, t.TempDir(), true)
	defer st.Close()

	if _, err := st.Upsert("dennis", &storetesting.Person{Name: "denis"}); err != nil {
		t.Fatalf("Failed to upsert record: %v", err)
	}

	info, err := st.GetInfo()
	if err != nil {
		t.Fatalf("Failed to get store info: %v", err)
	}

	if info.Metadata["implementation"] != "fstore" {
		t.Errorf("Expected implementation fstore, got %q", info.Metadata["implementation"])
	}
	if info.Metadata["documents"] != "1" {
		t.Errorf("Expected one document, got %q", info.Metadata["documents"])
	}
	if info.Metadata["written_samples"] != "1" {
		t.Errorf("Expected one written sample, got %q", info.Metadata["written_samples"])
	}

	// A single document collapses the exact size figures onto its size
	if info.Metadata["min_doc_size"] != info.Metadata["max_doc_size"] {
		t.Errorf("Expected min and max to agree for one document, got %q vs %q",
			info.Metadata["min_doc_size"], info.Metadata["max_doc_size"])
	}
	if info.Metadata["stddev_doc_size"] != "0.0 bytes" {
		t.Errorf("Expected zero deviation for one document, got %q", info.Metadata["stddev_doc_size"])
	}
}

func TestInfoSizeFigures(t *testing.T) {
	st := newTestStore(t, t.TempDir(), true)
	defer st.Close()

	if _, err := st.Upsert("small", &storetesting.Person{Name: "s"}); err != nil {
		t.Fatalf("Failed to upsert record: %v", err)
	}
	if _, err := st.Upsert("large", &storetesting.Person{
		Name: "a name long enough to grow the document",
		Tags: []string{"alpha", "beta", "gamma"},
	}); err != nil {
		t.Fatalf("Failed to upsert record: %v", err)
	}

	info, err := st.GetInfo()
	if err != nil {
		t.Fatalf("Failed to get store info: %v", err)
	}

	parse := func(key string) int {
		t.Helper()
		value, ok := strings.CutSuffix(info.Metadata[key], " bytes")
		if !ok {
			t.Fatalf("Expected %s in bytes, got %q", key, info.Metadata[key])
		}
		n, err := strconv.Atoi(value)
		if err != nil {
			t.Fatalf("Expected a numeric %s, got %q", key, info.Metadata[key])
		}
		return n
	}

	min, max := parse("min_doc_size"), parse("max_doc_size")
	if min <= 0 || max <= min {
		t.Errorf("Expected 0 < min < max for two unequal documents, got %d/%d", min, max)
	}
	if int(info.SizeBytes) != min+max {
		t.Errorf("Expected total size %d to be the sum of %d and %d", info.SizeBytes, min, max)
	}
	if info.Metadata["stddev_doc_size"] == "0.0 bytes" {
		t.Errorf("Expected a non-zero deviation for two unequal documents")
	}
}
