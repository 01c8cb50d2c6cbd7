package testing

import (
	"fmt"
	"testing"
)

// RunStoreBenchmarks runs all benchmarks for a record store implementation.
//
// The store under test is single-threaded by contract, so all benchmarks
// drive it from a single goroutine.
func RunStoreBenchmarks(b *testing.B, name string, factory StoreFactory) {

	b.Run("Upsert", func(b *testing.B) {
		benchmarkUpsert(b, factory)
	})

	b.Run("Set", func(b *testing.B) {
		benchmarkSet(b, factory)
	})

	b.Run("Get", func(b *testing.B) {
		benchmarkGet(b, factory)
	})

	b.Run("Contains", func(b *testing.B) {
		benchmarkContains(b, factory)
	})

	b.Run("Commit", func(b *testing.B) {
		benchmarkCommit(b, factory)
	})

	b.Run("UndoRedo", func(b *testing.B) {
		benchmarkUndoRedo(b, factory)
	})

	b.Run("Iterate", func(b *testing.B) {
		benchmarkIterate(b, factory)
	})

	b.Run("UpsertDelete", func(b *testing.B) {
		benchmarkUpsertDelete(b, factory)
	})

	b.Run("Load", func(b *testing.B) {
		benchmarkLoad(b, factory)
	})
}

// --------------------------------------------------------------------------
// Benchmark functions
// --------------------------------------------------------------------------

// Benchmark for Upsert with new keys, each persisted immediately
func benchmarkUpsert(b *testing.B, factory StoreFactory) {
	st := factory(b, b.TempDir(), true)
	b.Cleanup(func() {
		st.Close()
	})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		key := fmt.Sprintf("bench-key-%d", i)
		if _, err := st.Upsert(key, &Person{Name: "bench", Age: i}); err != nil {
			b.Fatalf("Failed to upsert record: %v", err)
		}
	}
}

// Benchmark for tracked in-memory mutations (no autosave)
func benchmarkSet(b *testing.B, factory StoreFactory) {
	st := factory(b, b.TempDir(), false)
	b.Cleanup(func() {
		st.Close()
	})

	rec, err := st.Upsert("bench", &Person{Name: "bench"})
	if err != nil {
		b.Fatalf("Failed to upsert record: %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := rec.Set("age", i); err != nil {
			b.Fatalf("Failed to set field: %v", err)
		}
	}
	b.StopTimer()

	// Discard the accumulated history so closing stays cheap
	if err := st.Delete("bench"); err != nil {
		b.Fatalf("Failed to delete record: %v", err)
	}
}

// Benchmark for Get on a populated store
func benchmarkGet(b *testing.B, factory StoreFactory) {
	st := factory(b, b.TempDir(), false)
	b.Cleanup(func() {
		st.Close()
	})

	numKeys := 10000
	keys := make([]string, numKeys)
	for i := 0; i < numKeys; i++ {
		keys[i] = fmt.Sprintf("bench-key-%d", i)
		if _, err := st.Upsert(keys[i], &Person{Age: i}); err != nil {
			b.Fatalf("Failed to upsert record: %v", err)
		}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		st.Get(keys[i%numKeys])
	}
}

// Benchmark for Contains on a populated store
func benchmarkContains(b *testing.B, factory StoreFactory) {
	st := factory(b, b.TempDir(), false)
	b.Cleanup(func() {
		st.Close()
	})

	numKeys := 10000
	keys := make([]string, numKeys)
	for i := 0; i < numKeys; i++ {
		keys[i] = fmt.Sprintf("bench-key-%d", i)
		if _, err := st.Upsert(keys[i], &Person{Age: i}); err != nil {
			b.Fatalf("Failed to upsert record: %v", err)
		}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		st.Contains(keys[i%numKeys])
	}
}

// Benchmark for committing a single record to disk
func benchmarkCommit(b *testing.B, factory StoreFactory) {
	st := factory(b, b.TempDir(), false)
	b.Cleanup(func() {
		st.Close()
	})

	rec, err := st.Upsert("bench", &Person{Name: "bench", Age: 1})
	if err != nil {
		b.Fatalf("Failed to upsert record: %v", err)
	}
	if err := rec.Set("age", 2); err != nil {
		b.Fatalf("Failed to set field: %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := st.Commit("bench"); err != nil {
			b.Fatalf("Failed to commit record: %v", err)
		}
	}
}

// Benchmark for an undo/redo round trip (no autosave)
func benchmarkUndoRedo(b *testing.B, factory StoreFactory) {
	st := factory(b, b.TempDir(), false)
	b.Cleanup(func() {
		st.Close()
	})

	rec, err := st.Upsert("bench", &Person{Name: "bench", Age: 1})
	if err != nil {
		b.Fatalf("Failed to upsert record: %v", err)
	}
	if err := rec.Set("age", 2); err != nil {
		b.Fatalf("Failed to set field: %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := rec.Undo(); err != nil {
			b.Fatalf("Failed to undo: %v", err)
		}
		if _, err := rec.Redo(); err != nil {
			b.Fatalf("Failed to redo: %v", err)
		}
	}
}

// Benchmark for a full pass over 1000 records
func benchmarkIterate(b *testing.B, factory StoreFactory) {
	st := factory(b, b.TempDir(), false)
	b.Cleanup(func() {
		st.Close()
	})

	numKeys := 1000
	for i := 0; i < numKeys; i++ {
		key := fmt.Sprintf("bench-key-%d", i)
		if _, err := st.Upsert(key, &Person{Age: i}); err != nil {
			b.Fatalf("Failed to upsert record: %v", err)
		}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		count := 0
		for range st.All() {
			count++
		}
		if count != numKeys {
			b.Fatalf("Expected %d records, got %d", numKeys, count)
		}
	}
}

// Benchmark for the create/remove cycle of a persisted record
func benchmarkUpsertDelete(b *testing.B, factory StoreFactory) {
	st := factory(b, b.TempDir(), true)
	b.Cleanup(func() {
		st.Close()
	})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := st.Upsert("churn", &Person{Age: i}); err != nil {
			b.Fatalf("Failed to upsert record: %v", err)
		}
		if err := st.Delete("churn"); err != nil {
			b.Fatalf("Failed to delete record: %v", err)
		}
	}
}

// Benchmark for loading a directory of 1000 documents
func benchmarkLoad(b *testing.B, factory StoreFactory) {
	dir := b.TempDir()

	seed := factory(b, dir, false)
	numKeys := 1000
	for i := 0; i < numKeys; i++ {
		key := fmt.Sprintf("bench-key-%d", i)
		if _, err := seed.Upsert(key, &Person{Name: "bench", Age: i}); err != nil {
			b.Fatalf("Failed to upsert record: %v", err)
		}
	}
	if err := seed.CommitAll(); err != nil {
		b.Fatalf("Failed to commit seed store: %v", err)
	}
	if err := seed.Close(); err != nil {
		b.Fatalf("Failed to close seed store: %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		st := factory(b, dir, false)
		if err := st.Load(); err != nil {
			b.Fatalf("Failed to load store: %v", err)
		}
		if st.Len() != numKeys {
			b.Fatalf("Expected %d records, got %d", numKeys, st.Len())
		}
		if err := st.Close(); err != nil {
			b.Fatalf("Failed to close store: %v", err)
		}
	}
}
