// Package testing provides standardised tests and benchmarks for
// record store implementations that satisfy the store.IStore interface.
//
// The package contains:
//   - testing: A comprehensive test suite for validating conformance to the IStore interface contract
//   - benchmark: Performance tests for measuring throughput of common store operations
//   - Person: A small entity model used as the fixture for both suites
//
// This package is particularly useful for:
//   - Store developers implementing the IStore interface
//   - Applications that need to compare store configurations (e.g. with and
//     without save-on-change) based on performance characteristics
//
// Example usage:
//
//	// Creating a factory function for your implementation
//	factory := func(t testing.TB, directory string, saveOnChange bool) store.IStore[*storetesting.Person] {
//		return NewMyStore(directory, saveOnChange)
//	}
//
//	// Running the standard test suite
//	storetesting.RunStoreTests(t, "MyStore", factory)
//
//	// Running performance benchmarks
//	storetesting.RunStoreBenchmarks(b, "MyStore", factory)
package testing
