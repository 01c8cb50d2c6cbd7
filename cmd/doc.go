// Package cmd implements the command-line interface for the slowstore
// record store. It provides a hierarchical command structure with
// operations on single records and on the store as a whole.
//
// The package is organized into several subpackages:
//
//   - record: Commands for single records (add, get, set, undo, redo, etc.)
//   - store: Commands for the whole store (keys, list, find, stats, perf, etc.)
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// All commands read their configuration from flags and from environment
// variables with the SLOWSTORE_ prefix (e.g. SLOWSTORE_DIR=/var/data).
//
// See slowstore -help for a list of all commands.
package cmd
