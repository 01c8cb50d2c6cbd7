package store

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// --------------------------------------------------------------------------
// Store Metadata
// --------------------------------------------------------------------------

// StoreInfo holds metadata about a store and its directory. Returned by
// IStore.GetInfo; some fields are estimates (see the implementation's
// documentation).
type StoreInfo struct {
	// Directory is the directory the store persists to
	Directory string

	// RecordCount is the number of records currently held in memory
	RecordCount int

	// DirtyCount is the number of records with unpersisted state
	DirtyCount int

	// ChangeCount is the total number of applied change entries across
	// all records
	ChangeCount int

	// SizeBytes is the estimated total size of all record documents
	SizeBytes uint64

	// Metadata contains implementation specific information
	Metadata map[string]string
}

// String returns a formatted string representation of the store metadata
func (info StoreInfo) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// Storage
	addSection("Storage")
	addField("Directory", info.Directory)
	addField("Size", fmt.Sprintf("%d bytes", info.SizeBytes))

	// Records
	addSection("Records")
	addField("Count", strconv.Itoa(info.RecordCount))
	addField("Dirty", strconv.Itoa(info.DirtyCount))
	addField("Applied Changes", strconv.Itoa(info.ChangeCount))

	// Implementation specific metadata
	if len(info.Metadata) > 0 {
		addSection("Metadata")

		// Sort keys for consistent output
		var keys []string
		for k := range info.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			addField(k, info.Metadata[k])
		}
	}

	return sb.String()
}
