package fstore

import (
	"github.com/VictoriaMetrics/metrics"
)

// --------------------------------------------------------------------------
// Metrics
// --------------------------------------------------------------------------

// Process-wide operation counters for all file stores. Exposed in Prometheus
// format via metrics.WritePrometheus (the CLI does this in `store stats`).
var (
	metricCommits       = metrics.GetOrCreateCounter("slowstore_commits_total")
	metricCommitErrors  = metrics.GetOrCreateCounter("slowstore_commit_errors_total")
	metricRecordsLoaded = metrics.GetOrCreateCounter("slowstore_records_loaded_total")
	metricLoadErrors    = metrics.GetOrCreateCounter("slowstore_load_errors_total")
	metricDeletes       = metrics.GetOrCreateCounter("slowstore_deletes_total")
	metricChanges       = metrics.GetOrCreateCounter("slowstore_changes_total")

	metricCommitDuration = metrics.GetOrCreateHistogram("slowstore_commit_duration_seconds")
)
