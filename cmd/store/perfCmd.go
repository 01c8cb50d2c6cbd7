package store

import (
	"encoding/csv"
	"fmt"
	"log"
	"math"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	gometrics "github.com/rcrowley/go-metrics"
	"github.com/slowstore/slowstore/cmd/util"
	"github.com/slowstore/slowstore/lib/model"
	libstore "github.com/slowstore/slowstore/lib/store"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	perfCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for the record store",
		Long:    "Runs benchmarks against the configured store directory. Test records use the __perf key prefix and are removed afterwards.",
		RunE:    runPerf,
		PreRunE: processPerfConfig,
	}
	perfKeyPrefix = "__perf"
	perfKeySpread = 100
	perfSkip      = make([]string, 0)
)

// perfResult pairs the calibrated benchmark result with a latency timer
// that tracks the per-operation distribution
type perfResult struct {
	bench testing.BenchmarkResult
	timer gometrics.Timer
}

func init() {
	// add flags
	key := "skip"
	perfCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. set,get)"))
	key = "keys"
	perfCmd.Flags().Int(key, 100, util.WrapString("How many different keys to use for the tests"))
	key = "csv"
	perfCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	perfKeySpread = viper.GetInt("keys")
	perfSkip = strings.Split(viper.GetString("skip"), ",")

	return nil
}

func runPerf(_ *cobra.Command, _ []string) error {

	fmt.Println("Performance testing tool for the record store")

	// Print configuration
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Printf("Directory:      %s\n", cliStore.Directory())
	fmt.Printf("Save on change: %t\n", viper.GetBool("save-on-change"))
	fmt.Printf("Keys:           %d\n", perfKeySpread)
	fmt.Println()

	fmt.Println("starting tests...")

	// Create results map
	results := make(map[string]perfResult)

	upsertTimer := gometrics.NewTimer()
	upsertResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("upsert") {
			return
		}

		// prepare keys
		getKey, iter := getKeys("upsert")

		// cleanup
		b.Cleanup(func() {
			iter(cleanupKey("upsert"))
		})

		b.ResetTimer()

		for i := 0; i < b.N; i++ {
			start := time.Now()
			if _, err := cliStore.Upsert(getKey(i), perfEntity(i)); err != nil {
				log.Printf("(upsert) - error upserting record: %v\n", err)
			}
			upsertTimer.UpdateSince(start)
		}
	})

	results["upsert"] = perfResult{upsertResult, upsertTimer}
	printResult("upsert", results["upsert"])

	setTimer := gometrics.NewTimer()
	setResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("set") {
			return
		}

		// prepare keys and records
		getKey, iter := getKeys("set")
		iter(seedKey("set"))

		// cleanup
		b.Cleanup(func() {
			iter(cleanupKey("set"))
		})

		b.ResetTimer()

		for i := 0; i < b.N; i++ {
			rec, found, err := cliStore.Get(getKey(i))
			if err != nil || !found {
				log.Printf("(set) - error getting record: %v\n", err)
				continue
			}
			start := time.Now()
			if err := rec.Set("value", i); err != nil {
				log.Printf("(set) - error setting field: %v\n", err)
			}
			setTimer.UpdateSince(start)
		}
	})

	results["set"] = perfResult{setResult, setTimer}
	printResult("set", results["set"])

	getTimer := gometrics.NewTimer()
	getResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("get") {
			return
		}

		// prepare keys and records
		getKey, iter := getKeys("get")
		iter(seedKey("get"))

		// cleanup
		b.Cleanup(func() {
			iter(cleanupKey("get"))
		})

		b.ResetTimer()

		for i := 0; i < b.N; i++ {
			start := time.Now()
			if _, _, err := cliStore.Get(getKey(i)); err != nil {
				log.Printf("(get) - error getting record: %v\n", err)
			}
			getTimer.UpdateSince(start)
		}
	})

	results["get"] = perfResult{getResult, getTimer}
	printResult("get", results["get"])

	hasTimer := gometrics.NewTimer()
	hasResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("has") {
			return
		}

		// prepare keys and records
		getKey, iter := getKeys("has")
		iter(seedKey("has"))

		// cleanup
		b.Cleanup(func() {
			iter(cleanupKey("has"))
		})

		b.ResetTimer()

		for i := 0; i < b.N; i++ {
			start := time.Now()
			cliStore.Contains(getKey(i))
			hasTimer.UpdateSince(start)
		}
	})

	results["has"] = perfResult{hasResult, hasTimer}
	printResult("has", results["has"])

	hasNotTimer := gometrics.NewTimer()
	hasNotResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("has-not") {
			return
		}

		b.ResetTimer()

		for i := 0; i < b.N; i++ {
			key := fmt.Sprintf("%s/has-not-%d", perfKeyPrefix, i%perfKeySpread)
			start := time.Now()
			cliStore.Contains(key)
			hasNotTimer.UpdateSince(start)
		}
	})

	results["has-not"] = perfResult{hasNotResult, hasNotTimer}
	printResult("has-not", results["has-not"])

	undoRedoTimer := gometrics.NewTimer()
	undoRedoResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("undo-redo") {
			return
		}

		// prepare records with one recorded change each
		getKey, iter := getKeys("undo-redo")
		iter(seedKey("undo-redo"))
		iter(func(k string) {
			if rec, found, _ := cliStore.Get(k); found {
				if err := rec.Set("value", -1); err != nil {
					log.Printf("(undo-redo) - error setting field: %v\n", err)
				}
			}
		})

		// cleanup
		b.Cleanup(func() {
			iter(cleanupKey("undo-redo"))
		})

		b.ResetTimer()

		for i := 0; i < b.N; i++ {
			rec, found, err := cliStore.Get(getKey(i))
			if err != nil || !found {
				log.Printf("(undo-redo) - error getting record: %v\n", err)
				continue
			}
			start := time.Now()
			if _, err := rec.Undo(); err != nil {
				log.Printf("(undo-redo) - error undoing: %v\n", err)
			}
			if _, err := rec.Redo(); err != nil {
				log.Printf("(undo-redo) - error redoing: %v\n", err)
			}
			undoRedoTimer.UpdateSince(start)
		}
	})

	results["undo-redo"] = perfResult{undoRedoResult, undoRedoTimer}
	printResult("undo-redo", results["undo-redo"])

	commitTimer := gometrics.NewTimer()
	commitResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("commit") {
			return
		}

		// prepare keys and records
		getKey, iter := getKeys("commit")
		iter(seedKey("commit"))

		// cleanup
		b.Cleanup(func() {
			iter(cleanupKey("commit"))
		})

		b.ResetTimer()

		for i := 0; i < b.N; i++ {
			start := time.Now()
			if err := cliStore.Commit(getKey(i)); err != nil {
				log.Printf("(commit) - error committing record: %v\n", err)
			}
			commitTimer.UpdateSince(start)
		}
	})

	results["commit"] = perfResult{commitResult, commitTimer}
	printResult("commit", results["commit"])

	deleteTimer := gometrics.NewTimer()
	deleteResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("delete") {
			return
		}

		// one record per iteration, created upfront
		keys := make([]string, b.N)
		for i := range keys {
			keys[i] = fmt.Sprintf("%s-delete-%d", perfKeyPrefix, i)
			if _, err := cliStore.Upsert(keys[i], perfEntity(i)); err != nil {
				log.Printf("(delete) - error upserting record: %v\n", err)
			}
		}

		// cleanup any leftovers (the loop itself deletes the records)
		b.Cleanup(func() {
			for _, k := range keys {
				cleanupKey("delete")(k)
			}
		})

		b.ResetTimer()

		for i := 0; i < b.N; i++ {
			start := time.Now()
			if err := cliStore.Delete(keys[i]); err != nil {
				log.Printf("(delete) - error deleting record: %v\n", err)
			}
			deleteTimer.UpdateSince(start)
		}
	})

	results["delete"] = perfResult{deleteResult, deleteTimer}
	printResult("delete", results["delete"])

	mixedTimer := gometrics.NewTimer()
	mixedResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("mixed") {
			return
		}

		// prepare keys and records
		getKey, iter := getKeys("mixed")
		iter(seedKey("mixed"))

		// cleanup
		b.Cleanup(func() {
			iter(cleanupKey("mixed"))
		})

		b.ResetTimer()

		for i := 0; i < b.N; i++ {
			key := getKey(i)
			start := time.Now()

			var err error
			switch i % 4 {
			case 0: // upsert
				_, err = cliStore.Upsert(key, perfEntity(i))
			case 1: // get
				_, _, err = cliStore.Get(key)
			case 2: // delete
				if err = cliStore.Delete(key); libstore.IsCode(err, libstore.RetCKeyNotFound) {
					err = nil
				}
			case 3: // has
				cliStore.Contains(key)
			}

			if err != nil {
				log.Printf("(mixed) - error performing operation (%d): %v\n", i%4, err)
			}
			mixedTimer.UpdateSince(start)
		}
	})

	results["mixed"] = perfResult{mixedResult, mixedTimer}
	printResult("mixed", results["mixed"])

	// Write results to csv if specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Println("Export complete")
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func shouldSkip(test string) bool {
	// Check if the test is in the skip list
	for _, skip := range perfSkip {
		if test == skip {
			return true
		}
	}
	return false
}

// perfEntity builds a small test entity
func perfEntity(counter int) *model.Dynamic {
	return model.DynamicFromMap(map[string]any{
		"name":  "perf",
		"value": counter,
	})
}

// seedKey returns a function that creates the record for a test key
func seedKey(test string) func(string) {
	return func(k string) {
		if _, err := cliStore.Upsert(k, perfEntity(0)); err != nil {
			log.Printf("(%s) - error upserting record: %v\n", test, err)
		}
	}
}

// cleanupKey returns a function that removes a test record again
func cleanupKey(test string) func(string) {
	return func(k string) {
		if err := cliStore.Delete(k); err != nil && !libstore.IsCode(err, libstore.RetCKeyNotFound) {
			log.Printf("(%s) - error deleting record: %v\n", test, err)
		}
	}
}

// creates an array of test keys and functions to work with them
func getKeys(prefix string) (func(int) string, func(func(string))) {
	keys := make([]string, perfKeySpread)
	for i := 0; i < perfKeySpread; i++ {
		keys[i] = fmt.Sprintf("%s-%s-%d", perfKeyPrefix, prefix, i)
	}

	// Function to get a key by index (with wraparound)
	getKey := func(i int) string {
		return keys[i%perfKeySpread]
	}

	// Function to iterate over all keys and apply a function to each
	iterateKeys := func(fn func(string)) {
		for _, key := range keys {
			fn(key)
		}
	}

	return getKey, iterateKeys
}

// printResult prints the result of a benchmark test in a formatted way
func printResult(test string, result perfResult) {
	if result.bench.NsPerOp() == 0 {
		fmt.Printf("%-12sskipped\n", test)
		return
	}

	nsPerOp := math.Max(float64(result.bench.NsPerOp()), 1) // prevent division by zero
	opsPerSec := 1.0 / (nsPerOp / 1e9)
	snapshot := result.timer.Snapshot()

	// Print the formatted result
	fmt.Printf("%-12s%.0fns/op (%s/op)\t%.0f ops/sec\tp95=%s\tp99=%s\n",
		test, nsPerOp, time.Duration(nsPerOp), opsPerSec,
		time.Duration(snapshot.Percentile(0.95)), time.Duration(snapshot.Percentile(0.99)))
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results map[string]perfResult) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	header := []string{
		"Test", "NsPerOp", "DurationPerOp", "OpsPerSec", "P95", "P99", "Samples", "Skipped",
		"Directory", "SaveOnChange", "Keys Count",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	// Write test results
	for test, result := range results {
		var nsPerOp float64
		var opsPerSec float64
		var skipped string

		if result.bench.NsPerOp() == 0 {
			skipped = "true"
			nsPerOp = 0
			opsPerSec = 0
		} else {
			skipped = "false"
			nsPerOp = math.Max(float64(result.bench.NsPerOp()), 1)
			opsPerSec = 1.0 / (nsPerOp / 1e9)
		}

		snapshot := result.timer.Snapshot()
		row := []string{
			test,
			fmt.Sprintf("%.0f", nsPerOp),
			time.Duration(nsPerOp).String(),
			fmt.Sprintf("%.0f", opsPerSec),
			time.Duration(snapshot.Percentile(0.95)).String(),
			time.Duration(snapshot.Percentile(0.99)).String(),
			strconv.FormatInt(snapshot.Count(), 10),
			skipped,
			cliStore.Directory(),
			strconv.FormatBool(viper.GetBool("save-on-change")),
			strconv.Itoa(perfKeySpread),
		}

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", test, err)
		}
	}

	return nil
}
