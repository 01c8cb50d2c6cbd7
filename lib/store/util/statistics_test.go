package util

import (
	"math"
	"testing"
)

// TestNewStats verifies the summary statistics over a known sample
func TestNewStats(t *testing.T) {
	stats := NewStats([]float64{2, 4, 4, 4, 5, 5, 7, 9})

	if stats.Mean != 5 {
		t.Errorf("Expected mean 5, got %v", stats.Mean)
	}
	if stats.Min != 2 || stats.Max != 9 {
		t.Errorf("Expected min=2 max=9, got min=%v max=%v", stats.Min, stats.Max)
	}
	if math.Abs(stats.StdDeviation-2) > 1e-9 {
		t.Errorf("Expected standard deviation 2, got %v", stats.StdDeviation)
	}

	if empty := NewStats(nil); empty != (Stats{}) {
		t.Errorf("Expected zero stats for empty input, got %+v", empty)
	}
}

// TestSizeHistogram verifies sampling, estimates and reset
func TestSizeHistogram(t *testing.T) {
	h := NewSizeHistogram()

	if h.GetCount() != 0 || h.AverageSize() != 0 || h.MedianEstimate() != 0 {
		t.Errorf("Expected empty histogram to report zeros")
	}

	// Typical record documents: a few hundred bytes each
	for i := 0; i < 100; i++ {
		h.AddSample(300)
	}
	h.AddSample(5000)

	if h.GetCount() != 101 {
		t.Errorf("Expected 101 samples, got %d", h.GetCount())
	}

	expectedAvg := (100*300 + 5000) / 101
	if h.AverageSize() != expectedAvg {
		t.Errorf("Expected average %d, got %d", expectedAvg, h.AverageSize())
	}

	// The 300 byte samples land in the 256..1024 bucket
	if median := h.MedianEstimate(); median != (256+1024)/2 {
		t.Errorf("Expected median estimate %d, got %d", (256+1024)/2, median)
	}
	if p99 := h.GetPercentileEstimate(99); p99 != (256+1024)/2 {
		t.Errorf("Expected p99 estimate %d, got %d", (256+1024)/2, p99)
	}
	if p100 := h.GetPercentileEstimate(100); p100 != (4096+16384)/2 {
		t.Errorf("Expected p100 estimate %d, got %d", (4096+16384)/2, p100)
	}

	boundaries, percentages := h.SizeDistribution()
	if len(boundaries)+1 != len(percentages) {
		t.Errorf("Expected one more bucket than boundaries, got %d/%d", len(boundaries), len(percentages))
	}

	h.Reset()
	if h.GetCount() != 0 || h.AverageSize() != 0 {
		t.Errorf("Expected reset histogram to report zeros")
	}
}
