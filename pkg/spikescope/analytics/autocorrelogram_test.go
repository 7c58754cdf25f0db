package analytics

import (
	"errors"
	"testing"
)

func TestComputeAutocorrelogramKnownCounts(t *testing.T) {
	// Spikes at 0, 5 and 10 s with a 20 s window and 5 s bins.
	// Pair lags are +-5, +-5 and +-10 s; +10 falls outside the last bin.
	bins, err := ComputeAutocorrelogram([]float64{0, 5, 10}, 20000, 5000)
	if err != nil {
		t.Fatalf("ComputeAutocorrelogram failed: %v", err)
	}

	if len(bins) != 4 {
		t.Fatalf("Expected 4 bins, got %d", len(bins))
	}

	expectedLags := []float64{-10000, -5000, 0, 5000}
	expectedCounts := []int{1, 2, 0, 2}
	for i, bin := range bins {
		if bin.LagMs != expectedLags[i] {
			t.Errorf("Bin %d: expected lag %g ms, got %g", i, expectedLags[i], bin.LagMs)
		}
		if bin.Count != expectedCounts[i] {
			t.Errorf("Bin %d: expected count %d, got %d", i, expectedCounts[i], bin.Count)
		}
	}
}

func TestComputeAutocorrelogramSymmetry(t *testing.T) {
	// Pair lags avoid bin edges so each positive lag mirrors exactly.
	spikes := []float64{0, 0.5, 1.7, 3.9, 6.2}

	bins, err := ComputeAutocorrelogram(spikes, 16000, 2000)
	if err != nil {
		t.Fatalf("ComputeAutocorrelogram failed: %v", err)
	}

	if len(bins) != 8 {
		t.Fatalf("Expected 8 bins, got %d", len(bins))
	}
	for i := 0; i < len(bins)/2; i++ {
		mirror := len(bins) - 1 - i
		if bins[i].Count != bins[mirror].Count {
			t.Errorf("Bins %d and %d should mirror: %d vs %d",
				i, mirror, bins[i].Count, bins[mirror].Count)
		}
	}
}

func TestComputeAutocorrelogramIdenticalTimestamps(t *testing.T) {
	// N coincident spikes produce N*(N-1) zero-lag entries, all landing
	// in the bin containing lag zero.
	bins, err := ComputeAutocorrelogram([]float64{1.0, 1.0, 1.0, 1.0}, 16000, 2000)
	if err != nil {
		t.Fatalf("ComputeAutocorrelogram failed: %v", err)
	}

	zeroBin := 4 // [0, 2000) ms
	for i, bin := range bins {
		expected := 0
		if i == zeroBin {
			expected = 12
		}
		if bin.Count != expected {
			t.Errorf("Bin %d (lag %g ms): expected %d, got %d", i, bin.LagMs, expected, bin.Count)
		}
	}
}

func TestComputeAutocorrelogramHalfWindowPair(t *testing.T) {
	// A lag of exactly half the window is not excluded by the scan, but
	// only its negative side lands inside the binned range.
	bins, err := ComputeAutocorrelogram([]float64{0, 10}, 20000, 5000)
	if err != nil {
		t.Fatalf("ComputeAutocorrelogram failed: %v", err)
	}

	total := 0
	for _, bin := range bins {
		total += bin.Count
	}
	if total != 1 {
		t.Errorf("Expected a single counted entry, got %d", total)
	}
	if bins[0].Count != 1 {
		t.Errorf("Expected the -10 s bin to hold the entry, got %d", bins[0].Count)
	}
}

func TestComputeAutocorrelogramPairBeyondWindow(t *testing.T) {
	bins, err := ComputeAutocorrelogram([]float64{0, 100}, 20000, 5000)
	if err != nil {
		t.Fatalf("ComputeAutocorrelogram failed: %v", err)
	}

	for i, bin := range bins {
		if bin.Count != 0 {
			t.Errorf("Bin %d: expected no entries for pairs beyond the window, got %d", i, bin.Count)
		}
	}
}

func TestComputeAutocorrelogramFewSpikes(t *testing.T) {
	for _, spikes := range [][]float64{nil, {}, {3.0}} {
		bins, err := ComputeAutocorrelogram(spikes, 20000, 5000)
		if err != nil {
			t.Fatalf("ComputeAutocorrelogram failed for %v: %v", spikes, err)
		}
		if len(bins) != 4 {
			t.Fatalf("Expected 4 bins for %v, got %d", spikes, len(bins))
		}
		for _, bin := range bins {
			if bin.Count != 0 {
				t.Errorf("Expected all-zero bins for %v", spikes)
			}
		}
	}
}

func TestComputeAutocorrelogramUnsortedInput(t *testing.T) {
	_, err := ComputeAutocorrelogram([]float64{5, 0, 10}, 20000, 5000)
	if !errors.Is(err, ErrUnsortedInput) {
		t.Errorf("Expected ErrUnsortedInput, got %v", err)
	}
}

func TestComputeAutocorrelogramGuards(t *testing.T) {
	if _, err := ComputeAutocorrelogram([]float64{0, 1}, 0, 5000); !errors.Is(err, ErrNonPositiveWindow) {
		t.Errorf("Expected ErrNonPositiveWindow for zero window, got %v", err)
	}
	if _, err := ComputeAutocorrelogram([]float64{0, 1}, 20000, 0); !errors.Is(err, ErrNonPositiveBin) {
		t.Errorf("Expected ErrNonPositiveBin for zero bin, got %v", err)
	}
	if _, err := ComputeAutocorrelogram([]float64{0, 1}, -100, 5000); !errors.Is(err, ErrNonPositiveWindow) {
		t.Errorf("Expected ErrNonPositiveWindow for negative window, got %v", err)
	}
}
