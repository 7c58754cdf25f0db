package analytics

import (
	"errors"
	"testing"
)

func TestComputeCountSeriesSingleBin(t *testing.T) {
	series, err := ComputeCountSeries([]float64{0.1, 0.3, 0.9}, 1.0, 1.0)
	if err != nil {
		t.Fatalf("ComputeCountSeries failed: %v", err)
	}

	if len(series) != 1 {
		t.Fatalf("Expected 1 bin, got %d", len(series))
	}
	if series[0].TimeSec != 0 {
		t.Errorf("Expected bin time 0, got %g", series[0].TimeSec)
	}
	if series[0].Count != 3 {
		t.Errorf("Expected count 3, got %d", series[0].Count)
	}
}

func TestComputeCountSeriesLength(t *testing.T) {
	tests := []struct {
		durationSec float64
		binSizeSec  float64
		expected    int
	}{
		{10.0, 1.0, 10},
		{10.0, 0.5, 20},
		{10.0, 3.0, 4},  // ceil(10/3)
		{0.1, 1.0, 1},   // partial bin still counts
		{10.5, 1.0, 11}, // trailing partial bin
	}

	for _, tt := range tests {
		series, err := ComputeCountSeries(nil, tt.durationSec, tt.binSizeSec)
		if err != nil {
			t.Fatalf("ComputeCountSeries(%g, %g) failed: %v", tt.durationSec, tt.binSizeSec, err)
		}
		if len(series) != tt.expected {
			t.Errorf("ComputeCountSeries(%g, %g): expected %d bins, got %d",
				tt.durationSec, tt.binSizeSec, tt.expected, len(series))
		}
	}
}

func TestComputeCountSeriesSumConservation(t *testing.T) {
	spikes := []float64{0.0, 0.4, 1.1, 2.7, 3.3, 5.9, 7.2, 9.99}

	for _, binSize := range []float64{0.25, 0.5, 1.0, 2.0, 3.0} {
		series, err := ComputeCountSeries(spikes, 10.0, binSize)
		if err != nil {
			t.Fatalf("ComputeCountSeries failed for bin %g: %v", binSize, err)
		}
		total := 0
		for _, p := range series {
			total += p.Count
		}
		if total != len(spikes) {
			t.Errorf("bin %g: expected all %d spikes counted, got %d", binSize, len(spikes), total)
		}
	}
}

func TestComputeCountSeriesBoundarySpike(t *testing.T) {
	// A spike exactly on a bin edge belongs to the bin starting there.
	series, err := ComputeCountSeries([]float64{1.0}, 2.0, 0.5)
	if err != nil {
		t.Fatalf("ComputeCountSeries failed: %v", err)
	}

	if len(series) != 4 {
		t.Fatalf("Expected 4 bins, got %d", len(series))
	}
	if series[1].Count != 0 {
		t.Errorf("Bin [0.5, 1.0) should be empty, got %d", series[1].Count)
	}
	if series[2].Count != 1 {
		t.Errorf("Bin [1.0, 1.5) should hold the boundary spike, got %d", series[2].Count)
	}
}

func TestComputeCountSeriesDropsOutOfRange(t *testing.T) {
	// Rounding slack can put spikes past the last bin; they are dropped,
	// as are negative times.
	series, err := ComputeCountSeries([]float64{-0.5, 0.2, 1.2}, 1.0, 1.0)
	if err != nil {
		t.Fatalf("ComputeCountSeries failed: %v", err)
	}

	total := 0
	for _, p := range series {
		total += p.Count
	}
	if total != 1 {
		t.Errorf("Expected only the in-range spike counted, got %d", total)
	}
}

func TestComputeCountSeriesGuards(t *testing.T) {
	if _, err := ComputeCountSeries([]float64{1.0}, 0, 1.0); !errors.Is(err, ErrZeroDuration) {
		t.Errorf("Expected ErrZeroDuration for zero duration, got %v", err)
	}
	if _, err := ComputeCountSeries([]float64{1.0}, 10.0, 0); !errors.Is(err, ErrNonPositiveBin) {
		t.Errorf("Expected ErrNonPositiveBin for zero bin, got %v", err)
	}
	if _, err := ComputeCountSeries([]float64{1.0}, 10.0, -0.5); !errors.Is(err, ErrNonPositiveBin) {
		t.Errorf("Expected ErrNonPositiveBin for negative bin, got %v", err)
	}
}

func TestCountsToHz(t *testing.T) {
	series := []CountPoint{{TimeSec: 0, Count: 3}, {TimeSec: 0.5, Count: 1}}

	rates, err := CountsToHz(series, 0.5)
	if err != nil {
		t.Fatalf("CountsToHz failed: %v", err)
	}
	if rates[0].Hz != 6.0 {
		t.Errorf("Expected 6 Hz, got %g", rates[0].Hz)
	}
	if rates[1].Hz != 2.0 {
		t.Errorf("Expected 2 Hz, got %g", rates[1].Hz)
	}

	if _, err := CountsToHz(series, 0); !errors.Is(err, ErrNonPositiveBin) {
		t.Errorf("Expected ErrNonPositiveBin, got %v", err)
	}
}
