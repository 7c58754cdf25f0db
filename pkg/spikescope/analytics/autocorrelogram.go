package analytics

import (
	"errors"
	"math"
)

// ErrNonPositiveWindow is returned for a zero or negative correlogram window.
var ErrNonPositiveWindow = errors.New("window size must be positive")

// ErrUnsortedInput is returned when spike times are not ascending.
var ErrUnsortedInput = errors.New("spike times must be sorted ascending")

// LagPoint is one bin of an autocorrelogram. LagMs is the bin's left edge in
// milliseconds; bins span [-window/2, +window/2).
type LagPoint struct {
	LagMs float64
	Count int
}

// ComputeAutocorrelogram builds a symmetric pairwise-lag histogram over the
// flattened spike train. spikeTimes must be ascending in global timeline
// seconds; segment and recording identity has already been discarded, so the
// whole stitched timeline is treated as one continuous point process.
//
// For each reference spike, later spikes are scanned until the difference
// exceeds half the window; sorted order makes the growth monotonic, so the
// scan terminates early instead of visiting all pairs. Each qualifying pair
// increments both its positive-lag bin and the mirrored negative-lag bin.
// A pair whose difference equals exactly half the window is included; its
// positive-lag bin index may land one past the last bin, in which case the
// bounds check drops it. Simultaneous spikes (zero difference) count into
// the bin containing zero lag twice, once per direction.
func ComputeAutocorrelogram(spikeTimes []float64, windowMs, binSizeMs float64) ([]LagPoint, error) {
	if windowMs <= 0 {
		return nil, ErrNonPositiveWindow
	}
	if binSizeMs <= 0 {
		return nil, ErrNonPositiveBin
	}
	for i := 1; i < len(spikeTimes); i++ {
		if spikeTimes[i] < spikeTimes[i-1] {
			return nil, ErrUnsortedInput
		}
	}

	windowSec := windowMs / 1000.0
	binSizeSec := binSizeMs / 1000.0
	halfWindow := windowSec / 2.0

	numBins := int(math.Floor(windowSec / binSizeSec))
	bins := make([]LagPoint, numBins)
	for i := range bins {
		bins[i].LagMs = (float64(i)*binSizeSec - halfWindow) * 1000.0
	}

	for i := 0; i < len(spikeTimes); i++ {
		for j := i + 1; j < len(spikeTimes); j++ {
			diff := spikeTimes[j] - spikeTimes[i]
			if diff > halfWindow {
				break
			}
			if idx := int(math.Floor((diff + halfWindow) / binSizeSec)); idx >= 0 && idx < numBins {
				bins[idx].Count++
			}
			if idx := int(math.Floor((-diff + halfWindow) / binSizeSec)); idx >= 0 && idx < numBins {
				bins[idx].Count++
			}
		}
	}

	return bins, nil
}
