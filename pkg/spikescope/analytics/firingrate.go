package analytics

import (
	"errors"
	"math"
)

var (
	// ErrZeroDuration is returned when a series is requested over an empty
	// timeline.
	ErrZeroDuration = errors.New("total duration must be positive")

	// ErrNonPositiveBin is returned for a zero or negative bin width.
	ErrNonPositiveBin = errors.New("bin size must be positive")
)

// CountPoint is one bin of a spike-count time series. TimeSec is the bin's
// left edge on the global timeline.
type CountPoint struct {
	TimeSec float64
	Count   int
}

// RatePoint is one bin of a firing-rate series in Hz.
type RatePoint struct {
	TimeSec float64
	Hz      float64
}

// ComputeCountSeries bins the flattened spike-time list into
// ceil(totalDurationSec/binSizeSec) fixed-width bins. Spike times are in
// global timeline seconds. A spike exactly on a bin boundary falls into the
// bin that starts there; negative times and spikes at or beyond the end of
// the last bin (rounding slack past the total duration) are dropped.
//
// The value per bin is a raw count, not a rate. It equals Hz only when
// binSizeSec is 1.0; use CountsToHz for an explicit conversion.
func ComputeCountSeries(spikeTimes []float64, totalDurationSec, binSizeSec float64) ([]CountPoint, error) {
	if totalDurationSec <= 0 {
		return nil, ErrZeroDuration
	}
	if binSizeSec <= 0 {
		return nil, ErrNonPositiveBin
	}

	numBins := int(math.Ceil(totalDurationSec / binSizeSec))
	series := make([]CountPoint, numBins)
	for i := range series {
		series[i].TimeSec = float64(i) * binSizeSec
	}

	for _, t := range spikeTimes {
		idx := int(math.Floor(t / binSizeSec))
		if idx >= 0 && idx < numBins {
			series[idx].Count++
		}
	}

	return series, nil
}

// CountsToHz converts a count series into a true firing-rate series by
// dividing each bin by the bin width.
func CountsToHz(series []CountPoint, binSizeSec float64) ([]RatePoint, error) {
	if binSizeSec <= 0 {
		return nil, ErrNonPositiveBin
	}
	out := make([]RatePoint, len(series))
	for i, p := range series {
		out[i] = RatePoint{TimeSec: p.TimeSec, Hz: float64(p.Count) / binSizeSec}
	}
	return out, nil
}
