package analytics

import "fmt"

// SegmentSpan is the minimal view of a spike-train segment the timeline
// checks need: its interval on the global timeline and the spike times it
// contributes (already in global coordinates).
type SegmentSpan struct {
	StartSec   float64
	EndSec     float64
	SpikeTimes []float64
}

// ValidateSegments checks the coverage invariant of an assembled spike train
// for display: every segment has start < end, segments are ordered, and each
// segment begins exactly where the previous one ended (no overlap, no hole;
// gaps must arrive as explicit gap-segments). The first segment must start
// at zero and the last must end at totalDurationSec. Violations are
// reported, not repaired.
func ValidateSegments(segments []SegmentSpan, totalDurationSec float64) error {
	if len(segments) == 0 {
		if totalDurationSec != 0 {
			return fmt.Errorf("no segments but total duration is %g", totalDurationSec)
		}
		return nil
	}

	prevEnd := 0.0
	for i, seg := range segments {
		if seg.StartSec >= seg.EndSec {
			return fmt.Errorf("segment %d: start %g is not before end %g", i, seg.StartSec, seg.EndSec)
		}
		if seg.StartSec != prevEnd {
			return fmt.Errorf("segment %d: starts at %g, expected %g (coverage must be contiguous)", i, seg.StartSec, prevEnd)
		}
		prevEnd = seg.EndSec
	}

	if prevEnd != totalDurationSec {
		return fmt.Errorf("segments end at %g, total duration is %g", prevEnd, totalDurationSec)
	}

	return nil
}

// FlattenSpikeTimes concatenates the spike times of all segments into one
// ascending list. Times are already expressed in the global virtual
// timeline, so flattening is a concatenation, not an offset shift. Segment
// and recording identity is discarded here: downstream binning treats the
// stitched timeline as a single point process.
func FlattenSpikeTimes(segments []SegmentSpan) []float64 {
	total := 0
	for _, seg := range segments {
		total += len(seg.SpikeTimes)
	}
	out := make([]float64, 0, total)
	for _, seg := range segments {
		out = append(out, seg.SpikeTimes...)
	}
	return out
}
