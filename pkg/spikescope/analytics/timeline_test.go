package analytics

import (
	"testing"
)

func TestValidateSegmentsContiguous(t *testing.T) {
	segments := []SegmentSpan{
		{StartSec: 0, EndSec: 10},
		{StartSec: 10, EndSec: 30},
		{StartSec: 30, EndSec: 35},
	}
	if err := ValidateSegments(segments, 35); err != nil {
		t.Errorf("Contiguous coverage should validate, got %v", err)
	}
}

func TestValidateSegmentsEmpty(t *testing.T) {
	if err := ValidateSegments(nil, 0); err != nil {
		t.Errorf("Empty coverage of zero duration should validate, got %v", err)
	}
	if err := ValidateSegments(nil, 10); err == nil {
		t.Error("Empty coverage of nonzero duration should fail")
	}
}

func TestValidateSegmentsViolations(t *testing.T) {
	tests := []struct {
		name     string
		segments []SegmentSpan
		total    float64
	}{
		{
			name:     "inverted segment",
			segments: []SegmentSpan{{StartSec: 5, EndSec: 5}},
			total:    5,
		},
		{
			name: "hole between segments",
			segments: []SegmentSpan{
				{StartSec: 0, EndSec: 10},
				{StartSec: 12, EndSec: 20},
			},
			total: 20,
		},
		{
			name: "overlapping segments",
			segments: []SegmentSpan{
				{StartSec: 0, EndSec: 10},
				{StartSec: 8, EndSec: 20},
			},
			total: 20,
		},
		{
			name:     "first segment not at zero",
			segments: []SegmentSpan{{StartSec: 1, EndSec: 10}},
			total:    10,
		},
		{
			name:     "last segment short of total",
			segments: []SegmentSpan{{StartSec: 0, EndSec: 10}},
			total:    12,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateSegments(tt.segments, tt.total); err == nil {
				t.Error("Expected a coverage violation")
			}
		})
	}
}

func TestFlattenSpikeTimes(t *testing.T) {
	segments := []SegmentSpan{
		{StartSec: 0, EndSec: 10, SpikeTimes: []float64{1.0, 2.5, 9.0}},
		{StartSec: 10, EndSec: 30, SpikeTimes: []float64{10.5, 29.0}},
		{StartSec: 30, EndSec: 35}, // gap segment contributes nothing
	}

	flat := FlattenSpikeTimes(segments)

	expected := []float64{1.0, 2.5, 9.0, 10.5, 29.0}
	if len(flat) != len(expected) {
		t.Fatalf("Expected %d spikes, got %d", len(expected), len(flat))
	}
	for i, v := range expected {
		if flat[i] != v {
			t.Errorf("Spike %d: expected %g, got %g", i, v, flat[i])
		}
	}
}

func TestFlattenSpikeTimesEmpty(t *testing.T) {
	flat := FlattenSpikeTimes(nil)
	if len(flat) != 0 {
		t.Errorf("Expected no spikes, got %d", len(flat))
	}
}
