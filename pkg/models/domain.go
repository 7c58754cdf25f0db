package models

// MutualMatch describes a unit in another recording judged equivalent to a
// focus unit by the upstream matching pipeline.
type MutualMatch struct {
	BinFilename  string  `json:"bin_filename"`
	UnitID       int     `json:"unit_id"`
	OverallScore float64 `json:"overall_score"` // 0-1, averaged across both match directions
}

// FocusUnit is a curated reference to one sorted unit in one recording,
// enriched with cross-recording match data.
type FocusUnit struct {
	FocusUnitID     string        `json:"focus_unit_id"`
	BinFilename     string        `json:"bin_filename"`
	UnitID          int           `json:"unit_id"`
	Notes           string        `json:"notes"`
	SpikeLabelsHash string        `json:"spike_labels_hash"` // opaque; recorded at creation, never recomputed
	MutualMatches   []MutualMatch `json:"mutual_matches"`
}

// FileInfo describes one recording as seen by the viewer.
type FileInfo struct {
	BinFilename      string  `json:"bin_filename"`
	DurationSec      float64 `json:"duration_sec"`
	HasCoarseSorting bool    `json:"has_coarse_sorting"`
	SpikeLabelsHash  string  `json:"spike_labels_hash"`
}

// UnitCount pairs a sorted unit id with its spike count within one recording.
type UnitCount struct {
	UnitID    int `json:"unit_id"`
	NumSpikes int `json:"num_spikes"`
}

// SpikeTrainSegment is a contiguous interval of a focus unit's assembled
// virtual timeline. A nil UnitID marks a gap: no matched unit covers the
// interval. SpikeTimes are expressed in the global virtual timeline, not
// relative to the segment.
type SpikeTrainSegment struct {
	BinFilename     string    `json:"bin_filename"`
	UnitID          *int      `json:"unit_id"`
	StartTimeOffset float64   `json:"start_time_offset"`
	EndTimeOffset   float64   `json:"end_time_offset"`
	NumSpikes       int       `json:"num_spikes"`
	SpikeTimes      []float64 `json:"spike_times"`
	IsFocusUnit     bool      `json:"is_focus_unit"`
	IsGap           bool      `json:"is_gap"`
}

// SpikeTrainResponse is the assembled multi-recording spike train for one
// focus unit. Segments are ordered and their union covers
// [0, TotalDurationSec) with no overlap; gaps appear as explicit
// gap-segments, never as holes.
type SpikeTrainResponse struct {
	FocusUnitID      string              `json:"focus_unit_id"`
	TotalSpikes      int                 `json:"total_spikes"`
	TotalDurationSec float64             `json:"total_duration_sec"`
	Segments         []SpikeTrainSegment `json:"segments"`
}

// NewFocusUnitRequest is the input for registering a focus unit.
type NewFocusUnitRequest struct {
	BinFilename string `json:"bin_filename"`
	UnitID      int    `json:"unit_id"`
}

// MatchRecord is one upstream mutual-match result between a unit in
// recording X and a unit in recording Y.
type MatchRecord struct {
	BinFilenameX string  `json:"bin_filename_x"`
	UnitX        int     `json:"unit_x"`
	BinFilenameY string  `json:"bin_filename_y"`
	UnitY        int     `json:"unit_y"`
	ScoreXToY    float64 `json:"score_x_to_y"`
	ScoreYToX    float64 `json:"score_y_to_x"`
	OverallScore float64 `json:"overall_score"`
}

// SpikeRecord is one sorted spike event within a recording, in
// recording-local seconds.
type SpikeRecord struct {
	UnitID  int     `json:"unit_id"`
	TimeSec float64 `json:"time_sec"`
}
