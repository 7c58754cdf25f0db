package main

import (
	"fmt"

	"github.com/neuralview/spikescope/pkg/models"
)

// MaxUnitsPerAdd bounds one focus-unit registration request.
const MaxUnitsPerAdd = 100

// MaxSpikesPerIngest bounds one recording ingest request.
const MaxSpikesPerIngest = 5_000_000

// ErrorResponse is the standard error response format
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}

// MutualMatchDTO represents a cross-recording match in API responses
type MutualMatchDTO struct {
	BinFilename  string  `json:"bin_filename"`
	UnitID       int     `json:"unit_id"`
	OverallScore float64 `json:"overall_score"`
}

// FocusUnitDTO represents a focus unit in API responses. Mismatched is the
// staleness flag: the source recording no longer reports coarse sorting.
type FocusUnitDTO struct {
	FocusUnitID     string           `json:"focus_unit_id"`
	BinFilename     string           `json:"bin_filename"`
	UnitID          int              `json:"unit_id"`
	Notes           string           `json:"notes"`
	SpikeLabelsHash string           `json:"spike_labels_hash"`
	MutualMatches   []MutualMatchDTO `json:"mutual_matches"`
	Mismatched      bool             `json:"mismatched"`
}

// ListFocusUnitsResponse is the response for GET /api/focus-units
type ListFocusUnitsResponse struct {
	FocusUnits []FocusUnitDTO `json:"focus_units"`
	Count      int            `json:"count"`
}

// AddFocusUnitsRequest is the request body for POST /api/focus-units
type AddFocusUnitsRequest struct {
	Units []models.NewFocusUnitRequest `json:"units"`
}

func (r *AddFocusUnitsRequest) Validate() error {
	if len(r.Units) == 0 {
		return fmt.Errorf("'units' must be a non-empty array")
	}
	if len(r.Units) > MaxUnitsPerAdd {
		return fmt.Errorf("too many units: %d (maximum: %d)", len(r.Units), MaxUnitsPerAdd)
	}
	for i, u := range r.Units {
		if u.BinFilename == "" {
			return fmt.Errorf("unit %d: bin_filename is required", i)
		}
	}
	return nil
}

// AddFocusUnitsResponse is the response for POST /api/focus-units
type AddFocusUnitsResponse struct {
	AddedUnits []FocusUnitDTO `json:"added_units"`
	Count      int            `json:"count"`
}

// UpdateNotesRequest is the request body for PUT /api/focus-units/{id}.
// Notes is a pointer so a missing field can be told apart from an empty
// replacement, which is permitted.
type UpdateNotesRequest struct {
	Notes *string `json:"notes"`
}

func (r *UpdateNotesRequest) Validate() error {
	if r.Notes == nil {
		return fmt.Errorf("'notes' is required in request body")
	}
	return nil
}

// DeleteFocusUnitResponse is the response for DELETE /api/focus-units/{id}
type DeleteFocusUnitResponse struct {
	Message     string `json:"message"`
	FocusUnitID string `json:"focus_unit_id"`
}

// SeriesPoint is one point of a derived display series
type SeriesPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// FiringRateResponse is the response for GET /api/focus-units/{id}/firing-rate.
// Y values are raw per-bin spike counts; they equal Hz only when
// bin_size_sec is 1.0.
type FiringRateResponse struct {
	FocusUnitID string        `json:"focus_unit_id"`
	BinSizeSec  float64       `json:"bin_size_sec"`
	Points      []SeriesPoint `json:"points"`
	Count       int           `json:"count"`
}

// AutocorrelogramResponse is the response for
// GET /api/focus-units/{id}/autocorrelogram. X values are left bin edges in
// milliseconds spanning [-window/2, +window/2).
type AutocorrelogramResponse struct {
	FocusUnitID string        `json:"focus_unit_id"`
	WindowMs    float64       `json:"window_ms"`
	BinSizeMs   float64       `json:"bin_size_ms"`
	Points      []SeriesPoint `json:"points"`
	Count       int           `json:"count"`
}

// ListFilesResponse is the response for GET /api/files
type ListFilesResponse struct {
	Files []models.FileInfo `json:"files"`
	Count int               `json:"count"`
}

// CoarseSortingUnitsResponse is the response for
// GET /api/recordings/{filename}/units
type CoarseSortingUnitsResponse struct {
	Units           []models.UnitCount `json:"units"`
	SpikeLabelsHash string             `json:"spike_labels_hash"`
}

// RegisterRecordingRequest is the request body for POST /api/recordings
type RegisterRecordingRequest struct {
	BinFilename      string               `json:"bin_filename"`
	DurationSec      float64              `json:"duration_sec"`
	HasCoarseSorting bool                 `json:"has_coarse_sorting"`
	SpikeLabelsHash  string               `json:"spike_labels_hash"`
	Spikes           []models.SpikeRecord `json:"spikes"`
}

func (r *RegisterRecordingRequest) Validate() error {
	if r.BinFilename == "" {
		return fmt.Errorf("bin_filename is required")
	}
	if r.DurationSec <= 0 {
		return fmt.Errorf("duration_sec must be positive")
	}
	if len(r.Spikes) > MaxSpikesPerIngest {
		return fmt.Errorf("too many spikes: %d (maximum: %d)", len(r.Spikes), MaxSpikesPerIngest)
	}
	return nil
}

// RegisterRecordingResponse is the response for POST /api/recordings
type RegisterRecordingResponse struct {
	Message     string `json:"message"`
	BinFilename string `json:"bin_filename"`
	NumSpikes   int    `json:"num_spikes"`
}

// RegisterMatchesRequest is the request body for POST /api/matches
type RegisterMatchesRequest struct {
	Matches []models.MatchRecord `json:"matches"`
}

func (r *RegisterMatchesRequest) Validate() error {
	if len(r.Matches) == 0 {
		return fmt.Errorf("'matches' must be a non-empty array")
	}
	for i, m := range r.Matches {
		if m.BinFilenameX == "" || m.BinFilenameY == "" {
			return fmt.Errorf("match %d: both bin filenames are required", i)
		}
	}
	return nil
}

// RegisterMatchesResponse is the response for POST /api/matches
type RegisterMatchesResponse struct {
	Message string `json:"message"`
	Count   int    `json:"count"`
}

// MetricsResponse provides server health and database metrics
type MetricsResponse struct {
	Status         string `json:"status"`
	DatabasePath   string `json:"database_path"`
	FocusUnitCount int    `json:"focus_unit_count"`
	RecordingCount int    `json:"recording_count"`
}
