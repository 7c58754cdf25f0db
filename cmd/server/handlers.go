package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/neuralview/spikescope/pkg/logger"
	"github.com/neuralview/spikescope/pkg/models"
	"github.com/neuralview/spikescope/pkg/spikescope"
	"github.com/neuralview/spikescope/pkg/spikescope/analytics"
	"github.com/neuralview/spikescope/pkg/spikescope/storage"
)

// Server encapsulates the HTTP server and its dependencies
type Server struct {
	service spikescope.Service
	config  *ServerConfig
	log     spikescope.Logger
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int
	DBPath         string
	AllowedOrigins []string
}

// NewServer creates a new server instance
func NewServer(service spikescope.Service, config *ServerConfig) *Server {
	return &Server{
		service: service,
		config:  config,
		log:     logger.GetLogger(),
	}
}

// respondJSON writes a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Errorf("Failed to encode JSON response: %v", err)
	}
}

// respondError writes an error response
func (s *Server) respondError(w http.ResponseWriter, statusCode int, message string) {
	s.respondJSON(w, statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	})
}

// respondServiceError maps service errors onto status codes: missing rows
// become 404, rejected analytics parameters become 400, anything else is a
// 500.
func (s *Server) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		s.respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, analytics.ErrZeroDuration),
		errors.Is(err, analytics.ErrNonPositiveBin),
		errors.Is(err, analytics.ErrNonPositiveWindow):
		s.respondError(w, http.StatusBadRequest, err.Error())
	default:
		s.respondError(w, http.StatusInternalServerError, err.Error())
	}
}

// handleRoot handles GET /
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"service": "SpikeScope API",
		"version": "1.0.0",
		"endpoints": map[string]string{
			"health":          "GET /health",
			"metrics":         "GET /api/health/metrics",
			"focusUnits":      "GET /api/focus-units",
			"addFocusUnits":   "POST /api/focus-units",
			"updateNotes":     "PUT /api/focus-units/{id}",
			"deleteFocusUnit": "DELETE /api/focus-units/{id}",
			"spikeTrain":      "GET /api/focus-units/{id}/spike-train",
			"firingRate":      "GET /api/focus-units/{id}/firing-rate",
			"autocorrelogram": "GET /api/focus-units/{id}/autocorrelogram",
			"files":           "GET /api/files",
			"recordingUnits":  "GET /api/recordings/{filename}/units",
			"addRecording":    "POST /api/recordings",
			"addMatches":      "POST /api/matches",
		},
	})
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// handleMetrics handles GET /api/health/metrics
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	units, err := s.service.ListFocusUnits(r.Context())
	if err != nil {
		s.log.Errorf("Failed to count focus units: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to retrieve metrics")
		return
	}
	files, err := s.service.ListFiles(r.Context())
	if err != nil {
		s.log.Errorf("Failed to count recordings: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to retrieve metrics")
		return
	}

	s.respondJSON(w, http.StatusOK, MetricsResponse{
		Status:         "healthy",
		DatabasePath:   s.config.DBPath,
		FocusUnitCount: len(units),
		RecordingCount: len(files),
	})
}

// handleListFocusUnits handles GET /api/focus-units. A failure here is
// blocking: the whole listing errors, no partial content is returned.
func (s *Server) handleListFocusUnits(w http.ResponseWriter, r *http.Request) {
	units, err := s.service.ListFocusUnits(r.Context())
	if err != nil {
		s.log.Errorf("Failed to list focus units: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to retrieve focus units")
		return
	}

	files, err := s.service.ListFiles(r.Context())
	if err != nil {
		s.log.Errorf("Failed to list recordings: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to retrieve recordings")
		return
	}

	dtos := make([]FocusUnitDTO, len(units))
	for i, unit := range units {
		dtos[i] = focusUnitDTO(unit, files)
	}

	s.respondJSON(w, http.StatusOK, ListFocusUnitsResponse{
		FocusUnits: dtos,
		Count:      len(dtos),
	})
}

func focusUnitDTO(unit models.FocusUnit, files []models.FileInfo) FocusUnitDTO {
	matches := make([]MutualMatchDTO, len(unit.MutualMatches))
	for i, m := range unit.MutualMatches {
		matches[i] = MutualMatchDTO{
			BinFilename:  m.BinFilename,
			UnitID:       m.UnitID,
			OverallScore: m.OverallScore,
		}
	}
	return FocusUnitDTO{
		FocusUnitID:     unit.FocusUnitID,
		BinFilename:     unit.BinFilename,
		UnitID:          unit.UnitID,
		Notes:           unit.Notes,
		SpikeLabelsHash: unit.SpikeLabelsHash,
		MutualMatches:   matches,
		Mismatched:      spikescope.IsMismatched(unit, files),
	}
}

// handleAddFocusUnits handles POST /api/focus-units
func (s *Server) handleAddFocusUnits(w http.ResponseWriter, r *http.Request) {
	var req AddFocusUnitsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.log.Errorf("Failed to decode request: %v", err)
		s.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	added, err := s.service.AddFocusUnits(r.Context(), req.Units)
	if err != nil {
		s.log.Errorf("Failed to add focus units: %v", err)
		s.respondServiceError(w, err)
		return
	}

	dtos := make([]FocusUnitDTO, len(added))
	for i, unit := range added {
		dtos[i] = focusUnitDTO(unit, nil)
	}

	s.log.Infof("Added %d focus units", len(dtos))
	s.respondJSON(w, http.StatusCreated, AddFocusUnitsResponse{
		AddedUnits: dtos,
		Count:      len(dtos),
	})
}

// handleUpdateNotes handles PUT /api/focus-units/{id}. Notes are replaced
// wholesale; any content including the empty string is accepted.
func (s *Server) handleUpdateNotes(w http.ResponseWriter, r *http.Request, focusUnitID string) {
	var req UpdateNotesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.log.Errorf("Failed to decode request: %v", err)
		s.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	unit, err := s.service.UpdateFocusUnitNotes(r.Context(), focusUnitID, *req.Notes)
	if err != nil {
		s.log.Errorf("Failed to update notes for %s: %v", focusUnitID, err)
		s.respondServiceError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, focusUnitDTO(*unit, nil))
}

// handleDeleteFocusUnit handles DELETE /api/focus-units/{id}
func (s *Server) handleDeleteFocusUnit(w http.ResponseWriter, r *http.Request, focusUnitID string) {
	if err := s.service.DeleteFocusUnit(r.Context(), focusUnitID); err != nil {
		s.log.Errorf("Failed to delete focus unit %s: %v", focusUnitID, err)
		s.respondServiceError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, DeleteFocusUnitResponse{
		Message:     "Focus unit deleted successfully",
		FocusUnitID: focusUnitID,
	})
}

// handleSpikeTrain handles GET /api/focus-units/{id}/spike-train. A failure
// is scoped to this unit's detail panel; the listing stays usable.
func (s *Server) handleSpikeTrain(w http.ResponseWriter, r *http.Request, focusUnitID string) {
	train, err := s.service.GetSpikeTrain(r.Context(), focusUnitID)
	if err != nil {
		s.log.Errorf("Failed to assemble spike train for %s: %v", focusUnitID, err)
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, train)
}

// handleFiringRate handles GET /api/focus-units/{id}/firing-rate
func (s *Server) handleFiringRate(w http.ResponseWriter, r *http.Request, focusUnitID string) {
	binSizeSec, err := queryFloat(r, "bin_size_sec", 1.0)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	series, err := s.service.FiringRateSeries(r.Context(), focusUnitID, binSizeSec)
	if err != nil {
		s.log.Errorf("Failed to compute firing-rate series for %s: %v", focusUnitID, err)
		s.respondServiceError(w, err)
		return
	}

	points := make([]SeriesPoint, len(series))
	for i, p := range series {
		points[i] = SeriesPoint{X: p.TimeSec, Y: float64(p.Count)}
	}

	s.respondJSON(w, http.StatusOK, FiringRateResponse{
		FocusUnitID: focusUnitID,
		BinSizeSec:  binSizeSec,
		Points:      points,
		Count:       len(points),
	})
}

// handleAutocorrelogram handles GET /api/focus-units/{id}/autocorrelogram
func (s *Server) handleAutocorrelogram(w http.ResponseWriter, r *http.Request, focusUnitID string) {
	windowMs, err := queryFloat(r, "window_ms", 100.0)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	binSizeMs, err := queryFloat(r, "bin_size_ms", 1.0)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	bins, err := s.service.Autocorrelogram(r.Context(), focusUnitID, windowMs, binSizeMs)
	if err != nil {
		s.log.Errorf("Failed to compute autocorrelogram for %s: %v", focusUnitID, err)
		s.respondServiceError(w, err)
		return
	}

	points := make([]SeriesPoint, len(bins))
	for i, p := range bins {
		points[i] = SeriesPoint{X: p.LagMs, Y: float64(p.Count)}
	}

	s.respondJSON(w, http.StatusOK, AutocorrelogramResponse{
		FocusUnitID: focusUnitID,
		WindowMs:    windowMs,
		BinSizeMs:   binSizeMs,
		Points:      points,
		Count:       len(points),
	})
}

// handleListFiles handles GET /api/files
func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	files, err := s.service.ListFiles(r.Context())
	if err != nil {
		s.log.Errorf("Failed to list recordings: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to retrieve recordings")
		return
	}

	s.respondJSON(w, http.StatusOK, ListFilesResponse{
		Files: files,
		Count: len(files),
	})
}

// handleCoarseSortingUnits handles GET /api/recordings/{filename}/units
func (s *Server) handleCoarseSortingUnits(w http.ResponseWriter, r *http.Request, binFilename string) {
	units, hash, err := s.service.ListCoarseSortingUnits(r.Context(), binFilename)
	if err != nil {
		s.log.Warnf("Coarse sorting units unavailable for %s: %v", binFilename, err)
		s.respondServiceError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, CoarseSortingUnitsResponse{
		Units:           units,
		SpikeLabelsHash: hash,
	})
}

// handleAddRecording handles POST /api/recordings
func (s *Server) handleAddRecording(w http.ResponseWriter, r *http.Request) {
	var req RegisterRecordingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.log.Errorf("Failed to decode request: %v", err)
		s.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	info := models.FileInfo{
		BinFilename:      req.BinFilename,
		DurationSec:      req.DurationSec,
		HasCoarseSorting: req.HasCoarseSorting,
		SpikeLabelsHash:  req.SpikeLabelsHash,
	}
	if err := s.service.RegisterRecording(r.Context(), info, req.Spikes); err != nil {
		s.log.Errorf("Failed to register recording %s: %v", req.BinFilename, err)
		s.respondServiceError(w, err)
		return
	}

	s.respondJSON(w, http.StatusCreated, RegisterRecordingResponse{
		Message:     "Recording registered successfully",
		BinFilename: req.BinFilename,
		NumSpikes:   len(req.Spikes),
	})
}

// handleAddMatches handles POST /api/matches
func (s *Server) handleAddMatches(w http.ResponseWriter, r *http.Request) {
	var req RegisterMatchesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.log.Errorf("Failed to decode request: %v", err)
		s.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.service.RegisterMatches(r.Context(), req.Matches); err != nil {
		s.log.Errorf("Failed to register matches: %v", err)
		s.respondServiceError(w, err)
		return
	}

	s.respondJSON(w, http.StatusCreated, RegisterMatchesResponse{
		Message: "Matches registered successfully",
		Count:   len(req.Matches),
	})
}

// handleFocusUnits routes requests to /api/focus-units
func (s *Server) handleFocusUnits(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListFocusUnits(w, r)
	case http.MethodPost:
		s.handleAddFocusUnits(w, r)
	default:
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// handleFocusUnit routes requests to /api/focus-units/{id}[/...]
func (s *Server) handleFocusUnit(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/focus-units/")
	parts := strings.SplitN(rest, "/", 2)
	focusUnitID := parts[0]
	if focusUnitID == "" {
		s.respondError(w, http.StatusBadRequest, "Focus unit ID required")
		return
	}

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodPut:
			s.handleUpdateNotes(w, r, focusUnitID)
		case http.MethodDelete:
			s.handleDeleteFocusUnit(w, r, focusUnitID)
		default:
			s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
		return
	}

	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	switch parts[1] {
	case "spike-train":
		s.handleSpikeTrain(w, r, focusUnitID)
	case "firing-rate":
		s.handleFiringRate(w, r, focusUnitID)
	case "autocorrelogram":
		s.handleAutocorrelogram(w, r, focusUnitID)
	default:
		s.respondError(w, http.StatusNotFound, fmt.Sprintf("Unknown resource: %s", parts[1]))
	}
}

// handleRecordings routes requests to /api/recordings[/...]
func (s *Server) handleRecordings(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/api/recordings" {
		if r.Method != http.MethodPost {
			s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		s.handleAddRecording(w, r)
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/recordings/")
	parts := strings.SplitN(rest, "/", 2)
	if parts[0] == "" || len(parts) != 2 || parts[1] != "units" {
		s.respondError(w, http.StatusNotFound, "Unknown recording resource")
		return
	}
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	s.handleCoarseSortingUnits(w, r, parts[0])
}

// handleMatches routes requests to /api/matches
func (s *Server) handleMatches(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	s.handleAddMatches(w, r)
}

// queryFloat parses a float query parameter with a default.
func queryFloat(r *http.Request, name string, def float64) (float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", name, raw)
	}
	return v, nil
}
