package spikescope

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/neuralview/spikescope/pkg/logger"
	"github.com/neuralview/spikescope/pkg/models"
	"github.com/neuralview/spikescope/pkg/spikescope/analytics"
	"github.com/neuralview/spikescope/pkg/spikescope/storage"
)

// spikeService is the default implementation of the Service interface.
type spikeService struct {
	storage Storage
	log     Logger
	config  *Config
}

func NewService(opts ...Option) (Service, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.Logger == nil {
		cfg.Logger = logger.GetLogger()
	}

	var stor Storage
	var err error
	if cfg.Storage != nil {
		stor = cfg.Storage
	} else {
		stor, err = storage.NewDBClientWithPath(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create storage: %w", err)
		}
	}

	return &spikeService{
		storage: stor,
		log:     cfg.Logger,
		config:  cfg,
	}, nil
}

// ListFocusUnits returns all focus units, each enriched with its mutual
// matches from the upstream matching results. A match is reported whichever
// side of the pair the focus unit sits on; duplicates found from both
// directions are collapsed.
func (s *spikeService) ListFocusUnits(ctx context.Context) ([]models.FocusUnit, error) {
	units, err := s.storage.ListFocusUnits()
	if err != nil {
		return nil, fmt.Errorf("listing focus units: %w", err)
	}

	for i := range units {
		matches, err := s.matchesFor(units[i].BinFilename, units[i].UnitID)
		if err != nil {
			return nil, err
		}
		units[i].MutualMatches = matches
	}

	return units, nil
}

// matchesFor resolves the mutual matches of one unit into the opposite side
// of each pair, deduplicated by (bin_filename, unit_id).
func (s *spikeService) matchesFor(binFilename string, unitID int) ([]models.MutualMatch, error) {
	records, err := s.storage.MatchesForUnit(binFilename, unitID)
	if err != nil {
		return nil, fmt.Errorf("loading matches for %s unit %d: %w", binFilename, unitID, err)
	}

	seen := make(map[string]bool)
	matches := make([]models.MutualMatch, 0, len(records))
	for _, rec := range records {
		m := models.MutualMatch{BinFilename: rec.BinFilenameX, UnitID: rec.UnitX, OverallScore: rec.OverallScore}
		if rec.BinFilenameX == binFilename && rec.UnitX == unitID {
			m = models.MutualMatch{BinFilename: rec.BinFilenameY, UnitID: rec.UnitY, OverallScore: rec.OverallScore}
		}
		key := fmt.Sprintf("%s#%d", m.BinFilename, m.UnitID)
		if seen[key] {
			continue
		}
		seen[key] = true
		matches = append(matches, m)
	}

	return matches, nil
}

// AddFocusUnits registers new focus units. Each referenced recording must
// exist and carry coarse sorting; the recording's spike-labels hash is
// captured on the unit at creation time and never recomputed afterwards.
func (s *spikeService) AddFocusUnits(ctx context.Context, reqs []models.NewFocusUnitRequest) ([]models.FocusUnit, error) {
	if len(reqs) == 0 {
		return nil, fmt.Errorf("no units to add")
	}

	existing, err := s.storage.ListFocusUnits()
	if err != nil {
		return nil, fmt.Errorf("listing focus units: %w", err)
	}

	added := make([]models.FocusUnit, 0, len(reqs))
	for _, req := range reqs {
		if req.BinFilename == "" {
			return nil, fmt.Errorf("each unit must have a bin_filename")
		}

		rec, err := s.storage.GetRecording(req.BinFilename)
		if err != nil {
			return nil, fmt.Errorf("recording %s: %w", req.BinFilename, err)
		}
		if !rec.HasCoarseSorting {
			return nil, fmt.Errorf("recording %s does not have coarse sorting", req.BinFilename)
		}

		unit := models.FocusUnit{
			FocusUnitID:     nextFocusUnitID(existing),
			BinFilename:     req.BinFilename,
			UnitID:          req.UnitID,
			Notes:           "",
			SpikeLabelsHash: rec.SpikeLabelsHash,
		}
		if err := s.storage.CreateFocusUnit(unit); err != nil {
			return nil, fmt.Errorf("creating focus unit %s: %w", unit.FocusUnitID, err)
		}

		s.log.Infof("Registered focus unit %s (%s unit %d)", unit.FocusUnitID, unit.BinFilename, unit.UnitID)
		existing = append(existing, unit)
		added = append(added, unit)
	}

	return added, nil
}

// nextFocusUnitID generates the next sequential id of the form F001, F002...
func nextFocusUnitID(existing []models.FocusUnit) string {
	maxNum := 0
	for _, unit := range existing {
		if !strings.HasPrefix(unit.FocusUnitID, "F") {
			continue
		}
		if n, err := strconv.Atoi(unit.FocusUnitID[1:]); err == nil && n > maxNum {
			maxNum = n
		}
	}
	return fmt.Sprintf("F%03d", maxNum+1)
}

// UpdateFocusUnitNotes replaces a focus unit's notes wholesale. Any content
// is accepted, including the empty string.
func (s *spikeService) UpdateFocusUnitNotes(ctx context.Context, focusUnitID, notes string) (*models.FocusUnit, error) {
	if err := s.storage.UpdateFocusUnitNotes(focusUnitID, notes); err != nil {
		return nil, fmt.Errorf("updating notes for %s: %w", focusUnitID, err)
	}
	unit, err := s.storage.GetFocusUnit(focusUnitID)
	if err != nil {
		return nil, fmt.Errorf("reloading focus unit %s: %w", focusUnitID, err)
	}
	unit.MutualMatches, err = s.matchesFor(unit.BinFilename, unit.UnitID)
	if err != nil {
		return nil, err
	}
	return unit, nil
}

func (s *spikeService) DeleteFocusUnit(ctx context.Context, focusUnitID string) error {
	if err := s.storage.DeleteFocusUnit(focusUnitID); err != nil {
		return fmt.Errorf("deleting focus unit %s: %w", focusUnitID, err)
	}
	s.log.Infof("Deleted focus unit %s", focusUnitID)
	return nil
}

func (s *spikeService) ListFiles(ctx context.Context) ([]models.FileInfo, error) {
	files, err := s.storage.ListRecordings()
	if err != nil {
		return nil, fmt.Errorf("listing recordings: %w", err)
	}
	return files, nil
}

// ListCoarseSortingUnits returns the sorted unit ids and spike counts for
// one recording, plus the recording's current spike-labels hash.
func (s *spikeService) ListCoarseSortingUnits(ctx context.Context, binFilename string) ([]models.UnitCount, string, error) {
	rec, err := s.storage.GetRecording(binFilename)
	if err != nil {
		return nil, "", fmt.Errorf("recording %s: %w", binFilename, err)
	}
	if !rec.HasCoarseSorting {
		return nil, "", fmt.Errorf("coarse sorting not found for %s", binFilename)
	}

	counts, err := s.storage.UnitCounts(binFilename)
	if err != nil {
		return nil, "", fmt.Errorf("unit counts for %s: %w", binFilename, err)
	}
	sort.Slice(counts, func(i, j int) bool { return counts[i].UnitID < counts[j].UnitID })

	return counts, rec.SpikeLabelsHash, nil
}

// GetSpikeTrain assembles the focus unit's spike train across all
// recordings into one virtual timeline. Recordings are stitched in filename
// order (chronological); the focus unit's own recording and every mutually
// matched recording contribute spike segments with times shifted into the
// global timeline, and everything else becomes an explicit gap-segment, so
// the segment union covers the full duration without holes.
func (s *spikeService) GetSpikeTrain(ctx context.Context, focusUnitID string) (*models.SpikeTrainResponse, error) {
	unit, err := s.storage.GetFocusUnit(focusUnitID)
	if err != nil {
		return nil, fmt.Errorf("focus unit %s: %w", focusUnitID, err)
	}

	recordings, err := s.storage.ListRecordings()
	if err != nil {
		return nil, fmt.Errorf("listing recordings: %w", err)
	}
	sort.Slice(recordings, func(i, j int) bool { return recordings[i].BinFilename < recordings[j].BinFilename })

	matches, err := s.matchesFor(unit.BinFilename, unit.UnitID)
	if err != nil {
		return nil, err
	}
	matchedUnit := make(map[string]int, len(matches))
	for _, m := range matches {
		matchedUnit[m.BinFilename] = m.UnitID
	}

	resp := &models.SpikeTrainResponse{
		FocusUnitID: focusUnitID,
		Segments:    make([]models.SpikeTrainSegment, 0, len(recordings)),
	}
	offset := 0.0

	for _, rec := range recordings {
		segStart := offset
		segEnd := offset + rec.DurationSec

		isFocus := rec.BinFilename == unit.BinFilename
		unitID, hasMatch := matchedUnit[rec.BinFilename]
		if isFocus {
			unitID = unit.UnitID
		}

		if (isFocus || hasMatch) && rec.HasCoarseSorting {
			times, err := s.storage.SpikeTimesForUnit(rec.BinFilename, unitID)
			if err != nil {
				return nil, fmt.Errorf("spike times for %s unit %d: %w", rec.BinFilename, unitID, err)
			}
			globalTimes := make([]float64, len(times))
			for i, t := range times {
				globalTimes[i] = t + segStart
			}

			uid := unitID
			resp.Segments = append(resp.Segments, models.SpikeTrainSegment{
				BinFilename:     rec.BinFilename,
				UnitID:          &uid,
				StartTimeOffset: segStart,
				EndTimeOffset:   segEnd,
				NumSpikes:       len(globalTimes),
				SpikeTimes:      globalTimes,
				IsFocusUnit:     isFocus,
			})
			resp.TotalSpikes += len(globalTimes)
		} else {
			resp.Segments = append(resp.Segments, models.SpikeTrainSegment{
				BinFilename:     rec.BinFilename,
				StartTimeOffset: segStart,
				EndTimeOffset:   segEnd,
				SpikeTimes:      []float64{},
				IsGap:           true,
			})
		}

		offset = segEnd
	}

	resp.TotalDurationSec = offset
	return resp, nil
}

// flattenedTrain fetches the assembled spike train, checks its coverage
// invariant, and returns the flattened spike-time list with the total
// duration bound.
func (s *spikeService) flattenedTrain(ctx context.Context, focusUnitID string) ([]float64, float64, error) {
	train, err := s.GetSpikeTrain(ctx, focusUnitID)
	if err != nil {
		return nil, 0, err
	}

	spans := make([]analytics.SegmentSpan, len(train.Segments))
	for i, seg := range train.Segments {
		spans[i] = analytics.SegmentSpan{
			StartSec:   seg.StartTimeOffset,
			EndSec:     seg.EndTimeOffset,
			SpikeTimes: seg.SpikeTimes,
		}
	}

	if err := analytics.ValidateSegments(spans, train.TotalDurationSec); err != nil {
		return nil, 0, fmt.Errorf("spike train for %s: %w", focusUnitID, err)
	}

	return analytics.FlattenSpikeTimes(spans), train.TotalDurationSec, nil
}

// FiringRateSeries computes the fixed-bin spike-count series for one focus
// unit over its full assembled duration.
func (s *spikeService) FiringRateSeries(ctx context.Context, focusUnitID string, binSizeSec float64) ([]analytics.CountPoint, error) {
	times, duration, err := s.flattenedTrain(ctx, focusUnitID)
	if err != nil {
		return nil, err
	}

	series, err := analytics.ComputeCountSeries(times, duration, binSizeSec)
	if err != nil {
		return nil, fmt.Errorf("firing-rate series for %s: %w", focusUnitID, err)
	}

	s.log.Debugf("Firing-rate series for %s: %d bins, %d spikes", focusUnitID, len(series), len(times))
	return series, nil
}

// Autocorrelogram computes the symmetric pairwise-lag histogram for one
// focus unit's flattened spike train.
func (s *spikeService) Autocorrelogram(ctx context.Context, focusUnitID string, windowMs, binSizeMs float64) ([]analytics.LagPoint, error) {
	times, _, err := s.flattenedTrain(ctx, focusUnitID)
	if err != nil {
		return nil, err
	}

	bins, err := analytics.ComputeAutocorrelogram(times, windowMs, binSizeMs)
	if err != nil {
		return nil, fmt.Errorf("autocorrelogram for %s: %w", focusUnitID, err)
	}

	s.log.Debugf("Autocorrelogram for %s: %d bins over %g ms", focusUnitID, len(bins), windowMs)
	return bins, nil
}

// RegisterRecording stores or replaces one recording's metadata and its
// sorted spike events.
func (s *spikeService) RegisterRecording(ctx context.Context, info models.FileInfo, spikes []models.SpikeRecord) error {
	if info.BinFilename == "" {
		return fmt.Errorf("recording must have a bin_filename")
	}
	if info.DurationSec <= 0 {
		return fmt.Errorf("recording %s: duration must be positive", info.BinFilename)
	}

	if err := s.storage.UpsertRecording(info); err != nil {
		return fmt.Errorf("registering recording %s: %w", info.BinFilename, err)
	}
	if len(spikes) > 0 {
		if err := s.storage.StoreSpikes(info.BinFilename, spikes); err != nil {
			return fmt.Errorf("storing spikes for %s: %w", info.BinFilename, err)
		}
	}

	s.log.Infof("Registered recording %s (%.1f s, %d spikes)", info.BinFilename, info.DurationSec, len(spikes))
	return nil
}

func (s *spikeService) RegisterMatches(ctx context.Context, matches []models.MatchRecord) error {
	if err := s.storage.StoreMatches(matches); err != nil {
		return fmt.Errorf("storing matches: %w", err)
	}
	s.log.Infof("Registered %d mutual matches", len(matches))
	return nil
}

func (s *spikeService) Close() error {
	return s.storage.Close()
}
