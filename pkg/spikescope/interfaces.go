package spikescope

import (
	"context"

	"github.com/neuralview/spikescope/pkg/models"
	"github.com/neuralview/spikescope/pkg/spikescope/analytics"
)

type Service interface {
	ListFocusUnits(ctx context.Context) ([]models.FocusUnit, error)
	AddFocusUnits(ctx context.Context, units []models.NewFocusUnitRequest) ([]models.FocusUnit, error)
	UpdateFocusUnitNotes(ctx context.Context, focusUnitID, notes string) (*models.FocusUnit, error)
	DeleteFocusUnit(ctx context.Context, focusUnitID string) error

	ListFiles(ctx context.Context) ([]models.FileInfo, error)
	ListCoarseSortingUnits(ctx context.Context, binFilename string) ([]models.UnitCount, string, error)

	GetSpikeTrain(ctx context.Context, focusUnitID string) (*models.SpikeTrainResponse, error)
	FiringRateSeries(ctx context.Context, focusUnitID string, binSizeSec float64) ([]analytics.CountPoint, error)
	Autocorrelogram(ctx context.Context, focusUnitID string, windowMs, binSizeMs float64) ([]analytics.LagPoint, error)

	RegisterRecording(ctx context.Context, info models.FileInfo, spikes []models.SpikeRecord) error
	RegisterMatches(ctx context.Context, matches []models.MatchRecord) error

	Close() error
}

type Storage interface {
	ListRecordings() ([]models.FileInfo, error)
	GetRecording(binFilename string) (*models.FileInfo, error)
	UpsertRecording(info models.FileInfo) error
	StoreSpikes(binFilename string, spikes []models.SpikeRecord) error
	SpikeTimesForUnit(binFilename string, unitID int) ([]float64, error)
	UnitCounts(binFilename string) ([]models.UnitCount, error)

	ListFocusUnits() ([]models.FocusUnit, error)
	GetFocusUnit(focusUnitID string) (*models.FocusUnit, error)
	CreateFocusUnit(unit models.FocusUnit) error
	UpdateFocusUnitNotes(focusUnitID, notes string) error
	DeleteFocusUnit(focusUnitID string) error

	StoreMatches(matches []models.MatchRecord) error
	MatchesForUnit(binFilename string, unitID int) ([]models.MatchRecord, error)

	Close() error
}

type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Debugf(format string, args ...any)
}
