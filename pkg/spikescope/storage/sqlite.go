package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/neuralview/spikescope/pkg/models"
)

const DefaultDBFile = "spikescope.sqlite3"
const errDBClientNil = "db client is nil"

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("record not found")

type DBClient struct {
	DB *gorm.DB
	db *sql.DB
}

type Recording struct {
	BinFilename      string  `gorm:"primaryKey;type:varchar(255)" json:"bin_filename"`
	DurationSec      float64 `json:"duration_sec"`
	HasCoarseSorting bool    `json:"has_coarse_sorting"`
	SpikeLabelsHash  string  `gorm:"type:varchar(64)" json:"spike_labels_hash"`
	CreatedAt        time.Time
}

type FocusUnit struct {
	FocusUnitID     string `gorm:"primaryKey;type:varchar(16)" json:"focus_unit_id"`
	BinFilename     string `gorm:"index:idx_focus_recording" json:"bin_filename"`
	UnitID          int    `json:"unit_id"`
	Notes           string `json:"notes"`
	SpikeLabelsHash string `gorm:"type:varchar(64)" json:"spike_labels_hash"`
	CreatedAt       time.Time
}

type MutualMatch struct {
	ID           uint    `gorm:"primaryKey;autoIncrement"`
	BinFilenameX string  `gorm:"index:idx_match_x,priority:1" json:"bin_filename_x"`
	UnitX        int     `gorm:"index:idx_match_x,priority:2" json:"unit_x"`
	BinFilenameY string  `gorm:"index:idx_match_y,priority:1" json:"bin_filename_y"`
	UnitY        int     `gorm:"index:idx_match_y,priority:2" json:"unit_y"`
	ScoreXToY    float64 `json:"score_x_to_y"`
	ScoreYToX    float64 `json:"score_y_to_x"`
	OverallScore float64 `json:"overall_score"`
}

type SpikeEvent struct {
	ID          uint    `gorm:"primaryKey;autoIncrement"`
	BinFilename string  `gorm:"index:idx_spike_unit,priority:1" json:"bin_filename"`
	UnitID      int     `gorm:"index:idx_spike_unit,priority:2" json:"unit_id"`
	TimeSec     float64 `json:"time_sec"`
}

func NewDBClient() (*DBClient, error) {
	dbPath := os.Getenv("SPIKESCOPE_DB_PATH")
	if dbPath == "" {
		dbPath = DefaultDBFile
	}
	return NewDBClientWithPath(dbPath)
}

func NewDBClientWithPath(dbPath string) (*DBClient, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil && !os.IsExist(err) {
		if filepath.Dir(dbPath) != "." {
			return nil, fmt.Errorf("creating db dir: %w", err)
		}
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	db, err := gorm.Open(sqlite.Open(dbPath+"?_foreign_keys=on"), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB from gorm: %w", err)
	}

	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&Recording{}, &FocusUnit{}, &MutualMatch{}, &SpikeEvent{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	return &DBClient{DB: db, db: sqlDB}, nil
}

func (c *DBClient) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

func (c *DBClient) ListRecordings() ([]models.FileInfo, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}
	var rows []Recording
	if err := c.DB.Order("bin_filename").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("querying recordings: %w", err)
	}
	out := make([]models.FileInfo, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.FileInfo{
			BinFilename:      r.BinFilename,
			DurationSec:      r.DurationSec,
			HasCoarseSorting: r.HasCoarseSorting,
			SpikeLabelsHash:  r.SpikeLabelsHash,
		})
	}
	return out, nil
}

func (c *DBClient) GetRecording(binFilename string) (*models.FileInfo, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}
	var row Recording
	err := c.DB.Where("bin_filename = ?", binFilename).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying recording: %w", err)
	}
	return &models.FileInfo{
		BinFilename:      row.BinFilename,
		DurationSec:      row.DurationSec,
		HasCoarseSorting: row.HasCoarseSorting,
		SpikeLabelsHash:  row.SpikeLabelsHash,
	}, nil
}

func (c *DBClient) UpsertRecording(info models.FileInfo) error {
	if c == nil || c.DB == nil {
		return errors.New(errDBClientNil)
	}

	var existing Recording
	err := c.DB.Where("bin_filename = ?", info.BinFilename).First(&existing).Error
	if err == nil {
		updates := map[string]any{
			"duration_sec":       info.DurationSec,
			"has_coarse_sorting": info.HasCoarseSorting,
			"spike_labels_hash":  info.SpikeLabelsHash,
		}
		if err := c.DB.Model(&existing).Updates(updates).Error; err != nil {
			return fmt.Errorf("updating recording: %w", err)
		}
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("querying existing recording: %w", err)
	}

	row := Recording{
		BinFilename:      info.BinFilename,
		DurationSec:      info.DurationSec,
		HasCoarseSorting: info.HasCoarseSorting,
		SpikeLabelsHash:  info.SpikeLabelsHash,
	}
	if err := c.DB.Create(&row).Error; err != nil {
		return fmt.Errorf("creating recording: %w", err)
	}
	return nil
}

// StoreSpikes replaces the sorted spike events of one recording. Events are
// inserted in batches, flushing every 1000 rows.
func (c *DBClient) StoreSpikes(binFilename string, spikes []models.SpikeRecord) error {
	if c == nil || c.DB == nil {
		return errors.New(errDBClientNil)
	}

	return c.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("bin_filename = ?", binFilename).Delete(&SpikeEvent{}).Error; err != nil {
			return fmt.Errorf("clearing old spikes: %w", err)
		}

		entries := make([]SpikeEvent, 0, 1024)
		for _, sp := range spikes {
			entries = append(entries, SpikeEvent{
				BinFilename: binFilename,
				UnitID:      sp.UnitID,
				TimeSec:     sp.TimeSec,
			})
			if len(entries) >= 1000 {
				if err := tx.CreateInBatches(entries, 500).Error; err != nil {
					return fmt.Errorf("batch insert spikes: %w", err)
				}
				entries = entries[:0]
			}
		}
		if len(entries) > 0 {
			if err := tx.CreateInBatches(entries, 500).Error; err != nil {
				return fmt.Errorf("batch insert last spikes: %w", err)
			}
		}
		return nil
	})
}

func (c *DBClient) SpikeTimesForUnit(binFilename string, unitID int) ([]float64, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}
	var times []float64
	err := c.DB.Model(&SpikeEvent{}).
		Where("bin_filename = ? AND unit_id = ?", binFilename, unitID).
		Order("time_sec").
		Pluck("time_sec", &times).Error
	if err != nil {
		return nil, fmt.Errorf("querying spike times: %w", err)
	}
	return times, nil
}

func (c *DBClient) UnitCounts(binFilename string) ([]models.UnitCount, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}
	var counts []models.UnitCount
	err := c.DB.Model(&SpikeEvent{}).
		Select("unit_id, count(*) as num_spikes").
		Where("bin_filename = ?", binFilename).
		Group("unit_id").
		Order("unit_id").
		Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("counting units: %w", err)
	}
	return counts, nil
}

func (c *DBClient) ListFocusUnits() ([]models.FocusUnit, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}
	var rows []FocusUnit
	if err := c.DB.Order("focus_unit_id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("querying focus units: %w", err)
	}
	out := make([]models.FocusUnit, 0, len(rows))
	for _, r := range rows {
		out = append(out, focusUnitToModel(r))
	}
	return out, nil
}

func (c *DBClient) GetFocusUnit(focusUnitID string) (*models.FocusUnit, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}
	var row FocusUnit
	err := c.DB.Where("focus_unit_id = ?", focusUnitID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying focus unit: %w", err)
	}
	unit := focusUnitToModel(row)
	return &unit, nil
}

func (c *DBClient) CreateFocusUnit(unit models.FocusUnit) error {
	if c == nil || c.DB == nil {
		return errors.New(errDBClientNil)
	}
	row := FocusUnit{
		FocusUnitID:     unit.FocusUnitID,
		BinFilename:     unit.BinFilename,
		UnitID:          unit.UnitID,
		Notes:           unit.Notes,
		SpikeLabelsHash: unit.SpikeLabelsHash,
	}
	if err := c.DB.Create(&row).Error; err != nil {
		return fmt.Errorf("creating focus unit: %w", err)
	}
	return nil
}

func (c *DBClient) UpdateFocusUnitNotes(focusUnitID, notes string) error {
	if c == nil || c.DB == nil {
		return errors.New(errDBClientNil)
	}
	res := c.DB.Model(&FocusUnit{}).Where("focus_unit_id = ?", focusUnitID).Update("notes", notes)
	if res.Error != nil {
		return fmt.Errorf("updating notes: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (c *DBClient) DeleteFocusUnit(focusUnitID string) error {
	if c == nil || c.DB == nil {
		return errors.New(errDBClientNil)
	}
	res := c.DB.Where("focus_unit_id = ?", focusUnitID).Delete(&FocusUnit{})
	if res.Error != nil {
		return fmt.Errorf("deleting focus unit: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (c *DBClient) StoreMatches(matches []models.MatchRecord) error {
	if c == nil || c.DB == nil {
		return errors.New(errDBClientNil)
	}
	if len(matches) == 0 {
		return nil
	}
	rows := make([]MutualMatch, 0, len(matches))
	for _, m := range matches {
		rows = append(rows, MutualMatch{
			BinFilenameX: m.BinFilenameX,
			UnitX:        m.UnitX,
			BinFilenameY: m.BinFilenameY,
			UnitY:        m.UnitY,
			ScoreXToY:    m.ScoreXToY,
			ScoreYToX:    m.ScoreYToX,
			OverallScore: m.OverallScore,
		})
	}
	if err := c.DB.CreateInBatches(rows, 500).Error; err != nil {
		return fmt.Errorf("batch insert matches: %w", err)
	}
	return nil
}

// MatchesForUnit returns every match record mentioning the given unit on
// either side of the pair.
func (c *DBClient) MatchesForUnit(binFilename string, unitID int) ([]models.MatchRecord, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}
	var rows []MutualMatch
	err := c.DB.Where(
		"(bin_filename_x = ? AND unit_x = ?) OR (bin_filename_y = ? AND unit_y = ?)",
		binFilename, unitID, binFilename, unitID,
	).Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("querying matches: %w", err)
	}
	out := make([]models.MatchRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.MatchRecord{
			BinFilenameX: r.BinFilenameX,
			UnitX:        r.UnitX,
			BinFilenameY: r.BinFilenameY,
			UnitY:        r.UnitY,
			ScoreXToY:    r.ScoreXToY,
			ScoreYToX:    r.ScoreYToX,
			OverallScore: r.OverallScore,
		})
	}
	return out, nil
}

func focusUnitToModel(r FocusUnit) models.FocusUnit {
	return models.FocusUnit{
		FocusUnitID:     r.FocusUnitID,
		BinFilename:     r.BinFilename,
		UnitID:          r.UnitID,
		Notes:           r.Notes,
		SpikeLabelsHash: r.SpikeLabelsHash,
		MutualMatches:   []models.MutualMatch{},
	}
}
