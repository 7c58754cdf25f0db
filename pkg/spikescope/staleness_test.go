package spikescope

import (
	"testing"

	"github.com/neuralview/spikescope/pkg/models"
)

func TestIsMismatched(t *testing.T) {
	unit := models.FocusUnit{FocusUnitID: "F001", BinFilename: "a.bin", UnitID: 3, SpikeLabelsHash: "h-a"}

	tests := []struct {
		name     string
		files    []models.FileInfo
		expected bool
	}{
		{
			name:     "recording present with coarse sorting",
			files:    []models.FileInfo{{BinFilename: "a.bin", HasCoarseSorting: true, SpikeLabelsHash: "h-a"}},
			expected: false,
		},
		{
			name:     "recording present without coarse sorting",
			files:    []models.FileInfo{{BinFilename: "a.bin", HasCoarseSorting: false}},
			expected: true,
		},
		{
			name:     "recording absent",
			files:    []models.FileInfo{{BinFilename: "b.bin", HasCoarseSorting: false}},
			expected: false,
		},
		{
			name:     "empty listing",
			files:    nil,
			expected: false,
		},
		{
			// The hash plays no role after registration; a changed hash
			// with sorting still present is not flagged.
			name:     "hash changed but sorting present",
			files:    []models.FileInfo{{BinFilename: "a.bin", HasCoarseSorting: true, SpikeLabelsHash: "h-new"}},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsMismatched(unit, tt.files); got != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}
