package spikescope

import "github.com/neuralview/spikescope/pkg/models"

// IsMismatched reports whether a focus unit's source recording has been
// re-sorted since the unit was registered. It is a presence heuristic: true
// iff the recording is present in the current file listing and no longer
// reports coarse sorting. The stored spike-labels hash is never recomputed
// or compared. An absent recording yields false.
func IsMismatched(unit models.FocusUnit, files []models.FileInfo) bool {
	for _, f := range files {
		if f.BinFilename == unit.BinFilename {
			return !f.HasCoarseSorting
		}
	}
	return false
}
