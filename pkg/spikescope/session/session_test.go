package session

import (
	"errors"
	"testing"

	"github.com/neuralview/spikescope/pkg/models"
)

func sampleTrain(totalSpikes int) *models.SpikeTrainResponse {
	return &models.SpikeTrainResponse{FocusUnitID: "F001", TotalSpikes: totalSpikes}
}

func TestExpandAndComplete(t *testing.T) {
	store := NewStore()

	state, _, _ := store.StateOf("F001")
	if state != Collapsed {
		t.Fatalf("Expected initial state collapsed, got %s", state)
	}

	gen, fetchNeeded := store.Expand("F001")
	if !fetchNeeded {
		t.Fatal("First expand must request a fetch")
	}
	state, _, _ = store.StateOf("F001")
	if state != Loading {
		t.Fatalf("Expected loading, got %s", state)
	}

	if !store.Complete("F001", gen, sampleTrain(5), nil) {
		t.Fatal("Completion with the current generation must apply")
	}
	state, data, _ := store.StateOf("F001")
	if state != Loaded {
		t.Fatalf("Expected loaded, got %s", state)
	}
	if data == nil || data.TotalSpikes != 5 {
		t.Error("Expected the fetched train to be stored")
	}
}

func TestExpandWhileLoadingDoesNotRefetch(t *testing.T) {
	store := NewStore()

	gen1, _ := store.Expand("F001")
	gen2, fetchNeeded := store.Expand("F001")
	if fetchNeeded {
		t.Error("Expand during loading must not start a second fetch")
	}
	if gen1 != gen2 {
		t.Errorf("Generation must be stable while loading: %d vs %d", gen1, gen2)
	}
}

func TestCollapseKeepsCache(t *testing.T) {
	store := NewStore()

	gen, _ := store.Expand("F001")
	store.Complete("F001", gen, sampleTrain(3), nil)

	store.Collapse("F001")
	state, _, _ := store.StateOf("F001")
	if state != Collapsed {
		t.Fatalf("Expected collapsed, got %s", state)
	}

	// Re-expand restores the cached result without another fetch.
	_, fetchNeeded := store.Expand("F001")
	if fetchNeeded {
		t.Error("Re-expand with a cached result must not refetch")
	}
	state, data, _ := store.StateOf("F001")
	if state != Loaded || data == nil || data.TotalSpikes != 3 {
		t.Errorf("Expected cached result restored, got state %s data %+v", state, data)
	}
}

func TestFailureAndReExpand(t *testing.T) {
	store := NewStore()

	gen, _ := store.Expand("F001")
	store.Complete("F001", gen, nil, errors.New("backend unavailable"))

	state, _, errMsg := store.StateOf("F001")
	if state != Failed {
		t.Fatalf("Expected failed, got %s", state)
	}
	if errMsg != "backend unavailable" {
		t.Errorf("Expected error message kept, got %q", errMsg)
	}

	// A cached failure is also restored on re-expand; only Refresh retries.
	store.Collapse("F001")
	_, fetchNeeded := store.Expand("F001")
	if fetchNeeded {
		t.Error("Re-expand after failure must not auto-retry")
	}
	state, _, _ = store.StateOf("F001")
	if state != Failed {
		t.Errorf("Expected failed restored, got %s", state)
	}
}

func TestRefreshDiscardsCacheAndRefetches(t *testing.T) {
	store := NewStore()

	gen, _ := store.Expand("F001")
	store.Complete("F001", gen, sampleTrain(3), nil)

	gen2 := store.Refresh("F001")
	if gen2 == gen {
		t.Error("Refresh must advance the generation")
	}
	state, data, _ := store.StateOf("F001")
	if state != Loading || data != nil {
		t.Errorf("Expected loading with cache cleared, got state %s data %+v", state, data)
	}

	store.Complete("F001", gen2, sampleTrain(9), nil)
	_, data, _ = store.StateOf("F001")
	if data == nil || data.TotalSpikes != 9 {
		t.Error("Expected refreshed result stored")
	}
}

func TestStaleCompletionDropped(t *testing.T) {
	store := NewStore()

	gen1, _ := store.Expand("F001")
	gen2 := store.Refresh("F001")

	// The abandoned first fetch lands after the refresh started; it must
	// not overwrite anything.
	if store.Complete("F001", gen1, sampleTrain(1), nil) {
		t.Error("Stale completion must be dropped")
	}
	state, data, _ := store.StateOf("F001")
	if state != Loading || data != nil {
		t.Errorf("Stale completion leaked: state %s data %+v", state, data)
	}

	if !store.Complete("F001", gen2, sampleTrain(2), nil) {
		t.Error("Current completion must apply")
	}
	_, data, _ = store.StateOf("F001")
	if data == nil || data.TotalSpikes != 2 {
		t.Error("Expected the current fetch's result")
	}
}

func TestForget(t *testing.T) {
	store := NewStore()

	gen, _ := store.Expand("F001")
	store.Complete("F001", gen, sampleTrain(4), nil)
	store.Forget("F001")

	state, data, _ := store.StateOf("F001")
	if state != Collapsed || data != nil {
		t.Errorf("Expected clean slate after forget, got state %s data %+v", state, data)
	}
}
