// Package session tracks per-focus-unit detail view state. Each focus unit
// moves through collapsed -> loading -> loaded/failed; completed fetches are
// cached so a re-expand does not refetch, and every fetch carries a
// generation token so a slow response from an abandoned expand cycle can
// never overwrite a newer one.
package session

import (
	"sync"

	"github.com/neuralview/spikescope/pkg/models"
)

type State int

const (
	Collapsed State = iota
	Loading
	Loaded
	Failed
)

func (s State) String() string {
	switch s {
	case Collapsed:
		return "collapsed"
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// detail is the tracked state of one focus unit's expansion panel.
type detail struct {
	state      State
	data       *models.SpikeTrainResponse
	errMsg     string
	generation uint64
}

// Store holds the detail state of every focus unit, keyed by id. All methods
// are safe for concurrent use.
type Store struct {
	mu    sync.Mutex
	units map[string]*detail
}

func NewStore() *Store {
	return &Store{units: make(map[string]*detail)}
}

func (s *Store) get(focusUnitID string) *detail {
	d, ok := s.units[focusUnitID]
	if !ok {
		d = &detail{state: Collapsed}
		s.units[focusUnitID] = d
	}
	return d
}

// StateOf returns the current state plus any cached result or error message.
func (s *Store) StateOf(focusUnitID string) (State, *models.SpikeTrainResponse, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.get(focusUnitID)
	return d.state, d.data, d.errMsg
}

// Expand opens a focus unit's detail panel. If a previous fetch already
// completed, its cached outcome is restored and no fetch is needed.
// Otherwise the unit enters loading and the caller must perform the fetch,
// reporting back through Complete with the returned generation.
func (s *Store) Expand(focusUnitID string) (generation uint64, fetchNeeded bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := s.get(focusUnitID)
	switch {
	case d.state == Loading:
		return d.generation, false
	case d.data != nil:
		d.state = Loaded
		return d.generation, false
	case d.errMsg != "":
		d.state = Failed
		return d.generation, false
	default:
		d.generation++
		d.state = Loading
		return d.generation, true
	}
}

// Refresh discards the cached outcome and forces a new fetch.
func (s *Store) Refresh(focusUnitID string) (generation uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := s.get(focusUnitID)
	d.generation++
	d.state = Loading
	d.data = nil
	d.errMsg = ""
	return d.generation
}

// Collapse closes the panel without discarding the cached outcome.
func (s *Store) Collapse(focusUnitID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := s.get(focusUnitID)
	d.state = Collapsed
}

// Complete records the outcome of a fetch started by Expand or Refresh. A
// completion whose generation no longer matches is from an abandoned cycle
// and is dropped; the return value reports whether the result was applied.
func (s *Store) Complete(focusUnitID string, generation uint64, data *models.SpikeTrainResponse, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := s.get(focusUnitID)
	if generation != d.generation {
		return false
	}

	if err != nil {
		d.data = nil
		d.errMsg = err.Error()
		if d.state == Loading {
			d.state = Failed
		}
		return true
	}

	d.data = data
	d.errMsg = ""
	if d.state == Loading {
		d.state = Loaded
	}
	return true
}

// Forget drops all tracked state for a focus unit, e.g. after deletion.
func (s *Store) Forget(focusUnitID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.units, focusUnitID)
}
