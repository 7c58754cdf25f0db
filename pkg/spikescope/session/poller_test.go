package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/neuralview/spikescope/pkg/models"
)

func TestPollerFirstFetchIsImmediate(t *testing.T) {
	updates := make(chan []models.FocusUnit, 1)

	poller := &Poller{
		Interval: time.Hour, // ticker never fires during the test
		Fetch: func(ctx context.Context) ([]models.FocusUnit, error) {
			return []models.FocusUnit{{FocusUnitID: "F001"}}, nil
		},
		OnUpdate: func(units []models.FocusUnit) {
			select {
			case updates <- units:
			default:
			}
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		poller.Run(ctx)
		close(done)
	}()

	select {
	case units := <-updates:
		if len(units) != 1 || units[0].FocusUnitID != "F001" {
			t.Errorf("Unexpected update payload: %+v", units)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("First poll did not happen immediately")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Poller did not stop on context cancellation")
	}
}

func TestPollerReportsErrors(t *testing.T) {
	errs := make(chan error, 1)

	poller := &Poller{
		Interval: time.Hour,
		Fetch: func(ctx context.Context) ([]models.FocusUnit, error) {
			return nil, errors.New("backend unavailable")
		},
		OnError: func(err error) {
			select {
			case errs <- err:
			default:
			}
		},
		OnUpdate: func(units []models.FocusUnit) {
			t.Error("OnUpdate must not fire for a failed fetch")
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go poller.Run(ctx)

	select {
	case err := <-errs:
		if err.Error() != "backend unavailable" {
			t.Errorf("Unexpected error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Fetch error was not reported")
	}
}
