// Package trainer implements the pieces shared by the imitation and
// policy gradient trainers: the single-run guard and the errors
// trainers report.
package trainer

import (
	"errors"
	"sync"
)

var (
	// ErrInsufficientData is returned when a dataset has too few
	// samples to train on
	ErrInsufficientData = errors.New("insufficient data")

	// ErrConcurrentTraining is returned when a training run is
	// requested while another is in progress
	ErrConcurrentTraining = errors.New("training already in progress")
)

// Guard allows a single training run at a time. Requests that overlap
// a run in progress fail immediately rather than waiting. The zero
// value is ready to use.
type Guard struct {
	mu sync.Mutex
}

// Acquire claims the Guard. It returns ErrConcurrentTraining if the
// Guard is already held.
func (g *Guard) Acquire() error {
	if !g.mu.TryLock() {
		return ErrConcurrentTraining
	}
	return nil
}

// Release releases a Guard claimed with Acquire
func (g *Guard) Release() {
	g.mu.Unlock()
}

// Busy returns whether a training run is in progress
func (g *Guard) Busy() bool {
	if g.mu.TryLock() {
		g.mu.Unlock()
		return false
	}
	return true
}

// Progress reports the outcome of one training pass or episode
type Progress struct {
	Index int // 1-based index of the pass or episode
	Total int

	Loss float64

	// Imitation only
	ValLoss float64

	// Policy gradient only
	Return float64
	Steps  int
}
