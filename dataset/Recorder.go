package dataset

import (
	"context"
	"fmt"

	"github.com/samuelfneumann/retrolearn/environment"
	"github.com/samuelfneumann/retrolearn/store"
)

// Default recording cadence
const (
	DefaultSampleEvery int = 2
	DefaultSaveEvery   int = 120
)

// Recorder appends demonstrations to a Store while recording and
// persists the Store after every SaveEvery appended samples
type Recorder struct {
	store *Store
	kv    store.KV

	sampleEvery int
	saveEvery   int
	pending     int
}

// NewRecorder returns a new Recorder which records on every sampleEvery
// frames and saves st to kv after every saveEvery recorded samples.
// Non-positive cadences are replaced by their defaults.
func NewRecorder(st *Store, kv store.KV, sampleEvery, saveEvery int) *Recorder {
	if sampleEvery <= 0 {
		sampleEvery = DefaultSampleEvery
	}
	if saveEvery <= 0 {
		saveEvery = DefaultSaveEvery
	}
	return &Recorder{
		store:       st,
		kv:          kv,
		sampleEvery: sampleEvery,
		saveEvery:   saveEvery,
	}
}

// Record records a demonstration for env if frame falls on the
// sampling cadence. It returns whether a sample was appended.
func (r *Recorder) Record(ctx context.Context, frame int, env string,
	x []float64, a environment.Action) (bool, error) {
	if frame%r.sampleEvery != 0 {
		return false, nil
	}

	r.store.Get(env).Append(x, a)
	r.pending++
	if r.pending >= r.saveEvery {
		if err := r.Flush(ctx); err != nil {
			return true, fmt.Errorf("record: %w", err)
		}
	}
	return true, nil
}

// Pending returns the number of samples recorded since the last save
func (r *Recorder) Pending() int {
	return r.pending
}

// Flush saves the Store immediately
func (r *Recorder) Flush(ctx context.Context) error {
	if err := r.store.Save(ctx, r.kv); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	r.pending = 0
	return nil
}
