// Package dataset implements capacity-bounded demonstration datasets.
// A demonstration pairs the features of an environment with the action
// a human took when observing them. Datasets evict their oldest samples
// first once full.
package dataset

import (
	"fmt"
	"sync"

	"github.com/samuelfneumann/retrolearn/environment"
	"github.com/samuelfneumann/retrolearn/utils/intutils"
)

// DefaultCap is the default maximum number of samples in a Dataset
const DefaultCap int = 25000

// Sample is a single demonstration: features and the action taken
type Sample struct {
	X []float64
	Y environment.Action
}

// Dataset is an ordered, capacity-bounded sequence of samples. After any
// insertion the Dataset holds the most recent min(total, Cap()) samples.
type Dataset struct {
	mu       sync.Mutex
	samples  []Sample
	capacity int
}

// New returns a new, empty Dataset holding at most capacity samples
func New(capacity int) *Dataset {
	if capacity <= 0 {
		panic(fmt.Sprintf("new: capacity must be positive, have %d",
			capacity))
	}
	return &Dataset{capacity: capacity}
}

// Cap returns the maximum number of samples in the Dataset
func (d *Dataset) Cap() int {
	return d.capacity
}

// Len returns the number of samples in the Dataset
func (d *Dataset) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return len(d.samples)
}

// Append appends a copy of the features and the clipped action
func (d *Dataset) Append(x []float64, a environment.Action) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.samples = append(d.samples, Sample{
		X: append([]float64(nil), x...),
		Y: a.Clip(),
	})
	d.evict()
}

// AppendSamples appends copies of samples in order
func (d *Dataset) AppendSamples(samples []Sample) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, s := range samples {
		d.samples = append(d.samples, Sample{
			X: append([]float64(nil), s.X...),
			Y: s.Y.Clip(),
		})
	}
	d.evict()
}

// evict drops the oldest samples above capacity
func (d *Dataset) evict() {
	excess := len(d.samples) - d.capacity
	if excess <= 0 {
		return
	}
	n := copy(d.samples, d.samples[excess:])
	for i := n; i < len(d.samples); i++ {
		d.samples[i] = Sample{}
	}
	d.samples = d.samples[:n]
}

// Samples returns a copy of the samples, oldest first. Feature slices
// are shared with the Dataset and must not be modified.
func (d *Dataset) Samples() []Sample {
	d.mu.Lock()
	defer d.mu.Unlock()

	return append([]Sample(nil), d.samples...)
}

// Tail returns the most recent n samples, oldest first
func (d *Dataset) Tail(n int) []Sample {
	d.mu.Lock()
	defer d.mu.Unlock()

	n = intutils.Min(n, len(d.samples))
	if n <= 0 {
		return nil
	}
	return append([]Sample(nil), d.samples[len(d.samples)-n:]...)
}

// Clear removes all samples
func (d *Dataset) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.samples = nil
}

// Payload returns the Dataset in its serialized layout
func (d *Dataset) Payload() Payload {
	return NewPayload(d.Samples())
}
