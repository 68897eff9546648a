package dataset

import (
	"errors"
	"fmt"

	"github.com/samuelfneumann/retrolearn/environment"
	"github.com/samuelfneumann/retrolearn/utils/floatutils"
)

// ErrMalformed is returned when a serialized dataset cannot be turned
// back into samples
var ErrMalformed = errors.New("malformed dataset")

// Payload is the serialized layout of a dataset: parallel lists of
// feature vectors and actions
type Payload struct {
	X [][]float64 `json:"X"`
	Y [][]float64 `json:"Y"`
}

// NewPayload returns the Payload of samples
func NewPayload(samples []Sample) Payload {
	p := Payload{
		X: make([][]float64, len(samples)),
		Y: make([][]float64, len(samples)),
	}
	for i, s := range samples {
		p.X[i] = s.X
		p.Y[i] = s.Y.Slice()
	}
	return p
}

// Len returns the number of samples in the Payload
func (p Payload) Len() int {
	return len(p.X)
}

// Samples returns the samples of the Payload. Every feature vector must
// have length features, and every action must have
// environment.ActionDims finite components. If features <= 0 then only
// consistency between feature vectors is checked.
func (p Payload) Samples(features int) ([]Sample, error) {
	if len(p.X) != len(p.Y) {
		return nil, fmt.Errorf("samples: %w: %d feature vectors but %d "+
			"actions", ErrMalformed, len(p.X), len(p.Y))
	}
	if features <= 0 && len(p.X) > 0 {
		features = len(p.X[0])
	}

	samples := make([]Sample, len(p.X))
	for i := range p.X {
		if len(p.X[i]) != features || !floatutils.AllFinite(p.X[i]) {
			return nil, fmt.Errorf("samples: %w: feature vector %d has "+
				"length %d, want %d finite values", ErrMalformed, i,
				len(p.X[i]), features)
		}
		y := p.Y[i]
		if len(y) != environment.ActionDims || !floatutils.AllFinite(y) {
			return nil, fmt.Errorf("samples: %w: action %d is %v",
				ErrMalformed, i, y)
		}
		samples[i] = Sample{X: p.X[i], Y: environment.Action{y[0], y[1]}}
	}
	return samples, nil
}
