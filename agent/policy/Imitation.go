package policy

import (
	"fmt"

	"github.com/samuelfneumann/retrolearn/environment"
	"github.com/samuelfneumann/retrolearn/network"
	"github.com/samuelfneumann/retrolearn/timestep"
	"github.com/samuelfneumann/retrolearn/utils/floatutils"
)

// Smoothing factors applied to the imitation model's predictions
const (
	ImitationSmoothingX float64 = 0.25
	ImitationSmoothingY float64 = 0.22
)

// Imitation selects actions by predicting them with a behaviour-cloned
// network. Predictions are smoothed from the environment's current
// control and clipped. Without a model, actions come from the
// fallback Manual policy.
type Imitation struct {
	env      environment.Environment
	fallback *Manual
	model    *network.Predictor
}

// NewImitation returns a new Imitation policy without a model
func NewImitation(env environment.Environment, fallback *Manual) *Imitation {
	return &Imitation{env: env, fallback: fallback}
}

// SetModel sets the network used to predict actions. A nil network
// removes the model.
func (i *Imitation) SetModel(net network.NeuralNet) error {
	if i.model != nil {
		i.model.Close()
		i.model = nil
	}
	if net == nil {
		return nil
	}

	features := i.env.ObservationSpec().Len()
	if net.Features() != features || net.Outputs() != environment.ActionDims {
		return fmt.Errorf("setModel: network maps %d features to %d "+
			"outputs, want %d to %d", net.Features(), net.Outputs(), features,
			environment.ActionDims)
	}

	model, err := network.NewPredictor(net, 1)
	if err != nil {
		return fmt.Errorf("setModel: %w", err)
	}
	i.model = model
	return nil
}

// HasModel returns whether the policy has a model to predict with
func (i *Imitation) HasModel() bool {
	return i.model != nil
}

// SelectAction selects an action at the argument timestep
func (i *Imitation) SelectAction(t timestep.TimeStep) (environment.Action,
	error) {
	if i.model == nil {
		return i.fallback.SelectAction(t)
	}

	pred, err := i.model.Predict(t.Observation.RawVector().Data)
	if err != nil {
		return environment.Action{}, fmt.Errorf("selectAction: %w", err)
	}

	ctrl := i.env.Control()
	return environment.Action{
		floatutils.Lerp(ctrl[0], pred[0], ImitationSmoothingX),
		floatutils.Lerp(ctrl[1], pred[1], ImitationSmoothingY),
	}.Clip(), nil
}
