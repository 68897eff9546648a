// Package initwfn wraps Gorgonia weight initializers so that they can
// be named in configuration files.
package initwfn

import (
	"fmt"
	"strings"

	G "gorgonia.org/gorgonia"
)

// Type describes different types of InitWFn that are available
type Type string

// Available InitWFn types
const (
	GlorotU  Type = "GlorotU"
	GlorotN  Type = "GlorotN"
	HeU      Type = "HeU"
	Zeroes   Type = "Zeroes"
	Constant Type = "Constant"
)

// types lists every available Type
var types = []Type{GlorotU, GlorotN, HeU, Zeroes, Constant}

// InitWFn wraps a Gorgonia InitWFn together with the Config that
// created it
type InitWFn struct {
	initWFn G.InitWFn
	Type
	Config
}

// newInitWFn returns a new InitWFn
func newInitWFn(c Config) *InitWFn {
	return &InitWFn{initWFn: c.Create(), Type: c.Type(), Config: c}
}

// InitWFn returns the wrapped Gorgonia InitWFn
func (i *InitWFn) InitWFn() G.InitWFn {
	return i.initWFn
}

func (i *InitWFn) String() string {
	return fmt.Sprintf("{%v InitWFn: %v}", i.Type, i.Config)
}

// Parse returns the InitWFn of the named type. For the Glorot and He
// initializers param is the gain, for Constant it is the value, and
// for Zeroes it is ignored. Names are matched case-insensitively.
func Parse(name string, param float64) (*InitWFn, error) {
	for _, t := range types {
		if !strings.EqualFold(string(t), name) {
			continue
		}
		switch t {
		case GlorotU:
			return NewGlorotU(param), nil
		case GlorotN:
			return NewGlorotN(param), nil
		case HeU:
			return NewHeU(param), nil
		case Zeroes:
			return NewZeroes(), nil
		case Constant:
			return NewConstant(param), nil
		}
	}
	return nil, fmt.Errorf("parse: unknown weight initializer %q", name)
}

// Config implements a Gorgonia InitWFn configuration and can be used to
// create the described Gorgonia InitWFn's.
type Config interface {
	// Create returns the Gorgonia InitWFn that the Config describes
	Create() G.InitWFn

	// Type returns the type of Gorgonia InitWFn that is returned
	Type() Type
}

// GlorotUConfig configures Glorot uniform initialization
type GlorotUConfig struct {
	Gain float64
}

// NewGlorotU returns a new Glorot uniform weight initializer
func NewGlorotU(gain float64) *InitWFn {
	return newInitWFn(GlorotUConfig{Gain: gain})
}

func (g GlorotUConfig) Type() Type        { return GlorotU }
func (g GlorotUConfig) Create() G.InitWFn { return G.GlorotU(g.Gain) }

// GlorotNConfig configures Glorot normal initialization
type GlorotNConfig struct {
	Gain float64
}

// NewGlorotN returns a new Glorot normal weight initializer
func NewGlorotN(gain float64) *InitWFn {
	return newInitWFn(GlorotNConfig{Gain: gain})
}

func (g GlorotNConfig) Type() Type        { return GlorotN }
func (g GlorotNConfig) Create() G.InitWFn { return G.GlorotN(g.Gain) }

// HeUConfig configures He uniform initialization
type HeUConfig struct {
	Gain float64
}

// NewHeU returns a new He uniform weight initializer
func NewHeU(gain float64) *InitWFn {
	return newInitWFn(HeUConfig{Gain: gain})
}

func (h HeUConfig) Type() Type        { return HeU }
func (h HeUConfig) Create() G.InitWFn { return G.HeU(h.Gain) }

// ZeroesConfig configures an initializer setting all weights to 0
type ZeroesConfig struct{}

// NewZeroes returns a new zeroes weight initializer
func NewZeroes() *InitWFn {
	return newInitWFn(ZeroesConfig{})
}

func (z ZeroesConfig) Type() Type        { return Zeroes }
func (z ZeroesConfig) Create() G.InitWFn { return G.Zeroes() }

// ConstantConfig configures an initializer setting all weights to a
// constant value
type ConstantConfig struct {
	Value float64
}

// NewConstant returns a new constant weight initializer
func NewConstant(value float64) *InitWFn {
	return newInitWFn(ConstantConfig{Value: value})
}

func (c ConstantConfig) Type() Type        { return Constant }
func (c ConstantConfig) Create() G.InitWFn { return G.ValuesOf(c.Value) }
