package leaves

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/spn-ml/spn/internal/graph"
	"github.com/spn-ml/spn/internal/tensor"
)

// Gamma is a univariate gamma leaf with shape alpha and rate beta.
type Gamma struct {
	base
	alpha float64
	beta  float64
}

// NewGamma creates a gamma leaf for the given variable. Both parameters
// must be positive.
func NewGamma(variable int, alpha, beta float64, opts ...Option) (*Gamma, error) {
	if err := validateGamma(alpha, beta); err != nil {
		return nil, err
	}
	return &Gamma{base: newBase(variable, opts), alpha: alpha, beta: beta}, nil
}

// CheckSupport marks strictly positive finite entries as in support.
func (g *Gamma) CheckSupport(data *tensor.Dense) *tensor.Dense {
	return supportMask(data, g.variable(), func(v float64) bool {
		return v > 0 && !math.IsInf(v, 0)
	})
}

// RetrieveParams yields the node parameters unless the context supplies an
// override.
func (g *Gamma) RetrieveParams(data *tensor.Dense, ctx *graph.DispatchContext) (graph.Params, error) {
	if p, ok, err := overrideParams(g, data, ctx); ok || err != nil {
		return p, err
	}
	return g.Params(), nil
}

// Dist builds a gamma distribution from resolved parameters.
func (g *Gamma) Dist(p graph.Params) (graph.Distribution, error) {
	alpha, beta, err := gammaParams(p)
	if err != nil {
		return nil, err
	}
	return distuv.Gamma{Alpha: alpha, Beta: beta, Src: g.src}, nil
}

// Params returns {"alpha", "beta"}.
func (g *Gamma) Params() graph.Params {
	return graph.Params{"alpha": g.alpha, "beta": g.beta}
}

// SetParams validates and stores new parameters.
func (g *Gamma) SetParams(p graph.Params) error {
	alpha, beta, err := gammaParams(p)
	if err != nil {
		return err
	}
	g.alpha, g.beta = alpha, beta
	return nil
}

// Fit estimates alpha and beta by matching the first two moments of the
// non-missing entries of the leaf's column.
func (g *Gamma) Fit(data *tensor.Dense) error {
	xs := observed(data, g.variable())
	if len(xs) == 0 {
		return fmt.Errorf("leaves: fit gamma over variable %d: no observed values", g.variable())
	}
	mean := stat.Mean(xs, nil)
	variance := stat.PopVariance(xs, nil)
	if mean <= 0 || variance <= 0 {
		return fmt.Errorf("leaves: fit gamma over variable %d: moments mean=%v var=%v outside support", g.variable(), mean, variance)
	}
	g.alpha = mean * mean / variance
	g.beta = mean / variance
	return nil
}

// Clone returns an independent copy.
func (g *Gamma) Clone() graph.Leaf {
	c := *g
	return &c
}

func gammaParams(p graph.Params) (alpha, beta float64, err error) {
	alpha, ok := p["alpha"]
	if !ok {
		return 0, 0, fmt.Errorf("leaves: gamma params missing %q", "alpha")
	}
	beta, ok = p["beta"]
	if !ok {
		return 0, 0, fmt.Errorf("leaves: gamma params missing %q", "beta")
	}
	if err := validateGamma(alpha, beta); err != nil {
		return 0, 0, err
	}
	return alpha, beta, nil
}

func validateGamma(alpha, beta float64) error {
	if alpha <= 0 || math.IsNaN(alpha) || math.IsInf(alpha, 0) {
		return fmt.Errorf("leaves: alpha %v is not positive and finite", alpha)
	}
	if beta <= 0 || math.IsNaN(beta) || math.IsInf(beta, 0) {
		return fmt.Errorf("leaves: beta %v is not positive and finite", beta)
	}
	return nil
}

// Uniform is a univariate continuous uniform leaf on [min, max].
type Uniform struct {
	base
	min float64
	max float64
}

// NewUniform creates a uniform leaf for the given variable. min must be
// strictly below max.
func NewUniform(variable int, min, max float64, opts ...Option) (*Uniform, error) {
	if err := validateUniform(min, max); err != nil {
		return nil, err
	}
	return &Uniform{base: newBase(variable, opts), min: min, max: max}, nil
}

// CheckSupport marks entries inside [min, max] as in support.
func (u *Uniform) CheckSupport(data *tensor.Dense) *tensor.Dense {
	return supportMask(data, u.variable(), func(v float64) bool {
		return v >= u.min && v <= u.max
	})
}

// RetrieveParams yields the node parameters unless the context supplies an
// override.
func (u *Uniform) RetrieveParams(data *tensor.Dense, ctx *graph.DispatchContext) (graph.Params, error) {
	if p, ok, err := overrideParams(u, data, ctx); ok || err != nil {
		return p, err
	}
	return u.Params(), nil
}

// Dist builds a uniform distribution from resolved parameters.
func (u *Uniform) Dist(p graph.Params) (graph.Distribution, error) {
	min, max, err := uniformParams(p)
	if err != nil {
		return nil, err
	}
	return distuv.Uniform{Min: min, Max: max, Src: u.src}, nil
}

// Params returns {"min", "max"}.
func (u *Uniform) Params() graph.Params {
	return graph.Params{"min": u.min, "max": u.max}
}

// SetParams validates and stores new parameters.
func (u *Uniform) SetParams(p graph.Params) error {
	min, max, err := uniformParams(p)
	if err != nil {
		return err
	}
	u.min, u.max = min, max
	return nil
}

// Fit sets the interval to the observed range of the leaf's column,
// widening degenerate ranges slightly.
func (u *Uniform) Fit(data *tensor.Dense) error {
	xs := observed(data, u.variable())
	if len(xs) == 0 {
		return fmt.Errorf("leaves: fit uniform over variable %d: no observed values", u.variable())
	}
	min, max := xs[0], xs[0]
	for _, v := range xs[1:] {
		min = math.Min(min, v)
		max = math.Max(max, v)
	}
	if min == max {
		min -= minSigma
		max += minSigma
	}
	u.min, u.max = min, max
	return nil
}

// Clone returns an independent copy.
func (u *Uniform) Clone() graph.Leaf {
	c := *u
	return &c
}

func uniformParams(p graph.Params) (min, max float64, err error) {
	min, ok := p["min"]
	if !ok {
		return 0, 0, fmt.Errorf("leaves: uniform params missing %q", "min")
	}
	max, ok = p["max"]
	if !ok {
		return 0, 0, fmt.Errorf("leaves: uniform params missing %q", "max")
	}
	if err := validateUniform(min, max); err != nil {
		return 0, 0, err
	}
	return min, max, nil
}

func validateUniform(min, max float64) error {
	if math.IsNaN(min) || math.IsNaN(max) || min >= max {
		return fmt.Errorf("leaves: uniform interval [%v, %v] is empty", min, max)
	}
	return nil
}
