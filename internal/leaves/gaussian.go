package leaves

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/spn-ml/spn/internal/graph"
	"github.com/spn-ml/spn/internal/tensor"
)

// minSigma floors fitted standard deviations so a degenerate column never
// produces a zero-variance distribution.
const minSigma = 1e-6

// Gaussian is a univariate normal leaf over one data column.
type Gaussian struct {
	base
	mu    float64
	sigma float64
}

// NewGaussian creates a normal leaf for the given variable. sigma must be
// positive.
func NewGaussian(variable int, mu, sigma float64, opts ...Option) (*Gaussian, error) {
	if err := validateSigma(sigma); err != nil {
		return nil, err
	}
	return &Gaussian{base: newBase(variable, opts), mu: mu, sigma: sigma}, nil
}

// CheckSupport marks every finite entry of the leaf's column as in
// support.
func (g *Gaussian) CheckSupport(data *tensor.Dense) *tensor.Dense {
	return supportMask(data, g.variable(), func(v float64) bool {
		return !math.IsInf(v, 0)
	})
}

// RetrieveParams yields the node parameters unless the context supplies an
// override.
func (g *Gaussian) RetrieveParams(data *tensor.Dense, ctx *graph.DispatchContext) (graph.Params, error) {
	if p, ok, err := overrideParams(g, data, ctx); ok || err != nil {
		return p, err
	}
	return g.Params(), nil
}

// Dist builds a normal distribution from resolved parameters.
func (g *Gaussian) Dist(p graph.Params) (graph.Distribution, error) {
	mu, sigma, err := normalParams(p)
	if err != nil {
		return nil, err
	}
	return distuv.Normal{Mu: mu, Sigma: sigma, Src: g.src}, nil
}

// Params returns {"mu", "sigma"}.
func (g *Gaussian) Params() graph.Params {
	return graph.Params{"mu": g.mu, "sigma": g.sigma}
}

// SetParams validates and stores new parameters.
func (g *Gaussian) SetParams(p graph.Params) error {
	mu, sigma, err := normalParams(p)
	if err != nil {
		return err
	}
	g.mu, g.sigma = mu, sigma
	return nil
}

// Fit sets mu and sigma to the maximum-likelihood estimates over the
// non-missing entries of the leaf's column.
func (g *Gaussian) Fit(data *tensor.Dense) error {
	xs := observed(data, g.variable())
	if len(xs) == 0 {
		return fmt.Errorf("leaves: fit gaussian over variable %d: no observed values", g.variable())
	}
	g.mu = stat.Mean(xs, nil)
	g.sigma = math.Max(stat.PopStdDev(xs, nil), minSigma)
	return nil
}

// Clone returns an independent copy.
func (g *Gaussian) Clone() graph.Leaf {
	c := *g
	return &c
}

func normalParams(p graph.Params) (mu, sigma float64, err error) {
	mu, ok := p["mu"]
	if !ok {
		return 0, 0, fmt.Errorf("leaves: gaussian params missing %q", "mu")
	}
	sigma, ok = p["sigma"]
	if !ok {
		return 0, 0, fmt.Errorf("leaves: gaussian params missing %q", "sigma")
	}
	if err := validateSigma(sigma); err != nil {
		return 0, 0, err
	}
	return mu, sigma, nil
}

func validateSigma(sigma float64) error {
	if sigma <= 0 || math.IsNaN(sigma) || math.IsInf(sigma, 0) {
		return fmt.Errorf("leaves: sigma %v is not positive and finite", sigma)
	}
	return nil
}
