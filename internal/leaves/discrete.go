package leaves

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/spn-ml/spn/internal/graph"
	"github.com/spn-ml/spn/internal/tensor"
)

// minProb keeps fitted success probabilities away from the boundary so a
// constant column never produces a log-likelihood of -Inf for the other
// outcome.
const minProb = 1e-6

// Bernoulli is a univariate leaf over {0, 1}.
type Bernoulli struct {
	base
	p float64
}

// NewBernoulli creates a Bernoulli leaf for the given variable. p must lie
// in (0, 1).
func NewBernoulli(variable int, p float64, opts ...Option) (*Bernoulli, error) {
	if err := validateProb(p); err != nil {
		return nil, err
	}
	return &Bernoulli{base: newBase(variable, opts), p: p}, nil
}

// CheckSupport marks entries equal to 0 or 1 as in support.
func (b *Bernoulli) CheckSupport(data *tensor.Dense) *tensor.Dense {
	return supportMask(data, b.variable(), func(v float64) bool {
		return v == 0 || v == 1
	})
}

// RetrieveParams yields the node parameters unless the context supplies an
// override.
func (b *Bernoulli) RetrieveParams(data *tensor.Dense, ctx *graph.DispatchContext) (graph.Params, error) {
	if p, ok, err := overrideParams(b, data, ctx); ok || err != nil {
		return p, err
	}
	return b.Params(), nil
}

// Dist builds a Bernoulli distribution from resolved parameters.
func (b *Bernoulli) Dist(p graph.Params) (graph.Distribution, error) {
	prob, ok := p["p"]
	if !ok {
		return nil, fmt.Errorf("leaves: bernoulli params missing %q", "p")
	}
	if err := validateProb(prob); err != nil {
		return nil, err
	}
	return distuv.Bernoulli{P: prob, Src: b.src}, nil
}

// Params returns {"p"}.
func (b *Bernoulli) Params() graph.Params {
	return graph.Params{"p": b.p}
}

// SetParams validates and stores new parameters.
func (b *Bernoulli) SetParams(p graph.Params) error {
	prob, ok := p["p"]
	if !ok {
		return fmt.Errorf("leaves: bernoulli params missing %q", "p")
	}
	if err := validateProb(prob); err != nil {
		return err
	}
	b.p = prob
	return nil
}

// Fit sets p to the observed success frequency, clamped away from the
// boundary.
func (b *Bernoulli) Fit(data *tensor.Dense) error {
	xs := observed(data, b.variable())
	if len(xs) == 0 {
		return fmt.Errorf("leaves: fit bernoulli over variable %d: no observed values", b.variable())
	}
	b.p = clampProb(stat.Mean(xs, nil))
	return nil
}

// Clone returns an independent copy.
func (b *Bernoulli) Clone() graph.Leaf {
	c := *b
	return &c
}

// Binomial is a univariate leaf counting successes in a fixed number of
// trials.
type Binomial struct {
	base
	n float64
	p float64
}

// NewBinomial creates a binomial leaf for the given variable. trials must
// be a positive integer and p must lie in (0, 1).
func NewBinomial(variable int, trials int, p float64, opts ...Option) (*Binomial, error) {
	if trials < 1 {
		return nil, fmt.Errorf("leaves: binomial needs at least one trial, got %d", trials)
	}
	if err := validateProb(p); err != nil {
		return nil, err
	}
	return &Binomial{base: newBase(variable, opts), n: float64(trials), p: p}, nil
}

// CheckSupport marks integer entries in [0, n] as in support.
func (b *Binomial) CheckSupport(data *tensor.Dense) *tensor.Dense {
	return supportMask(data, b.variable(), func(v float64) bool {
		return isInteger(v) && v >= 0 && v <= b.n
	})
}

// RetrieveParams yields the node parameters unless the context supplies an
// override.
func (b *Binomial) RetrieveParams(data *tensor.Dense, ctx *graph.DispatchContext) (graph.Params, error) {
	if p, ok, err := overrideParams(b, data, ctx); ok || err != nil {
		return p, err
	}
	return b.Params(), nil
}

// Dist builds a binomial distribution from resolved parameters.
func (b *Binomial) Dist(p graph.Params) (graph.Distribution, error) {
	n, prob, err := binomialParams(p)
	if err != nil {
		return nil, err
	}
	return distuv.Binomial{N: n, P: prob, Src: b.src}, nil
}

// Params returns {"n", "p"}.
func (b *Binomial) Params() graph.Params {
	return graph.Params{"n": b.n, "p": b.p}
}

// SetParams validates and stores new parameters.
func (b *Binomial) SetParams(p graph.Params) error {
	n, prob, err := binomialParams(p)
	if err != nil {
		return err
	}
	b.n, b.p = n, prob
	return nil
}

// Fit sets p to the observed mean success rate over the fixed trial
// count, clamped away from the boundary. The trial count is structural
// and never re-estimated.
func (b *Binomial) Fit(data *tensor.Dense) error {
	xs := observed(data, b.variable())
	if len(xs) == 0 {
		return fmt.Errorf("leaves: fit binomial over variable %d: no observed values", b.variable())
	}
	b.p = clampProb(stat.Mean(xs, nil) / b.n)
	return nil
}

// Clone returns an independent copy.
func (b *Binomial) Clone() graph.Leaf {
	c := *b
	return &c
}

func binomialParams(p graph.Params) (n, prob float64, err error) {
	n, ok := p["n"]
	if !ok {
		return 0, 0, fmt.Errorf("leaves: binomial params missing %q", "n")
	}
	if n < 1 || !isInteger(n) {
		return 0, 0, fmt.Errorf("leaves: binomial trial count %v is not a positive integer", n)
	}
	prob, ok = p["p"]
	if !ok {
		return 0, 0, fmt.Errorf("leaves: binomial params missing %q", "p")
	}
	if err := validateProb(prob); err != nil {
		return 0, 0, err
	}
	return n, prob, nil
}

func validateProb(p float64) error {
	if math.IsNaN(p) || p <= 0 || p >= 1 {
		return fmt.Errorf("leaves: probability %v outside (0, 1)", p)
	}
	return nil
}

func clampProb(p float64) float64 {
	return math.Min(math.Max(p, minProb), 1-minProb)
}
