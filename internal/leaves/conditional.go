package leaves

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/spn-ml/spn/internal/graph"
	"github.com/spn-ml/spn/internal/scope"
	"github.com/spn-ml/spn/internal/tensor"
)

// CondGaussian is a normal leaf whose parameters are derived at call time
// from the evidence columns of the data batch. It carries no parameter
// state of its own; resolution order is a context-supplied source first,
// then the source stored on the node.
type CondGaussian struct {
	sc     scope.Scope
	src    rand.Source
	source graph.ParamSource
}

// NewCondGaussian creates a conditional normal leaf for the query
// variable, conditioned on the evidence variables. source may be the zero
// value when every call supplies one through the context.
func NewCondGaussian(variable int, evidence []int, source graph.ParamSource, opts ...Option) (*CondGaussian, error) {
	sc, err := scope.New([]int{variable}, evidence)
	if err != nil {
		return nil, err
	}
	b := base{}
	for _, opt := range opts {
		opt(&b)
	}
	return &CondGaussian{sc: sc, src: b.src, source: source}, nil
}

// Children returns nil: leaves terminate the graph.
func (g *CondGaussian) Children() []graph.Node { return nil }

// NOut returns 1.
func (g *CondGaussian) NOut() int { return 1 }

// ScopesOut returns the single leaf scope.
func (g *CondGaussian) ScopesOut() []scope.Scope { return []scope.Scope{g.sc} }

// Scope returns the leaf scope, evidence included.
func (g *CondGaussian) Scope() scope.Scope { return g.sc }

// CheckSupport marks every finite entry of the query column as in
// support.
func (g *CondGaussian) CheckSupport(data *tensor.Dense) *tensor.Dense {
	return supportMask(data, g.sc.Query()[0], func(v float64) bool {
		return !math.IsInf(v, 0)
	})
}

// RetrieveParams resolves mu and sigma through the conditional priority
// chain: context-supplied source, then the stored source.
func (g *CondGaussian) RetrieveParams(data *tensor.Dense, ctx *graph.DispatchContext) (graph.Params, error) {
	p, err := graph.ResolveParams(g, g.source, data, ctx)
	if err != nil {
		return nil, err
	}
	if _, _, err := normalParams(p); err != nil {
		return nil, err
	}
	return p, nil
}

// Dist builds a normal distribution from resolved parameters.
func (g *CondGaussian) Dist(p graph.Params) (graph.Distribution, error) {
	mu, sigma, err := normalParams(p)
	if err != nil {
		return nil, err
	}
	return distuv.Normal{Mu: mu, Sigma: sigma, Src: g.src}, nil
}

// Params returns nil: the parameters only exist relative to a data batch.
func (g *CondGaussian) Params() graph.Params { return nil }

// SetParams rejects direct parameter assignment.
func (g *CondGaussian) SetParams(graph.Params) error {
	return fmt.Errorf("leaves: conditional gaussian has no stored parameters to set")
}

// Fit rejects unconditional estimation: the conditioning callback owns the
// parameters.
func (g *CondGaussian) Fit(*tensor.Dense) error {
	return fmt.Errorf("leaves: conditional gaussian is fitted through its parameter source, not from data moments")
}

// Clone returns an independent copy sharing the parameter source.
func (g *CondGaussian) Clone() graph.Leaf {
	c := *g
	return &c
}
