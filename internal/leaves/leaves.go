// Package leaves implements the leaf-distribution collaborators consumed
// by the SPN engine.
//
// Every leaf is univariate, wraps a gonum distuv distribution, and
// implements the graph.Leaf interface: support checking, parameter
// retrieval (node state, context-supplied overrides, or a conditioning
// callback), distribution construction, closed-form maximum-likelihood
// fitting, and cloning.
package leaves

import (
	"math"

	"golang.org/x/exp/rand"

	"github.com/spn-ml/spn/internal/graph"
	"github.com/spn-ml/spn/internal/scope"
	"github.com/spn-ml/spn/internal/tensor"
)

// Option configures a leaf at construction.
type Option func(*base)

// WithSource sets the random source used by the leaf's distribution
// draws, for reproducible sampling.
func WithSource(src rand.Source) Option {
	return func(b *base) {
		b.src = src
	}
}

// base carries the state shared by every leaf kind.
type base struct {
	sc  scope.Scope
	src rand.Source
}

func newBase(variable int, opts []Option) base {
	b := base{sc: scope.Of(variable)}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

// Children returns nil: leaves terminate the graph.
func (b *base) Children() []graph.Node { return nil }

// NOut returns 1.
func (b *base) NOut() int { return 1 }

// ScopesOut returns the single leaf scope.
func (b *base) ScopesOut() []scope.Scope { return []scope.Scope{b.sc} }

// Scope returns the leaf scope.
func (b *base) Scope() scope.Scope { return b.sc }

// variable returns the data column this leaf models.
func (b *base) variable() int { return b.sc.Query()[0] }

// overrideParams applies the context args side-channel: an explicit value
// or callback supplied per call takes priority over node state.
func overrideParams(n graph.Node, data *tensor.Dense, ctx *graph.DispatchContext) (graph.Params, bool, error) {
	if ctx == nil {
		return nil, false, nil
	}
	src, ok := ctx.NodeParamSource(n)
	if !ok || src.IsZero() {
		return nil, false, nil
	}
	p, err := src.Resolve(data)
	return p, err == nil, err
}

// supportMask builds a rows×1 mask over the leaf's column where inSupport
// holds or the entry is missing.
func supportMask(data *tensor.Dense, col int, inSupport func(float64) bool) *tensor.Dense {
	mask := tensor.NewDense(data.Rows(), 1)
	for i := 0; i < data.Rows(); i++ {
		v := data.At(i, col)
		if tensor.IsMissing(v) || inSupport(v) {
			mask.Set(i, 0, 1)
		}
	}
	return mask
}

// observed collects the non-missing entries of the leaf's column.
func observed(data *tensor.Dense, col int) []float64 {
	var out []float64
	for i := 0; i < data.Rows(); i++ {
		if v := data.At(i, col); !tensor.IsMissing(v) {
			out = append(out, v)
		}
	}
	return out
}

func isInteger(v float64) bool {
	return v == math.Trunc(v)
}
