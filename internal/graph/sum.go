package graph

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"

	"github.com/spn-ml/spn/internal/scope"
)

// WeightTolerance is the floating tolerance used when validating that a
// weight vector sums to one.
const WeightTolerance = 1e-6

// Sum is a mixture node: a weighted sum over its children's outputs.
//
// All child outputs must share the same query set. Weights are positive
// and sum to one; internally they are stored as normalized log-weights,
// an unconstrained parameterization projected onto the probability
// simplex by exponentiation, so learning updates never need to reject or
// re-normalize infeasible values.
type Sum struct {
	children []Node
	logW     []float64
	sc       scope.Scope
}

// NewSum creates a Sum node over children.
//
// weights must have one entry per child output (a child with several
// outputs contributes several mixture components), be positive, and sum
// to one within WeightTolerance. A nil weights slice draws a random
// positive vector and normalizes it onto the simplex.
func NewSum(children []Node, weights []float64) (*Sum, error) {
	sc, err := sumScope(children)
	if err != nil {
		return nil, err
	}
	s := &Sum{children: children, sc: sc}
	if weights == nil {
		weights = randomSimplex(totalOuts(children))
	}
	if err := s.SetWeights(weights); err != nil {
		return nil, err
	}
	return s, nil
}

// Children returns the ordered child list.
func (s *Sum) Children() []Node { return s.children }

// NOut returns 1: a Sum represents a single output variable set.
func (s *Sum) NOut() int { return 1 }

// ScopesOut returns the node's single output scope.
func (s *Sum) ScopesOut() []scope.Scope { return []scope.Scope{s.sc} }

// Scope returns the node scope.
func (s *Sum) Scope() scope.Scope { return s.sc }

// Weights returns the simplex projection of the internal parameterization.
func (s *Sum) Weights() []float64 {
	w := make([]float64, len(s.logW))
	for i, lw := range s.logW {
		w[i] = math.Exp(lw)
	}
	return w
}

// LogWeights returns a copy of the normalized log-weights.
func (s *Sum) LogWeights() []float64 {
	return append([]float64(nil), s.logW...)
}

// SetWeights validates w (length, positivity, sum-to-one within
// tolerance) and re-projects it into the internal log parameterization.
func (s *Sum) SetWeights(w []float64) error {
	lw, err := weightsToLog(w, totalOuts(s.children))
	if err != nil {
		return err
	}
	s.logW = lw
	return nil
}

// SetLogWeights replaces the internal parameterization directly,
// renormalizing so the projected weights sum to one. This is the
// assignment path EM's maximization step uses.
func (s *Sum) SetLogWeights(lw []float64) error {
	if len(lw) != totalOuts(s.children) {
		return fmt.Errorf("%w: %d log-weights for %d child outputs", ErrInvalidStructure, len(lw), totalOuts(s.children))
	}
	out := append([]float64(nil), lw...)
	norm := floats.LogSumExp(out)
	for i := range out {
		out[i] -= norm
	}
	s.logW = out
	return nil
}

// SumLayer is the multi-output variant of Sum: k mixtures sharing one
// child list, each with its own weight row over all child outputs.
type SumLayer struct {
	children []Node
	logW     [][]float64 // k rows, one per output
	sc       scope.Scope
}

// NewSumLayer creates a layer of nOut mixtures over children. weights is
// a nOut×(total child outputs) matrix of simplex rows, or nil for random
// initialization.
func NewSumLayer(children []Node, nOut int, weights [][]float64) (*SumLayer, error) {
	if nOut < 1 {
		return nil, fmt.Errorf("%w: sum layer needs at least one output, got %d", ErrInvalidStructure, nOut)
	}
	sc, err := sumScope(children)
	if err != nil {
		return nil, err
	}
	l := &SumLayer{children: children, sc: sc, logW: make([][]float64, nOut)}
	if weights == nil {
		for i := range l.logW {
			lw, err := weightsToLog(randomSimplex(totalOuts(children)), totalOuts(children))
			if err != nil {
				return nil, err
			}
			l.logW[i] = lw
		}
		return l, nil
	}
	if len(weights) != nOut {
		return nil, fmt.Errorf("%w: %d weight rows for %d outputs", ErrInvalidStructure, len(weights), nOut)
	}
	for i, row := range weights {
		lw, err := weightsToLog(row, totalOuts(children))
		if err != nil {
			return nil, err
		}
		l.logW[i] = lw
	}
	return l, nil
}

// Children returns the ordered child list.
func (l *SumLayer) Children() []Node { return l.children }

// NOut returns the number of mixtures in the layer.
func (l *SumLayer) NOut() int { return len(l.logW) }

// ScopesOut returns the shared scope once per output.
func (l *SumLayer) ScopesOut() []scope.Scope {
	out := make([]scope.Scope, len(l.logW))
	for i := range out {
		out[i] = l.sc
	}
	return out
}

// Scope returns the scope shared by all outputs.
func (l *SumLayer) Scope() scope.Scope { return l.sc }

// Weights returns the simplex projection of every weight row.
func (l *SumLayer) Weights() [][]float64 {
	out := make([][]float64, len(l.logW))
	for i, row := range l.logW {
		w := make([]float64, len(row))
		for j, lw := range row {
			w[j] = math.Exp(lw)
		}
		out[i] = w
	}
	return out
}

// LogWeights returns a copy of the log-weight row for output i.
func (l *SumLayer) LogWeights(i int) []float64 {
	return append([]float64(nil), l.logW[i]...)
}

// SetLogWeights replaces the log-weight row for output i, renormalizing
// onto the simplex.
func (l *SumLayer) SetLogWeights(i int, lw []float64) error {
	if len(lw) != totalOuts(l.children) {
		return fmt.Errorf("%w: %d log-weights for %d child outputs", ErrInvalidStructure, len(lw), totalOuts(l.children))
	}
	out := append([]float64(nil), lw...)
	norm := floats.LogSumExp(out)
	for j := range out {
		out[j] -= norm
	}
	l.logW[i] = out
	return nil
}

// sumScope validates that every child output shares one query set and
// returns the node scope: that query with the union of child evidence.
func sumScope(children []Node) (scope.Scope, error) {
	if len(children) == 0 {
		return scope.Scope{}, fmt.Errorf("%w: sum node with no children", ErrInvalidStructure)
	}
	scopes := allScopesOut(children)
	first := scopes[0]
	evidence := first.Evidence()
	for _, sc := range scopes[1:] {
		if !first.EqualQuery(sc) {
			return scope.Scope{}, fmt.Errorf("%w: sum children scopes %v and %v differ in query", ErrInvalidStructure, first, sc)
		}
		evidence = append(evidence, sc.Evidence()...)
	}
	out, err := scope.New(first.Query(), dedup(evidence))
	if err != nil {
		return scope.Scope{}, err
	}
	return out, nil
}

// weightsToLog validates a weight vector and converts it to normalized
// log space.
func weightsToLog(w []float64, m int) ([]float64, error) {
	if len(w) != m {
		return nil, fmt.Errorf("%w: %d weights for %d child outputs", ErrInvalidStructure, len(w), m)
	}
	sum := 0.0
	for _, v := range w {
		if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: weight %v is not positive and finite", ErrInvalidStructure, v)
		}
		sum += v
	}
	if math.Abs(sum-1) > WeightTolerance {
		return nil, fmt.Errorf("%w: weights sum to %v, want 1", ErrInvalidStructure, sum)
	}
	lw := make([]float64, len(w))
	for i, v := range w {
		lw[i] = math.Log(v)
	}
	// Exact renormalization in log space removes the residual tolerance.
	norm := floats.LogSumExp(lw)
	for i := range lw {
		lw[i] -= norm
	}
	return lw, nil
}

// randomSimplex draws a random positive vector on the probability simplex.
func randomSimplex(m int) []float64 {
	w := make([]float64, m)
	sum := 0.0
	for i := range w {
		w[i] = rand.Float64() + 1e-8
		sum += w[i]
	}
	for i := range w {
		w[i] /= sum
	}
	return w
}

// dedup removes duplicates from vars, preserving no particular order.
func dedup(vars []int) []int {
	if len(vars) == 0 {
		return nil
	}
	set := make(map[int]bool, len(vars))
	out := vars[:0:0]
	for _, v := range vars {
		if !set[v] {
			set[v] = true
			out = append(out, v)
		}
	}
	return out
}
