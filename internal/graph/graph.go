// Package graph implements the node data model for sum-product networks.
//
// An SPN is a directed acyclic graph of Sum, Product and leaf-distribution
// nodes. Parents own their child list, but individual children may be
// shared by several parents, so the structure is a DAG rather than a tree.
// Every concrete node kind validates its scope invariant once, at
// construction; downstream algorithms assume the invariants hold and never
// re-check them.
package graph

import (
	"errors"

	"github.com/spn-ml/spn/internal/scope"
	"github.com/spn-ml/spn/internal/tensor"
)

// ErrInvalidStructure reports a structural-validity violation: an empty
// child list, non-disjoint product scopes, mismatched sum scopes, or an
// invalid weight vector.
var ErrInvalidStructure = errors.New("graph: invalid structure")

// ErrParamResolution reports a conditional leaf invoked without any
// parameter source to resolve from.
var ErrParamResolution = errors.New("graph: no parameter source")

// Node is the graph entity every algorithm recurses over.
//
// NOut is the number of output random variables the node represents;
// classic Sum and Product nodes have a single output, layer variants have
// several. ScopesOut has one scope per output.
type Node interface {
	// Children returns the ordered child list. Leaves return nil.
	Children() []Node

	// NOut returns the number of outputs, at least 1.
	NOut() int

	// ScopesOut returns one scope per output.
	ScopesOut() []scope.Scope
}

// Params carries named distribution parameters, e.g. {"mu": 0, "sigma": 1}.
type Params map[string]float64

// Clone returns an independent copy of p.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Distribution is the minimal surface the engine needs from a concrete
// probability distribution. gonum's distuv types satisfy it directly.
type Distribution interface {
	LogProb(x float64) float64
	Rand() float64
}

// Leaf is the collaborator interface for leaf-distribution nodes. The
// engine consumes it and never re-specifies per-distribution logic.
type Leaf interface {
	Node

	// Scope returns the leaf's single scope.
	Scope() scope.Scope

	// CheckSupport returns a 0/1 mask over the leaf's data column where 1
	// marks values inside the distribution's support. Missing (NaN)
	// entries are in support by convention.
	CheckSupport(data *tensor.Dense) *tensor.Dense

	// RetrieveParams resolves the distribution parameters, which may come
	// from node state or from the context's args side-channel.
	RetrieveParams(data *tensor.Dense, ctx *DispatchContext) (Params, error)

	// Dist builds a distribution from resolved parameters.
	Dist(p Params) (Distribution, error)

	// Params and SetParams expose the node-stored parameters.
	Params() Params
	SetParams(p Params) error

	// Fit replaces the node-stored parameters with closed-form
	// maximum-likelihood estimates from the non-missing data column.
	Fit(data *tensor.Dense) error

	// Clone returns a deep, independent copy of the leaf.
	Clone() Leaf
}

// Nodes returns every distinct node reachable from root in depth-first
// post-order (children before parents). Shared nodes appear once.
func Nodes(root Node) []Node {
	var out []Node
	seen := make(map[Node]bool)
	var walk func(n Node)
	walk = func(n Node) {
		if seen[n] {
			return
		}
		seen[n] = true
		for _, c := range n.Children() {
			walk(c)
		}
		out = append(out, n)
	}
	walk(root)
	return out
}

// totalOuts sums the output counts of children.
func totalOuts(children []Node) int {
	n := 0
	for _, c := range children {
		n += c.NOut()
	}
	return n
}

// allScopesOut flattens the output scopes of children, in child order.
func allScopesOut(children []Node) []scope.Scope {
	out := make([]scope.Scope, 0, totalOuts(children))
	for _, c := range children {
		out = append(out, c.ScopesOut()...)
	}
	return out
}
