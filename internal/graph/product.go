package graph

import (
	"fmt"

	"github.com/spn-ml/spn/internal/scope"
)

// Product is a factorization node: its output distribution is the product
// of its children's distributions over pairwise disjoint query sets.
// It carries no numeric parameters; its validity is purely the
// disjoint-scope invariant.
type Product struct {
	children []Node
	sc       scope.Scope
}

// NewProduct creates a Product node over children. The node scope is the
// fold of scope.Join over every child output scope, which fails on any
// pairwise query overlap.
func NewProduct(children []Node) (*Product, error) {
	if len(children) == 0 {
		return nil, fmt.Errorf("%w: product node with no children", ErrInvalidStructure)
	}
	scopes := allScopesOut(children)
	sc := scopes[0]
	for _, other := range scopes[1:] {
		joined, err := sc.Join(other)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidStructure, err)
		}
		sc = joined
	}
	return &Product{children: children, sc: sc}, nil
}

// Children returns the ordered child list.
func (p *Product) Children() []Node { return p.children }

// NOut returns 1: a Product represents a single output variable set.
func (p *Product) NOut() int { return 1 }

// ScopesOut returns the node's single output scope.
func (p *Product) ScopesOut() []scope.Scope { return []scope.Scope{p.sc} }

// Scope returns the node scope.
func (p *Product) Scope() scope.Scope { return p.sc }

// HadamardProduct is the multi-output variant of Product: output j is the
// element-wise product of every child's j-th output. Children must have
// either the full output count or a single output, which broadcasts.
type HadamardProduct struct {
	children []Node
	scopes   []scope.Scope
}

// NewHadamardProduct creates an element-wise product layer over children.
// Per output, the participating child scopes must be pairwise disjoint.
func NewHadamardProduct(children []Node) (*HadamardProduct, error) {
	if len(children) == 0 {
		return nil, fmt.Errorf("%w: hadamard product with no children", ErrInvalidStructure)
	}
	nOut := 1
	for _, c := range children {
		if c.NOut() > nOut {
			nOut = c.NOut()
		}
	}
	for _, c := range children {
		if c.NOut() != nOut && c.NOut() != 1 {
			return nil, fmt.Errorf("%w: hadamard child has %d outputs, want %d or 1", ErrInvalidStructure, c.NOut(), nOut)
		}
	}
	scopes := make([]scope.Scope, nOut)
	for j := 0; j < nOut; j++ {
		sc := childOutScope(children[0], j)
		for _, c := range children[1:] {
			joined, err := sc.Join(childOutScope(c, j))
			if err != nil {
				return nil, fmt.Errorf("%w: output %d: %v", ErrInvalidStructure, j, err)
			}
			sc = joined
		}
		scopes[j] = sc
	}
	return &HadamardProduct{children: children, scopes: scopes}, nil
}

// childOutScope returns the scope of child output j, broadcasting
// single-output children.
func childOutScope(c Node, j int) scope.Scope {
	scopes := c.ScopesOut()
	if c.NOut() == 1 {
		return scopes[0]
	}
	return scopes[j]
}

// Children returns the ordered child list.
func (p *HadamardProduct) Children() []Node { return p.children }

// NOut returns the broadcast output count.
func (p *HadamardProduct) NOut() int { return len(p.scopes) }

// ScopesOut returns one joined scope per output.
func (p *HadamardProduct) ScopesOut() []scope.Scope {
	return append([]scope.Scope(nil), p.scopes...)
}
