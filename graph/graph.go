// Copyright 2025 SPN ML Engine. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package graph provides the public API for building sum-product
// networks.
//
// An SPN is a directed acyclic graph of Sum, Product and leaf nodes.
// Sum nodes mix children over identical query scopes; Product nodes
// factorize children over disjoint query scopes; leaves bind univariate
// distributions to data columns. Structural invariants are validated at
// construction.
//
// Example:
//
//	a, _ := leaves.NewGaussian(0, -1, 1)
//	b, _ := leaves.NewGaussian(0, 3, 1)
//	mix, _ := graph.NewSum([]graph.Node{a, b}, []float64{0.3, 0.7})
package graph

import (
	"github.com/spn-ml/spn/internal/graph"
	"github.com/spn-ml/spn/internal/scope"
	"github.com/spn-ml/spn/tensor"
)

// Scope is an immutable pair of sorted query and evidence variable sets.
type Scope = scope.Scope

// NewScope creates a scope from query and evidence variable indices.
func NewScope(query, evidence []int) (Scope, error) {
	return scope.New(query, evidence)
}

// ScopeOf creates an evidence-free scope over the given query variables.
// It panics on duplicates.
func ScopeOf(query ...int) Scope {
	return scope.Of(query...)
}

// Node is the graph entity every algorithm recurses over.
type Node = graph.Node

// Leaf is the collaborator interface for leaf-distribution nodes.
type Leaf = graph.Leaf

// Params carries named distribution parameters.
type Params = graph.Params

// Distribution is the minimal density-and-draw surface of a leaf
// distribution.
type Distribution = graph.Distribution

// Structural and resolution errors, matchable with errors.Is.
var (
	ErrInvalidStructure = graph.ErrInvalidStructure
	ErrParamResolution  = graph.ErrParamResolution
)

// Sum is a mixture node over children with identical query scopes.
type Sum = graph.Sum

// NewSum creates a Sum over children. Nil weights draw a random simplex
// vector.
func NewSum(children []Node, weights []float64) (*Sum, error) {
	return graph.NewSum(children, weights)
}

// SumLayer is the multi-output variant of Sum.
type SumLayer = graph.SumLayer

// NewSumLayer creates a layer of nOut mixtures sharing one child list.
func NewSumLayer(children []Node, nOut int, weights [][]float64) (*SumLayer, error) {
	return graph.NewSumLayer(children, nOut, weights)
}

// Product is a factorization node over children with disjoint query
// scopes.
type Product = graph.Product

// NewProduct creates a Product over children.
func NewProduct(children []Node) (*Product, error) {
	return graph.NewProduct(children)
}

// HadamardProduct is the multi-output, element-wise variant of Product.
type HadamardProduct = graph.HadamardProduct

// NewHadamardProduct creates an element-wise product layer over children.
func NewHadamardProduct(children []Node) (*HadamardProduct, error) {
	return graph.NewHadamardProduct(children)
}

// DispatchContext carries the memoization cache and the args side-channel
// threaded through every algorithm.
type DispatchContext = graph.DispatchContext

// NewDispatchContext creates an empty context.
func NewDispatchContext() *DispatchContext {
	return graph.NewDispatchContext()
}

// SamplingContext names the rows and per-row output indices of one
// sampling call.
type SamplingContext = graph.SamplingContext

// NewSamplingContext pairs instance ids with per-instance output lists.
func NewSamplingContext(instanceIDs []int, outputIndices [][]int) (*SamplingContext, error) {
	return graph.NewSamplingContext(instanceIDs, outputIndices)
}

// FullOutputs builds a context asking n for all outputs on every listed
// instance.
func FullOutputs(n Node, instanceIDs []int) *SamplingContext {
	return graph.FullOutputs(n, instanceIDs)
}

// ParamSource resolves conditional leaf parameters from an explicit value
// or a data-dependent callback.
type ParamSource = graph.ParamSource

// Explicit builds a source that always yields p.
func Explicit(p Params) ParamSource {
	return graph.Explicit(p)
}

// Callback builds a source deriving parameters from the data batch.
func Callback(fn func(data *tensor.Dense) (Params, error)) ParamSource {
	return graph.Callback(fn)
}

// Nodes returns every distinct node reachable from root, children before
// parents.
func Nodes(root Node) []Node {
	return graph.Nodes(root)
}

// Valid re-checks the structural invariants of every node reachable from
// root.
func Valid(root Node) error {
	return graph.Valid(root)
}
