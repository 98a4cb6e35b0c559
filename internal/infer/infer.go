// Package infer implements the four graph-wide recursive algorithms over
// sum-product networks: log-likelihood evaluation, structural
// marginalization, ancestral sampling, and the Expectation-Maximization
// step.
//
// Each algorithm has one implementation per node kind, selected by a type
// switch over the closed node set. log-likelihood and marginalization are
// memoized by node identity in the DispatchContext, which is what makes a
// DAG with shared subtrees cost O(nodes) instead of O(paths); sampling
// deliberately is not, because one traversal may ask the same node for
// different rows and output subsets.
package infer

import (
	"errors"
)

// Cache keys, one per memoized algorithm.
const (
	logLikelihoodKey = "log_likelihood"
	marginalizeKey   = "marginalize"
	gradientKey      = "gradient"
)

// ErrSupport reports observed (non-missing) data outside a leaf
// distribution's declared support.
var ErrSupport = errors.New("infer: data outside distribution support")

// ErrNoGrad reports an EM step invoked on a backend without reverse-mode
// gradient capability.
var ErrNoGrad = errors.New("infer: backend does not support gradient accumulation")

// ErrUnhandledNode reports an algorithm invoked on a node kind it has no
// implementation for.
var ErrUnhandledNode = errors.New("infer: algorithm not implemented for node kind")
