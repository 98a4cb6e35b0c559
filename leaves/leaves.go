// Copyright 2025 SPN ML Engine. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package leaves provides the public API for the univariate leaf
// distributions an SPN is built from.
//
// Every leaf wraps a gonum distuv distribution and satisfies graph.Leaf.
//
// Example:
//
//	g, err := leaves.NewGaussian(0, 0, 1, leaves.WithSource(rand.NewSource(42)))
package leaves

import (
	"golang.org/x/exp/rand"

	"github.com/spn-ml/spn/graph"
	"github.com/spn-ml/spn/internal/leaves"
)

// Option configures a leaf at construction.
type Option = leaves.Option

// WithSource sets the random source used by the leaf's draws, for
// reproducible sampling.
func WithSource(src rand.Source) Option {
	return leaves.WithSource(src)
}

// Gaussian is a univariate normal leaf.
type Gaussian = leaves.Gaussian

// NewGaussian creates a normal leaf over the given data column.
func NewGaussian(variable int, mu, sigma float64, opts ...Option) (*Gaussian, error) {
	return leaves.NewGaussian(variable, mu, sigma, opts...)
}

// Gamma is a univariate gamma leaf with shape alpha and rate beta.
type Gamma = leaves.Gamma

// NewGamma creates a gamma leaf over the given data column.
func NewGamma(variable int, alpha, beta float64, opts ...Option) (*Gamma, error) {
	return leaves.NewGamma(variable, alpha, beta, opts...)
}

// Uniform is a continuous uniform leaf on [min, max].
type Uniform = leaves.Uniform

// NewUniform creates a uniform leaf over the given data column.
func NewUniform(variable int, min, max float64, opts ...Option) (*Uniform, error) {
	return leaves.NewUniform(variable, min, max, opts...)
}

// Bernoulli is a leaf over {0, 1}.
type Bernoulli = leaves.Bernoulli

// NewBernoulli creates a Bernoulli leaf over the given data column.
func NewBernoulli(variable int, p float64, opts ...Option) (*Bernoulli, error) {
	return leaves.NewBernoulli(variable, p, opts...)
}

// Binomial is a leaf counting successes in a fixed number of trials.
type Binomial = leaves.Binomial

// NewBinomial creates a binomial leaf over the given data column.
func NewBinomial(variable int, trials int, p float64, opts ...Option) (*Binomial, error) {
	return leaves.NewBinomial(variable, trials, p, opts...)
}

// CondGaussian is a normal leaf whose parameters are derived at call time
// from the evidence columns of the data batch.
type CondGaussian = leaves.CondGaussian

// NewCondGaussian creates a conditional normal leaf for the query
// variable, conditioned on the evidence variables.
func NewCondGaussian(variable int, evidence []int, source graph.ParamSource, opts ...Option) (*CondGaussian, error) {
	return leaves.NewCondGaussian(variable, evidence, source, opts...)
}
