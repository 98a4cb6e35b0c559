// Copyright 2025 SPN ML Engine. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package infer provides the public API for the four SPN algorithms:
// log-likelihood evaluation, structural marginalization, ancestral
// sampling, and the Expectation-Maximization weight update.
//
// Example:
//
//	ll, err := infer.LogLikelihood(root, data, infer.EvalConfig{})
//	marg, err := infer.Marginalize(root, []int{1}, infer.MarginalizeConfig{})
//	err = infer.NewSampler(infer.SamplerConfig{Seed: 42}).Sample(root, data)
//	err = infer.EMStep(root, data, infer.EMConfig{})
package infer

import (
	"github.com/spn-ml/spn/graph"
	"github.com/spn-ml/spn/internal/infer"
	"github.com/spn-ml/spn/tensor"
)

// Sentinel errors, matchable with errors.Is.
var (
	ErrSupport       = infer.ErrSupport
	ErrNoGrad        = infer.ErrNoGrad
	ErrUnhandledNode = infer.ErrUnhandledNode
)

// EvalConfig configures log-likelihood evaluation.
type EvalConfig = infer.EvalConfig

// LogLikelihood evaluates the per-row log-likelihood of data under the
// SPN rooted at root, one column per root output. Missing (NaN) entries
// are marginalized.
func LogLikelihood(root graph.Node, data *tensor.Dense, cfg EvalConfig) (*tensor.Dense, error) {
	return infer.LogLikelihood(root, data, cfg)
}

// Likelihood is the linear-space counterpart of LogLikelihood.
func Likelihood(root graph.Node, data *tensor.Dense, cfg EvalConfig) (*tensor.Dense, error) {
	return infer.Likelihood(root, data, cfg)
}

// MarginalizeConfig configures structural marginalization.
type MarginalizeConfig = infer.MarginalizeConfig

// Marginalize rewrites the graph rooted at root to integrate out the
// variables in margRVs, returning a new, independent graph, or nil when
// the whole scope is eliminated.
func Marginalize(root graph.Node, margRVs []int, cfg MarginalizeConfig) (graph.Node, error) {
	return infer.Marginalize(root, margRVs, cfg)
}

// SamplerConfig configures ancestral sampling.
type SamplerConfig = infer.SamplerConfig

// DefaultSamplerConfig returns a randomly seeded configuration.
func DefaultSamplerConfig() SamplerConfig {
	return infer.DefaultSamplerConfig()
}

// Sampler draws ancestral samples from an SPN under partial evidence,
// filling missing entries in place and never overwriting observed ones.
type Sampler = infer.Sampler

// NewSampler creates a sampler with the given configuration.
func NewSampler(cfg SamplerConfig) *Sampler {
	return infer.NewSampler(cfg)
}

// EMConfig configures one Expectation-Maximization step.
type EMConfig = infer.EMConfig

// EMStep performs one EM update of every mixture node reachable from
// root, in place.
func EMStep(root graph.Node, data *tensor.Dense, cfg EMConfig) error {
	return infer.EMStep(root, data, cfg)
}
