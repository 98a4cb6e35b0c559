// Copyright 2025 SPN ML Engine. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package autodiff provides reverse-mode automatic differentiation over
// batch operations.
//
// The package wraps any backend with a gradient tape. Operations executed
// through the wrapped backend are recorded; Backward on the tape then
// accumulates the gradient of a scalar-reduced output with respect to
// every recorded intermediate. The EM step uses this to obtain per-node
// gradients of the root log-likelihood.
//
// Example:
//
//	backend := autodiff.New(cpu.New())
//	backend.Tape().StartRecording()
//	ll, err := infer.LogLikelihood(root, data, infer.EvalConfig{Backend: backend})
//	backend.Tape().StopRecording()
//	grads := backend.Tape().Backward(ll, ones, backend)
package autodiff

import (
	"github.com/spn-ml/spn/internal/autodiff"
	"github.com/spn-ml/spn/internal/tensor"
)

// Backend is the tape-recording backend decorator.
type Backend = autodiff.Backend

// BackwardCapable is satisfied by backends that expose a gradient tape.
type BackwardCapable = autodiff.BackwardCapable

// GradientTape records operations for reverse-mode differentiation.
type GradientTape = autodiff.GradientTape

// New wraps base with a fresh gradient tape.
func New(base tensor.Backend) *Backend {
	return autodiff.New(base)
}

// NewGradientTape creates an empty gradient tape.
func NewGradientTape() *GradientTape {
	return autodiff.NewGradientTape()
}
