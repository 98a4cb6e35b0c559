// Copyright 2025 SPN ML Engine. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides the pure Go CPU backend for batch operations.
//
// Example:
//
//	backend := cpu.New()
//	ll, err := infer.LogLikelihood(root, data, infer.EvalConfig{Backend: backend})
package cpu

import (
	"github.com/spn-ml/spn/internal/backend/cpu"
)

// Backend is the CPU compute backend.
type Backend = cpu.Backend

// New creates a CPU backend with a time-seeded random source.
func New() *Backend {
	return cpu.New()
}

// NewSeeded creates a CPU backend with a deterministic random source.
func NewSeeded(seed uint64) *Backend {
	return cpu.NewSeeded(seed)
}
