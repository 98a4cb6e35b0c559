// Copyright 2025 SPN ML Engine. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the public API for the dense matrices and
// compute backends the SPN engine operates on.
//
// Data batches are row-major float64 matrices with one row per instance
// and one column per random variable. Missing entries are encoded as NaN
// through Missing and IsMissing.
//
// Example:
//
//	data := tensor.Zeros(4, 2)
//	data.Set(0, 1, tensor.Missing()) // variable 1 unobserved in row 0
package tensor

import (
	"github.com/spn-ml/spn/internal/tensor"
)

// Dense is a row-major float64 matrix.
type Dense = tensor.Dense

// Backend is the compute capability interface batch operations run on.
type Backend = tensor.Backend

// Reduction axes.
const (
	AxisRows = tensor.AxisRows
	AxisCols = tensor.AxisCols
)

// NewDense creates a zero-filled rows×cols matrix. It panics when either
// dimension is not positive.
func NewDense(rows, cols int) *Dense {
	return tensor.NewDense(rows, cols)
}

// Zeros creates a zero-filled rows×cols matrix.
func Zeros(rows, cols int) *Dense {
	return tensor.Zeros(rows, cols)
}

// Full creates a rows×cols matrix filled with v.
func Full(rows, cols int, v float64) *Dense {
	return tensor.Full(rows, cols, v)
}

// FromSlice creates a matrix from a row-major slice of length rows*cols.
func FromSlice(rows, cols int, data []float64) (*Dense, error) {
	return tensor.FromSlice(rows, cols, data)
}

// Missing returns the sentinel for an unobserved entry.
func Missing() float64 {
	return tensor.Missing()
}

// IsMissing reports whether v is the missing-entry sentinel.
func IsMissing(v float64) bool {
	return tensor.IsMissing(v)
}
