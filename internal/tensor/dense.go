// Package tensor provides the core matrix type and the compute capability
// interface the SPN engine is written against.
//
// The engine evaluates data in batches: a Dense is a row-major rows×cols
// float64 matrix where rows index data instances and columns index random
// variables or node outputs. Missing values are represented by the NaN
// sentinel (see Missing and IsMissing).
package tensor

import (
	"fmt"
	"math"
	"strings"
)

// Dense is a row-major 2-D float64 matrix.
type Dense struct {
	rows, cols int
	data       []float64
}

// NewDense creates an uninitialized (zero-filled) rows×cols matrix.
// Panics if either dimension is not positive.
func NewDense(rows, cols int) *Dense {
	if rows <= 0 || cols <= 0 {
		panic(fmt.Sprintf("tensor: invalid dimensions %dx%d", rows, cols))
	}
	return &Dense{rows: rows, cols: cols, data: make([]float64, rows*cols)}
}

// Zeros creates a rows×cols matrix filled with zeros.
func Zeros(rows, cols int) *Dense {
	return NewDense(rows, cols)
}

// Full creates a rows×cols matrix filled with v.
func Full(rows, cols int, v float64) *Dense {
	d := NewDense(rows, cols)
	for i := range d.data {
		d.data[i] = v
	}
	return d
}

// FromSlice creates a matrix from a row-major slice. The slice is copied.
func FromSlice(rows, cols int, data []float64) (*Dense, error) {
	if rows*cols != len(data) {
		return nil, fmt.Errorf("tensor: shape %dx%d requires %d elements, got %d", rows, cols, rows*cols, len(data))
	}
	d := NewDense(rows, cols)
	copy(d.data, data)
	return d, nil
}

// Missing returns the missing-value sentinel (NaN).
func Missing() float64 {
	return math.NaN()
}

// IsMissing reports whether v is the missing-value sentinel.
func IsMissing(v float64) bool {
	return math.IsNaN(v)
}

// Rows returns the number of rows.
func (d *Dense) Rows() int { return d.rows }

// Cols returns the number of columns.
func (d *Dense) Cols() int { return d.cols }

// At returns the element at row i, column j. Panics on out-of-bounds
// indices.
func (d *Dense) At(i, j int) float64 {
	d.check(i, j)
	return d.data[i*d.cols+j]
}

// Set stores v at row i, column j. Panics on out-of-bounds indices.
func (d *Dense) Set(i, j int, v float64) {
	d.check(i, j)
	d.data[i*d.cols+j] = v
}

func (d *Dense) check(i, j int) {
	if i < 0 || i >= d.rows || j < 0 || j >= d.cols {
		panic(fmt.Sprintf("tensor: index (%d,%d) out of bounds for %dx%d matrix", i, j, d.rows, d.cols))
	}
}

// Data returns the underlying row-major slice.
//
// WARNING: modifications to the returned slice modify the matrix.
func (d *Dense) Data() []float64 {
	return d.data
}

// Row returns a view of row i. Modifications write through.
func (d *Dense) Row(i int) []float64 {
	if i < 0 || i >= d.rows {
		panic(fmt.Sprintf("tensor: row %d out of bounds for %dx%d matrix", i, d.rows, d.cols))
	}
	return d.data[i*d.cols : (i+1)*d.cols]
}

// Col returns a copy of column j.
func (d *Dense) Col(j int) []float64 {
	if j < 0 || j >= d.cols {
		panic(fmt.Sprintf("tensor: column %d out of bounds for %dx%d matrix", j, d.rows, d.cols))
	}
	out := make([]float64, d.rows)
	for i := range out {
		out[i] = d.data[i*d.cols+j]
	}
	return out
}

// Clone creates a deep copy of the matrix.
func (d *Dense) Clone() *Dense {
	out := NewDense(d.rows, d.cols)
	copy(out.data, d.data)
	return out
}

// SameShape reports whether d and o have identical dimensions.
func (d *Dense) SameShape(o *Dense) bool {
	return d.rows == o.rows && d.cols == o.cols
}

// String returns a human-readable representation of the matrix.
func (d *Dense) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Dense %dx%d", d.rows, d.cols)
	if d.rows*d.cols <= 64 {
		b.WriteByte(' ')
		fmt.Fprintf(&b, "%v", d.data)
	}
	return b.String()
}
