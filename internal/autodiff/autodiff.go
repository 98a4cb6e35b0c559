// Package autodiff implements automatic differentiation using the
// decorator pattern.
//
// Backend wraps any tensor.Backend implementation and adds gradient
// tracking through a GradientTape. Only the operations the likelihood
// pass differentiates through are recorded (Cat, AddRow, LogSumExp,
// Sum over columns); everything else passes straight to the wrapped
// backend.
//
// Usage:
//
//	base := cpu.New()
//	backend := autodiff.New(base)
//	backend.Tape().StartRecording()
//	// ... evaluate log-likelihood through backend ...
//	grads := backend.Tape().Backward(rootLL, ones, backend)
package autodiff

import (
	"github.com/spn-ml/spn/internal/autodiff/ops"
	"github.com/spn-ml/spn/internal/tensor"
)

// Backend decorates a tensor.Backend with gradient-tape recording.
type Backend struct {
	base tensor.Backend
	tape *GradientTape
}

// BackwardCapable is the capability a backend must expose for reverse-mode
// gradient retrieval. EM requires it.
type BackwardCapable interface {
	tensor.Backend
	Tape() *GradientTape
}

// New creates an autodiff backend wrapping base.
func New(base tensor.Backend) *Backend {
	return &Backend{base: base, tape: NewGradientTape()}
}

// Tape returns the gradient tape.
func (b *Backend) Tape() *GradientTape {
	return b.tape
}

// Name returns the backend name.
func (b *Backend) Name() string {
	return "autodiff(" + b.base.Name() + ")"
}

// Add records the element-wise addition on the tape.
func (b *Backend) Add(x, y *tensor.Dense) *tensor.Dense {
	out := b.base.Add(x, y)
	b.tape.Record(&ops.Add{A: x, B: y, Out: out})
	return out
}

// Sub passes through to the wrapped backend.
func (b *Backend) Sub(x, y *tensor.Dense) *tensor.Dense { return b.base.Sub(x, y) }

// Mul passes through to the wrapped backend.
func (b *Backend) Mul(x, y *tensor.Dense) *tensor.Dense { return b.base.Mul(x, y) }

// Div passes through to the wrapped backend.
func (b *Backend) Div(x, y *tensor.Dense) *tensor.Dense { return b.base.Div(x, y) }

// AddScalar passes through to the wrapped backend.
func (b *Backend) AddScalar(x *tensor.Dense, s float64) *tensor.Dense { return b.base.AddScalar(x, s) }

// MulScalar passes through to the wrapped backend.
func (b *Backend) MulScalar(x *tensor.Dense, s float64) *tensor.Dense { return b.base.MulScalar(x, s) }

// AddRow records the broadcast addition on the tape.
func (b *Backend) AddRow(x *tensor.Dense, row []float64) *tensor.Dense {
	out := b.base.AddRow(x, row)
	b.tape.Record(&ops.AddRow{In: x, Row: row, Out: out})
	return out
}

// Exp passes through to the wrapped backend.
func (b *Backend) Exp(x *tensor.Dense) *tensor.Dense { return b.base.Exp(x) }

// Log passes through to the wrapped backend.
func (b *Backend) Log(x *tensor.Dense) *tensor.Dense { return b.base.Log(x) }

// Greater passes through to the wrapped backend.
func (b *Backend) Greater(x, y *tensor.Dense) *tensor.Dense { return b.base.Greater(x, y) }

// GreaterEqual passes through to the wrapped backend.
func (b *Backend) GreaterEqual(x, y *tensor.Dense) *tensor.Dense { return b.base.GreaterEqual(x, y) }

// Lower passes through to the wrapped backend.
func (b *Backend) Lower(x, y *tensor.Dense) *tensor.Dense { return b.base.Lower(x, y) }

// Sum records row-wise sums on the tape; column-wise sums pass through.
func (b *Backend) Sum(x *tensor.Dense, axis int) *tensor.Dense {
	out := b.base.Sum(x, axis)
	if axis == tensor.AxisCols {
		b.tape.Record(&ops.SumCols{In: x, Out: out})
	}
	return out
}

// LogSumExp records row-wise reductions on the tape; column-wise
// reductions pass through.
func (b *Backend) LogSumExp(x *tensor.Dense, axis int) *tensor.Dense {
	out := b.base.LogSumExp(x, axis)
	if axis == tensor.AxisCols {
		b.tape.Record(&ops.LogSumExp{In: x, Out: out})
	}
	return out
}

// CumSum passes through to the wrapped backend.
func (b *Backend) CumSum(x *tensor.Dense, axis int) *tensor.Dense { return b.base.CumSum(x, axis) }

// Expand records the broadcast on the tape.
func (b *Backend) Expand(x *tensor.Dense, cols int) *tensor.Dense {
	out := b.base.Expand(x, cols)
	b.tape.Record(&ops.Expand{In: x, Out: out})
	return out
}

// Cat records column-wise concatenation on the tape; row-wise passes
// through.
func (b *Backend) Cat(xs []*tensor.Dense, axis int) *tensor.Dense {
	out := b.base.Cat(xs, axis)
	if axis == tensor.AxisCols {
		b.tape.Record(&ops.Cat{In: xs, Out: out})
	}
	return out
}

// Uniform passes through to the wrapped backend.
func (b *Backend) Uniform(rows, cols int) *tensor.Dense { return b.base.Uniform(rows, cols) }
