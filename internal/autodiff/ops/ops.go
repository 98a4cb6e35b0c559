// Package ops defines the differentiable operations recorded on the
// gradient tape.
//
// The likelihood pass of an SPN is built from exactly four matrix
// operations: column concatenation, row-vector addition, row-wise
// logsumexp and row-wise summation. Each operation stores its inputs and
// output and knows how to push a gradient from its output back to its
// inputs.
package ops

import (
	"math"

	"github.com/spn-ml/spn/internal/tensor"
)

// Operation is one recorded step of the forward pass.
type Operation interface {
	// Inputs returns the operand matrices, in order.
	Inputs() []*tensor.Dense

	// Output returns the result matrix. Gradients are keyed by its
	// identity.
	Output() *tensor.Dense

	// Backward computes the gradient of each input given the gradient
	// of the output, in the same order as Inputs.
	Backward(outGrad *tensor.Dense) []*tensor.Dense
}

// Add records an element-wise addition of two equally shaped matrices.
type Add struct {
	A, B *tensor.Dense
	Out  *tensor.Dense
}

// Inputs returns both operands.
func (op *Add) Inputs() []*tensor.Dense { return []*tensor.Dense{op.A, op.B} }

// Output returns the sum.
func (op *Add) Output() *tensor.Dense { return op.Out }

// Backward passes the output gradient through to both operands.
func (op *Add) Backward(outGrad *tensor.Dense) []*tensor.Dense {
	return []*tensor.Dense{outGrad.Clone(), outGrad.Clone()}
}

// Expand records a rows×1 to rows×k broadcast.
type Expand struct {
	In  *tensor.Dense
	Out *tensor.Dense
}

// Inputs returns the broadcast operand.
func (op *Expand) Inputs() []*tensor.Dense { return []*tensor.Dense{op.In} }

// Output returns the broadcast matrix.
func (op *Expand) Output() *tensor.Dense { return op.Out }

// Backward sums the output gradient back across the broadcast columns.
func (op *Expand) Backward(outGrad *tensor.Dense) []*tensor.Dense {
	g := tensor.NewDense(op.In.Rows(), 1)
	for i := 0; i < outGrad.Rows(); i++ {
		acc := 0.0
		for j := 0; j < outGrad.Cols(); j++ {
			acc += outGrad.At(i, j)
		}
		g.Set(i, 0, acc)
	}
	return []*tensor.Dense{g}
}

// Cat records a column-wise concatenation of several matrices.
type Cat struct {
	In  []*tensor.Dense
	Out *tensor.Dense
}

// Inputs returns the concatenated operands.
func (op *Cat) Inputs() []*tensor.Dense { return op.In }

// Output returns the concatenated matrix.
func (op *Cat) Output() *tensor.Dense { return op.Out }

// Backward splits the output gradient back into per-operand column blocks.
func (op *Cat) Backward(outGrad *tensor.Dense) []*tensor.Dense {
	grads := make([]*tensor.Dense, len(op.In))
	col := 0
	for k, in := range op.In {
		g := tensor.NewDense(in.Rows(), in.Cols())
		for i := 0; i < in.Rows(); i++ {
			for j := 0; j < in.Cols(); j++ {
				g.Set(i, j, outGrad.At(i, col+j))
			}
		}
		grads[k] = g
		col += in.Cols()
	}
	return grads
}

// AddRow records the broadcast addition of a row vector to a matrix.
// The row vector is a parameter, not a tape tensor; its gradient is not
// propagated here.
type AddRow struct {
	In  *tensor.Dense
	Row []float64
	Out *tensor.Dense
}

// Inputs returns the matrix operand.
func (op *AddRow) Inputs() []*tensor.Dense { return []*tensor.Dense{op.In} }

// Output returns the shifted matrix.
func (op *AddRow) Output() *tensor.Dense { return op.Out }

// Backward passes the output gradient through unchanged.
func (op *AddRow) Backward(outGrad *tensor.Dense) []*tensor.Dense {
	return []*tensor.Dense{outGrad.Clone()}
}

// LogSumExp records a row-wise logsumexp reduction (rows×k -> rows×1).
type LogSumExp struct {
	In  *tensor.Dense
	Out *tensor.Dense
}

// Inputs returns the reduced operand.
func (op *LogSumExp) Inputs() []*tensor.Dense { return []*tensor.Dense{op.In} }

// Output returns the rows×1 reduction.
func (op *LogSumExp) Output() *tensor.Dense { return op.Out }

// Backward distributes the output gradient across columns weighted by the
// softmax of the input row: d in[i,j] = d out[i] * exp(in[i,j] - out[i]).
func (op *LogSumExp) Backward(outGrad *tensor.Dense) []*tensor.Dense {
	g := tensor.NewDense(op.In.Rows(), op.In.Cols())
	for i := 0; i < op.In.Rows(); i++ {
		lse := op.Out.At(i, 0)
		og := outGrad.At(i, 0)
		for j := 0; j < op.In.Cols(); j++ {
			g.Set(i, j, og*math.Exp(op.In.At(i, j)-lse))
		}
	}
	return []*tensor.Dense{g}
}

// SumCols records a row-wise sum reduction (rows×k -> rows×1).
type SumCols struct {
	In  *tensor.Dense
	Out *tensor.Dense
}

// Inputs returns the reduced operand.
func (op *SumCols) Inputs() []*tensor.Dense { return []*tensor.Dense{op.In} }

// Output returns the rows×1 reduction.
func (op *SumCols) Output() *tensor.Dense { return op.Out }

// Backward broadcasts the output gradient to every column.
func (op *SumCols) Backward(outGrad *tensor.Dense) []*tensor.Dense {
	g := tensor.NewDense(op.In.Rows(), op.In.Cols())
	for i := 0; i < op.In.Rows(); i++ {
		og := outGrad.At(i, 0)
		for j := 0; j < op.In.Cols(); j++ {
			g.Set(i, j, og)
		}
	}
	return []*tensor.Dense{g}
}
