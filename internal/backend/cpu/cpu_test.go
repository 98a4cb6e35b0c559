package cpu

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spn-ml/spn/internal/tensor"
)

func fromSlice(t *testing.T, rows, cols int, data []float64) *tensor.Dense {
	t.Helper()
	d, err := tensor.FromSlice(rows, cols, data)
	require.NoError(t, err)
	return d
}

func TestElementwiseOps(t *testing.T) {
	b := New()
	x := fromSlice(t, 2, 2, []float64{1, 2, 3, 4})
	y := fromSlice(t, 2, 2, []float64{10, 20, 30, 40})

	assert.Equal(t, []float64{11, 22, 33, 44}, b.Add(x, y).Data())
	assert.Equal(t, []float64{-9, -18, -27, -36}, b.Sub(x, y).Data())
	assert.Equal(t, []float64{10, 40, 90, 160}, b.Mul(x, y).Data())
	assert.Equal(t, []float64{0.1, 0.1, 0.1, 0.1}, b.Div(x, y).Data())

	// Inputs are never mutated.
	assert.Equal(t, []float64{1, 2, 3, 4}, x.Data())
}

func TestScalarOps(t *testing.T) {
	b := New()
	x := fromSlice(t, 1, 3, []float64{1, 2, 3})

	assert.Equal(t, []float64{3, 4, 5}, b.AddScalar(x, 2).Data())
	assert.Equal(t, []float64{2, 4, 6}, b.MulScalar(x, 2).Data())
}

func TestAddRow(t *testing.T) {
	b := New()
	x := fromSlice(t, 2, 3, []float64{0, 0, 0, 1, 1, 1})

	out := b.AddRow(x, []float64{1, 2, 3})
	assert.Equal(t, []float64{1, 2, 3, 2, 3, 4}, out.Data())

	assert.Panics(t, func() { b.AddRow(x, []float64{1, 2}) })
}

func TestShapeMismatchPanics(t *testing.T) {
	b := New()
	assert.Panics(t, func() { b.Add(tensor.NewDense(1, 2), tensor.NewDense(2, 1)) })
}

func TestSumAndLogSumExp(t *testing.T) {
	b := New()
	x := fromSlice(t, 2, 2, []float64{1, 2, 3, 4})

	colSum := b.Sum(x, tensor.AxisCols)
	assert.Equal(t, 1, colSum.Cols())
	assert.Equal(t, []float64{3, 7}, colSum.Data())

	rowSum := b.Sum(x, tensor.AxisRows)
	assert.Equal(t, 1, rowSum.Rows())
	assert.Equal(t, []float64{4, 6}, rowSum.Data())

	lse := b.LogSumExp(x, tensor.AxisCols)
	assert.InDelta(t, math.Log(math.Exp(1)+math.Exp(2)), lse.At(0, 0), 1e-12)

	// Stays finite where naive exp would overflow.
	big := fromSlice(t, 1, 2, []float64{1000, 1000})
	assert.InDelta(t, 1000+math.Log(2), b.LogSumExp(big, tensor.AxisCols).At(0, 0), 1e-9)
}

func TestCumSum(t *testing.T) {
	b := New()
	x := fromSlice(t, 2, 3, []float64{1, 2, 3, 1, 1, 1})

	cols := b.CumSum(x, tensor.AxisCols)
	assert.Equal(t, []float64{1, 3, 6, 1, 2, 3}, cols.Data())

	rows := b.CumSum(x, tensor.AxisRows)
	assert.Equal(t, []float64{1, 2, 3, 2, 3, 4}, rows.Data())
}

func TestExpand(t *testing.T) {
	b := New()
	x := fromSlice(t, 2, 1, []float64{3, 5})

	out := b.Expand(x, 3)
	assert.Equal(t, []float64{3, 3, 3, 5, 5, 5}, out.Data())

	assert.Panics(t, func() { b.Expand(tensor.NewDense(2, 2), 3) })
}

func TestCat(t *testing.T) {
	b := New()
	x := fromSlice(t, 2, 1, []float64{1, 2})
	y := fromSlice(t, 2, 2, []float64{3, 4, 5, 6})

	cols := b.Cat([]*tensor.Dense{x, y}, tensor.AxisCols)
	assert.Equal(t, 3, cols.Cols())
	assert.Equal(t, []float64{1, 3, 4, 2, 5, 6}, cols.Data())

	rows := b.Cat([]*tensor.Dense{x, x}, tensor.AxisRows)
	assert.Equal(t, 4, rows.Rows())
	assert.Equal(t, []float64{1, 2, 1, 2}, rows.Data())
}

func TestComparisons(t *testing.T) {
	b := New()
	x := fromSlice(t, 1, 3, []float64{1, 2, 3})
	y := fromSlice(t, 1, 3, []float64{2, 2, 2})

	assert.Equal(t, []float64{0, 0, 1}, b.Greater(x, y).Data())
	assert.Equal(t, []float64{0, 1, 1}, b.GreaterEqual(x, y).Data())
	assert.Equal(t, []float64{1, 0, 0}, b.Lower(x, y).Data())
}

func TestUniform_SeededReproducible(t *testing.T) {
	a := NewSeeded(7).Uniform(4, 4)
	b := NewSeeded(7).Uniform(4, 4)

	assert.Equal(t, a.Data(), b.Data())
	for _, v := range a.Data() {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.Less(t, v, 1.0)
	}
}

func TestExpLog(t *testing.T) {
	b := New()
	x := fromSlice(t, 1, 2, []float64{0, 1})

	assert.InDeltaSlice(t, []float64{1, math.E}, b.Exp(x).Data(), 1e-12)
	assert.InDeltaSlice(t, []float64{0, 1}, b.Log(b.Exp(x)).Data(), 1e-12)
}
