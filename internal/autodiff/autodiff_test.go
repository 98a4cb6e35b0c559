package autodiff

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spn-ml/spn/internal/backend/cpu"
	"github.com/spn-ml/spn/internal/tensor"
)

func TestTape_RecordsOnlyWhileRecording(t *testing.T) {
	b := New(cpu.NewSeeded(1))
	x := tensor.Full(2, 2, 1)

	b.Add(x, x)
	assert.Equal(t, 0, b.Tape().NumOps(), "nothing recorded before StartRecording")

	b.Tape().StartRecording()
	b.Add(x, x)
	b.Sum(x, tensor.AxisCols)
	b.Tape().StopRecording()
	b.Add(x, x)

	assert.Equal(t, 2, b.Tape().NumOps())

	b.Tape().Clear()
	assert.Equal(t, 0, b.Tape().NumOps())
}

func TestTape_ColumnReductionsPassThrough(t *testing.T) {
	b := New(cpu.NewSeeded(1))
	x := tensor.Full(2, 2, 1)

	b.Tape().StartRecording()
	b.Sum(x, tensor.AxisRows)
	b.LogSumExp(x, tensor.AxisRows)
	b.Cat([]*tensor.Dense{x, x}, tensor.AxisRows)
	b.Tape().StopRecording()

	assert.Equal(t, 0, b.Tape().NumOps(), "row-axis reductions are not differentiated through")
}

func TestBackward_LogSumExpIsSoftmax(t *testing.T) {
	b := New(cpu.NewSeeded(1))
	x, err := tensor.FromSlice(1, 3, []float64{1, 2, 3})
	require.NoError(t, err)

	b.Tape().StartRecording()
	out := b.LogSumExp(x, tensor.AxisCols)
	b.Tape().StopRecording()

	grads := b.Tape().Backward(out, tensor.Full(1, 1, 1), b)
	g, ok := grads[x]
	require.True(t, ok)

	// Gradient of logsumexp is the softmax of the inputs.
	z := math.Exp(1) + math.Exp(2) + math.Exp(3)
	assert.InDelta(t, math.Exp(1)/z, g.At(0, 0), 1e-12)
	assert.InDelta(t, math.Exp(2)/z, g.At(0, 1), 1e-12)
	assert.InDelta(t, math.Exp(3)/z, g.At(0, 2), 1e-12)
	assert.InDelta(t, 1.0, g.At(0, 0)+g.At(0, 1)+g.At(0, 2), 1e-12)
}

func TestBackward_CatSplitsGradient(t *testing.T) {
	b := New(cpu.NewSeeded(1))
	x := tensor.Full(2, 1, 0)
	y := tensor.Full(2, 2, 0)

	b.Tape().StartRecording()
	cat := b.Cat([]*tensor.Dense{x, y}, tensor.AxisCols)
	out := b.Sum(cat, tensor.AxisCols)
	b.Tape().StopRecording()

	grads := b.Tape().Backward(out, tensor.Full(2, 1, 1), b)
	require.Contains(t, grads, x)
	require.Contains(t, grads, y)
	assert.Equal(t, []float64{1, 1}, grads[x].Data())
	assert.Equal(t, []float64{1, 1, 1, 1}, grads[y].Data())
}

func TestBackward_ExpandSumsAcrossColumns(t *testing.T) {
	b := New(cpu.NewSeeded(1))
	x := tensor.Full(2, 1, 0.5)

	b.Tape().StartRecording()
	wide := b.Expand(x, 3)
	out := b.Sum(wide, tensor.AxisCols)
	b.Tape().StopRecording()

	grads := b.Tape().Backward(out, tensor.Full(2, 1, 1), b)
	require.Contains(t, grads, x)
	assert.Equal(t, []float64{3, 3}, grads[x].Data())
}

func TestBackward_AccumulatesSharedInputs(t *testing.T) {
	b := New(cpu.NewSeeded(1))
	x := tensor.Full(1, 2, 1)

	b.Tape().StartRecording()
	sum := b.Add(x, x) // x feeds the same op twice
	out := b.Sum(sum, tensor.AxisCols)
	b.Tape().StopRecording()

	grads := b.Tape().Backward(out, tensor.Full(1, 1, 1), b)
	require.Contains(t, grads, x)
	assert.Equal(t, []float64{2, 2}, grads[x].Data())
}

func TestBackward_AddRowPassesThrough(t *testing.T) {
	b := New(cpu.NewSeeded(1))
	x := tensor.Full(2, 2, 0)

	b.Tape().StartRecording()
	shifted := b.AddRow(x, []float64{1, 2})
	out := b.Sum(shifted, tensor.AxisCols)
	b.Tape().StopRecording()

	grads := b.Tape().Backward(out, tensor.Full(2, 1, 1), b)
	require.Contains(t, grads, x)
	assert.Equal(t, []float64{1, 1, 1, 1}, grads[x].Data())
}

func TestBackward_EmptyTape(t *testing.T) {
	b := New(cpu.NewSeeded(1))
	out := tensor.Full(1, 1, 0)

	grads := b.Tape().Backward(out, tensor.Full(1, 1, 1), b)
	assert.Empty(t, grads)
}

func TestName(t *testing.T) {
	b := New(cpu.NewSeeded(1))
	assert.Equal(t, "autodiff(cpu)", b.Name())
}
