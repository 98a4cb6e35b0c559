package tensor

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDense_PanicsOnNonPositiveDims(t *testing.T) {
	assert.Panics(t, func() { NewDense(0, 1) })
	assert.Panics(t, func() { NewDense(1, -1) })
	assert.NotPanics(t, func() { NewDense(1, 1) })
}

func TestFromSlice(t *testing.T) {
	d, err := FromSlice(2, 3, []float64{1, 2, 3, 4, 5, 6})
	require.NoError(t, err)
	assert.Equal(t, 2, d.Rows())
	assert.Equal(t, 3, d.Cols())
	assert.Equal(t, 6.0, d.At(1, 2))

	_, err = FromSlice(2, 3, []float64{1, 2})
	require.Error(t, err)
}

func TestMissingSentinel(t *testing.T) {
	assert.True(t, IsMissing(Missing()))
	assert.True(t, IsMissing(math.NaN()))
	assert.False(t, IsMissing(0))
	assert.False(t, IsMissing(math.Inf(1)))
}

func TestFull(t *testing.T) {
	d := Full(2, 2, 3.5)
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			assert.Equal(t, 3.5, d.At(i, j))
		}
	}
}

func TestRowIsView_ColIsCopy(t *testing.T) {
	d, err := FromSlice(2, 2, []float64{1, 2, 3, 4})
	require.NoError(t, err)

	d.Row(0)[1] = 9
	assert.Equal(t, 9.0, d.At(0, 1), "Row aliases the underlying data")

	col := d.Col(1)
	col[0] = -1
	assert.Equal(t, 9.0, d.At(0, 1), "Col is an independent copy")
	assert.Equal(t, []float64{9, 4}, d.Col(1))
}

func TestCloneIsIndependent(t *testing.T) {
	d := Full(1, 2, 1)
	c := d.Clone()
	c.Set(0, 0, 7)

	assert.Equal(t, 1.0, d.At(0, 0))
	assert.Equal(t, 7.0, c.At(0, 0))
}

func TestAtSet_PanicOutOfBounds(t *testing.T) {
	d := NewDense(2, 2)
	assert.Panics(t, func() { d.At(2, 0) })
	assert.Panics(t, func() { d.Set(0, 2, 1) })
}

func TestSameShape(t *testing.T) {
	assert.True(t, NewDense(2, 3).SameShape(NewDense(2, 3)))
	assert.False(t, NewDense(2, 3).SameShape(NewDense(3, 2)))
}
