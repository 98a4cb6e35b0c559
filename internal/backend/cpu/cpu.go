// Package cpu implements the CPU compute backend over gonum kernels.
package cpu

import (
	"fmt"
	"math"
	"time"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"

	"github.com/spn-ml/spn/internal/tensor"
)

// Backend implements tensor.Backend with pure-Go computation. Element-wise
// kernels and reductions delegate to gonum/floats where one exists.
type Backend struct {
	rng *rand.Rand
}

// New creates a CPU backend with a time-seeded random source.
func New() *Backend {
	return NewSeeded(uint64(time.Now().UnixNano()))
}

// NewSeeded creates a CPU backend whose random draws are reproducible for
// a given seed.
func NewSeeded(seed uint64) *Backend {
	return &Backend{rng: rand.New(rand.NewSource(seed))}
}

// Name returns the backend name.
func (b *Backend) Name() string {
	return "cpu"
}

// Add performs element-wise addition.
func (b *Backend) Add(x, y *tensor.Dense) *tensor.Dense {
	out := cloneChecked("add", x, y)
	floats.Add(out.Data(), y.Data())
	return out
}

// Sub performs element-wise subtraction.
func (b *Backend) Sub(x, y *tensor.Dense) *tensor.Dense {
	out := cloneChecked("sub", x, y)
	floats.Sub(out.Data(), y.Data())
	return out
}

// Mul performs element-wise multiplication.
func (b *Backend) Mul(x, y *tensor.Dense) *tensor.Dense {
	out := cloneChecked("mul", x, y)
	floats.Mul(out.Data(), y.Data())
	return out
}

// Div performs element-wise division.
func (b *Backend) Div(x, y *tensor.Dense) *tensor.Dense {
	out := cloneChecked("div", x, y)
	floats.Div(out.Data(), y.Data())
	return out
}

// AddScalar adds s to every element.
func (b *Backend) AddScalar(x *tensor.Dense, s float64) *tensor.Dense {
	out := x.Clone()
	floats.AddConst(s, out.Data())
	return out
}

// MulScalar multiplies every element by s.
func (b *Backend) MulScalar(x *tensor.Dense, s float64) *tensor.Dense {
	out := x.Clone()
	floats.Scale(s, out.Data())
	return out
}

// AddRow adds a row vector to every row of x.
func (b *Backend) AddRow(x *tensor.Dense, row []float64) *tensor.Dense {
	if len(row) != x.Cols() {
		panic(fmt.Sprintf("addrow: row length %d does not match %d columns", len(row), x.Cols()))
	}
	out := x.Clone()
	for i := 0; i < out.Rows(); i++ {
		floats.Add(out.Row(i), row)
	}
	return out
}

// Exp applies the exponential element-wise.
func (b *Backend) Exp(x *tensor.Dense) *tensor.Dense {
	return apply(x, math.Exp)
}

// Log applies the natural logarithm element-wise.
func (b *Backend) Log(x *tensor.Dense) *tensor.Dense {
	return apply(x, math.Log)
}

// Greater returns a 0/1 mask of a > b.
func (b *Backend) Greater(x, y *tensor.Dense) *tensor.Dense {
	return compare("greater", x, y, func(a, b float64) bool { return a > b })
}

// GreaterEqual returns a 0/1 mask of a >= b.
func (b *Backend) GreaterEqual(x, y *tensor.Dense) *tensor.Dense {
	return compare("greaterequal", x, y, func(a, b float64) bool { return a >= b })
}

// Lower returns a 0/1 mask of a < b.
func (b *Backend) Lower(x, y *tensor.Dense) *tensor.Dense {
	return compare("lower", x, y, func(a, b float64) bool { return a < b })
}

// Sum reduces along the given axis.
func (b *Backend) Sum(x *tensor.Dense, axis int) *tensor.Dense {
	return reduce("sum", x, axis, floats.Sum)
}

// LogSumExp computes log(sum(exp(x))) along the given axis without
// leaving log space.
func (b *Backend) LogSumExp(x *tensor.Dense, axis int) *tensor.Dense {
	return reduce("logsumexp", x, axis, floats.LogSumExp)
}

// CumSum computes the running sum along the given axis.
func (b *Backend) CumSum(x *tensor.Dense, axis int) *tensor.Dense {
	out := tensor.NewDense(x.Rows(), x.Cols())
	switch axis {
	case tensor.AxisCols:
		for i := 0; i < x.Rows(); i++ {
			floats.CumSum(out.Row(i), x.Row(i))
		}
	case tensor.AxisRows:
		for j := 0; j < x.Cols(); j++ {
			acc := 0.0
			for i := 0; i < x.Rows(); i++ {
				acc += x.At(i, j)
				out.Set(i, j, acc)
			}
		}
	default:
		panic(fmt.Sprintf("cumsum: invalid axis %d", axis))
	}
	return out
}

// Expand broadcasts a rows×1 matrix to rows×cols.
func (b *Backend) Expand(x *tensor.Dense, cols int) *tensor.Dense {
	if x.Cols() != 1 {
		panic(fmt.Sprintf("expand: want rows×1 input, got %dx%d", x.Rows(), x.Cols()))
	}
	out := tensor.NewDense(x.Rows(), cols)
	for i := 0; i < x.Rows(); i++ {
		v := x.At(i, 0)
		row := out.Row(i)
		for j := range row {
			row[j] = v
		}
	}
	return out
}

// Cat concatenates matrices along the given axis.
func (b *Backend) Cat(xs []*tensor.Dense, axis int) *tensor.Dense {
	if len(xs) == 0 {
		panic("cat: no matrices")
	}
	switch axis {
	case tensor.AxisCols:
		rows, cols := xs[0].Rows(), 0
		for _, x := range xs {
			if x.Rows() != rows {
				panic(fmt.Sprintf("cat: row mismatch %d vs %d", x.Rows(), rows))
			}
			cols += x.Cols()
		}
		out := tensor.NewDense(rows, cols)
		for i := 0; i < rows; i++ {
			dst := out.Row(i)
			for _, x := range xs {
				n := copy(dst, x.Row(i))
				dst = dst[n:]
			}
		}
		return out
	case tensor.AxisRows:
		cols, rows := xs[0].Cols(), 0
		for _, x := range xs {
			if x.Cols() != cols {
				panic(fmt.Sprintf("cat: column mismatch %d vs %d", x.Cols(), cols))
			}
			rows += x.Rows()
		}
		out := tensor.NewDense(rows, cols)
		dst := out.Data()
		for _, x := range xs {
			n := copy(dst, x.Data())
			dst = dst[n:]
		}
		return out
	default:
		panic(fmt.Sprintf("cat: invalid axis %d", axis))
	}
}

// Uniform draws a rows×cols matrix of U(0,1) samples.
func (b *Backend) Uniform(rows, cols int) *tensor.Dense {
	out := tensor.NewDense(rows, cols)
	data := out.Data()
	for i := range data {
		data[i] = b.rng.Float64()
	}
	return out
}

func cloneChecked(op string, x, y *tensor.Dense) *tensor.Dense {
	if !x.SameShape(y) {
		panic(fmt.Sprintf("%s: shape mismatch %dx%d vs %dx%d", op, x.Rows(), x.Cols(), y.Rows(), y.Cols()))
	}
	return x.Clone()
}

func apply(x *tensor.Dense, f func(float64) float64) *tensor.Dense {
	out := x.Clone()
	data := out.Data()
	for i, v := range data {
		data[i] = f(v)
	}
	return out
}

func compare(op string, x, y *tensor.Dense, f func(a, b float64) bool) *tensor.Dense {
	if !x.SameShape(y) {
		panic(fmt.Sprintf("%s: shape mismatch %dx%d vs %dx%d", op, x.Rows(), x.Cols(), y.Rows(), y.Cols()))
	}
	out := tensor.NewDense(x.Rows(), x.Cols())
	xd, yd, od := x.Data(), y.Data(), out.Data()
	for i := range od {
		if f(xd[i], yd[i]) {
			od[i] = 1
		}
	}
	return out
}

// reduce applies a slice reduction along an axis. The reduced dimension
// collapses to size 1.
func reduce(op string, x *tensor.Dense, axis int, f func([]float64) float64) *tensor.Dense {
	switch axis {
	case tensor.AxisCols:
		out := tensor.NewDense(x.Rows(), 1)
		for i := 0; i < x.Rows(); i++ {
			out.Set(i, 0, f(x.Row(i)))
		}
		return out
	case tensor.AxisRows:
		out := tensor.NewDense(1, x.Cols())
		for j := 0; j < x.Cols(); j++ {
			out.Set(0, j, f(x.Col(j)))
		}
		return out
	default:
		panic(fmt.Sprintf("%s: invalid axis %d", op, axis))
	}
}
