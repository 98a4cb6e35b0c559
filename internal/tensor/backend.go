package tensor

// Reduction axes. Axis 0 reduces over rows (per-column result), axis 1
// reduces over columns (per-row result), matching the usual array
// convention.
const (
	AxisRows = 0
	AxisCols = 1
)

// Backend defines the compute capability set the SPN engine requires.
// The engine is written against this interface only; concrete numeric
// work lives in backend implementations.
//
// Implementations:
//   - cpu: pure Go over gonum kernels
//   - autodiff: decorator adding gradient-tape recording to any Backend
//
// Shape violations are programming errors and panic; no method returns
// an error.
type Backend interface {
	// Element-wise binary operations. Operands must share a shape.
	Add(a, b *Dense) *Dense
	Sub(a, b *Dense) *Dense
	Mul(a, b *Dense) *Dense
	Div(a, b *Dense) *Dense

	// Scalar operations.
	AddScalar(x *Dense, s float64) *Dense
	MulScalar(x *Dense, s float64) *Dense

	// AddRow adds a row vector to every row of x (broadcast).
	// len(row) must equal x.Cols().
	AddRow(x *Dense, row []float64) *Dense

	// Element-wise math.
	Exp(x *Dense) *Dense
	Log(x *Dense) *Dense

	// Comparisons, returning 0/1 masks of the operand shape.
	Greater(a, b *Dense) *Dense
	GreaterEqual(a, b *Dense) *Dense
	Lower(a, b *Dense) *Dense

	// Reductions along an axis. The reduced dimension collapses to 1,
	// so Sum(x, AxisCols) of a rows×k matrix is rows×1.
	Sum(x *Dense, axis int) *Dense
	LogSumExp(x *Dense, axis int) *Dense

	// CumSum computes the running sum along an axis, keeping the shape.
	CumSum(x *Dense, axis int) *Dense

	// Expand broadcasts a rows×1 matrix to rows×cols.
	Expand(x *Dense, cols int) *Dense

	// Cat concatenates matrices along an axis.
	Cat(xs []*Dense, axis int) *Dense

	// Uniform draws a rows×cols matrix of U(0,1) samples from the
	// backend's random source.
	Uniform(rows, cols int) *Dense

	// Name returns the backend name.
	Name() string
}
