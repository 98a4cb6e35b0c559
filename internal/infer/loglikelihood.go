package infer

import (
	"fmt"

	"github.com/spn-ml/spn/internal/backend/cpu"
	"github.com/spn-ml/spn/internal/graph"
	"github.com/spn-ml/spn/internal/parallel"
	"github.com/spn-ml/spn/internal/tensor"
)

// EvalConfig configures log-likelihood evaluation.
type EvalConfig struct {
	// Backend is the compute backend. Nil selects a fresh CPU backend.
	Backend tensor.Backend

	// Ctx is the dispatch context carrying the memoization cache. Nil
	// creates a fresh one. Pass the same context to a following EM step
	// to reuse the cached per-node results.
	Ctx *graph.DispatchContext

	// SkipSupportCheck disables the per-leaf support validation of
	// observed values. Default off: support is checked.
	SkipSupportCheck bool
}

// LogLikelihood evaluates the per-row log-likelihood of data under the
// SPN rooted at root. The result has one column per root output.
//
// Rows with missing (NaN) entries are treated as marginalized over the
// missing variables: a fully missing subtree contributes 0 in log-space
// (probability 1) at every level above it.
func LogLikelihood(root graph.Node, data *tensor.Dense, cfg EvalConfig) (*tensor.Dense, error) {
	e := newEvaluator(cfg)
	return e.eval(root, data)
}

// Likelihood is the linear-space counterpart of LogLikelihood.
func Likelihood(root graph.Node, data *tensor.Dense, cfg EvalConfig) (*tensor.Dense, error) {
	e := newEvaluator(cfg)
	ll, err := e.eval(root, data)
	if err != nil {
		return nil, err
	}
	return e.backend.Exp(ll), nil
}

// evaluator is the per-call state of one log-likelihood traversal.
type evaluator struct {
	backend      tensor.Backend
	ctx          *graph.DispatchContext
	checkSupport bool
}

func newEvaluator(cfg EvalConfig) *evaluator {
	backend := cfg.Backend
	if backend == nil {
		backend = cpu.New()
	}
	ctx := cfg.Ctx
	if ctx == nil {
		ctx = graph.NewDispatchContext()
	}
	return &evaluator{backend: backend, ctx: ctx, checkSupport: !cfg.SkipSupportCheck}
}

// eval computes the node's log-likelihood matrix, consulting the cache
// first so every distinct node is computed at most once per traversal.
// On a cache hit it returns immediately without recursing into children.
func (e *evaluator) eval(n graph.Node, data *tensor.Dense) (*tensor.Dense, error) {
	if v, ok := e.ctx.Cached(logLikelihoodKey, n); ok {
		return v.(*tensor.Dense), nil
	}

	var out *tensor.Dense
	var err error
	switch v := n.(type) {
	case *graph.Sum:
		out, err = e.sum(v, data)
	case *graph.SumLayer:
		out, err = e.sumLayer(v, data)
	case *graph.Product:
		out, err = e.product(v, data)
	case *graph.HadamardProduct:
		out, err = e.hadamard(v, data)
	case graph.Leaf:
		out, err = e.leaf(v, data)
	default:
		err = fmt.Errorf("%w: log-likelihood over %T", ErrUnhandledNode, n)
	}
	if err != nil {
		return nil, err
	}

	e.ctx.Cache(logLikelihoodKey, n, out)
	return out, nil
}

// children evaluates all children and concatenates their output columns.
func (e *evaluator) children(n graph.Node, data *tensor.Dense) (*tensor.Dense, error) {
	lls := make([]*tensor.Dense, len(n.Children()))
	for i, c := range n.Children() {
		ll, err := e.eval(c, data)
		if err != nil {
			return nil, err
		}
		lls[i] = ll
	}
	return e.backend.Cat(lls, tensor.AxisCols), nil
}

// sum computes the weighted mixture in log space: logsumexp over the
// concatenated child columns shifted by the log-weights. This is the
// numerically stable equivalent of the linear-space weighted sum.
func (e *evaluator) sum(n *graph.Sum, data *tensor.Dense) (*tensor.Dense, error) {
	cat, err := e.children(n, data)
	if err != nil {
		return nil, err
	}
	shifted := e.backend.AddRow(cat, n.LogWeights())
	return e.backend.LogSumExp(shifted, tensor.AxisCols), nil
}

// sumLayer computes one mixture per output, all over the same child
// columns.
func (e *evaluator) sumLayer(n *graph.SumLayer, data *tensor.Dense) (*tensor.Dense, error) {
	cat, err := e.children(n, data)
	if err != nil {
		return nil, err
	}
	outs := make([]*tensor.Dense, n.NOut())
	for i := range outs {
		shifted := e.backend.AddRow(cat, n.LogWeights(i))
		outs[i] = e.backend.LogSumExp(shifted, tensor.AxisCols)
	}
	if len(outs) == 1 {
		return outs[0], nil
	}
	return e.backend.Cat(outs, tensor.AxisCols), nil
}

// product sums the child columns row-wise: the log-space product of
// independent children over disjoint scopes.
func (e *evaluator) product(n *graph.Product, data *tensor.Dense) (*tensor.Dense, error) {
	cat, err := e.children(n, data)
	if err != nil {
		return nil, err
	}
	return e.backend.Sum(cat, tensor.AxisCols), nil
}

// hadamard sums element-wise across children, broadcasting single-output
// children over the layer's output count.
func (e *evaluator) hadamard(n *graph.HadamardProduct, data *tensor.Dense) (*tensor.Dense, error) {
	var acc *tensor.Dense
	for _, c := range n.Children() {
		ll, err := e.eval(c, data)
		if err != nil {
			return nil, err
		}
		if ll.Cols() == 1 && n.NOut() > 1 {
			ll = e.backend.Expand(ll, n.NOut())
		}
		if acc == nil {
			acc = ll
		} else {
			acc = e.backend.Add(acc, ll)
		}
	}
	return acc, nil
}

// leaf evaluates the external collaborator: per-row log-density of the
// leaf's data column, with missing entries contributing 0 in log-space
// independent of the support check.
func (e *evaluator) leaf(l graph.Leaf, data *tensor.Dense) (*tensor.Dense, error) {
	sc := l.Scope()
	if sc.Len() != 1 {
		return nil, fmt.Errorf("%w: multivariate leaf %T with %d query variables", ErrUnhandledNode, l, sc.Len())
	}
	col := sc.Query()[0]
	if col < 0 || col >= data.Cols() {
		return nil, fmt.Errorf("leaf over variable %d but data has %d columns", col, data.Cols())
	}

	if e.checkSupport {
		mask := l.CheckSupport(data)
		for i := 0; i < data.Rows(); i++ {
			if mask.At(i, 0) == 0 {
				return nil, fmt.Errorf("%w: value %v at row %d, variable %d (%T)",
					ErrSupport, data.At(i, col), i, col, l)
			}
		}
	}

	params, err := l.RetrieveParams(data, e.ctx)
	if err != nil {
		return nil, err
	}
	dist, err := l.Dist(params)
	if err != nil {
		return nil, err
	}

	// LogProb is pure, so rows evaluate independently.
	out := tensor.NewDense(data.Rows(), 1)
	parallel.For(data.Rows(), func(i int) {
		v := data.At(i, col)
		if tensor.IsMissing(v) {
			out.Set(i, 0, 0)
			return
		}
		out.Set(i, 0, dist.LogProb(v))
	}, parallel.DefaultConfig())
	return out, nil
}
