package infer

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/spn-ml/spn/internal/autodiff"
	"github.com/spn-ml/spn/internal/backend/cpu"
	"github.com/spn-ml/spn/internal/graph"
	"github.com/spn-ml/spn/internal/tensor"
)

// EMConfig configures one Expectation-Maximization step.
type EMConfig struct {
	// Backend is the compute backend. It must support reverse-mode
	// gradient accumulation; a plain backend is rejected with ErrNoGrad.
	// Nil selects an autodiff-wrapped CPU backend.
	Backend tensor.Backend

	// Ctx is the dispatch context. Passing the context of an immediately
	// preceding LogLikelihood call over the same data and the same
	// recording backend lets EM reuse the cached per-node results and
	// their gradients instead of recomputing them.
	Ctx *graph.DispatchContext

	// SkipSupportCheck disables support validation during the internal
	// likelihood evaluation.
	SkipSupportCheck bool
}

// EMStep performs one EM update of every mixture node reachable from
// root, in place.
//
// Expectation: for each Sum, the cached per-row log-likelihoods of the
// node and its children are combined with the gradient of the summed
// root log-likelihood with respect to the node's own output
// (logW + log(grad) + childLL - nodeLL), reduced over rows by logsumexp
// and renormalized onto the simplex.
//
// Maximization: the renormalized log-weights overwrite the node's weight
// parameterization directly; EM performs exact coordinate maximization
// for mixture weights given fixed responsibilities, not a gradient step.
func EMStep(root graph.Node, data *tensor.Dense, cfg EMConfig) error {
	backend := cfg.Backend
	if backend == nil {
		backend = autodiff.New(cpu.New())
	}
	ad, ok := backend.(autodiff.BackwardCapable)
	if !ok {
		return fmt.Errorf("%w: %s has no gradient tape", ErrNoGrad, backend.Name())
	}
	ctx := cfg.Ctx
	if ctx == nil {
		ctx = graph.NewDispatchContext()
	}

	// Expectation inputs: per-node log-likelihoods and the gradient of
	// the objective with respect to each node output. Reuse what the
	// context already carries from a preceding call; compute the rest.
	if _, ok := ctx.Cached(logLikelihoodKey, root); !ok {
		tape := ad.Tape()
		tape.Clear()
		tape.StartRecording()
		_, err := LogLikelihood(root, data, EvalConfig{Backend: ad, Ctx: ctx, SkipSupportCheck: cfg.SkipSupportCheck})
		tape.StopRecording()
		if err != nil {
			return err
		}
	}
	if _, ok := ctx.Cached(gradientKey, root); !ok {
		if err := accumulateGradients(root, ad, ctx); err != nil {
			return err
		}
	}

	for _, n := range graph.Nodes(root) {
		switch v := n.(type) {
		case *graph.Sum:
			if err := emSum(v, ctx); err != nil {
				return err
			}
		case *graph.SumLayer:
			if err := emSumLayer(v, ctx); err != nil {
				return err
			}
		default:
			// Product nodes carry no parameters; leaf parameters are
			// re-estimated through Leaf.Fit, outside the EM weight
			// update.
		}
	}
	return nil
}

// accumulateGradients walks the tape backwards from the cached root
// log-likelihood, seeding with ones (the gradient of the summed
// objective), and caches the per-node gradient matrices in the context.
func accumulateGradients(root graph.Node, ad autodiff.BackwardCapable, ctx *graph.DispatchContext) error {
	v, ok := ctx.Cached(logLikelihoodKey, root)
	if !ok {
		return fmt.Errorf("em: no cached log-likelihood for root %T", root)
	}
	rootLL := v.(*tensor.Dense)
	if ad.Tape().NumOps() == 0 {
		return fmt.Errorf("%w: gradient tape is empty (log-likelihood was not recorded)", ErrNoGrad)
	}

	ones := tensor.Full(rootLL.Rows(), rootLL.Cols(), 1)
	grads := ad.Tape().Backward(rootLL, ones, ad)

	for _, n := range graph.Nodes(root) {
		llv, ok := ctx.Cached(logLikelihoodKey, n)
		if !ok {
			continue
		}
		if g, ok := grads[llv.(*tensor.Dense)]; ok {
			ctx.Cache(gradientKey, n, g)
		}
	}
	return nil
}

func emSum(n *graph.Sum, ctx *graph.DispatchContext) error {
	nodeLL, grad, cat, ok, err := emInputs(n, ctx)
	if err != nil || !ok {
		return err
	}
	logW := n.LogWeights()
	newLW := responsibilities(logW, grad.Col(0), nodeLL.Col(0), cat)
	return n.SetLogWeights(newLW)
}

func emSumLayer(n *graph.SumLayer, ctx *graph.DispatchContext) error {
	nodeLL, grad, cat, ok, err := emInputs(n, ctx)
	if err != nil || !ok {
		return err
	}
	for o := 0; o < n.NOut(); o++ {
		newLW := responsibilities(n.LogWeights(o), grad.Col(o), nodeLL.Col(o), cat)
		if err := n.SetLogWeights(o, newLW); err != nil {
			return err
		}
	}
	return nil
}

// emInputs gathers the cached node log-likelihood, its gradient, and the
// concatenated child log-likelihood columns. ok is false when the node
// received no gradient (unreachable from the objective), in which case
// its weights are left untouched.
func emInputs(n graph.Node, ctx *graph.DispatchContext) (nodeLL, grad, cat *tensor.Dense, ok bool, err error) {
	v, cached := ctx.Cached(logLikelihoodKey, n)
	if !cached {
		return nil, nil, nil, false, fmt.Errorf("em: no cached log-likelihood for %T", n)
	}
	nodeLL = v.(*tensor.Dense)

	g, cached := ctx.Cached(gradientKey, n)
	if !cached {
		return nil, nil, nil, false, nil
	}
	grad = g.(*tensor.Dense)

	cols := make([]*tensor.Dense, 0, len(n.Children()))
	for _, c := range n.Children() {
		cv, cached := ctx.Cached(logLikelihoodKey, c)
		if !cached {
			return nil, nil, nil, false, fmt.Errorf("em: no cached log-likelihood for child %T", c)
		}
		cols = append(cols, cv.(*tensor.Dense))
	}
	cat = cpu.New().Cat(cols, tensor.AxisCols)
	return nodeLL, grad, cat, true, nil
}

// responsibilities computes the new unnormalized log-weights:
// logsumexp over rows of logW_j + log(grad_i) + childLL_ij - nodeLL_i.
// Normalization happens in SetLogWeights.
func responsibilities(logW, grad, nodeLL []float64, cat *tensor.Dense) []float64 {
	rows := cat.Rows()
	newLW := make([]float64, len(logW))
	buf := make([]float64, rows)
	for j := range logW {
		for i := 0; i < rows; i++ {
			g := grad[i]
			if g <= 0 {
				buf[i] = math.Inf(-1)
				continue
			}
			buf[i] = logW[j] + math.Log(g) + cat.At(i, j) - nodeLL[i]
		}
		newLW[j] = floats.LogSumExp(buf)
	}
	return newLW
}
