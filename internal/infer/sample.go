package infer

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/spn-ml/spn/internal/backend/cpu"
	"github.com/spn-ml/spn/internal/graph"
	"github.com/spn-ml/spn/internal/tensor"
)

// SamplerConfig configures ancestral sampling.
type SamplerConfig struct {
	// Seed for branch-selection reproducibility. -1 = random.
	Seed int64

	// Backend is the compute backend for branch-score evaluation. Nil
	// selects a fresh CPU backend.
	Backend tensor.Backend

	// Ctx carries the args side-channel for conditional leaves. Nil
	// creates a fresh context.
	Ctx *graph.DispatchContext

	// SkipSupportCheck disables support validation during the internal
	// branch-likelihood evaluations.
	SkipSupportCheck bool
}

// DefaultSamplerConfig returns a randomly seeded configuration.
func DefaultSamplerConfig() SamplerConfig {
	return SamplerConfig{Seed: -1}
}

// Sampler draws ancestral samples from an SPN under partial evidence.
//
// Sampling is a single top-down traversal: at each Sum node the branch
// that generated an instance is sampled from the posterior over children
// given the current (partially filled) data, then only that branch is
// descended into. Leaves draw from their own distributions for missing
// entries and never overwrite observed evidence.
type Sampler struct {
	cfg     SamplerConfig
	rng     *rand.Rand
	backend tensor.Backend
	ctx     *graph.DispatchContext
}

// NewSampler creates a sampler with the given configuration.
func NewSampler(cfg SamplerConfig) *Sampler {
	var rng *rand.Rand
	if cfg.Seed >= 0 {
		rng = rand.New(rand.NewSource(cfg.Seed)) //nolint:gosec // Intentional deterministic seed for reproducibility
	} else {
		rng = rand.New(rand.NewSource(rand.Int63())) //nolint:gosec // User requested random seed
	}
	backend := cfg.Backend
	if backend == nil {
		backend = cpu.New()
	}
	ctx := cfg.Ctx
	if ctx == nil {
		ctx = graph.NewDispatchContext()
	}
	return &Sampler{cfg: cfg, rng: rng, backend: backend, ctx: ctx}
}

// Sample fills every missing entry of data in place for all rows,
// sampling each of root's outputs.
func (s *Sampler) Sample(root graph.Node, data *tensor.Dense) error {
	rows := make([]int, data.Rows())
	for i := range rows {
		rows[i] = i
	}
	return s.SampleWith(root, data, graph.FullOutputs(root, rows))
}

// SampleWith fills missing entries for the rows and output indices named
// by sctx.
func (s *Sampler) SampleWith(root graph.Node, data *tensor.Dense, sctx *graph.SamplingContext) error {
	return s.sample(root, data, sctx)
}

func (s *Sampler) sample(n graph.Node, data *tensor.Dense, sctx *graph.SamplingContext) error {
	if len(sctx.InstanceIDs) == 0 {
		return nil
	}
	if err := sctx.Validate(n); err != nil {
		return err
	}

	switch v := n.(type) {
	case *graph.Sum:
		if err := oneOutputPerInstance(v, sctx); err != nil {
			return err
		}
		return s.mixture(v, v.LogWeights(), data, sctx.InstanceIDs)
	case *graph.SumLayer:
		if err := oneOutputPerInstance(v, sctx); err != nil {
			return err
		}
		return s.layerMixtures(v, data, sctx)
	case *graph.Product:
		for _, c := range v.Children() {
			if err := s.sample(c, data, graph.FullOutputs(c, sctx.InstanceIDs)); err != nil {
				return err
			}
		}
		return nil
	case *graph.HadamardProduct:
		return s.hadamard(v, data, sctx)
	case graph.Leaf:
		return s.leaf(v, data, sctx)
	default:
		return fmt.Errorf("%w: sample over %T", ErrUnhandledNode, n)
	}
}

// oneOutputPerInstance rejects a mixture asked to realize more than one
// branch for the same row: a sum's single logical output cannot take two
// values at once.
func oneOutputPerInstance(n graph.Node, sctx *graph.SamplingContext) error {
	for i, outs := range sctx.OutputIndices {
		if len(outs) != 1 {
			return fmt.Errorf("sample: sum node %T asked for %d outputs at row %d, want exactly 1",
				n, len(outs), sctx.InstanceIDs[i])
		}
	}
	return nil
}

// layerMixtures splits a SumLayer request by requested output and runs
// one mixture selection per weight row.
func (s *Sampler) layerMixtures(n *graph.SumLayer, data *tensor.Dense, sctx *graph.SamplingContext) error {
	byOutput := make(map[int][]int)
	for i, outs := range sctx.OutputIndices {
		byOutput[outs[0]] = append(byOutput[outs[0]], sctx.InstanceIDs[i])
	}
	for o := 0; o < n.NOut(); o++ {
		rows := byOutput[o]
		if len(rows) == 0 {
			continue
		}
		if err := s.mixture(n, n.LogWeights(o), data, rows); err != nil {
			return err
		}
	}
	return nil
}

// mixture samples a branch per row from the posterior over child outputs
// given the current data, groups rows by branch, and descends into each
// selected child with a narrowed context.
//
// Branch selection is the inverse-CDF draw: renormalized linear-space
// posterior weights are cumulated and the first branch whose cumulative
// weight reaches the uniform draw wins.
func (s *Sampler) mixture(n graph.Node, logW []float64, data *tensor.Dense, rows []int) error {
	// Child likelihoods must reflect the current partially filled data,
	// which mutates between decisions, so every selection evaluates with
	// a fresh cache (the conditional-leaf args are shared).
	e := newEvaluator(EvalConfig{
		Backend:          s.backend,
		Ctx:              s.ctx.ForkArgs(),
		SkipSupportCheck: s.cfg.SkipSupportCheck,
	})
	cat, err := e.children(n, data)
	if err != nil {
		return err
	}
	shifted := s.backend.AddRow(cat, logW)
	norm := s.backend.LogSumExp(shifted, tensor.AxisCols)

	// Posterior branch weights for the requested rows only.
	post := tensor.NewDense(len(rows), cat.Cols())
	for i, r := range rows {
		for j := 0; j < cat.Cols(); j++ {
			post.Set(i, j, math.Exp(shifted.At(r, j)-norm.At(r, 0)))
		}
	}
	cum := s.backend.CumSum(post, tensor.AxisCols)
	draw := s.backend.Expand(uniformColumn(s.rng, len(rows)), cat.Cols())
	hit := s.backend.GreaterEqual(cum, draw)

	groups := make(map[int][]int)
	for i, r := range rows {
		branch := cat.Cols() - 1 // guard against rounding in the last bucket
		for j := 0; j < cat.Cols(); j++ {
			if hit.At(i, j) == 1 {
				branch = j
				break
			}
		}
		groups[branch] = append(groups[branch], r)
	}

	// Descend in ascending branch order: subtrees consume shared random
	// sources, so a fixed descent order keeps fixed seeds reproducible.
	for branch := 0; branch < cat.Cols(); branch++ {
		rws := groups[branch]
		if len(rws) == 0 {
			continue
		}
		child, outIdx := childForColumn(n.Children(), branch)
		outs := make([][]int, len(rws))
		for i := range outs {
			outs[i] = []int{outIdx}
		}
		sctx, err := graph.NewSamplingContext(rws, outs)
		if err != nil {
			return err
		}
		if err := s.sample(child, data, sctx); err != nil {
			return err
		}
	}
	return nil
}

// hadamard forwards each row's requested output to every child, mapping
// broadcast (single-output) children to output 0.
func (s *Sampler) hadamard(n *graph.HadamardProduct, data *tensor.Dense, sctx *graph.SamplingContext) error {
	for _, c := range n.Children() {
		outs := make([][]int, len(sctx.InstanceIDs))
		for i, requested := range sctx.OutputIndices {
			mapped := make([]int, len(requested))
			for k, o := range requested {
				if c.NOut() == 1 {
					mapped[k] = 0
				} else {
					mapped[k] = o
				}
			}
			outs[i] = mapped
		}
		childCtx, err := graph.NewSamplingContext(sctx.InstanceIDs, outs)
		if err != nil {
			return err
		}
		if err := s.sample(c, data, childCtx); err != nil {
			return err
		}
	}
	return nil
}

// leaf draws from the leaf distribution for rows whose entry is missing.
// Observed entries are left untouched.
func (s *Sampler) leaf(l graph.Leaf, data *tensor.Dense, sctx *graph.SamplingContext) error {
	sc := l.Scope()
	if sc.Len() != 1 {
		return fmt.Errorf("%w: multivariate leaf %T with %d query variables", ErrUnhandledNode, l, sc.Len())
	}
	col := sc.Query()[0]

	params, err := l.RetrieveParams(data, s.ctx)
	if err != nil {
		return err
	}
	dist, err := l.Dist(params)
	if err != nil {
		return err
	}

	for _, r := range sctx.InstanceIDs {
		if tensor.IsMissing(data.At(r, col)) {
			data.Set(r, col, dist.Rand())
		}
	}
	return nil
}

// childForColumn maps a flat column index over the concatenated child
// outputs back to (child, output index within that child).
func childForColumn(children []graph.Node, col int) (graph.Node, int) {
	for _, c := range children {
		if col < c.NOut() {
			return c, col
		}
		col -= c.NOut()
	}
	panic(fmt.Sprintf("sample: branch column %d beyond child outputs", col))
}

func uniformColumn(rng *rand.Rand, rows int) *tensor.Dense {
	out := tensor.NewDense(rows, 1)
	for i := 0; i < rows; i++ {
		out.Set(i, 0, rng.Float64())
	}
	return out
}
