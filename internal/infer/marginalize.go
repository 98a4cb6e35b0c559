package infer

import (
	"fmt"

	"github.com/spn-ml/spn/internal/graph"
	"github.com/spn-ml/spn/internal/scope"
)

// MarginalizeConfig configures structural marginalization.
type MarginalizeConfig struct {
	// KeepRedundantNodes disables the pruning of a trivial one-child,
	// one-output Product left behind by partial marginalization.
	// Default off: such wrappers are replaced by their child.
	KeepRedundantNodes bool

	// Ctx is the dispatch context carrying the memoization cache. Nil
	// creates a fresh one. Memoization also preserves sharing: a subtree
	// referenced by several parents marginalizes to one shared result.
	Ctx *graph.DispatchContext
}

// Marginalize rewrites the graph rooted at root to integrate out the
// variables in margRVs, returning a new, independent graph. It returns
// nil when every variable in root's scope is eliminated. The original
// graph is never aliased: untouched subtrees come back as deep copies.
func Marginalize(root graph.Node, margRVs []int, cfg MarginalizeConfig) (graph.Node, error) {
	ctx := cfg.Ctx
	if ctx == nil {
		ctx = graph.NewDispatchContext()
	}
	m := &marginalizer{rvs: margRVs, prune: !cfg.KeepRedundantNodes, ctx: ctx}
	return m.marg(root)
}

type marginalizer struct {
	rvs   []int
	prune bool
	ctx   *graph.DispatchContext
}

func (m *marginalizer) marg(n graph.Node) (graph.Node, error) {
	if v, ok := m.ctx.Cached(marginalizeKey, n); ok {
		if v == nil {
			return nil, nil
		}
		return v.(graph.Node), nil
	}

	var out graph.Node
	var err error
	switch v := n.(type) {
	case *graph.Sum:
		out, err = m.sum(v)
	case *graph.SumLayer:
		out, err = m.sumLayer(v)
	case *graph.Product:
		out, err = m.product(v)
	case *graph.HadamardProduct:
		out, err = m.hadamard(v)
	case graph.Leaf:
		out, err = m.leaf(v)
	default:
		err = fmt.Errorf("%w: marginalize over %T", ErrUnhandledNode, n)
	}
	if err != nil {
		return nil, err
	}

	if out == nil {
		m.ctx.Cache(marginalizeKey, n, nil)
	} else {
		m.ctx.Cache(marginalizeKey, n, out)
	}
	return out, nil
}

// leaf vanishes when its whole query is eliminated; otherwise it comes
// back as an independent copy.
func (m *marginalizer) leaf(l graph.Leaf) (graph.Node, error) {
	if l.Scope().QuerySubsetOf(m.rvs) {
		return nil, nil
	}
	return l.Clone(), nil
}

// survivors marginalizes every child and drops the ones that vanish.
func (m *marginalizer) survivors(n graph.Node) ([]graph.Node, error) {
	var out []graph.Node
	for _, c := range n.Children() {
		mc, err := m.marg(c)
		if err != nil {
			return nil, err
		}
		if mc != nil {
			out = append(out, mc)
		}
	}
	return out, nil
}

// sum is fully eliminated, partially rewritten, or copied. On partial
// marginalization it never prunes: the weight vector stays meaningful
// even over a single surviving child, so survivors are always re-wrapped
// with the original weights.
func (m *marginalizer) sum(n *graph.Sum) (graph.Node, error) {
	if n.Scope().QuerySubsetOf(m.rvs) {
		return nil, nil
	}
	children, err := m.survivors(n)
	if err != nil {
		return nil, err
	}
	return graph.NewSum(children, n.Weights())
}

func (m *marginalizer) sumLayer(n *graph.SumLayer) (graph.Node, error) {
	if n.Scope().QuerySubsetOf(m.rvs) {
		return nil, nil
	}
	children, err := m.survivors(n)
	if err != nil {
		return nil, err
	}
	return graph.NewSumLayer(children, n.NOut(), n.Weights())
}

// product prunes a lone single-output survivor of a partial
// marginalization instead of wrapping it: product scope is a disjoint
// partition, so dropping a partition member is structurally transparent.
func (m *marginalizer) product(n *graph.Product) (graph.Node, error) {
	sc := n.Scope()
	mutual := sc.QueryIntersect(m.rvs)
	if len(mutual) == sc.Len() {
		return nil, nil
	}
	children, err := m.survivors(n)
	if err != nil {
		return nil, err
	}
	if m.prune && len(mutual) > 0 && len(children) == 1 && children[0].NOut() == 1 {
		return children[0], nil
	}
	return graph.NewProduct(children)
}

func (m *marginalizer) hadamard(n *graph.HadamardProduct) (graph.Node, error) {
	query := hadamardQuery(n)
	mutual := query.QueryIntersect(m.rvs)
	if len(mutual) == query.Len() {
		return nil, nil
	}
	children, err := m.survivors(n)
	if err != nil {
		return nil, err
	}
	if m.prune && len(mutual) > 0 && len(children) == 1 {
		return children[0], nil
	}
	return graph.NewHadamardProduct(children)
}

// hadamardQuery unions the per-output query sets of a Hadamard layer.
func hadamardQuery(n *graph.HadamardProduct) scope.Scope {
	seen := make(map[int]bool)
	var query []int
	for _, sc := range n.ScopesOut() {
		for _, v := range sc.Query() {
			if !seen[v] {
				seen[v] = true
				query = append(query, v)
			}
		}
	}
	union, err := scope.New(query, nil)
	if err != nil {
		// Unreachable: the per-output scopes are duplicate-free and the
		// set above deduplicates across outputs.
		panic(err)
	}
	return union
}
