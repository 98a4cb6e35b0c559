package graph

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spn-ml/spn/internal/scope"
	"github.com/spn-ml/spn/internal/tensor"
)

// stubLeaf is a minimal leaf for structural tests. Its density is a unit
// point mass so likelihood-free tests never depend on real distributions.
type stubLeaf struct {
	sc scope.Scope
}

func newStubLeaf(vars ...int) *stubLeaf {
	return &stubLeaf{sc: scope.Of(vars...)}
}

func (l *stubLeaf) Children() []Node          { return nil }
func (l *stubLeaf) NOut() int                 { return 1 }
func (l *stubLeaf) ScopesOut() []scope.Scope  { return []scope.Scope{l.sc} }
func (l *stubLeaf) Scope() scope.Scope        { return l.sc }
func (l *stubLeaf) Params() Params            { return nil }
func (l *stubLeaf) SetParams(Params) error    { return nil }
func (l *stubLeaf) Fit(*tensor.Dense) error   { return nil }
func (l *stubLeaf) Clone() Leaf               { c := *l; return &c }
func (l *stubLeaf) Dist(Params) (Distribution, error) {
	return nil, fmt.Errorf("stub leaf has no distribution")
}
func (l *stubLeaf) CheckSupport(data *tensor.Dense) *tensor.Dense {
	return tensor.Full(data.Rows(), 1, 1)
}
func (l *stubLeaf) RetrieveParams(*tensor.Dense, *DispatchContext) (Params, error) {
	return nil, nil
}

func TestNewSum_ValidatesWeights(t *testing.T) {
	children := []Node{newStubLeaf(0), newStubLeaf(0)}

	_, err := NewSum(children, []float64{0.5})
	require.ErrorIs(t, err, ErrInvalidStructure, "wrong length")

	_, err = NewSum(children, []float64{1.2, -0.2})
	require.ErrorIs(t, err, ErrInvalidStructure, "negative weight")

	_, err = NewSum(children, []float64{0.6, 0.6})
	require.ErrorIs(t, err, ErrInvalidStructure, "does not sum to one")

	s, err := NewSum(children, []float64{0.3, 0.7})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0.3, 0.7}, s.Weights(), 1e-12)
}

func TestNewSum_RandomWeightsAreSimplex(t *testing.T) {
	s, err := NewSum([]Node{newStubLeaf(0), newStubLeaf(0), newStubLeaf(0)}, nil)
	require.NoError(t, err)

	sum := 0.0
	for _, w := range s.Weights() {
		assert.Greater(t, w, 0.0)
		sum += w
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestNewSum_RejectsQueryMismatch(t *testing.T) {
	_, err := NewSum([]Node{newStubLeaf(0), newStubLeaf(1)}, []float64{0.5, 0.5})
	require.ErrorIs(t, err, ErrInvalidStructure)
}

func TestNewSum_RejectsEmptyChildren(t *testing.T) {
	_, err := NewSum(nil, nil)
	require.ErrorIs(t, err, ErrInvalidStructure)
}

func TestSum_SetLogWeightsRenormalizes(t *testing.T) {
	s, err := NewSum([]Node{newStubLeaf(0), newStubLeaf(0)}, []float64{0.5, 0.5})
	require.NoError(t, err)

	// Unnormalized log responsibilities; projection must land on the
	// simplex.
	require.NoError(t, s.SetLogWeights([]float64{math.Log(2), math.Log(6)}))
	assert.InDeltaSlice(t, []float64{0.25, 0.75}, s.Weights(), 1e-12)

	require.Error(t, s.SetLogWeights([]float64{0}))
}

func TestSum_ScopeMergesEvidence(t *testing.T) {
	condA, err := scope.New([]int{0}, []int{2})
	require.NoError(t, err)
	condB, err := scope.New([]int{0}, []int{3})
	require.NoError(t, err)
	a := &stubLeaf{sc: condA}
	b := &stubLeaf{sc: condB}

	s, err := NewSum([]Node{a, b}, []float64{0.5, 0.5})
	require.NoError(t, err)
	assert.Equal(t, []int{0}, s.Scope().Query())
	assert.Equal(t, []int{2, 3}, s.Scope().Evidence())
}

func TestNewSumLayer(t *testing.T) {
	children := []Node{newStubLeaf(0), newStubLeaf(0)}

	_, err := NewSumLayer(children, 0, nil)
	require.ErrorIs(t, err, ErrInvalidStructure)

	l, err := NewSumLayer(children, 2, [][]float64{{0.3, 0.7}, {0.9, 0.1}})
	require.NoError(t, err)
	assert.Equal(t, 2, l.NOut())
	assert.InDeltaSlice(t, []float64{0.9, 0.1}, l.Weights()[1], 1e-12)

	_, err = NewSumLayer(children, 3, [][]float64{{0.5, 0.5}})
	require.ErrorIs(t, err, ErrInvalidStructure, "row count must match outputs")
}

func TestNewProduct_RequiresDisjointScopes(t *testing.T) {
	_, err := NewProduct([]Node{newStubLeaf(0), newStubLeaf(0)})
	require.ErrorIs(t, err, ErrInvalidStructure)

	p, err := NewProduct([]Node{newStubLeaf(0), newStubLeaf(1)})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, p.Scope().Query())
	assert.Equal(t, 1, p.NOut())
}

func TestNewHadamardProduct_BroadcastRules(t *testing.T) {
	layer, err := NewSumLayer([]Node{newStubLeaf(0), newStubLeaf(0)}, 3, nil)
	require.NoError(t, err)

	// Single-output children broadcast against the 3-output layer.
	h, err := NewHadamardProduct([]Node{layer, newStubLeaf(1)})
	require.NoError(t, err)
	assert.Equal(t, 3, h.NOut())

	// A 2-output child cannot align with a 3-output layer.
	two, err := NewSumLayer([]Node{newStubLeaf(1), newStubLeaf(1)}, 2, nil)
	require.NoError(t, err)
	_, err = NewHadamardProduct([]Node{layer, two})
	require.ErrorIs(t, err, ErrInvalidStructure)
}

func TestNewHadamardProduct_RequiresDisjointScopesPerOutput(t *testing.T) {
	_, err := NewHadamardProduct([]Node{newStubLeaf(0), newStubLeaf(0)})
	require.ErrorIs(t, err, ErrInvalidStructure)
}

func TestNodes_PostOrderDedup(t *testing.T) {
	shared := newStubLeaf(0)
	other := newStubLeaf(1)
	p1, err := NewProduct([]Node{shared, other})
	require.NoError(t, err)
	p2, err := NewProduct([]Node{shared, newStubLeaf(1)})
	require.NoError(t, err)
	root, err := NewSum([]Node{p1, p2}, []float64{0.5, 0.5})
	require.NoError(t, err)

	nodes := Nodes(root)
	assert.Len(t, nodes, 5, "shared leaf appears once")
	assert.Same(t, root, nodes[len(nodes)-1], "root comes last")

	count := 0
	for _, n := range nodes {
		if n == Node(shared) {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestValid(t *testing.T) {
	root, err := NewSum([]Node{newStubLeaf(0), newStubLeaf(0)}, []float64{0.4, 0.6})
	require.NoError(t, err)
	assert.NoError(t, Valid(root))
}

func TestDispatchContext_CacheByIdentity(t *testing.T) {
	ctx := NewDispatchContext()
	a := newStubLeaf(0)
	b := newStubLeaf(0) // structurally identical, distinct identity

	ctx.Cache("ll", a, 1)
	_, ok := ctx.Cached("ll", b)
	assert.False(t, ok)

	v, ok := ctx.Cached("ll", a)
	require.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestDispatchContext_ForkArgsSharesArgsNotCache(t *testing.T) {
	ctx := NewDispatchContext()
	n := newStubLeaf(0)
	ctx.Cache("ll", n, 1)
	ctx.SetParamSource(n, Explicit(Params{"mu": 2}))

	fork := ctx.ForkArgs()
	_, ok := fork.Cached("ll", n)
	assert.False(t, ok, "cache does not carry over")

	src, ok := fork.NodeParamSource(n)
	require.True(t, ok, "args side-channel is shared")
	p, err := src.Resolve(nil)
	require.NoError(t, err)
	assert.Equal(t, 2.0, p["mu"])
}

func TestParamSource_ResolutionPriority(t *testing.T) {
	n := newStubLeaf(0)
	nodeSrc := Callback(func(*tensor.Dense) (Params, error) {
		return Params{"mu": 1}, nil
	})

	// No context: the node-stored source wins.
	p, err := ResolveParams(n, nodeSrc, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1.0, p["mu"])

	// Context-supplied source takes priority.
	ctx := NewDispatchContext()
	ctx.SetParamSource(n, Explicit(Params{"mu": 9}))
	p, err = ResolveParams(n, nodeSrc, nil, ctx)
	require.NoError(t, err)
	assert.Equal(t, 9.0, p["mu"])

	// Nothing resolvable anywhere.
	_, err = ResolveParams(n, ParamSource{}, nil, nil)
	require.ErrorIs(t, err, ErrParamResolution)
}

func TestSamplingContext(t *testing.T) {
	n := newStubLeaf(0)

	_, err := NewSamplingContext([]int{0, 1}, [][]int{{0}})
	require.Error(t, err)

	sctx := FullOutputs(n, []int{0, 2})
	require.NoError(t, sctx.Validate(n))
	assert.Equal(t, [][]int{{0}, {0}}, sctx.OutputIndices)

	bad := &SamplingContext{InstanceIDs: []int{0}, OutputIndices: [][]int{{3}}}
	require.Error(t, bad.Validate(n))
}
