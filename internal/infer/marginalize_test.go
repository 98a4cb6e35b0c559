package infer

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spn-ml/spn/internal/graph"
	"github.com/spn-ml/spn/internal/tensor"
)

func TestMarginalize_EliminatingEverythingYieldsNil(t *testing.T) {
	root := twoVarMixture(t)

	out, err := Marginalize(root, []int{0, 1}, MarginalizeConfig{})
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestMarginalize_NothingYieldsDeepCopy(t *testing.T) {
	root := twoVarMixture(t)

	out, err := Marginalize(root, nil, MarginalizeConfig{})
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.NotSame(t, graph.Node(root), out, "result never aliases the original")

	data := fromSlice(t, 2, 2, []float64{0.5, 1.0, -1.5, 0.2})
	want, err := LogLikelihood(root, data, EvalConfig{})
	require.NoError(t, err)
	got, err := LogLikelihood(out, data, EvalConfig{})
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		assert.InDelta(t, want.At(i, 0), got.At(i, 0), 1e-12)
	}
}

func TestMarginalize_MixtureKeepsWeights(t *testing.T) {
	// Integrating x1 out of a mixture of two-variable products leaves a
	// mixture of the x0 leaves. Products collapse onto their surviving
	// leaf; the sum keeps its weights.
	root := twoVarMixture(t)

	out, err := Marginalize(root, []int{1}, MarginalizeConfig{})
	require.NoError(t, err)

	sum, ok := out.(*graph.Sum)
	require.True(t, ok)
	assert.InDeltaSlice(t, []float64{0.3, 0.7}, sum.Weights(), 1e-12)

	for _, c := range sum.Children() {
		_, isLeaf := c.(graph.Leaf)
		assert.True(t, isLeaf, "trivial product wrappers are pruned")
	}
	assert.Equal(t, []int{0}, sum.Scope().Query())

	// The reduced model matches the analytic marginal of the mixture.
	x := 0.8
	data := fromSlice(t, 1, 2, []float64{x, tensor.Missing()})
	ll, err := LogLikelihood(out, data, EvalConfig{})
	require.NoError(t, err)
	want := math.Log(0.3*math.Exp(normalLogPDF(x, -2, 1)) + 0.7*math.Exp(normalLogPDF(x, 2, 1)))
	assert.InDelta(t, want, ll.At(0, 0), 1e-12)
}

func TestMarginalize_MatchesMissingDataEvaluation(t *testing.T) {
	// Structural marginalization and NaN-based marginalization agree.
	root := twoVarMixture(t)
	out, err := Marginalize(root, []int{1}, MarginalizeConfig{})
	require.NoError(t, err)

	data := fromSlice(t, 1, 2, []float64{0.8, tensor.Missing()})
	structural, err := LogLikelihood(out, data, EvalConfig{})
	require.NoError(t, err)
	missing, err := LogLikelihood(root, data, EvalConfig{})
	require.NoError(t, err)
	assert.InDelta(t, missing.At(0, 0), structural.At(0, 0), 1e-12)
}

func TestMarginalize_KeepRedundantNodes(t *testing.T) {
	root := twoVarMixture(t)

	out, err := Marginalize(root, []int{1}, MarginalizeConfig{KeepRedundantNodes: true})
	require.NoError(t, err)

	sum, ok := out.(*graph.Sum)
	require.True(t, ok)
	for _, c := range sum.Children() {
		_, isProduct := c.(*graph.Product)
		assert.True(t, isProduct, "one-child products survive when pruning is off")
	}
}

func TestMarginalize_OriginalUntouched(t *testing.T) {
	root := twoVarMixture(t)
	before, err := LogLikelihood(root, fromSlice(t, 1, 2, []float64{0.1, 0.2}), EvalConfig{})
	require.NoError(t, err)

	out, err := Marginalize(root, []int{1}, MarginalizeConfig{})
	require.NoError(t, err)

	// Mutating the result must not leak into the original graph.
	outSum := out.(*graph.Sum)
	for _, c := range outSum.Children() {
		leaf := c.(graph.Leaf)
		require.NoError(t, leaf.SetParams(graph.Params{"mu": 99, "sigma": 1}))
	}

	after, err := LogLikelihood(root, fromSlice(t, 1, 2, []float64{0.1, 0.2}), EvalConfig{})
	require.NoError(t, err)
	assert.Equal(t, before.At(0, 0), after.At(0, 0))
	assert.NoError(t, graph.Valid(root))
}

func TestMarginalize_PreservesSharing(t *testing.T) {
	// A leaf shared by both mixture branches marginalizes to one shared
	// clone, not two.
	shared := gaussian(t, 0, 0, 1)
	left, err := graph.NewProduct([]graph.Node{shared, gaussian(t, 1, -1, 1)})
	require.NoError(t, err)
	right, err := graph.NewProduct([]graph.Node{shared, gaussian(t, 1, 1, 1)})
	require.NoError(t, err)
	root, err := graph.NewSum([]graph.Node{left, right}, []float64{0.5, 0.5})
	require.NoError(t, err)

	out, err := Marginalize(root, []int{1}, MarginalizeConfig{})
	require.NoError(t, err)

	sum := out.(*graph.Sum)
	require.Len(t, sum.Children(), 2)
	assert.Same(t, sum.Children()[0], sum.Children()[1])
}

func TestMarginalize_SumNeverPrunes(t *testing.T) {
	// Even a sum left with one surviving child keeps its mixture wrapper:
	// the weight vector stays meaningful.
	lone, err := graph.NewSum([]graph.Node{twoVarMixture(t)}, []float64{1})
	require.NoError(t, err)

	out, err := Marginalize(lone, []int{1}, MarginalizeConfig{})
	require.NoError(t, err)
	_, ok := out.(*graph.Sum)
	assert.True(t, ok)
}

func TestMarginalize_PartialProduct(t *testing.T) {
	// A three-variable product losing one variable keeps the other two.
	p, err := graph.NewProduct([]graph.Node{
		gaussian(t, 0, 0, 1),
		gaussian(t, 1, 0, 1),
		gaussian(t, 2, 0, 1),
	})
	require.NoError(t, err)

	out, err := Marginalize(p, []int{2}, MarginalizeConfig{})
	require.NoError(t, err)

	prod, ok := out.(*graph.Product)
	require.True(t, ok)
	assert.Len(t, prod.Children(), 2)
	assert.Equal(t, []int{0, 1}, prod.Scope().Query())
}
