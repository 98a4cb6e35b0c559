// Copyright 2025 SPN ML Engine. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package infer_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spn-ml/spn/graph"
	"github.com/spn-ml/spn/infer"
	"github.com/spn-ml/spn/leaves"
	"github.com/spn-ml/spn/tensor"
)

func buildMixture(t *testing.T) *graph.Sum {
	t.Helper()
	a, err := leaves.NewGaussian(0, -5, 1)
	require.NoError(t, err)
	b, err := leaves.NewGaussian(0, 5, 1)
	require.NoError(t, err)
	root, err := graph.NewSum([]graph.Node{a, b}, []float64{0.5, 0.5})
	require.NoError(t, err)
	return root
}

func TestEndToEnd_LikelihoodMarginalizeSampleEM(t *testing.T) {
	root := buildMixture(t)

	data := tensor.NewDense(100, 1)
	for i := 0; i < 100; i++ {
		if i < 30 {
			data.Set(i, 0, -5)
		} else {
			data.Set(i, 0, 5)
		}
	}

	ll, err := infer.LogLikelihood(root, data, infer.EvalConfig{})
	require.NoError(t, err)
	l, err := infer.Likelihood(root, data, infer.EvalConfig{})
	require.NoError(t, err)
	assert.InDelta(t, math.Exp(ll.At(0, 0)), l.At(0, 0), 1e-12)

	// Integrating out the only variable removes the whole model.
	gone, err := infer.Marginalize(root, []int{0}, infer.MarginalizeConfig{})
	require.NoError(t, err)
	assert.Nil(t, gone)

	// One EM step reweights toward the 30/70 split.
	require.NoError(t, infer.EMStep(root, data, infer.EMConfig{}))
	w := root.Weights()
	assert.InDelta(t, 0.3, w[0], 1e-3)

	// Sampling completes a missing batch without touching evidence.
	batch := tensor.NewDense(10, 1)
	for i := 0; i < 10; i++ {
		batch.Set(i, 0, tensor.Missing())
	}
	batch.Set(0, 0, 1.25)
	s := infer.NewSampler(infer.SamplerConfig{Seed: 4})
	require.NoError(t, s.Sample(root, batch))
	assert.Equal(t, 1.25, batch.At(0, 0))
	for i := 1; i < 10; i++ {
		assert.False(t, tensor.IsMissing(batch.At(i, 0)))
	}
}

func TestSentinelErrorsExported(t *testing.T) {
	root := buildMixture(t)
	data := tensor.NewDense(1, 1)

	err := infer.EMStep(root, data, infer.EMConfig{Backend: nil})
	require.NoError(t, err, "nil backend defaults to an autodiff CPU backend")

	g, err := leaves.NewGamma(0, 1, 1)
	require.NoError(t, err)
	bad := tensor.Full(1, 1, -1)
	_, err = infer.LogLikelihood(g, bad, infer.EvalConfig{})
	require.ErrorIs(t, err, infer.ErrSupport)
}
