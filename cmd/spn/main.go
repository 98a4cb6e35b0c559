// Package main provides the SPN engine CLI.
package main

import (
	"fmt"
	"math"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/exp/rand"

	"github.com/spn-ml/spn/graph"
	"github.com/spn-ml/spn/infer"
	"github.com/spn-ml/spn/leaves"
	"github.com/spn-ml/spn/tensor"
)

const version = "v0.1.0-dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "spn",
		Short: "Sum-product network inference engine",
		Long:  "spn builds sum-product networks and runs exact inference: likelihood, marginalization, sampling and EM.",
	}
	root.AddCommand(newVersionCmd(), newDemoCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("spn %s\n", version)
		},
	}
}

func newDemoCmd() *cobra.Command {
	var (
		rows  int
		steps int
		seed  int64
	)
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Fit a two-component Gaussian mixture with EM on synthetic data",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo(cmd, rows, steps, seed)
		},
	}
	cmd.Flags().IntVar(&rows, "rows", 2000, "number of synthetic instances")
	cmd.Flags().IntVar(&steps, "steps", 20, "number of EM steps")
	cmd.Flags().Int64Var(&seed, "seed", 42, "random seed")
	return cmd
}

// runDemo draws data from a known two-component mixture, starts EM from
// uniform weights, and reports the recovered mixture weights.
func runDemo(cmd *cobra.Command, rows, steps int, seed int64) error {
	src := rand.NewSource(uint64(seed))
	rng := rand.New(src)

	trueW := []float64{0.3, 0.7}
	data := tensor.NewDense(rows, 1)
	for i := 0; i < rows; i++ {
		if rng.Float64() < trueW[0] {
			data.Set(i, 0, rng.NormFloat64()-2)
		} else {
			data.Set(i, 0, rng.NormFloat64()+2)
		}
	}

	a, err := leaves.NewGaussian(0, -2, 1, leaves.WithSource(src))
	if err != nil {
		return err
	}
	b, err := leaves.NewGaussian(0, 2, 1, leaves.WithSource(src))
	if err != nil {
		return err
	}
	mix, err := graph.NewSum([]graph.Node{a, b}, []float64{0.5, 0.5})
	if err != nil {
		return err
	}

	for s := 0; s < steps; s++ {
		if err := infer.EMStep(mix, data, infer.EMConfig{}); err != nil {
			return err
		}
	}

	ll, err := infer.LogLikelihood(mix, data, infer.EvalConfig{})
	if err != nil {
		return err
	}
	mean := 0.0
	for i := 0; i < ll.Rows(); i++ {
		mean += ll.At(i, 0)
	}
	mean /= float64(ll.Rows())

	w := mix.Weights()
	cmd.Printf("true weights:      [%.3f %.3f]\n", trueW[0], trueW[1])
	cmd.Printf("recovered weights: [%.3f %.3f]\n", w[0], w[1])
	cmd.Printf("mean log-likelihood: %.4f\n", mean)
	if math.Abs(w[0]-trueW[0]) > 0.05 && math.Abs(w[1]-trueW[0]) > 0.05 {
		cmd.Println("warning: EM did not recover the generating weights")
	}
	return nil
}
