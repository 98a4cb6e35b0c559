package graph

import (
	"fmt"
	"math"
)

// Valid re-checks the structural invariants of every node reachable from
// root: scope compatibility rules, child-list non-emptiness, and weight
// vector constraints. Construction already enforces these; Valid exists
// for callers that assembled or mutated a graph through several steps and
// want a single verdict.
func Valid(root Node) error {
	for _, n := range Nodes(root) {
		switch v := n.(type) {
		case *Sum:
			if _, err := sumScope(v.children); err != nil {
				return err
			}
			if err := validSimplex(v.Weights()); err != nil {
				return fmt.Errorf("sum node: %w", err)
			}
		case *SumLayer:
			if _, err := sumScope(v.children); err != nil {
				return err
			}
			for i, row := range v.Weights() {
				if err := validSimplex(row); err != nil {
					return fmt.Errorf("sum layer output %d: %w", i, err)
				}
			}
		case *Product:
			if _, err := NewProduct(v.children); err != nil {
				return err
			}
		case *HadamardProduct:
			if _, err := NewHadamardProduct(v.children); err != nil {
				return err
			}
		case Leaf:
			if v.Scope().Len() == 0 {
				return fmt.Errorf("%w: leaf %T with empty scope", ErrInvalidStructure, v)
			}
		default:
			return fmt.Errorf("%w: unknown node kind %T", ErrInvalidStructure, n)
		}
	}
	return nil
}

func validSimplex(w []float64) error {
	sum := 0.0
	for _, v := range w {
		if v <= 0 || math.IsNaN(v) {
			return fmt.Errorf("%w: weight %v is not positive", ErrInvalidStructure, v)
		}
		sum += v
	}
	if math.Abs(sum-1) > WeightTolerance {
		return fmt.Errorf("%w: weights sum to %v, want 1", ErrInvalidStructure, sum)
	}
	return nil
}
