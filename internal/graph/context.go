package graph

import "fmt"

// DispatchContext is the per-call state threaded through every recursive
// algorithm. It holds the memoization cache that makes graph-wide
// algorithms cost O(nodes) on a DAG instead of O(paths), and an args
// side-channel through which conditional leaves receive externally
// supplied parameters.
//
// The cache is keyed by algorithm name and node identity: two
// structurally identical but distinct node instances cache separately.
// A context is single-owner for the lifetime of one top-level call; it is
// not safe for concurrent traversals.
type DispatchContext struct {
	cache map[string]map[Node]any
	args  map[Node]map[string]any
}

// NewDispatchContext creates an empty context. Reusing one context across
// calls shares the cache, which is how EM reads the log-likelihood
// results of the preceding evaluation.
func NewDispatchContext() *DispatchContext {
	return &DispatchContext{
		cache: make(map[string]map[Node]any),
		args:  make(map[Node]map[string]any),
	}
}

// Cached returns the memoized value for (name, node), if present.
func (c *DispatchContext) Cached(name string, n Node) (any, bool) {
	v, ok := c.cache[name][n]
	return v, ok
}

// Cache stores a computed value for (name, node), overwriting any
// previous entry.
func (c *DispatchContext) Cache(name string, n Node, v any) {
	m, ok := c.cache[name]
	if !ok {
		m = make(map[Node]any)
		c.cache[name] = m
	}
	m[n] = v
}

// SetArg attaches an externally supplied argument to a node.
func (c *DispatchContext) SetArg(n Node, key string, v any) {
	m, ok := c.args[n]
	if !ok {
		m = make(map[string]any)
		c.args[n] = m
	}
	m[key] = v
}

// Arg returns the externally supplied argument for (node, key).
func (c *DispatchContext) Arg(n Node, key string) (any, bool) {
	v, ok := c.args[n][key]
	return v, ok
}

// paramSourceKey is the args key conditional leaves resolve through.
const paramSourceKey = "params"

// SetParamSource attaches a parameter source for a conditional node.
func (c *DispatchContext) SetParamSource(n Node, src ParamSource) {
	c.SetArg(n, paramSourceKey, src)
}

// NodeParamSource returns the context-supplied parameter source for n.
func (c *DispatchContext) NodeParamSource(n Node) (ParamSource, bool) {
	v, ok := c.Arg(n, paramSourceKey)
	if !ok {
		return ParamSource{}, false
	}
	src, ok := v.(ParamSource)
	return src, ok
}

// ForkArgs creates a context with an empty cache that shares this
// context's args side-channel. Sampling uses it to re-evaluate branch
// likelihoods on mutating data without discarding conditional-leaf
// arguments.
func (c *DispatchContext) ForkArgs() *DispatchContext {
	return &DispatchContext{
		cache: make(map[string]map[Node]any),
		args:  c.args,
	}
}

// SamplingContext names, for one sample call, the data rows being sampled
// and the output indices of the current node that must be produced for
// each row. It is narrowed at every descent into a child and discarded
// when the call returns.
type SamplingContext struct {
	// InstanceIDs are the row indices in the data batch.
	InstanceIDs []int

	// OutputIndices holds, per instance, the output indices of the
	// current node to realize. Parallel to InstanceIDs.
	OutputIndices [][]int
}

// NewSamplingContext pairs instance ids with per-instance output index
// lists. The two slices must have equal length.
func NewSamplingContext(instanceIDs []int, outputIndices [][]int) (*SamplingContext, error) {
	if len(instanceIDs) != len(outputIndices) {
		return nil, fmt.Errorf("sampling context: %d instances but %d output index lists",
			len(instanceIDs), len(outputIndices))
	}
	return &SamplingContext{InstanceIDs: instanceIDs, OutputIndices: outputIndices}, nil
}

// FullOutputs builds a context asking node n for all of its outputs on
// every listed instance.
func FullOutputs(n Node, instanceIDs []int) *SamplingContext {
	all := make([]int, n.NOut())
	for i := range all {
		all[i] = i
	}
	outs := make([][]int, len(instanceIDs))
	for i := range outs {
		outs[i] = all
	}
	return &SamplingContext{InstanceIDs: instanceIDs, OutputIndices: outs}
}

// Validate checks the context invariants against node n: parallel slice
// lengths and output indices within [0, NOut).
func (s *SamplingContext) Validate(n Node) error {
	if len(s.InstanceIDs) != len(s.OutputIndices) {
		return fmt.Errorf("sampling context: %d instances but %d output index lists",
			len(s.InstanceIDs), len(s.OutputIndices))
	}
	for i, outs := range s.OutputIndices {
		for _, o := range outs {
			if o < 0 || o >= n.NOut() {
				return fmt.Errorf("sampling context: output index %d out of range [0,%d) for instance %d",
					o, n.NOut(), s.InstanceIDs[i])
			}
		}
	}
	return nil
}
