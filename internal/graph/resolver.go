package graph

import (
	"fmt"

	"github.com/spn-ml/spn/internal/tensor"
)

// ParamSource is a typed resolver for conditional parameters. A source is
// either an explicit parameter value, a callback deriving parameters from
// the evidence columns of the data batch, or empty.
//
// At the point of use the fixed priority is: explicit value supplied in
// the context args, then a callback supplied in the context args, then the
// source stored on the node itself. A conditional leaf with no resolvable
// tier fails with ErrParamResolution.
type ParamSource struct {
	value Params
	fn    func(data *tensor.Dense) (Params, error)
}

// Explicit builds a source that always yields p.
func Explicit(p Params) ParamSource {
	return ParamSource{value: p}
}

// Callback builds a source that derives parameters from the data batch.
func Callback(fn func(data *tensor.Dense) (Params, error)) ParamSource {
	return ParamSource{fn: fn}
}

// IsZero reports whether the source has neither a value nor a callback.
func (s ParamSource) IsZero() bool {
	return s.value == nil && s.fn == nil
}

// Resolve yields the parameters, preferring the explicit value over the
// callback.
func (s ParamSource) Resolve(data *tensor.Dense) (Params, error) {
	switch {
	case s.value != nil:
		return s.value.Clone(), nil
	case s.fn != nil:
		p, err := s.fn(data)
		if err != nil {
			return nil, fmt.Errorf("resolve conditional params: %w", err)
		}
		return p, nil
	default:
		return nil, ErrParamResolution
	}
}

// ResolveParams applies the three-tier priority for a conditional node:
// context-supplied explicit value, context-supplied callback, then the
// node-stored source.
func ResolveParams(n Node, nodeSrc ParamSource, data *tensor.Dense, ctx *DispatchContext) (Params, error) {
	if ctx != nil {
		if src, ok := ctx.NodeParamSource(n); ok && !src.IsZero() {
			return src.Resolve(data)
		}
	}
	if !nodeSrc.IsZero() {
		return nodeSrc.Resolve(data)
	}
	return nil, fmt.Errorf("%w: node %T has no explicit value, context callback, or stored callback", ErrParamResolution, n)
}
