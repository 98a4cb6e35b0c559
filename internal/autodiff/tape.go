package autodiff

import (
	"github.com/spn-ml/spn/internal/autodiff/ops"
	"github.com/spn-ml/spn/internal/tensor"
)

// GradientTape records operations during the forward pass and computes
// gradients during the backward pass using reverse-mode automatic
// differentiation.
//
// Usage:
//
//	tape := NewGradientTape()
//	tape.StartRecording()
//	// ... perform operations ...
//	grads := tape.Backward(output, outputGrad, backend)
type GradientTape struct {
	operations []ops.Operation
	recording  bool
}

// NewGradientTape creates a new gradient tape.
func NewGradientTape() *GradientTape {
	return &GradientTape{
		operations: make([]ops.Operation, 0, 64),
	}
}

// StartRecording enables operation recording.
func (t *GradientTape) StartRecording() {
	t.recording = true
}

// StopRecording disables operation recording.
func (t *GradientTape) StopRecording() {
	t.recording = false
}

// IsRecording returns true if the tape is currently recording.
func (t *GradientTape) IsRecording() bool {
	return t.recording
}

// Record adds an operation to the tape. Only records while recording is
// enabled.
func (t *GradientTape) Record(op ops.Operation) {
	if t.recording {
		t.operations = append(t.operations, op)
	}
}

// Clear resets the tape, removing all recorded operations. Recording
// state is preserved.
func (t *GradientTape) Clear() {
	t.operations = t.operations[:0]
}

// NumOps returns the number of recorded operations.
func (t *GradientTape) NumOps() int {
	return len(t.operations)
}

// Backward computes gradients with respect to every tape tensor by
// walking the recorded operations in reverse.
//
// Algorithm:
//  1. Seed the map with outputGrad for the output tensor.
//  2. Walk operations in reverse order.
//  3. For each operation with a known output gradient, compute input
//     gradients via the chain rule.
//  4. Accumulate gradients when the same tensor feeds several operations.
//
// Returns a map from matrix identity to its accumulated gradient.
func (t *GradientTape) Backward(output, outputGrad *tensor.Dense, backend tensor.Backend) map[*tensor.Dense]*tensor.Dense {
	grads := make(map[*tensor.Dense]*tensor.Dense)
	if len(t.operations) == 0 {
		return grads
	}

	// Gradient operations must not themselves be recorded.
	wasRecording := t.recording
	t.recording = false
	defer func() {
		t.recording = wasRecording
	}()

	grads[output] = outputGrad

	for i := len(t.operations) - 1; i >= 0; i-- {
		op := t.operations[i]
		outGrad, ok := grads[op.Output()]
		if !ok {
			continue
		}
		inputGrads := op.Backward(outGrad)
		for j, input := range op.Inputs() {
			if j >= len(inputGrads) || inputGrads[j] == nil {
				continue
			}
			if existing, ok := grads[input]; ok {
				grads[input] = backend.Add(existing, inputGrads[j])
			} else {
				grads[input] = inputGrads[j]
			}
		}
	}

	return grads
}
