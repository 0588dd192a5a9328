package ops

import "github.com/DanVicenteIhanus/diffusion-posterior-sampling/internal/tensor"

// ExpandOp represents a broadcast to a larger shape: output = expand(x).
//
// Backward pass: gradients from all broadcast positions are summed back
// into the original shape.
type ExpandOp struct {
	inputs []*tensor.RawTensor
	output *tensor.RawTensor
}

// NewExpandOp creates a new ExpandOp.
func NewExpandOp(x, output *tensor.RawTensor) *ExpandOp {
	return &ExpandOp{
		inputs: []*tensor.RawTensor{x},
		output: output,
	}
}

// Backward reduces the gradient back to the input shape.
func (op *ExpandOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{reduceBroadcast(outputGrad, op.inputs[0].Shape(), backend)}
}

// Inputs returns the input tensor.
func (op *ExpandOp) Inputs() []*tensor.RawTensor { return op.inputs }

// Output returns the output tensor.
func (op *ExpandOp) Output() *tensor.RawTensor { return op.output }
