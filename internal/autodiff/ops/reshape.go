package ops

import "github.com/DanVicenteIhanus/diffusion-posterior-sampling/internal/tensor"

// ReshapeOp represents a shape change that preserves element order:
// reshape, unsqueeze and squeeze are all recorded as this op.
//
// Backward pass: the gradient is reshaped back to the input shape.
type ReshapeOp struct {
	inputs []*tensor.RawTensor
	output *tensor.RawTensor
}

// NewReshapeOp creates a new ReshapeOp.
func NewReshapeOp(x, output *tensor.RawTensor) *ReshapeOp {
	return &ReshapeOp{
		inputs: []*tensor.RawTensor{x},
		output: output,
	}
}

// Backward reshapes the gradient back to the input shape.
func (op *ReshapeOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{backend.Reshape(outputGrad, op.inputs[0].Shape())}
}

// Inputs returns the input tensor.
func (op *ReshapeOp) Inputs() []*tensor.RawTensor { return op.inputs }

// Output returns the output tensor.
func (op *ReshapeOp) Output() *tensor.RawTensor { return op.output }
