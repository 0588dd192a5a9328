package ops

import "github.com/DanVicenteIhanus/diffusion-posterior-sampling/internal/tensor"

// ExpOp represents the element-wise exponential: output = exp(x).
//
// Backward pass: d(exp(x))/dx = exp(x) = output, so grad_x = outputGrad * output.
type ExpOp struct {
	inputs []*tensor.RawTensor
	output *tensor.RawTensor
}

// NewExpOp creates a new ExpOp.
func NewExpOp(x, output *tensor.RawTensor) *ExpOp {
	return &ExpOp{
		inputs: []*tensor.RawTensor{x},
		output: output,
	}
}

// Backward computes the input gradient for exponential.
func (op *ExpOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{backend.Mul(outputGrad, op.output)}
}

// Inputs returns the input tensor.
func (op *ExpOp) Inputs() []*tensor.RawTensor { return op.inputs }

// Output returns the output tensor.
func (op *ExpOp) Output() *tensor.RawTensor { return op.output }
