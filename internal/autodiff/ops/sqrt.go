package ops

import "github.com/DanVicenteIhanus/diffusion-posterior-sampling/internal/tensor"

// SqrtOp represents the element-wise square root: output = sqrt(x).
//
// Backward pass: d(sqrt(x))/dx = 1/(2*sqrt(x)) = 1/(2*output),
// so grad_x = outputGrad / (output + output).
type SqrtOp struct {
	inputs []*tensor.RawTensor
	output *tensor.RawTensor
}

// NewSqrtOp creates a new SqrtOp.
func NewSqrtOp(x, output *tensor.RawTensor) *SqrtOp {
	return &SqrtOp{
		inputs: []*tensor.RawTensor{x},
		output: output,
	}
}

// Backward computes the input gradient for square root.
func (op *SqrtOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	// twice = 2*sqrt(x), written as output+output to stay dtype-agnostic
	twice := backend.Add(op.output, op.output)
	return []*tensor.RawTensor{backend.Div(outputGrad, twice)}
}

// Inputs returns the input tensor.
func (op *SqrtOp) Inputs() []*tensor.RawTensor { return op.inputs }

// Output returns the output tensor.
func (op *SqrtOp) Output() *tensor.RawTensor { return op.output }
