package ops

import "github.com/DanVicenteIhanus/diffusion-posterior-sampling/internal/tensor"

// SumDimOp represents a reduction along one dimension:
// output = sum(x, dim, keepDim).
//
// Backward pass: the gradient is expanded back along the reduced
// dimension, so every element that contributed to a given output
// position receives that position's gradient.
type SumDimOp struct {
	inputs  []*tensor.RawTensor
	output  *tensor.RawTensor
	dim     int
	keepDim bool
}

// NewSumDimOp creates a new SumDimOp.
func NewSumDimOp(x, output *tensor.RawTensor, dim int, keepDim bool) *SumDimOp {
	return &SumDimOp{
		inputs:  []*tensor.RawTensor{x},
		output:  output,
		dim:     dim,
		keepDim: keepDim,
	}
}

// Backward expands the reduced gradient back to the input shape.
func (op *SumDimOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	x := op.inputs[0]
	inShape := x.Shape()

	dim := op.dim
	if dim < 0 {
		dim += len(inShape)
	}

	grad := outputGrad
	if !op.keepDim {
		// Reinsert the reduced dimension so broadcasting lines up.
		keepShape := inShape.Clone()
		keepShape[dim] = 1
		grad = backend.Reshape(grad, keepShape)
	}

	return []*tensor.RawTensor{backend.Expand(grad, inShape)}
}

// Inputs returns the input tensor.
func (op *SumDimOp) Inputs() []*tensor.RawTensor { return op.inputs }

// Output returns the output tensor.
func (op *SumDimOp) Output() *tensor.RawTensor { return op.output }
