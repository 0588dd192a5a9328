package ops

import "github.com/DanVicenteIhanus/diffusion-posterior-sampling/internal/tensor"

// Conv2DOp represents a 2D convolution: output = conv2d(input, kernel).
//
// Backward pass delegates to the backend's transposed-convolution
// kernels: the input gradient is the output gradient convolved with the
// flipped kernel, and the kernel gradient is the cross-correlation of
// input and output gradient.
type Conv2DOp struct {
	inputs  []*tensor.RawTensor // [input, kernel]
	output  *tensor.RawTensor
	stride  int
	padding int
}

// NewConv2DOp creates a new Conv2DOp.
func NewConv2DOp(input, kernel, output *tensor.RawTensor, stride, padding int) *Conv2DOp {
	return &Conv2DOp{
		inputs:  []*tensor.RawTensor{input, kernel},
		output:  output,
		stride:  stride,
		padding: padding,
	}
}

// Backward computes input and kernel gradients for convolution.
func (op *Conv2DOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	input, kernel := op.inputs[0], op.inputs[1]

	gradInput := backend.Conv2DInputBackward(outputGrad, kernel, input.Shape(), op.stride, op.padding)
	gradKernel := backend.Conv2DKernelBackward(outputGrad, input, kernel.Shape(), op.stride, op.padding)

	return []*tensor.RawTensor{gradInput, gradKernel}
}

// Inputs returns the input tensors [input, kernel].
func (op *Conv2DOp) Inputs() []*tensor.RawTensor { return op.inputs }

// Output returns the output tensor.
func (op *Conv2DOp) Output() *tensor.RawTensor { return op.output }
