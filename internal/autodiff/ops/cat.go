package ops

import (
	"fmt"

	"github.com/DanVicenteIhanus/diffusion-posterior-sampling/internal/tensor"
)

// CatOp represents concatenation along a dimension:
// output = cat(inputs, dim).
//
// Backward pass: the gradient is sliced back into one piece per input,
// each with the input's extent along the concatenation dimension.
type CatOp struct {
	inputs []*tensor.RawTensor
	output *tensor.RawTensor
	dim    int
}

// NewCatOp creates a new CatOp.
func NewCatOp(inputs []*tensor.RawTensor, output *tensor.RawTensor, dim int) *CatOp {
	return &CatOp{
		inputs: inputs,
		output: output,
		dim:    dim,
	}
}

// Backward splits the output gradient back into per-input gradients.
func (op *CatOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	outShape := outputGrad.Shape()
	outStrides := outShape.ComputeStrides()

	grads := make([]*tensor.RawTensor, len(op.inputs))
	offset := 0

	for i, input := range op.inputs {
		inShape := input.Shape()
		grad, err := tensor.NewRaw(inShape, outputGrad.DType(), outputGrad.Device())
		if err != nil {
			panic(fmt.Sprintf("CatOp.Backward: failed to create gradient: %v", err))
		}

		inStrides := inShape.ComputeStrides()
		n := inShape.NumElements()

		switch outputGrad.DType() {
		case tensor.Float32:
			src, dst := outputGrad.AsFloat32(), grad.AsFloat32()
			for j := 0; j < n; j++ {
				dst[j] = src[catSourceIndex(j, inShape, inStrides, outStrides, op.dim, offset)]
			}
		case tensor.Float64:
			src, dst := outputGrad.AsFloat64(), grad.AsFloat64()
			for j := 0; j < n; j++ {
				dst[j] = src[catSourceIndex(j, inShape, inStrides, outStrides, op.dim, offset)]
			}
		default:
			panic(fmt.Sprintf("CatOp.Backward: unsupported dtype %s", outputGrad.DType()))
		}

		grads[i] = grad
		offset += inShape[op.dim]
	}

	return grads
}

// catSourceIndex maps a flat index in an input slice to the flat index
// of the corresponding element in the concatenated gradient.
func catSourceIndex(flat int, inShape tensor.Shape, inStrides, outStrides []int, dim, offset int) int {
	srcIdx := 0
	temp := flat
	for d := 0; d < len(inShape); d++ {
		coord := temp / inStrides[d]
		temp %= inStrides[d]
		if d == dim {
			coord += offset
		}
		srcIdx += coord * outStrides[d]
	}
	return srcIdx
}

// Inputs returns the concatenated input tensors.
func (op *CatOp) Inputs() []*tensor.RawTensor { return op.inputs }

// Output returns the output tensor.
func (op *CatOp) Output() *tensor.RawTensor { return op.output }
