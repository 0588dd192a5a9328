package ops

import (
	"fmt"

	"github.com/DanVicenteIhanus/diffusion-posterior-sampling/internal/tensor"
)

// SumOp represents a full reduction to a scalar: output = sum(x).
//
// Backward pass: the scalar gradient is broadcast back to the input
// shape, i.e. every element receives the same gradient value.
type SumOp struct {
	inputs []*tensor.RawTensor
	output *tensor.RawTensor
}

// NewSumOp creates a new SumOp.
func NewSumOp(x, output *tensor.RawTensor) *SumOp {
	return &SumOp{
		inputs: []*tensor.RawTensor{x},
		output: output,
	}
}

// Backward broadcasts the scalar gradient to the input shape.
func (op *SumOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	x := op.inputs[0]

	grad, err := tensor.NewRaw(x.Shape(), x.DType(), x.Device())
	if err != nil {
		panic(fmt.Sprintf("SumOp.Backward: failed to create gradient: %v", err))
	}

	switch x.DType() {
	case tensor.Float32:
		v := outputGrad.AsFloat32()[0]
		out := grad.AsFloat32()
		for i := range out {
			out[i] = v
		}
	case tensor.Float64:
		v := outputGrad.AsFloat64()[0]
		out := grad.AsFloat64()
		for i := range out {
			out[i] = v
		}
	default:
		panic(fmt.Sprintf("SumOp.Backward: unsupported dtype %s", x.DType()))
	}

	return []*tensor.RawTensor{grad}
}

// Inputs returns the input tensor.
func (op *SumOp) Inputs() []*tensor.RawTensor { return op.inputs }

// Output returns the output tensor.
func (op *SumOp) Output() *tensor.RawTensor { return op.output }
