package ops

import (
	"fmt"

	"github.com/DanVicenteIhanus/diffusion-posterior-sampling/internal/tensor"
)

// ReLUOp represents the rectified linear unit: output = max(x, 0).
//
// Backward pass: grad_x = outputGrad where x > 0, zero elsewhere.
type ReLUOp struct {
	inputs []*tensor.RawTensor
	output *tensor.RawTensor
}

// NewReLUOp creates a new ReLUOp.
func NewReLUOp(x, output *tensor.RawTensor) *ReLUOp {
	return &ReLUOp{
		inputs: []*tensor.RawTensor{x},
		output: output,
	}
}

// Backward computes the input gradient for ReLU.
func (op *ReLUOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	x := op.inputs[0]

	grad, err := tensor.NewRaw(x.Shape(), x.DType(), x.Device())
	if err != nil {
		panic(fmt.Sprintf("ReLUOp.Backward: failed to create gradient: %v", err))
	}

	switch x.DType() {
	case tensor.Float32:
		in, g, out := x.AsFloat32(), outputGrad.AsFloat32(), grad.AsFloat32()
		for i, v := range in {
			if v > 0 {
				out[i] = g[i]
			} else {
				out[i] = 0
			}
		}
	case tensor.Float64:
		in, g, out := x.AsFloat64(), outputGrad.AsFloat64(), grad.AsFloat64()
		for i, v := range in {
			if v > 0 {
				out[i] = g[i]
			} else {
				out[i] = 0
			}
		}
	default:
		panic(fmt.Sprintf("ReLUOp.Backward: unsupported dtype %s", x.DType()))
	}

	return []*tensor.RawTensor{grad}
}

// Inputs returns the input tensor.
func (op *ReLUOp) Inputs() []*tensor.RawTensor { return op.inputs }

// Output returns the output tensor.
func (op *ReLUOp) Output() *tensor.RawTensor { return op.output }
