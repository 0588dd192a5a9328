package ops

import (
	"fmt"

	"github.com/DanVicenteIhanus/diffusion-posterior-sampling/internal/tensor"
)

// AbsOp represents the element-wise absolute value: output = |x|.
//
// Backward pass: grad_x = outputGrad * sign(x). The subgradient at
// zero is taken as zero.
type AbsOp struct {
	inputs []*tensor.RawTensor
	output *tensor.RawTensor
}

// NewAbsOp creates a new AbsOp.
func NewAbsOp(x, output *tensor.RawTensor) *AbsOp {
	return &AbsOp{
		inputs: []*tensor.RawTensor{x},
		output: output,
	}
}

// Backward computes the input gradient for absolute value.
func (op *AbsOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	x := op.inputs[0]

	grad, err := tensor.NewRaw(x.Shape(), x.DType(), x.Device())
	if err != nil {
		panic(fmt.Sprintf("AbsOp.Backward: failed to create gradient: %v", err))
	}

	switch x.DType() {
	case tensor.Float32:
		in, g, out := x.AsFloat32(), outputGrad.AsFloat32(), grad.AsFloat32()
		for i, v := range in {
			switch {
			case v > 0:
				out[i] = g[i]
			case v < 0:
				out[i] = -g[i]
			default:
				out[i] = 0
			}
		}
	case tensor.Float64:
		in, g, out := x.AsFloat64(), outputGrad.AsFloat64(), grad.AsFloat64()
		for i, v := range in {
			switch {
			case v > 0:
				out[i] = g[i]
			case v < 0:
				out[i] = -g[i]
			default:
				out[i] = 0
			}
		}
	default:
		panic(fmt.Sprintf("AbsOp.Backward: unsupported dtype %s", x.DType()))
	}

	return []*tensor.RawTensor{grad}
}

// Inputs returns the input tensor.
func (op *AbsOp) Inputs() []*tensor.RawTensor { return op.inputs }

// Output returns the output tensor.
func (op *AbsOp) Output() *tensor.RawTensor { return op.output }
