package ops

import "github.com/DanVicenteIhanus/diffusion-posterior-sampling/internal/tensor"

// MulScalarOp represents multiplication by a constant: output = x * s.
// Backward: grad_x = outputGrad * s.
type MulScalarOp struct {
	inputs []*tensor.RawTensor
	output *tensor.RawTensor
	scalar any
}

// NewMulScalarOp creates a new MulScalarOp.
func NewMulScalarOp(x, output *tensor.RawTensor, scalar any) *MulScalarOp {
	return &MulScalarOp{
		inputs: []*tensor.RawTensor{x},
		output: output,
		scalar: scalar,
	}
}

// Backward computes the input gradient for scalar multiplication.
func (op *MulScalarOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{backend.MulScalar(outputGrad, op.scalar)}
}

// Inputs returns the input tensor.
func (op *MulScalarOp) Inputs() []*tensor.RawTensor { return op.inputs }

// Output returns the output tensor.
func (op *MulScalarOp) Output() *tensor.RawTensor { return op.output }

// DivScalarOp represents division by a constant: output = x / s.
// Backward: grad_x = outputGrad / s.
type DivScalarOp struct {
	inputs []*tensor.RawTensor
	output *tensor.RawTensor
	scalar any
}

// NewDivScalarOp creates a new DivScalarOp.
func NewDivScalarOp(x, output *tensor.RawTensor, scalar any) *DivScalarOp {
	return &DivScalarOp{
		inputs: []*tensor.RawTensor{x},
		output: output,
		scalar: scalar,
	}
}

// Backward computes the input gradient for scalar division.
func (op *DivScalarOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{backend.DivScalar(outputGrad, op.scalar)}
}

// Inputs returns the input tensor.
func (op *DivScalarOp) Inputs() []*tensor.RawTensor { return op.inputs }

// Output returns the output tensor.
func (op *DivScalarOp) Output() *tensor.RawTensor { return op.output }

// AddScalarOp represents addition of a constant: output = x + s.
// Backward: gradient flows through unchanged.
type AddScalarOp struct {
	inputs []*tensor.RawTensor
	output *tensor.RawTensor
}

// NewAddScalarOp creates a new AddScalarOp.
func NewAddScalarOp(x, output *tensor.RawTensor) *AddScalarOp {
	return &AddScalarOp{
		inputs: []*tensor.RawTensor{x},
		output: output,
	}
}

// Backward passes the gradient through unchanged.
func (op *AddScalarOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{outputGrad.Clone()}
}

// Inputs returns the input tensor.
func (op *AddScalarOp) Inputs() []*tensor.RawTensor { return op.inputs }

// Output returns the output tensor.
func (op *AddScalarOp) Output() *tensor.RawTensor { return op.output }

// SubScalarOp represents subtraction of a constant: output = x - s.
// Backward: gradient flows through unchanged.
type SubScalarOp struct {
	inputs []*tensor.RawTensor
	output *tensor.RawTensor
}

// NewSubScalarOp creates a new SubScalarOp.
func NewSubScalarOp(x, output *tensor.RawTensor) *SubScalarOp {
	return &SubScalarOp{
		inputs: []*tensor.RawTensor{x},
		output: output,
	}
}

// Backward passes the gradient through unchanged.
func (op *SubScalarOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{outputGrad.Clone()}
}

// Inputs returns the input tensor.
func (op *SubScalarOp) Inputs() []*tensor.RawTensor { return op.inputs }

// Output returns the output tensor.
func (op *SubScalarOp) Output() *tensor.RawTensor { return op.output }
