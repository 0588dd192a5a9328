package webgpu

import (
	"github.com/DanVicenteIhanus/diffusion-posterior-sampling/internal/tensor"
)

// shaderEligible reports whether a pair of operands can take the GPU
// path: float32 data with identical shapes (broadcasting stays on host).
func shaderEligible(a, b *tensor.RawTensor) bool {
	return a.DType() == tensor.Float32 && b.DType() == tensor.Float32 && a.Shape().Equal(b.Shape())
}

// Add performs element-wise addition on GPU.
func (b *Backend) Add(a, other *tensor.RawTensor) *tensor.RawTensor {
	if !shaderEligible(a, other) {
		return b.fallback.Add(a, other)
	}
	result, err := b.runBinaryOp(a, other, "add", addShader)
	if err != nil {
		panic("webgpu: Add: " + err.Error())
	}
	return result
}

// Sub performs element-wise subtraction on GPU.
func (b *Backend) Sub(a, other *tensor.RawTensor) *tensor.RawTensor {
	if !shaderEligible(a, other) {
		return b.fallback.Sub(a, other)
	}
	result, err := b.runBinaryOp(a, other, "sub", subShader)
	if err != nil {
		panic("webgpu: Sub: " + err.Error())
	}
	return result
}

// Mul performs element-wise multiplication on GPU.
func (b *Backend) Mul(a, other *tensor.RawTensor) *tensor.RawTensor {
	if !shaderEligible(a, other) {
		return b.fallback.Mul(a, other)
	}
	result, err := b.runBinaryOp(a, other, "mul", mulShader)
	if err != nil {
		panic("webgpu: Mul: " + err.Error())
	}
	return result
}

// Div performs element-wise division on GPU.
func (b *Backend) Div(a, other *tensor.RawTensor) *tensor.RawTensor {
	if !shaderEligible(a, other) {
		return b.fallback.Div(a, other)
	}
	result, err := b.runBinaryOp(a, other, "div", divShader)
	if err != nil {
		panic("webgpu: Div: " + err.Error())
	}
	return result
}

// MulScalar multiplies every element by a scalar on GPU.
func (b *Backend) MulScalar(x *tensor.RawTensor, scalar any) *tensor.RawTensor {
	s, ok := scalar.(float32)
	if !ok || x.DType() != tensor.Float32 {
		return b.fallback.MulScalar(x, scalar)
	}
	result, err := b.runScalarOp(x, s, "mul_scalar", mulScalarShader)
	if err != nil {
		panic("webgpu: MulScalar: " + err.Error())
	}
	return result
}

// AddScalar adds a scalar to every element on GPU.
func (b *Backend) AddScalar(x *tensor.RawTensor, scalar any) *tensor.RawTensor {
	s, ok := scalar.(float32)
	if !ok || x.DType() != tensor.Float32 {
		return b.fallback.AddScalar(x, scalar)
	}
	result, err := b.runScalarOp(x, s, "add_scalar", addScalarShader)
	if err != nil {
		panic("webgpu: AddScalar: " + err.Error())
	}
	return result
}

// SubScalar subtracts a scalar from every element on GPU.
func (b *Backend) SubScalar(x *tensor.RawTensor, scalar any) *tensor.RawTensor {
	s, ok := scalar.(float32)
	if !ok || x.DType() != tensor.Float32 {
		return b.fallback.SubScalar(x, scalar)
	}
	result, err := b.runScalarOp(x, s, "sub_scalar", subScalarShader)
	if err != nil {
		panic("webgpu: SubScalar: " + err.Error())
	}
	return result
}

// DivScalar divides every element by a scalar on GPU.
func (b *Backend) DivScalar(x *tensor.RawTensor, scalar any) *tensor.RawTensor {
	s, ok := scalar.(float32)
	if !ok || x.DType() != tensor.Float32 {
		return b.fallback.DivScalar(x, scalar)
	}
	result, err := b.runScalarOp(x, s, "div_scalar", divScalarShader)
	if err != nil {
		panic("webgpu: DivScalar: " + err.Error())
	}
	return result
}

// Exp computes the element-wise exponential on GPU.
func (b *Backend) Exp(x *tensor.RawTensor) *tensor.RawTensor {
	if x.DType() != tensor.Float32 {
		return b.fallback.Exp(x)
	}
	result, err := b.runUnaryOp(x, "exp", expShader)
	if err != nil {
		panic("webgpu: Exp: " + err.Error())
	}
	return result
}

// Sqrt computes the element-wise square root on GPU.
func (b *Backend) Sqrt(x *tensor.RawTensor) *tensor.RawTensor {
	if x.DType() != tensor.Float32 {
		return b.fallback.Sqrt(x)
	}
	result, err := b.runUnaryOp(x, "sqrt", sqrtShader)
	if err != nil {
		panic("webgpu: Sqrt: " + err.Error())
	}
	return result
}

// Abs computes the element-wise absolute value on GPU.
func (b *Backend) Abs(x *tensor.RawTensor) *tensor.RawTensor {
	if x.DType() != tensor.Float32 {
		return b.fallback.Abs(x)
	}
	result, err := b.runUnaryOp(x, "abs", absShader)
	if err != nil {
		panic("webgpu: Abs: " + err.Error())
	}
	return result
}

// ReLU applies ReLU activation: max(0, x).
func (b *Backend) ReLU(x *tensor.RawTensor) *tensor.RawTensor {
	if x.DType() != tensor.Float32 {
		return b.fallback.ReLU(x)
	}
	result, err := b.runUnaryOp(x, "relu", reluShader)
	if err != nil {
		panic("webgpu: ReLU: " + err.Error())
	}
	return result
}

// Conv2D performs 2D convolution through the host-side kernels.
func (b *Backend) Conv2D(input, kernel *tensor.RawTensor, stride, padding int) *tensor.RawTensor {
	return b.fallback.Conv2D(input, kernel, stride, padding)
}

// Conv2DInputBackward computes the convolution gradient with respect to
// the input through the host-side kernels.
func (b *Backend) Conv2DInputBackward(outputGrad, kernel *tensor.RawTensor, inputShape tensor.Shape, stride, padding int) *tensor.RawTensor {
	return b.fallback.Conv2DInputBackward(outputGrad, kernel, inputShape, stride, padding)
}

// Conv2DKernelBackward computes the convolution gradient with respect to
// the kernel through the host-side kernels.
func (b *Backend) Conv2DKernelBackward(outputGrad, input *tensor.RawTensor, kernelShape tensor.Shape, stride, padding int) *tensor.RawTensor {
	return b.fallback.Conv2DKernelBackward(outputGrad, input, kernelShape, stride, padding)
}

// Sum reduces all elements to a scalar.
func (b *Backend) Sum(x *tensor.RawTensor) *tensor.RawTensor {
	return b.fallback.Sum(x)
}

// SumDim sums along one dimension.
func (b *Backend) SumDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	return b.fallback.SumDim(x, dim, keepDim)
}

// Reshape returns a tensor with a new shape and the same elements.
func (b *Backend) Reshape(t *tensor.RawTensor, newShape tensor.Shape) *tensor.RawTensor {
	return b.fallback.Reshape(t, newShape)
}

// Expand broadcasts a tensor to a larger shape.
func (b *Backend) Expand(x *tensor.RawTensor, shape tensor.Shape) *tensor.RawTensor {
	return b.fallback.Expand(x, shape)
}

// Unsqueeze inserts a dimension of size 1.
func (b *Backend) Unsqueeze(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	return b.fallback.Unsqueeze(x, dim)
}

// Squeeze removes a dimension of size 1.
func (b *Backend) Squeeze(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	return b.fallback.Squeeze(x, dim)
}

// Cat concatenates tensors along a dimension.
func (b *Backend) Cat(tensors []*tensor.RawTensor, dim int) *tensor.RawTensor {
	return b.fallback.Cat(tensors, dim)
}

// Chunk splits a tensor into n equal parts along a dimension.
func (b *Backend) Chunk(x *tensor.RawTensor, n, dim int) []*tensor.RawTensor {
	return b.fallback.Chunk(x, n, dim)
}
