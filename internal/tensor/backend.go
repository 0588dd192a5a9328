package tensor

// Backend defines the interface that all compute backends must implement.
// Backends handle the actual computation for tensor operations.
//
// The operation set is the closure of what guided reverse-diffusion needs:
// broadcast arithmetic for the posterior coefficients, elementwise math for
// the noise injection and losses, convolution for measurement operators and
// denoiser models, and the shape ops that glue them together.
//
// Implementations:
//   - cpu.CPUBackend: pure Go reference implementation
//   - webgpu.Backend: GPU compute via WebGPU with CPU fallback
type Backend interface {
	// Element-wise binary operations (NumPy-style broadcasting)
	Add(a, b *RawTensor) *RawTensor
	Sub(a, b *RawTensor) *RawTensor
	Mul(a, b *RawTensor) *RawTensor
	Div(a, b *RawTensor) *RawTensor

	// Scalar operations (element-wise with scalar)
	MulScalar(x *RawTensor, scalar any) *RawTensor
	AddScalar(x *RawTensor, scalar any) *RawTensor
	SubScalar(x *RawTensor, scalar any) *RawTensor
	DivScalar(x *RawTensor, scalar any) *RawTensor

	// Math operations (element-wise)
	Exp(x *RawTensor) *RawTensor
	Sqrt(x *RawTensor) *RawTensor
	Abs(x *RawTensor) *RawTensor
	ReLU(x *RawTensor) *RawTensor

	// Convolutional operations
	Conv2D(input, kernel *RawTensor, stride, padding int) *RawTensor
	Conv2DInputBackward(outputGrad, kernel *RawTensor, inputShape Shape, stride, padding int) *RawTensor
	Conv2DKernelBackward(outputGrad, input *RawTensor, kernelShape Shape, stride, padding int) *RawTensor

	// Reduction operations
	Sum(x *RawTensor) *RawTensor                           // total sum (scalar result)
	SumDim(x *RawTensor, dim int, keepDim bool) *RawTensor // sum along dimension

	// Shape operations
	Reshape(t *RawTensor, newShape Shape) *RawTensor
	Expand(x *RawTensor, shape Shape) *RawTensor // broadcast to shape
	Unsqueeze(x *RawTensor, dim int) *RawTensor  // add dimension of size 1
	Squeeze(x *RawTensor, dim int) *RawTensor    // remove dimension of size 1

	// Manipulation operations
	Cat(tensors []*RawTensor, dim int) *RawTensor // concatenate along dimension
	Chunk(x *RawTensor, n, dim int) []*RawTensor  // split into n equal parts

	// Metadata
	Name() string
	Device() Device
}

// CacheReleaser is implemented by backends that hold reusable device-side
// buffers (e.g. GPU buffer pools). Samplers call ReleaseCachedBuffers once
// per reverse step to keep peak device memory bounded.
type CacheReleaser interface {
	ReleaseCachedBuffers()
}
