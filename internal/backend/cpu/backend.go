// Package cpu implements the pure-Go CPU backend.
package cpu

import (
	"fmt"

	"github.com/DanVicenteIhanus/diffusion-posterior-sampling/internal/tensor"
)

// CPUBackend implements tensor operations on CPU.
type CPUBackend struct {
	device tensor.Device
}

// New creates a new CPU backend.
func New() *CPUBackend {
	return &CPUBackend{
		device: tensor.CPU,
	}
}

// NewWithDevice creates a CPU backend whose result tensors are tagged with
// the given device. Other backends use this to run host-side fallback
// kernels without mislabeling the tensors they hand back.
func NewWithDevice(device tensor.Device) *CPUBackend {
	return &CPUBackend{
		device: device,
	}
}

// Name returns the backend name.
func (cpu *CPUBackend) Name() string {
	return "CPU"
}

// Device returns the compute device.
func (cpu *CPUBackend) Device() tensor.Device {
	return cpu.device
}

// Add performs element-wise addition with NumPy-style broadcasting.
func (cpu *CPUBackend) Add(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary(a, b, opAdd, "add")
}

// Sub performs element-wise subtraction with broadcasting.
func (cpu *CPUBackend) Sub(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary(a, b, opSub, "sub")
}

// Mul performs element-wise multiplication with broadcasting.
func (cpu *CPUBackend) Mul(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary(a, b, opMul, "mul")
}

// Div performs element-wise division with broadcasting.
func (cpu *CPUBackend) Div(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary(a, b, opDiv, "div")
}

// binary dispatches a broadcasting binary operation.
//
// Fast paths:
//   - same shape + unique buffer: inplace into a (no allocation)
//   - same shape: vectorized loop over flat data
//
// Slow path: full broadcast with right-aligned index mapping.
func (cpu *CPUBackend) binary(a, b *tensor.RawTensor, op binOp, name string) *tensor.RawTensor {
	outShape, needsBroadcast, err := tensor.BroadcastShapes(a.Shape(), b.Shape())
	if err != nil {
		panic(fmt.Sprintf("%s: %v", name, err))
	}
	if a.DType() != b.DType() {
		panic(fmt.Sprintf("%s: dtype mismatch: %s vs %s", name, a.DType(), b.DType()))
	}

	if !needsBroadcast && a.Shape().Equal(b.Shape()) {
		if a.IsUnique() {
			binaryInplace(a, b, op)
			return a
		}
		result := mustNewRaw(outShape, a.DType(), cpu.device, name)
		binaryVectorized(result, a, b, op)
		return result
	}

	result := mustNewRaw(outShape, a.DType(), cpu.device, name)
	binaryBroadcast(result, a, b, outShape, op)
	return result
}

// mustNewRaw allocates a result tensor or panics with operation context.
func mustNewRaw(shape tensor.Shape, dtype tensor.DataType, device tensor.Device, name string) *tensor.RawTensor {
	result, err := tensor.NewRaw(shape, dtype, device)
	if err != nil {
		panic(fmt.Sprintf("%s: failed to create result tensor: %v", name, err))
	}
	return result
}
