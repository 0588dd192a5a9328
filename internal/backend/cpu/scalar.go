package cpu

import (
	"fmt"

	"github.com/DanVicenteIhanus/diffusion-posterior-sampling/internal/tensor"
)

// Scalar operations - element-wise operations with a scalar value.

// MulScalar multiplies each element of the tensor by a scalar value.
func (cpu *CPUBackend) MulScalar(x *tensor.RawTensor, scalar any) *tensor.RawTensor {
	return cpu.scalarOp(x, scalar, opMul, "mulScalar")
}

// AddScalar adds a scalar value to each element of the tensor.
func (cpu *CPUBackend) AddScalar(x *tensor.RawTensor, scalar any) *tensor.RawTensor {
	return cpu.scalarOp(x, scalar, opAdd, "addScalar")
}

// SubScalar subtracts a scalar value from each element of the tensor.
func (cpu *CPUBackend) SubScalar(x *tensor.RawTensor, scalar any) *tensor.RawTensor {
	return cpu.scalarOp(x, scalar, opSub, "subScalar")
}

// DivScalar divides each element of the tensor by a scalar value.
func (cpu *CPUBackend) DivScalar(x *tensor.RawTensor, scalar any) *tensor.RawTensor {
	return cpu.scalarOp(x, scalar, opDiv, "divScalar")
}

func (cpu *CPUBackend) scalarOp(x *tensor.RawTensor, scalar any, op binOp, name string) *tensor.RawTensor {
	result := mustNewRaw(x.Shape(), x.DType(), cpu.device, name)

	switch x.DType() {
	case tensor.Float32:
		s, ok := scalar.(float32)
		if !ok {
			panic(fmt.Sprintf("%s: scalar type %T does not match tensor dtype float32", name, scalar))
		}
		src, dst := x.AsFloat32(), result.AsFloat32()
		for i := range dst {
			dst[i] = applyFloat32(src[i], s, op)
		}
	case tensor.Float64:
		s, ok := scalar.(float64)
		if !ok {
			panic(fmt.Sprintf("%s: scalar type %T does not match tensor dtype float64", name, scalar))
		}
		src, dst := x.AsFloat64(), result.AsFloat64()
		for i := range dst {
			dst[i] = applyFloat64(src[i], s, op)
		}
	default:
		panic(fmt.Sprintf("%s: unsupported dtype %v", name, x.DType()))
	}

	return result
}
