package cpu

import (
	"fmt"

	"github.com/DanVicenteIhanus/diffusion-posterior-sampling/internal/tensor"
)

// Reshape returns a tensor with the same data but different shape.
func (cpu *CPUBackend) Reshape(t *tensor.RawTensor, newShape tensor.Shape) *tensor.RawTensor {
	if err := newShape.Validate(); err != nil {
		panic(fmt.Sprintf("reshape: invalid shape: %v", err))
	}

	if t.NumElements() != newShape.NumElements() {
		panic(fmt.Sprintf("reshape: incompatible shapes: %v -> %v (different number of elements)",
			t.Shape(), newShape))
	}

	result := mustNewRaw(newShape, t.DType(), t.Device(), "reshape")
	copy(result.Data(), t.Data())
	return result
}

// Unsqueeze adds a dimension of size 1 at the specified position.
//
// Supports negative dim indexing. This is a reshape under the hood.
func (cpu *CPUBackend) Unsqueeze(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	shape := x.Shape()
	ndim := len(shape)

	// For unsqueeze, valid range is [0, ndim]
	if dim < 0 {
		dim = ndim + 1 + dim
	}
	if dim < 0 || dim > ndim {
		panic(fmt.Sprintf("unsqueeze: dimension %d out of range for %dD tensor (valid: [0, %d])", dim, ndim, ndim))
	}

	newShape := make(tensor.Shape, ndim+1)
	copy(newShape[:dim], shape[:dim])
	newShape[dim] = 1
	copy(newShape[dim+1:], shape[dim:])

	return cpu.Reshape(x, newShape)
}

// Squeeze removes a dimension of size 1 at the specified position.
//
// Panics if the dimension size is not 1. Supports negative dim indexing.
func (cpu *CPUBackend) Squeeze(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	shape := x.Shape()
	ndim := len(shape)

	if dim < 0 {
		dim = ndim + dim
	}
	if dim < 0 || dim >= ndim {
		panic(fmt.Sprintf("squeeze: dimension %d out of range for %dD tensor", dim, ndim))
	}
	if shape[dim] != 1 {
		panic(fmt.Sprintf("squeeze: dimension %d has size %d, must be 1", dim, shape[dim]))
	}

	newShape := make(tensor.Shape, 0, ndim-1)
	for i := 0; i < ndim; i++ {
		if i != dim {
			newShape = append(newShape, shape[i])
		}
	}

	return cpu.Reshape(x, newShape)
}

// Expand broadcasts the tensor to a new shape.
func (cpu *CPUBackend) Expand(x *tensor.RawTensor, newShape tensor.Shape) *tensor.RawTensor {
	xShape := x.Shape()

	if len(newShape) < len(xShape) {
		panic(fmt.Sprintf("expand: new shape %v has fewer dimensions than input shape %v",
			newShape, xShape))
	}

	// Align shapes from the right; each input dim must equal the target or be 1.
	offset := len(newShape) - len(xShape)
	for i := 0; i < len(xShape); i++ {
		if xShape[i] != 1 && xShape[i] != newShape[offset+i] {
			panic(fmt.Sprintf("expand: cannot expand dimension %d from %d to %d",
				i, xShape[i], newShape[offset+i]))
		}
	}

	result := mustNewRaw(newShape, x.DType(), cpu.device, "expand")

	outStrides := newShape.ComputeStrides()
	xStrides := xShape.ComputeStrides()
	numElements := newShape.NumElements()
	coords := make([]int, len(newShape))

	switch x.DType() {
	case tensor.Float32:
		src, dst := x.AsFloat32(), result.AsFloat32()
		for i := 0; i < numElements; i++ {
			temp := i
			for d := range newShape {
				coords[d] = temp / outStrides[d]
				temp %= outStrides[d]
			}
			dst[i] = src[broadcastIndex(coords, newShape, xShape, xStrides)]
		}
	case tensor.Float64:
		src, dst := x.AsFloat64(), result.AsFloat64()
		for i := 0; i < numElements; i++ {
			temp := i
			for d := range newShape {
				coords[d] = temp / outStrides[d]
				temp %= outStrides[d]
			}
			dst[i] = src[broadcastIndex(coords, newShape, xShape, xStrides)]
		}
	default:
		panic(fmt.Sprintf("expand: unsupported dtype %v", x.DType()))
	}

	return result
}
