package cpu

import (
	"fmt"

	"github.com/DanVicenteIhanus/diffusion-posterior-sampling/internal/tensor"
)

// Cat concatenates tensors along the specified dimension.
//
// All tensors must have the same shape except along the concatenation dimension.
// Supports negative dim indexing (-1 = last dimension).
func (cpu *CPUBackend) Cat(tensors []*tensor.RawTensor, dim int) *tensor.RawTensor {
	if len(tensors) == 0 {
		panic("cat: at least one tensor required")
	}

	shape := tensors[0].Shape()
	ndim := len(shape)
	dtype := tensors[0].DType()

	if dim < 0 {
		dim = ndim + dim
	}
	if dim < 0 || dim >= ndim {
		panic(fmt.Sprintf("cat: dimension %d out of range for %dD tensor", dim, ndim))
	}

	// Validate shapes and compute total size along the concat dimension
	totalDim := 0
	for i, t := range tensors {
		tShape := t.Shape()
		if len(tShape) != ndim {
			panic(fmt.Sprintf("cat: tensor %d has %d dimensions, expected %d", i, len(tShape), ndim))
		}
		if t.DType() != dtype {
			panic(fmt.Sprintf("cat: tensor %d has dtype %s, expected %s", i, t.DType(), dtype))
		}
		for d := 0; d < ndim; d++ {
			if d == dim {
				totalDim += tShape[d]
			} else if tShape[d] != shape[d] {
				panic(fmt.Sprintf("cat: tensor %d dimension %d is %d, expected %d", i, d, tShape[d], shape[d]))
			}
		}
	}

	outShape := shape.Clone()
	outShape[dim] = totalDim
	result := mustNewRaw(outShape, dtype, cpu.device, "cat")
	outStrides := outShape.ComputeStrides()

	offset := 0
	for _, t := range tensors {
		tShape := t.Shape()
		strides := tShape.ComputeStrides()
		numElements := tShape.NumElements()

		for i := 0; i < numElements; i++ {
			outIdx := 0
			temp := i
			for d := 0; d < ndim; d++ {
				coord := temp / strides[d]
				temp %= strides[d]
				if d == dim {
					coord += offset
				}
				outIdx += coord * outStrides[d]
			}

			switch dtype {
			case tensor.Float32:
				result.AsFloat32()[outIdx] = t.AsFloat32()[i]
			case tensor.Float64:
				result.AsFloat64()[outIdx] = t.AsFloat64()[i]
			case tensor.Int32:
				result.AsInt32()[outIdx] = t.AsInt32()[i]
			default:
				panic(fmt.Sprintf("cat: unsupported dtype %s", dtype))
			}
		}

		offset += tShape[dim]
	}

	return result
}

// Chunk splits tensor into n equal parts along the specified dimension.
//
// The dimension size must be divisible by n.
// Supports negative dim indexing (-1 = last dimension).
//
// Example:
//
//	x := tensor.Randn[float32](Shape{2, 6, 8, 8}, backend)
//	parts := backend.Chunk(x, 2, 1) // 2 tensors of shape [2, 3, 8, 8]
func (cpu *CPUBackend) Chunk(x *tensor.RawTensor, n, dim int) []*tensor.RawTensor {
	if n <= 0 {
		panic(fmt.Sprintf("chunk: n must be positive, got %d", n))
	}

	shape := x.Shape()
	ndim := len(shape)

	if dim < 0 {
		dim = ndim + dim
	}
	if dim < 0 || dim >= ndim {
		panic(fmt.Sprintf("chunk: dimension %d out of range for %dD tensor", dim, ndim))
	}

	dimSize := shape[dim]
	if dimSize%n != 0 {
		panic(fmt.Sprintf("chunk: dimension %d size %d not divisible by %d", dim, dimSize, n))
	}
	chunkSize := dimSize / n

	chunkShape := shape.Clone()
	chunkShape[dim] = chunkSize

	results := make([]*tensor.RawTensor, n)
	for i := 0; i < n; i++ {
		results[i] = mustNewRaw(chunkShape, x.DType(), cpu.device, "chunk")
	}

	strides := shape.ComputeStrides()
	outStrides := chunkShape.ComputeStrides()
	numElements := shape.NumElements()
	coords := make([]int, ndim)

	for i := 0; i < numElements; i++ {
		temp := i
		for d := 0; d < ndim; d++ {
			coords[d] = temp / strides[d]
			temp %= strides[d]
		}

		chunkIdx := coords[dim] / chunkSize
		localCoord := coords[dim] % chunkSize

		outIdx := 0
		for d := 0; d < ndim; d++ {
			if d == dim {
				outIdx += localCoord * outStrides[d]
			} else {
				outIdx += coords[d] * outStrides[d]
			}
		}

		switch x.DType() {
		case tensor.Float32:
			results[chunkIdx].AsFloat32()[outIdx] = x.AsFloat32()[i]
		case tensor.Float64:
			results[chunkIdx].AsFloat64()[outIdx] = x.AsFloat64()[i]
		case tensor.Int32:
			results[chunkIdx].AsInt32()[outIdx] = x.AsInt32()[i]
		default:
			panic(fmt.Sprintf("chunk: unsupported dtype %s", x.DType()))
		}
	}

	return results
}
