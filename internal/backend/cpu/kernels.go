package cpu

import (
	"fmt"

	"github.com/DanVicenteIhanus/diffusion-posterior-sampling/internal/tensor"
)

// binOp identifies an element-wise binary operation.
type binOp int

const (
	opAdd binOp = iota
	opSub
	opMul
	opDiv
)

// binaryInplace applies op into a's buffer. Caller must have verified
// matching shapes and a.IsUnique().
func binaryInplace(a, b *tensor.RawTensor, op binOp) {
	switch a.DType() {
	case tensor.Float32:
		x, y := a.AsFloat32(), b.AsFloat32()
		switch op {
		case opAdd:
			for i := range x {
				x[i] += y[i]
			}
		case opSub:
			for i := range x {
				x[i] -= y[i]
			}
		case opMul:
			for i := range x {
				x[i] *= y[i]
			}
		case opDiv:
			for i := range x {
				x[i] /= y[i]
			}
		}
	case tensor.Float64:
		x, y := a.AsFloat64(), b.AsFloat64()
		switch op {
		case opAdd:
			for i := range x {
				x[i] += y[i]
			}
		case opSub:
			for i := range x {
				x[i] -= y[i]
			}
		case opMul:
			for i := range x {
				x[i] *= y[i]
			}
		case opDiv:
			for i := range x {
				x[i] /= y[i]
			}
		}
	default:
		panic(fmt.Sprintf("binary op: unsupported dtype %s", a.DType()))
	}
}

// binaryVectorized applies op over flat data into a fresh result buffer.
func binaryVectorized(result, a, b *tensor.RawTensor, op binOp) {
	switch a.DType() {
	case tensor.Float32:
		x, y, dst := a.AsFloat32(), b.AsFloat32(), result.AsFloat32()
		switch op {
		case opAdd:
			for i := range dst {
				dst[i] = x[i] + y[i]
			}
		case opSub:
			for i := range dst {
				dst[i] = x[i] - y[i]
			}
		case opMul:
			for i := range dst {
				dst[i] = x[i] * y[i]
			}
		case opDiv:
			for i := range dst {
				dst[i] = x[i] / y[i]
			}
		}
	case tensor.Float64:
		x, y, dst := a.AsFloat64(), b.AsFloat64(), result.AsFloat64()
		switch op {
		case opAdd:
			for i := range dst {
				dst[i] = x[i] + y[i]
			}
		case opSub:
			for i := range dst {
				dst[i] = x[i] - y[i]
			}
		case opMul:
			for i := range dst {
				dst[i] = x[i] * y[i]
			}
		case opDiv:
			for i := range dst {
				dst[i] = x[i] / y[i]
			}
		}
	default:
		panic(fmt.Sprintf("binary op: unsupported dtype %s", a.DType()))
	}
}

// binaryBroadcast applies op with NumPy-style broadcasting. Output coordinates
// are mapped to each operand by right-aligning shapes and clamping size-1 dims.
func binaryBroadcast(result, a, b *tensor.RawTensor, outShape tensor.Shape, op binOp) {
	outStrides := outShape.ComputeStrides()
	numElements := outShape.NumElements()

	aShape, bShape := a.Shape(), b.Shape()
	aStrides, bStrides := aShape.ComputeStrides(), bShape.ComputeStrides()

	coords := make([]int, len(outShape))
	for i := 0; i < numElements; i++ {
		temp := i
		for d := range outShape {
			coords[d] = temp / outStrides[d]
			temp %= outStrides[d]
		}

		aIdx := broadcastIndex(coords, outShape, aShape, aStrides)
		bIdx := broadcastIndex(coords, outShape, bShape, bStrides)

		switch a.DType() {
		case tensor.Float32:
			x, y, dst := a.AsFloat32(), b.AsFloat32(), result.AsFloat32()
			dst[i] = applyFloat32(x[aIdx], y[bIdx], op)
		case tensor.Float64:
			x, y, dst := a.AsFloat64(), b.AsFloat64(), result.AsFloat64()
			dst[i] = applyFloat64(x[aIdx], y[bIdx], op)
		default:
			panic(fmt.Sprintf("binary op: unsupported dtype %s", a.DType()))
		}
	}
}

// broadcastIndex maps output coordinates to an operand's flat index,
// right-aligning the operand shape and clamping broadcast (size-1) dims to 0.
func broadcastIndex(coords []int, outShape, shape tensor.Shape, strides []int) int {
	offset := len(outShape) - len(shape)
	idx := 0
	for d := 0; d < len(shape); d++ {
		coord := coords[offset+d]
		if shape[d] == 1 {
			coord = 0
		}
		idx += coord * strides[d]
	}
	return idx
}

func applyFloat32(x, y float32, op binOp) float32 {
	switch op {
	case opAdd:
		return x + y
	case opSub:
		return x - y
	case opMul:
		return x * y
	case opDiv:
		return x / y
	}
	panic("unknown binary op")
}

func applyFloat64(x, y float64, op binOp) float64 {
	switch op {
	case opAdd:
		return x + y
	case opSub:
		return x - y
	case opMul:
		return x * y
	case opDiv:
		return x / y
	}
	panic("unknown binary op")
}
