package measurement

import (
	"fmt"
	"math/rand"

	"github.com/DanVicenteIhanus/diffusion-posterior-sampling/internal/tensor"
)

// RandomInpainting keeps each pixel with a fixed probability and zeroes
// the rest. The Bernoulli mask is drawn on first Apply (it needs the
// signal's spatial size) and reused for every later call, so the same
// pixels stay observed for the whole sampling run.
type RandomInpainting[B tensor.Backend] struct {
	keepRatio float32

	mask        *tensor.Tensor[float32, B]
	initialized bool
}

// NewRandomInpainting creates the operator. keepRatio is the probability
// a pixel is observed and must lie in (0, 1].
func NewRandomInpainting[B tensor.Backend](keepRatio float32) (*RandomInpainting[B], error) {
	if keepRatio <= 0 || keepRatio > 1 {
		return nil, fmt.Errorf("inpainting: keep ratio %g outside (0, 1]", keepRatio)
	}
	return &RandomInpainting[B]{keepRatio: keepRatio}, nil
}

// Apply masks the signal. The mask is [1,1,H,W] and broadcasts over batch
// and channels.
func (op *RandomInpainting[B]) Apply(x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	if !op.initialized {
		shape := x.Shape()
		h, w := shape[2], shape[3]
		data := make([]float32, h*w)
		for i := range data {
			if rand.Float32() < op.keepRatio { //nolint:gosec // G404: math/rand intentionally
				data[i] = 1
			}
		}
		mask, err := tensor.FromSlice(data, tensor.Shape{1, 1, h, w}, x.Backend())
		if err != nil {
			panic(fmt.Sprintf("inpainting: mask: %v", err))
		}
		op.mask = mask
		op.initialized = true
	}
	return x.Mul(op.mask)
}

// Mask returns the cached mask, or nil before the first Apply.
func (op *RandomInpainting[B]) Mask() *tensor.Tensor[float32, B] {
	return op.mask
}

// BoxInpainting zeroes a fixed rectangular region. The complement mask is
// built on first Apply and reused afterwards.
type BoxInpainting[B tensor.Backend] struct {
	top, left, height, width int

	mask        *tensor.Tensor[float32, B]
	initialized bool
}

// NewBoxInpainting creates the operator for the box at (top, left) with
// the given extent.
func NewBoxInpainting[B tensor.Backend](top, left, height, width int) (*BoxInpainting[B], error) {
	if top < 0 || left < 0 || height <= 0 || width <= 0 {
		return nil, fmt.Errorf("inpainting: invalid box (top=%d, left=%d, height=%d, width=%d)", top, left, height, width)
	}
	return &BoxInpainting[B]{top: top, left: left, height: height, width: width}, nil
}

// Apply zeroes the box region, observing everything outside it.
func (op *BoxInpainting[B]) Apply(x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	if !op.initialized {
		shape := x.Shape()
		h, w := shape[2], shape[3]
		if op.top+op.height > h || op.left+op.width > w {
			panic(fmt.Sprintf("inpainting: box (top=%d, left=%d, height=%d, width=%d) exceeds %dx%d signal",
				op.top, op.left, op.height, op.width, h, w))
		}
		data := make([]float32, h*w)
		for i := range data {
			data[i] = 1
		}
		for r := op.top; r < op.top+op.height; r++ {
			for c := op.left; c < op.left+op.width; c++ {
				data[r*w+c] = 0
			}
		}
		mask, err := tensor.FromSlice(data, tensor.Shape{1, 1, h, w}, x.Backend())
		if err != nil {
			panic(fmt.Sprintf("inpainting: mask: %v", err))
		}
		op.mask = mask
		op.initialized = true
	}
	return x.Mul(op.mask)
}
