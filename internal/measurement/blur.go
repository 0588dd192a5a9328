package measurement

import (
	"fmt"
	"math"

	"github.com/DanVicenteIhanus/diffusion-posterior-sampling/internal/tensor"
)

// GaussianBlur convolves each channel with a fixed Gaussian kernel. The
// block-diagonal [C,C,k,k] convolution kernel is built on first Apply
// (it needs the channel count) and reused afterwards.
type GaussianBlur[B tensor.Backend] struct {
	kernelSize int
	sigma      float64

	kernel      *tensor.Tensor[float32, B]
	initialized bool
}

// NewGaussianBlur creates the operator. kernelSize must be odd so the
// blur is centered; sigma must be positive.
func NewGaussianBlur[B tensor.Backend](kernelSize int, sigma float64) (*GaussianBlur[B], error) {
	if kernelSize <= 0 || kernelSize%2 == 0 {
		return nil, fmt.Errorf("blur: kernel size must be a positive odd number, got %d", kernelSize)
	}
	if sigma <= 0 {
		return nil, fmt.Errorf("blur: sigma must be positive, got %g", sigma)
	}
	return &GaussianBlur[B]{kernelSize: kernelSize, sigma: sigma}, nil
}

// Apply blurs the signal with same-size output (padding kernelSize/2).
func (op *GaussianBlur[B]) Apply(x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	if !op.initialized {
		op.kernel = op.buildKernel(x.Shape()[1], x.Backend())
		op.initialized = true
	}
	return x.Conv2D(op.kernel, 1, op.kernelSize/2)
}

// buildKernel places the normalized 2-D Gaussian on the channel diagonal
// so channels blur independently.
func (op *GaussianBlur[B]) buildKernel(channels int, backend B) *tensor.Tensor[float32, B] {
	k := op.kernelSize
	window := make([]float64, k*k)
	center := float64(k-1) / 2
	sum := 0.0
	for r := 0; r < k; r++ {
		for c := 0; c < k; c++ {
			dr := float64(r) - center
			dc := float64(c) - center
			v := math.Exp(-(dr*dr + dc*dc) / (2 * op.sigma * op.sigma))
			window[r*k+c] = v
			sum += v
		}
	}

	data := make([]float32, channels*channels*k*k)
	for ch := 0; ch < channels; ch++ {
		base := (ch*channels + ch) * k * k
		for i, v := range window {
			data[base+i] = float32(v / sum)
		}
	}

	kernel, err := tensor.FromSlice(data, tensor.Shape{channels, channels, k, k}, backend)
	if err != nil {
		panic(fmt.Sprintf("blur: kernel: %v", err))
	}
	return kernel
}
