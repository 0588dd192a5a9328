package measurement

import (
	"fmt"

	"github.com/DanVicenteIhanus/diffusion-posterior-sampling/internal/tensor"
)

// luminanceWeights are the ITU-R BT.601 RGB coefficients.
var luminanceWeights = []float32{0.299, 0.587, 0.114}

// Grayscale observes the luminance of an RGB signal, replicated back to
// three channels so the measurement keeps the signal's shape.
type Grayscale[B tensor.Backend] struct {
	weights     *tensor.Tensor[float32, B]
	initialized bool
}

// NewGrayscale creates the operator.
func NewGrayscale[B tensor.Backend]() *Grayscale[B] {
	return &Grayscale[B]{}
}

// Apply collapses channels to weighted luminance and expands back.
func (op *Grayscale[B]) Apply(x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	if x.Shape()[1] != len(luminanceWeights) {
		panic(fmt.Sprintf("grayscale: expected %d channels, got %d", len(luminanceWeights), x.Shape()[1]))
	}

	if !op.initialized {
		weights, err := tensor.FromSlice(luminanceWeights, tensor.Shape{1, len(luminanceWeights), 1, 1}, x.Backend())
		if err != nil {
			panic(fmt.Sprintf("grayscale: weights: %v", err))
		}
		op.weights = weights
		op.initialized = true
	}

	luminance := x.Mul(op.weights).SumDim(1, true)
	return luminance.Expand(x.Shape())
}
