package measurement

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/DanVicenteIhanus/diffusion-posterior-sampling/internal/tensor"
)

// Noiser corrupts a clean measurement with observation noise. Used to
// build synthetic observations for examples and tests.
type Noiser[B tensor.Backend] interface {
	Corrupt(y *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B]
}

// GaussianNoiser adds i.i.d. Gaussian noise with the given sigma.
type GaussianNoiser[B tensor.Backend] struct {
	sigma float32
}

// NewGaussianNoiser creates the noiser. sigma must be non-negative.
func NewGaussianNoiser[B tensor.Backend](sigma float32) (*GaussianNoiser[B], error) {
	if sigma < 0 {
		return nil, fmt.Errorf("noise: sigma must be non-negative, got %g", sigma)
	}
	return &GaussianNoiser[B]{sigma: sigma}, nil
}

// Corrupt returns y + sigma * n with fresh standard normal n.
func (n *GaussianNoiser[B]) Corrupt(y *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	noise := tensor.Randn[float32](y.Shape(), y.Backend())
	return y.Add(noise.MulScalar(n.sigma))
}

// PoissonNoiser replaces each element v (assumed in [0, 1], negatives
// clamped) with a Poisson draw of rate v*rate, scaled back by 1/rate.
// Larger rates mean less relative noise.
type PoissonNoiser[B tensor.Backend] struct {
	rate float64
}

// NewPoissonNoiser creates the noiser. rate must be positive.
func NewPoissonNoiser[B tensor.Backend](rate float64) (*PoissonNoiser[B], error) {
	if rate <= 0 {
		return nil, fmt.Errorf("noise: rate must be positive, got %g", rate)
	}
	return &PoissonNoiser[B]{rate: rate}, nil
}

// Corrupt applies element-wise Poisson corruption.
func (n *PoissonNoiser[B]) Corrupt(y *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	in := y.Data()
	out := make([]float32, len(in))
	for i, v := range in {
		if v < 0 {
			v = 0
		}
		out[i] = float32(float64(poissonSample(float64(v)*n.rate)) / n.rate)
	}

	result, err := tensor.FromSlice(out, y.Shape(), y.Backend())
	if err != nil {
		panic(fmt.Sprintf("noise: poisson: %v", err))
	}
	return result
}

// poissonSample draws from Poisson(lambda) by Knuth's method. Fine for
// the small lambdas of normalized image intensities.
func poissonSample(lambda float64) int {
	if lambda <= 0 {
		return 0
	}
	limit := math.Exp(-lambda)
	k := 0
	p := 1.0
	for {
		p *= rand.Float64() //nolint:gosec // G404: math/rand intentionally
		if p <= limit {
			return k
		}
		k++
	}
}
