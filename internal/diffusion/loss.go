package diffusion

import (
	"fmt"

	"github.com/DanVicenteIhanus/diffusion-posterior-sampling/internal/tensor"
)

// Noise models selectable for the measurement loss.
const (
	GaussianNoise = "gaussian"
	PoissonNoise  = "poisson"
)

// poissonEps keeps the variance-stabilizing weights finite where the
// observation is near zero.
const poissonEps = 1e-2

// MeasurementLoss is a differentiable discrepancy between a predicted
// measurement and the observed one. The variant is fixed at construction.
type MeasurementLoss[B tensor.Backend] struct {
	noiseModel string
}

// NewMeasurementLoss selects a loss variant by noise-model name.
// Unknown names are a configuration error.
func NewMeasurementLoss[B tensor.Backend](noiseModel string) (*MeasurementLoss[B], error) {
	switch noiseModel {
	case GaussianNoise, PoissonNoise:
		return &MeasurementLoss[B]{noiseModel: noiseModel}, nil
	default:
		return nil, fmt.Errorf("measurement loss: unknown noise model %q", noiseModel)
	}
}

// NoiseModel returns the configured noise-model name.
func (l *MeasurementLoss[B]) NoiseModel() string {
	return l.noiseModel
}

// Loss evaluates the scalar discrepancy. Predicted and observed tensors
// must have identical shapes; a mismatch is a precondition failure, not a
// broadcast.
func (l *MeasurementLoss[B]) Loss(predicted, observed *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	if !predicted.Shape().Equal(observed.Shape()) {
		panic(fmt.Sprintf("measurement loss: shape mismatch: predicted %v vs observed %v", predicted.Shape(), observed.Shape()))
	}

	diff := predicted.Sub(observed)
	squared := diff.Mul(diff)

	switch l.noiseModel {
	case GaussianNoise:
		return squared.Sum()
	case PoissonNoise:
		return l.poissonWeights(observed).Mul(squared).Sum()
	default:
		panic(fmt.Sprintf("measurement loss: unknown noise model %q", l.noiseModel))
	}
}

// poissonWeights builds the constant per-element weights
// 1/(2*max(|y_i|, eps)). The weights are data, not graph nodes, so no
// gradient flows through them.
func (l *MeasurementLoss[B]) poissonWeights(observed *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	data := observed.Data()
	weights := make([]float32, len(data))
	for i, y := range data {
		if y < 0 {
			y = -y
		}
		if y < poissonEps {
			y = poissonEps
		}
		weights[i] = 1 / (2 * y)
	}

	out, err := tensor.FromSlice(weights, observed.Shape(), observed.Backend())
	if err != nil {
		panic(fmt.Sprintf("measurement loss: weights: %v", err))
	}
	return out
}
