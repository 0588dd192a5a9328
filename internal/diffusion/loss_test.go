package diffusion_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DanVicenteIhanus/diffusion-posterior-sampling/internal/diffusion"
	"github.com/DanVicenteIhanus/diffusion-posterior-sampling/internal/tensor"
)

func TestNewMeasurementLoss_UnknownModel(t *testing.T) {
	_, err := diffusion.NewMeasurementLoss[backendT]("cauchy")
	assert.Error(t, err)
}

func TestMeasurementLoss_GaussianZero(t *testing.T) {
	backend := newBackend()
	loss, err := diffusion.NewMeasurementLoss[backendT](diffusion.GaussianNoise)
	require.NoError(t, err)

	y, _ := tensor.FromSlice([]float32{1, -2, 3}, tensor.Shape{3}, backend)
	assert.Equal(t, float32(0), loss.Loss(y, y).Item())
}

func TestMeasurementLoss_GaussianValue(t *testing.T) {
	backend := newBackend()
	loss, err := diffusion.NewMeasurementLoss[backendT](diffusion.GaussianNoise)
	require.NoError(t, err)

	pred, _ := tensor.FromSlice([]float32{1, 2}, tensor.Shape{2}, backend)
	obs, _ := tensor.FromSlice([]float32{0, 0}, tensor.Shape{2}, backend)

	// (1-0)^2 + (2-0)^2 = 5
	assert.InDelta(t, 5.0, float64(loss.Loss(pred, obs).Item()), 1e-5)
}

func TestMeasurementLoss_PoissonZero(t *testing.T) {
	backend := newBackend()
	loss, err := diffusion.NewMeasurementLoss[backendT](diffusion.PoissonNoise)
	require.NoError(t, err)

	y, _ := tensor.FromSlice([]float32{0.5, 0.25}, tensor.Shape{2}, backend)
	assert.Equal(t, float32(0), loss.Loss(y, y).Item())
}

// TestMeasurementLoss_PoissonWeighting checks the 1/(2*max(|y|, eps))
// weighting, including the epsilon floor for near-zero observations.
func TestMeasurementLoss_PoissonWeighting(t *testing.T) {
	backend := newBackend()
	loss, err := diffusion.NewMeasurementLoss[backendT](diffusion.PoissonNoise)
	require.NoError(t, err)

	obs, _ := tensor.FromSlice([]float32{0.5, -0.5, 0}, tensor.Shape{3}, backend)
	pred, _ := tensor.FromSlice([]float32{1.5, 0.5, 1}, tensor.Shape{3}, backend)

	// Weights: 1/(2*0.5)=1, 1/(2*0.5)=1, 1/(2*0.01)=50.
	// Residuals squared: 1, 1, 1. Total: 1 + 1 + 50 = 52.
	assert.InDelta(t, 52.0, float64(loss.Loss(pred, obs).Item()), 1e-3)
}

func TestMeasurementLoss_ShapeMismatchPanics(t *testing.T) {
	backend := newBackend()
	loss, err := diffusion.NewMeasurementLoss[backendT](diffusion.GaussianNoise)
	require.NoError(t, err)

	a, _ := tensor.FromSlice([]float32{1, 2}, tensor.Shape{2}, backend)
	b, _ := tensor.FromSlice([]float32{1, 2, 3}, tensor.Shape{3}, backend)

	require.Panics(t, func() {
		loss.Loss(a, b)
	})
}

func TestMeasurementLoss_NoiseModel(t *testing.T) {
	loss, err := diffusion.NewMeasurementLoss[backendT](diffusion.PoissonNoise)
	require.NoError(t, err)
	assert.Equal(t, diffusion.PoissonNoise, loss.NoiseModel())
}
