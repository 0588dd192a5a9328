package diffusion_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DanVicenteIhanus/diffusion-posterior-sampling/internal/diffusion"
	"github.com/DanVicenteIhanus/diffusion-posterior-sampling/internal/measurement"
	"github.com/DanVicenteIhanus/diffusion-posterior-sampling/internal/tensor"
)

func TestNewGradientStep_Validation(t *testing.T) {
	backend := newBackend()
	loss, err := diffusion.NewMeasurementLoss[backendT](diffusion.GaussianNoise)
	require.NoError(t, err)
	y := tensor.Zeros[float32](tensor.Shape{1, 1, 2, 2}, backend)

	_, err = diffusion.NewGradientStep[backendT](nil, y, loss, diffusion.DefaultGradientStepConfig())
	assert.Error(t, err, "nil operator")

	_, err = diffusion.NewGradientStep[backendT](measurement.NewIdentity[backendT](), y, nil, diffusion.DefaultGradientStepConfig())
	assert.Error(t, err, "nil loss")

	_, err = diffusion.NewGradientStep[backendT](measurement.NewIdentity[backendT](), y, loss, diffusion.GradientStepConfig{StepSize: 0})
	assert.Error(t, err, "non-positive step size")

	flat := tensor.Zeros[float32](tensor.Shape{2, 2}, backend)
	_, err = diffusion.NewGradientStep[backendT](measurement.NewIdentity[backendT](), flat, loss, diffusion.DefaultGradientStepConfig())
	assert.Error(t, err, "rank-2 measurement")
}

// TestNewGradientStep_BroadcastsRank3 checks that an unbatched
// measurement gets a leading batch dimension.
func TestNewGradientStep_BroadcastsRank3(t *testing.T) {
	backend := newBackend()
	loss, err := diffusion.NewMeasurementLoss[backendT](diffusion.GaussianNoise)
	require.NoError(t, err)

	y := tensor.Zeros[float32](tensor.Shape{1, 2, 2}, backend)
	step, err := diffusion.NewGradientStep[backendT](measurement.NewIdentity[backendT](), y, loss, diffusion.DefaultGradientStepConfig())
	require.NoError(t, err)

	assert.True(t, step.Measurement().Shape().Equal(tensor.Shape{1, 1, 2, 2}))
}

// TestCorrect_MovesTowardMeasurement checks the correction arithmetic for
// an identity operator against hand-computed values.
func TestCorrect_MovesTowardMeasurement(t *testing.T) {
	backend := newBackend()
	loss, err := diffusion.NewMeasurementLoss[backendT](diffusion.GaussianNoise)
	require.NoError(t, err)

	y := tensor.Zeros[float32](tensor.Shape{1, 1, 2, 2}, backend)
	step, err := diffusion.NewGradientStep[backendT](
		measurement.NewIdentity[backendT](), y, loss,
		diffusion.GradientStepConfig{StepSize: 0.3})
	require.NoError(t, err)

	x := tensor.Ones[float32](tensor.Shape{1, 1, 2, 2}, backend).RequireGrad()
	proposal := tensor.Ones[float32](tensor.Shape{1, 1, 2, 2}, backend)

	corrected := step.Correct(x, x, proposal)

	// loss = sum(x^2) = 4, residual norm = 2, zeta = 0.3/2 = 0.15,
	// grad = 2x = 2: corrected = 1 - 0.15*2 = 0.7.
	for i, v := range corrected.Data() {
		assert.InDelta(t, 0.7, float64(v), 1e-4, "element %d", i)
	}
	assert.False(t, corrected.RequiresGrad(), "correction result must be detached")
}

// TestCorrect_ZeroResidualFallsBack checks that an exactly-zero loss takes
// the fallback step, which on a zero gradient leaves the proposal intact.
func TestCorrect_ZeroResidualFallsBack(t *testing.T) {
	backend := newBackend()
	loss, err := diffusion.NewMeasurementLoss[backendT](diffusion.GaussianNoise)
	require.NoError(t, err)

	y := tensor.Full[float32](tensor.Shape{1, 1, 2, 2}, 0.5, backend)
	step, err := diffusion.NewGradientStep[backendT](
		measurement.NewIdentity[backendT](), y, loss,
		diffusion.GradientStepConfig{StepSize: 0.3, FallbackStep: 0.1})
	require.NoError(t, err)

	x := tensor.Full[float32](tensor.Shape{1, 1, 2, 2}, 0.5, backend).RequireGrad()
	proposal := tensor.Full[float32](tensor.Shape{1, 1, 2, 2}, 42, backend)

	corrected := step.Correct(x, x, proposal)

	for i, v := range corrected.Data() {
		assert.Equal(t, float32(42), v, "element %d", i)
	}
}

// TestCorrect_RestoresRecordingState checks that the ambient tape mode
// survives a correction in both directions.
func TestCorrect_RestoresRecordingState(t *testing.T) {
	backend := newBackend()
	tape := backend.Tape()
	loss, err := diffusion.NewMeasurementLoss[backendT](diffusion.GaussianNoise)
	require.NoError(t, err)

	y := tensor.Zeros[float32](tensor.Shape{1, 1, 2, 2}, backend)
	step, err := diffusion.NewGradientStep[backendT](
		measurement.NewIdentity[backendT](), y, loss,
		diffusion.DefaultGradientStepConfig())
	require.NoError(t, err)

	x := tensor.Ones[float32](tensor.Shape{1, 1, 2, 2}, backend).RequireGrad()
	proposal := tensor.Ones[float32](tensor.Shape{1, 1, 2, 2}, backend)

	require.False(t, tape.IsRecording())
	step.Correct(x, x, proposal)
	assert.False(t, tape.IsRecording(), "recording must stay off")

	tape.Clear()
	tape.StartRecording()
	step.Correct(x, x, proposal)
	assert.True(t, tape.IsRecording(), "recording must stay on")
	tape.StopRecording()
}

// TestCorrect_GradientWrtSample checks that the gradient is taken with
// respect to the noisy sample, through the clean-signal estimate.
func TestCorrect_GradientWrtSample(t *testing.T) {
	backend := newBackend()
	tape := backend.Tape()
	loss, err := diffusion.NewMeasurementLoss[backendT](diffusion.GaussianNoise)
	require.NoError(t, err)

	y := tensor.Zeros[float32](tensor.Shape{1, 1, 2, 2}, backend)
	step, err := diffusion.NewGradientStep[backendT](
		measurement.NewIdentity[backendT](), y, loss,
		diffusion.GradientStepConfig{StepSize: 0.3})
	require.NoError(t, err)

	// predXStart = 2x, so d loss/dx = 2 * (2x) * 2 = 8x.
	tape.Clear()
	tape.StartRecording()
	x := tensor.Ones[float32](tensor.Shape{1, 1, 2, 2}, backend).RequireGrad()
	predXStart := x.MulScalar(2)
	proposal := tensor.Zeros[float32](tensor.Shape{1, 1, 2, 2}, backend)

	corrected := step.Correct(x, predXStart, proposal)
	tape.StopRecording()

	// loss = sum((2x)^2) = 16, norm = sqrt(16) = 4, zeta = 0.3/4,
	// grad = 8: corrected = 0 - (0.3/4)*8 = -0.6.
	want := -0.3 / 4 * 8
	for i, v := range corrected.Data() {
		assert.InDelta(t, want, float64(v), 1e-4, "element %d", i)
	}
}
