package diffusion_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DanVicenteIhanus/diffusion-posterior-sampling/internal/diffusion"
	"github.com/DanVicenteIhanus/diffusion-posterior-sampling/internal/measurement"
	"github.com/DanVicenteIhanus/diffusion-posterior-sampling/internal/tensor"
)

func newAncestralFixture(t *testing.T, backend backendT, betas []float64, model diffusion.Model[backendT]) *diffusion.AncestralSampler[backendT] {
	t.Helper()

	process, err := diffusion.NewGaussianDiffusion(betas, backend)
	require.NoError(t, err)

	loss, err := diffusion.NewMeasurementLoss[backendT](diffusion.GaussianNoise)
	require.NoError(t, err)

	y := tensor.Zeros[float32](tensor.Shape{1, 1, 2, 2}, backend)
	step, err := diffusion.NewGradientStep[backendT](
		measurement.NewIdentity[backendT](), y, loss,
		diffusion.DefaultGradientStepConfig())
	require.NoError(t, err)

	sampler, err := diffusion.NewAncestralSampler(process, model, step, backend)
	require.NoError(t, err)
	return sampler
}

func TestNewAncestralSampler_Validation(t *testing.T) {
	backend := newBackend()
	process, err := diffusion.NewGaussianDiffusion([]float64{0.1}, backend)
	require.NoError(t, err)

	_, err = diffusion.NewAncestralSampler[backendT](nil, zeroModel{}, nil, backend)
	assert.Error(t, err, "nil process")

	_, err = diffusion.NewAncestralSampler[backendT](process, nil, nil, backend)
	assert.Error(t, err, "nil model")

	_, err = diffusion.NewAncestralSampler[backendT](process, zeroModel{}, nil, backend)
	assert.Error(t, err, "nil gradient step")
}

func TestSampleProgressive_RejectsBadShape(t *testing.T) {
	backend := newBackend()
	sampler := newAncestralFixture(t, backend, []float64{0.1}, zeroModel{})

	require.Panics(t, func() {
		sampler.Sample(tensor.Shape{2, 2})
	})
}

// TestSampleProgressive_EmitsDescendingTimesteps checks the reverse loop
// emits exactly one record per timestep, from T-1 down to 0.
func TestSampleProgressive_EmitsDescendingTimesteps(t *testing.T) {
	backend := newBackend()
	sampler := newAncestralFixture(t, backend, diffusion.LinearBetas(5), zeroModel{})

	var seen []int
	sampler.SampleProgressive(tensor.Shape{1, 1, 2, 2}, func(r diffusion.StepResult[backendT]) bool {
		seen = append(seen, r.Timestep)
		require.True(t, r.Sample.Shape().Equal(tensor.Shape{1, 1, 2, 2}))
		require.NotNil(t, r.PredXStart)
		require.NotNil(t, r.Mean)
		return true
	})

	assert.Equal(t, []int{4, 3, 2, 1, 0}, seen)
}

// TestSampleProgressive_StopsEarly checks the cancellation hook.
func TestSampleProgressive_StopsEarly(t *testing.T) {
	backend := newBackend()
	sampler := newAncestralFixture(t, backend, diffusion.LinearBetas(5), zeroModel{})

	count := 0
	sampler.SampleProgressive(tensor.Shape{1, 1, 2, 2}, func(diffusion.StepResult[backendT]) bool {
		count++
		return count < 2
	})

	assert.Equal(t, 2, count)
}

// TestSampleProgressive_StopsRecording checks the tape is off and empty
// once sampling finishes.
func TestSampleProgressive_StopsRecording(t *testing.T) {
	backend := newBackend()
	sampler := newAncestralFixture(t, backend, diffusion.LinearBetas(3), zeroModel{})

	sampler.Sample(tensor.Shape{1, 1, 2, 2})

	assert.False(t, backend.Tape().IsRecording())
	assert.Equal(t, 0, backend.Tape().NumOps())
}

// TestSample_FinalStepDeterministic runs a single-step process and checks
// the result against the closed form. With one timestep the loop runs only
// t=0, where no noise is injected, so the outcome is a deterministic
// function of the initial state captured through the model.
func TestSample_FinalStepDeterministic(t *testing.T) {
	backend := newBackend()

	beta := 0.1
	process, err := diffusion.NewGaussianDiffusion([]float64{beta}, backend)
	require.NoError(t, err)

	loss, err := diffusion.NewMeasurementLoss[backendT](diffusion.GaussianNoise)
	require.NoError(t, err)

	yVals := []float32{0.1, -0.2, 0.3, -0.4}
	y, err := tensor.FromSlice(yVals, tensor.Shape{1, 1, 2, 2}, backend)
	require.NoError(t, err)

	stepSize := 0.3
	step, err := diffusion.NewGradientStep[backendT](
		measurement.NewIdentity[backendT](), y, loss,
		diffusion.GradientStepConfig{StepSize: float32(stepSize)})
	require.NoError(t, err)

	model := &captureModel{}
	sampler, err := diffusion.NewAncestralSampler[backendT](process, model, step, backend)
	require.NoError(t, err)

	sample := sampler.Sample(tensor.Shape{1, 1, 2, 2})

	require.Len(t, model.xs, 1)
	x := model.xs[0]

	// Closed form for a zero noise estimate at the only timestep:
	//   pred_x0 = x / sqrt(ac), ac = 1 - beta
	//   mean    = coef1 * pred_x0 + coef2 * x, with coef1 = 1, coef2 = 0
	//   grad    = 2 * (pred_x0 - y) / sqrt(ac)
	//   zeta    = stepSize / ||pred_x0 - y||
	//   sample  = mean - zeta * grad   (no noise at t = 0)
	recip := 1 / math.Sqrt(1-beta)
	var norm float64
	px := make([]float64, len(x))
	for i, v := range x {
		px[i] = recip * float64(v)
		r := px[i] - float64(yVals[i])
		norm += r * r
	}
	norm = math.Sqrt(norm)
	require.Greater(t, norm, 0.0)

	zeta := stepSize / norm
	for i, v := range sample.Data() {
		grad := 2 * (px[i] - float64(yVals[i])) * recip
		want := px[i] - zeta*grad
		assert.InDelta(t, want, float64(v), 1e-3, "element %d", i)
	}
}
