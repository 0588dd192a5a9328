package diffusion_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DanVicenteIhanus/diffusion-posterior-sampling/internal/diffusion"
	"github.com/DanVicenteIhanus/diffusion-posterior-sampling/internal/measurement"
	"github.com/DanVicenteIhanus/diffusion-posterior-sampling/internal/tensor"
)

// fakeSteps scales the state by a constant per order and records which
// order was dispatched.
type fakeSteps struct {
	called       string
	gotPrevLen   int
	gotPrevSteps []int
}

func (f *fakeSteps) FirstOrder(x, eps *tensor.Tensor[float32, backendT], t int) *tensor.Tensor[float32, backendT] {
	f.called = "first"
	return x.Detach().MulScalar(0.5)
}

func (f *fakeSteps) SecondOrder(x, eps *tensor.Tensor[float32, backendT], modelPrev []*tensor.Tensor[float32, backendT], tsPrev []int, t int) *tensor.Tensor[float32, backendT] {
	f.called = "second"
	f.gotPrevLen = len(modelPrev)
	f.gotPrevSteps = tsPrev
	return x.Detach().MulScalar(0.5)
}

func (f *fakeSteps) ThirdOrder(x, eps *tensor.Tensor[float32, backendT], modelPrev []*tensor.Tensor[float32, backendT], tsPrev []int, t int) *tensor.Tensor[float32, backendT] {
	f.called = "third"
	f.gotPrevLen = len(modelPrev)
	f.gotPrevSteps = tsPrev
	return x.Detach().MulScalar(0.5)
}

// constantOperator observes a fixed value regardless of the input, so no
// gradient flows back to the sample.
type constantOperator struct {
	value *tensor.Tensor[float32, backendT]
}

func (op *constantOperator) Apply(x *tensor.Tensor[float32, backendT]) *tensor.Tensor[float32, backendT] {
	return op.value.Detach()
}

func newSolverFixture(t *testing.T, backend backendT, operator diffusion.MeasurementOperator[backendT], order int, cfg diffusion.SolverConfig) (*diffusion.SolverSampler[backendT], *fakeSteps) {
	t.Helper()

	process, err := diffusion.NewGaussianDiffusion(diffusion.LinearBetas(10), backend)
	require.NoError(t, err)

	loss, err := diffusion.NewMeasurementLoss[backendT](diffusion.GaussianNoise)
	require.NoError(t, err)

	y := tensor.Zeros[float32](tensor.Shape{1, 1, 2, 2}, backend)
	step, err := diffusion.NewGradientStep[backendT](operator, y, loss, diffusion.DefaultGradientStepConfig())
	require.NoError(t, err)

	steps := &fakeSteps{}
	sampler, err := diffusion.NewSolverSampler[backendT](process, zeroModel{}, steps, step, backend, order, cfg)
	require.NoError(t, err)
	return sampler, steps
}

func TestNewSolverSampler_Validation(t *testing.T) {
	backend := newBackend()
	process, err := diffusion.NewGaussianDiffusion([]float64{0.1}, backend)
	require.NoError(t, err)

	loss, err := diffusion.NewMeasurementLoss[backendT](diffusion.GaussianNoise)
	require.NoError(t, err)
	y := tensor.Zeros[float32](tensor.Shape{1, 1, 2, 2}, backend)
	step, err := diffusion.NewGradientStep[backendT](measurement.NewIdentity[backendT](), y, loss, diffusion.DefaultGradientStepConfig())
	require.NoError(t, err)

	for _, order := range []int{0, 4, -1} {
		_, err := diffusion.NewSolverSampler[backendT](process, zeroModel{}, &fakeSteps{}, step, backend, order, diffusion.SolverConfig{})
		assert.Error(t, err, "order %d", order)
	}

	_, err = diffusion.NewSolverSampler[backendT](process, zeroModel{}, &fakeSteps{}, step, backend, 1, diffusion.SolverConfig{BlendCorrected: 1.5})
	assert.Error(t, err, "blend out of range")

	_, err = diffusion.NewSolverSampler[backendT](process, zeroModel{}, nil, step, backend, 1, diffusion.SolverConfig{})
	assert.Error(t, err, "nil steps")
}

func TestSolverSampler_Order(t *testing.T) {
	backend := newBackend()
	sampler, _ := newSolverFixture(t, backend, measurement.NewIdentity[backendT](), 2, diffusion.SolverConfig{})
	assert.Equal(t, 2, sampler.Order())
}

// TestUpdate_DispatchesByOrder checks the per-order routing and that the
// history is passed through untouched.
func TestUpdate_DispatchesByOrder(t *testing.T) {
	for order, want := range map[int]string{1: "first", 2: "second", 3: "third"} {
		backend := newBackend()
		sampler, steps := newSolverFixture(t, backend, measurement.NewIdentity[backendT](), order, diffusion.SolverConfig{})

		x := tensor.Ones[float32](tensor.Shape{1, 1, 2, 2}, backend)
		prev := []*tensor.Tensor[float32, backendT]{
			tensor.Zeros[float32](tensor.Shape{1, 1, 2, 2}, backend),
		}
		sampler.Update(x, prev, []int{6}, 5)

		assert.Equal(t, want, steps.called, "order %d", order)
		if order > 1 {
			assert.Equal(t, 1, steps.gotPrevLen)
			assert.Equal(t, []int{6}, steps.gotPrevSteps)
		}
	}
}

// TestUpdate_BlendIdentityWithoutGradient checks that when no gradient
// reaches the sample the blend is a no-op: the update returns the ODE
// proposal exactly, for any blend weight.
func TestUpdate_BlendIdentityWithoutGradient(t *testing.T) {
	backend := newBackend()
	observed := tensor.Zeros[float32](tensor.Shape{1, 1, 2, 2}, backend)
	operator := &constantOperator{value: observed}

	sampler, _ := newSolverFixture(t, backend, operator, 1, diffusion.SolverConfig{BlendCorrected: 0.3})

	x := tensor.Full[float32](tensor.Shape{1, 1, 2, 2}, 2.0, backend)
	result := sampler.Update(x, nil, nil, 4)

	// fakeSteps.FirstOrder returns x * 0.5 = 1.
	for i, v := range result.Data() {
		assert.InDelta(t, 1.0, float64(v), 1e-5, "element %d", i)
	}
}

// TestUpdate_BlendsCorrectedAndProposal checks the convex blend against
// hand-computed values when a gradient does flow.
func TestUpdate_BlendsCorrectedAndProposal(t *testing.T) {
	backend := newBackend()
	blend := float32(0.7)
	sampler, _ := newSolverFixture(t, backend, measurement.NewIdentity[backendT](), 1, diffusion.SolverConfig{BlendCorrected: blend})

	x := tensor.Full[float32](tensor.Shape{1, 1, 2, 2}, 2.0, backend)
	result := sampler.Update(x, nil, nil, 4)

	// The corrected branch moves off the proposal, so the result must
	// differ from the raw proposal (1.0) but stay on its side of it.
	proposal := 1.0
	for i, v := range result.Data() {
		assert.NotEqual(t, float32(proposal), v, "element %d", i)
		assert.Less(t, float64(v), proposal, "element %d: correction pulls toward the zero measurement", i)
	}
}

// TestUpdate_LeavesRecordingOn checks that Update hands back a
// gradient-tracking leaf with the tape recording, ready for the caller's
// next iteration.
func TestUpdate_LeavesRecordingOn(t *testing.T) {
	backend := newBackend()
	sampler, _ := newSolverFixture(t, backend, measurement.NewIdentity[backendT](), 1, diffusion.SolverConfig{})

	x := tensor.Ones[float32](tensor.Shape{1, 1, 2, 2}, backend)
	result := sampler.Update(x, nil, nil, 3)

	assert.True(t, backend.Tape().IsRecording())
	assert.True(t, result.RequiresGrad())
	backend.Tape().StopRecording()
}
