package diffusion

import (
	"fmt"

	"github.com/DanVicenteIhanus/diffusion-posterior-sampling/internal/autodiff"
	"github.com/DanVicenteIhanus/diffusion-posterior-sampling/internal/tensor"
)

// StepResult is the per-timestep record emitted by the ancestral loop.
// It is ephemeral: the driving callback consumes it immediately.
type StepResult[B tensor.Backend] struct {
	// Sample is the gradient-corrected sample, the rolling state.
	Sample *tensor.Tensor[float32, B]
	// PredXStart is the model's clean-signal estimate at this step.
	PredXStart *tensor.Tensor[float32, B]
	// Mean is the prior posterior mean before noise injection.
	Mean *tensor.Tensor[float32, B]
	// Timestep is the (spaced) schedule index, counting down to 0.
	Timestep int
}

// AncestralSampler drives a full reverse-diffusion loop with the
// posterior-gradient correction applied at every step. The per-step
// update strategy is ancestral: a draw from the Gaussian posterior,
// mean plus scaled fresh noise.
type AncestralSampler[B autodiff.BackwardCapable] struct {
	process      *GaussianDiffusion[B]
	model        Model[B]
	gradientStep *GradientStep[B]
	backend      B
}

// NewAncestralSampler composes the loop driver from the diffusion
// process (base or respaced), the (wrapped) model and the shared
// gradient correction.
func NewAncestralSampler[B autodiff.BackwardCapable](
	process *GaussianDiffusion[B],
	model Model[B],
	gradientStep *GradientStep[B],
	backend B,
) (*AncestralSampler[B], error) {
	if process == nil {
		return nil, fmt.Errorf("ancestral sampler: nil diffusion process")
	}
	if model == nil {
		return nil, fmt.Errorf("ancestral sampler: nil model")
	}
	if gradientStep == nil {
		return nil, fmt.Errorf("ancestral sampler: nil gradient step")
	}
	return &AncestralSampler[B]{
		process:      process,
		model:        model,
		gradientStep: gradientStep,
		backend:      backend,
	}, nil
}

// Sample runs the full reverse loop and returns the terminal corrected
// sample (the timestep-0 record's sample).
func (s *AncestralSampler[B]) Sample(shape tensor.Shape) *tensor.Tensor[float32, B] {
	return s.SampleProgressive(shape, func(StepResult[B]) bool { return true })
}

// SampleProgressive runs the reverse loop from timestep T-1 down to 0,
// invoking fn once per step with that step's record. Returning false from
// fn stops the loop early; this is the cancellation hook. The sequence is
// single-pass and non-restartable. The returned tensor is the sample of
// the last emitted record.
//
// Memory discipline: before each step the previous state is detached, the
// gradient tape is cleared and device caches are released, so peak memory
// is bounded by one step's graph instead of growing across all T steps.
func (s *AncestralSampler[B]) SampleProgressive(shape tensor.Shape, fn func(StepResult[B]) bool) *tensor.Tensor[float32, B] {
	if len(shape) != 4 {
		panic(fmt.Sprintf("ancestral sampler: expected [N,C,H,W] shape, got %v", shape))
	}

	tape := s.backend.GetTape()
	batch := shape[0]

	// Initial state: pure noise, with differentiation enabled from the
	// start.
	x := tensor.Randn[float32](shape, s.backend).RequireGrad()

	for t := s.process.NumTimesteps() - 1; t >= 0; t-- {
		// Sever the graph from the previous step and reclaim device
		// caches before building this step's graph.
		x = x.Detach().RequireGrad()
		tape.Clear()
		if cr, ok := any(s.backend).(tensor.CacheReleaser); ok {
			cr.ReleaseCachedBuffers()
		}
		tape.StartRecording()

		ts := make([]int, batch)
		for i := range ts {
			ts[i] = t
		}

		out := s.process.PMeanVariance(s.model, x, ts)

		// Ancestral proposal: mean + exp(0.5*logvar) * fresh noise,
		// masked so batch elements at timestep 0 get no injected noise.
		noise := tensor.Randn[float32](shape, s.backend)
		sigma := out.LogVariance.MulScalar(0.5).Exp()
		proposal := out.Mean.Add(nonzeroMask(ts, s.backend).Mul(sigma).Mul(noise))

		x = s.gradientStep.Correct(x, out.PredXStart, proposal)

		record := StepResult[B]{
			Sample:     x,
			PredXStart: out.PredXStart.Detach(),
			Mean:       out.Mean.Detach(),
			Timestep:   t,
		}
		if !fn(record) {
			break
		}
	}

	tape.StopRecording()
	tape.Clear()
	return x
}

// nonzeroMask is 1 for batch elements whose timestep is nonzero and 0 for
// those at the deterministic final step, shaped [N,1,1,1] for broadcast.
func nonzeroMask[B tensor.Backend](ts []int, backend B) *tensor.Tensor[float32, B] {
	data := make([]float32, len(ts))
	for i, t := range ts {
		if t != 0 {
			data[i] = 1
		}
	}
	mask, err := tensor.FromSlice(data, tensor.Shape{len(ts), 1, 1, 1}, backend)
	if err != nil {
		panic(fmt.Sprintf("ancestral sampler: noise mask: %v", err))
	}
	return mask
}
