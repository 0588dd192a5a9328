package diffusion

import (
	"fmt"

	"github.com/DanVicenteIhanus/diffusion-posterior-sampling/internal/autodiff"
	"github.com/DanVicenteIhanus/diffusion-posterior-sampling/internal/tensor"
)

// SolverSteps supplies the per-order ODE update formulas. Each method
// takes the current state, the freshly computed noise estimate, the
// rolling history of earlier model outputs and timesteps (newest last;
// the driving loop owns this bookkeeping), and the target timestep, and
// returns the prior-only proposal for the next state.
type SolverSteps[B tensor.Backend] interface {
	FirstOrder(x, eps *tensor.Tensor[float32, B], t int) *tensor.Tensor[float32, B]
	SecondOrder(x, eps *tensor.Tensor[float32, B], modelPrev []*tensor.Tensor[float32, B], tsPrev []int, t int) *tensor.Tensor[float32, B]
	ThirdOrder(x, eps *tensor.Tensor[float32, B], modelPrev []*tensor.Tensor[float32, B], tsPrev []int, t int) *tensor.Tensor[float32, B]
}

// SolverConfig holds the empirical blend constant.
type SolverConfig struct {
	// BlendCorrected is the convex weight on the gradient-corrected
	// proposal; the remainder goes to the uncorrected ODE proposal.
	// Zero value means the default 0.7.
	BlendCorrected float32
}

// defaultBlendCorrected stabilizes against over-aggressive correction.
const defaultBlendCorrected = 0.7

// SolverSampler layers the posterior-gradient correction onto a multistep
// ODE integrator. It supplies the replacement per-step update that an
// external multistep driving loop calls once per timestep; the correction
// here targets the predicted clean signal rather than the posterior mean.
type SolverSampler[B autodiff.BackwardCapable] struct {
	process      *GaussianDiffusion[B]
	model        Model[B]
	steps        SolverSteps[B]
	gradientStep *GradientStep[B]
	backend      B
	order        int
	blend        float32
}

// NewSolverSampler validates the order (1, 2 or 3 only) and composes the
// update step.
func NewSolverSampler[B autodiff.BackwardCapable](
	process *GaussianDiffusion[B],
	model Model[B],
	steps SolverSteps[B],
	gradientStep *GradientStep[B],
	backend B,
	order int,
	cfg SolverConfig,
) (*SolverSampler[B], error) {
	if process == nil {
		return nil, fmt.Errorf("solver sampler: nil diffusion process")
	}
	if model == nil {
		return nil, fmt.Errorf("solver sampler: nil model")
	}
	if steps == nil {
		return nil, fmt.Errorf("solver sampler: nil solver steps")
	}
	if gradientStep == nil {
		return nil, fmt.Errorf("solver sampler: nil gradient step")
	}
	if order < 1 || order > 3 {
		return nil, fmt.Errorf("solver sampler: order must be 1, 2 or 3, got %d", order)
	}

	blend := cfg.BlendCorrected
	if blend == 0 {
		blend = defaultBlendCorrected
	}
	if blend < 0 || blend > 1 {
		return nil, fmt.Errorf("solver sampler: blend weight %g outside [0, 1]", blend)
	}

	return &SolverSampler[B]{
		process:      process,
		model:        model,
		steps:        steps,
		gradientStep: gradientStep,
		backend:      backend,
		order:        order,
		blend:        blend,
	}, nil
}

// Order returns the configured solver order.
func (s *SolverSampler[B]) Order() int {
	return s.order
}

// Update performs one guided solver step from x at timestep t.
//
// modelPrev and tsPrev are the driving loop's rolling history of the last
// `order` model outputs and timesteps (newest last). The returned tensor
// is detached from this step's graph and marked as a gradient-tracking
// leaf for the next iteration.
func (s *SolverSampler[B]) Update(x *tensor.Tensor[float32, B], modelPrev []*tensor.Tensor[float32, B], tsPrev []int, t int) *tensor.Tensor[float32, B] {
	tape := s.backend.GetTape()

	// Fresh leaf: sever whatever graph the previous step left behind and
	// reclaim device caches.
	x = x.Detach().RequireGrad()
	tape.Clear()
	if cr, ok := any(s.backend).(tensor.CacheReleaser); ok {
		cr.ReleaseCachedBuffers()
	}

	batch := x.Shape()[0]
	ts := make([]int, batch)
	for i := range ts {
		ts[i] = t
	}

	// The model invocation and the clean-signal inversion need an active
	// differentiable path for the correction's backward pass.
	tape.StartRecording()
	eps := s.process.modelEps(s.model, x, ts)
	predXStart := s.process.PredictXStartFromEps(x, ts, eps)
	tape.StopRecording()

	// ODE proposal without gradient tracking.
	var proposal *tensor.Tensor[float32, B]
	switch s.order {
	case 1:
		proposal = s.steps.FirstOrder(x, eps, t)
	case 2:
		proposal = s.steps.SecondOrder(x, eps, modelPrev, tsPrev, t)
	case 3:
		proposal = s.steps.ThirdOrder(x, eps, modelPrev, tsPrev, t)
	default:
		panic(fmt.Sprintf("solver sampler: unsupported order %d", s.order))
	}

	corrected := s.gradientStep.Correct(x, predXStart, proposal)

	// Convex blend of corrected and uncorrected proposals.
	blended := corrected.MulScalar(s.blend).Add(proposal.Detach().MulScalar(1 - s.blend))

	// The blended result is the next iteration's leaf.
	result := blended.Detach().RequireGrad()
	tape.StartRecording()
	return result
}
