// Copyright 2025 Diffusion Posterior Sampling Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package diffusion provides the public API for guided reverse diffusion:
// Gaussian diffusion processes, timestep respacing, measurement losses,
// the posterior-gradient correction, and the ancestral and ODE-solver
// sampling loops.
//
// Example:
//
//	backend := autodiff.New(cpu.New())
//	betas := diffusion.LinearBetas(1000)
//	use, _ := diffusion.SpaceTimesteps(1000, "ddim50")
//	process, _ := diffusion.NewSpacedDiffusion(use, betas, backend)
//	model := process.WrapModel(denoiser, true)
//
//	loss, _ := diffusion.NewMeasurementLoss[*autodiff.Backend[*cpu.Backend]](diffusion.GaussianNoise)
//	step, _ := diffusion.NewGradientStep(operator, observed, loss, diffusion.DefaultGradientStepConfig())
//	sampler, _ := diffusion.NewAncestralSampler(process.GaussianDiffusion, model, step, backend)
//	sample := sampler.Sample(tensor.Shape{1, 3, 64, 64})
package diffusion

import (
	"github.com/DanVicenteIhanus/diffusion-posterior-sampling/internal/autodiff"
	"github.com/DanVicenteIhanus/diffusion-posterior-sampling/internal/diffusion"
	"github.com/DanVicenteIhanus/diffusion-posterior-sampling/internal/tensor"
)

// Model is the denoiser interface: given a noisy batch and per-sample
// timesteps it predicts the noise component.
type Model[B tensor.Backend] = diffusion.Model[B]

// GaussianDiffusion holds the precomputed schedule arrays of a DDPM
// forward process and the derived posterior coefficients.
type GaussianDiffusion[B tensor.Backend] = diffusion.GaussianDiffusion[B]

// NewGaussianDiffusion builds a process from a beta schedule. Every beta
// must lie in (0, 1].
func NewGaussianDiffusion[B tensor.Backend](betas []float64, backend B) (*GaussianDiffusion[B], error) {
	return diffusion.NewGaussianDiffusion(betas, backend)
}

// PosteriorResult bundles the posterior mean, log-variance and the
// predicted clean signal for one reverse step.
type PosteriorResult[B tensor.Backend] = diffusion.PosteriorResult[B]

// LinearBetas returns the standard scaled linear beta schedule.
func LinearBetas(numTimesteps int) []float64 {
	return diffusion.LinearBetas(numTimesteps)
}

// CosineBetas returns the cosine alpha-bar beta schedule.
func CosineBetas(numTimesteps int) []float64 {
	return diffusion.CosineBetas(numTimesteps)
}

// SpaceTimesteps selects the original timesteps to retain, from either a
// "ddimN" stride spec or a comma-separated list of per-section counts.
func SpaceTimesteps(numTimesteps int, sectionCounts string) (map[int]struct{}, error) {
	return diffusion.SpaceTimesteps(numTimesteps, sectionCounts)
}

// SpaceTimestepsSections is the list form of SpaceTimesteps.
func SpaceTimestepsSections(numTimesteps int, counts []int) (map[int]struct{}, error) {
	return diffusion.SpaceTimestepsSections(numTimesteps, counts)
}

// SpacedDiffusion is a diffusion process restricted to a subsequence of
// the original timesteps, with betas re-derived so the retained marginals
// are preserved.
type SpacedDiffusion[B tensor.Backend] = diffusion.SpacedDiffusion[B]

// NewSpacedDiffusion builds the reduced process over the retained steps.
func NewSpacedDiffusion[B tensor.Backend](useTimesteps map[int]struct{}, baseBetas []float64, backend B) (*SpacedDiffusion[B], error) {
	return diffusion.NewSpacedDiffusion(useTimesteps, baseBetas, backend)
}

// WrapModel adapts a model trained on the original timestep indexing to
// the spaced indexing, optionally rescaling timesteps to the [0, 1000)
// convention. Wrapping is idempotent.
func WrapModel[B tensor.Backend](model Model[B], timestepMap []int, rescale bool, originalNumSteps int) Model[B] {
	return diffusion.WrapModel(model, timestepMap, rescale, originalNumSteps)
}

// Supported measurement noise models.
const (
	GaussianNoise = diffusion.GaussianNoise
	PoissonNoise  = diffusion.PoissonNoise
)

// MeasurementLoss scores a predicted measurement against the observation
// under the configured noise model.
type MeasurementLoss[B tensor.Backend] = diffusion.MeasurementLoss[B]

// NewMeasurementLoss creates a loss for the given noise model name.
func NewMeasurementLoss[B tensor.Backend](noiseModel string) (*MeasurementLoss[B], error) {
	return diffusion.NewMeasurementLoss[B](noiseModel)
}

// MeasurementOperator is the forward operator A in y = A(x) + noise.
type MeasurementOperator[B tensor.Backend] = diffusion.MeasurementOperator[B]

// GradientStepConfig configures the posterior-gradient correction.
type GradientStepConfig = diffusion.GradientStepConfig

// DefaultGradientStepConfig returns the default correction settings.
func DefaultGradientStepConfig() GradientStepConfig {
	return diffusion.DefaultGradientStepConfig()
}

// GradientStep applies the measurement-consistency correction shared by
// both samplers.
type GradientStep[B autodiff.BackwardCapable] = diffusion.GradientStep[B]

// NewGradientStep builds the correction around a fixed observation.
func NewGradientStep[B autodiff.BackwardCapable](
	operator MeasurementOperator[B],
	measurement *tensor.Tensor[float32, B],
	loss *MeasurementLoss[B],
	cfg GradientStepConfig,
) (*GradientStep[B], error) {
	return diffusion.NewGradientStep(operator, measurement, loss, cfg)
}

// StepResult reports the state after one reverse step to progressive
// sampling callbacks.
type StepResult[B tensor.Backend] = diffusion.StepResult[B]

// AncestralSampler runs the guided ancestral (DDPM) reverse loop.
type AncestralSampler[B autodiff.BackwardCapable] = diffusion.AncestralSampler[B]

// NewAncestralSampler composes the reverse loop driver.
func NewAncestralSampler[B autodiff.BackwardCapable](
	process *GaussianDiffusion[B],
	model Model[B],
	gradientStep *GradientStep[B],
	backend B,
) (*AncestralSampler[B], error) {
	return diffusion.NewAncestralSampler(process, model, gradientStep, backend)
}

// SolverSteps supplies the per-order ODE update formulas for the
// multistep solver sampler.
type SolverSteps[B tensor.Backend] = diffusion.SolverSteps[B]

// SolverConfig configures the solver sampler's correction blend.
type SolverConfig = diffusion.SolverConfig

// SolverSampler layers the posterior-gradient correction onto a
// multistep ODE integrator.
type SolverSampler[B autodiff.BackwardCapable] = diffusion.SolverSampler[B]

// NewSolverSampler composes the per-step solver update. Order must be
// 1, 2 or 3.
func NewSolverSampler[B autodiff.BackwardCapable](
	process *GaussianDiffusion[B],
	model Model[B],
	steps SolverSteps[B],
	gradientStep *GradientStep[B],
	backend B,
	order int,
	cfg SolverConfig,
) (*SolverSampler[B], error) {
	return diffusion.NewSolverSampler(process, model, steps, gradientStep, backend, order, cfg)
}
