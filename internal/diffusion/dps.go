package diffusion

import (
	"fmt"
	"math"

	"github.com/DanVicenteIhanus/diffusion-posterior-sampling/internal/autodiff"
	"github.com/DanVicenteIhanus/diffusion-posterior-sampling/internal/tensor"
)

// MeasurementOperator is the forward model mapping a clean signal to an
// observed measurement. It must be differentiable end to end: every
// tensor operation inside Apply has to route through the backend so the
// gradient tape can see it.
type MeasurementOperator[B tensor.Backend] interface {
	Apply(x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B]
}

// GradientStepConfig holds the empirical constants of the correction.
type GradientStepConfig struct {
	// StepSize is the base step size; the per-step size is
	// StepSize / ||y_pred - y||.
	StepSize float32
	// FallbackStep is used verbatim when the measurement residual is
	// exactly zero. Zero value means "use StepSize".
	FallbackStep float32
}

// DefaultGradientStepConfig returns the constants used in practice.
func DefaultGradientStepConfig() GradientStepConfig {
	return GradientStepConfig{StepSize: 0.3}
}

// GradientStep is the posterior-gradient (DPS) correction shared by both
// samplers: it nudges a prior-only proposal toward consistency with the
// observed measurement using the gradient of the measurement loss with
// respect to the current noisy sample.
type GradientStep[B autodiff.BackwardCapable] struct {
	operator     MeasurementOperator[B]
	measurement  *tensor.Tensor[float32, B]
	loss         *MeasurementLoss[B]
	stepSize     float32
	fallbackStep float32
}

// NewGradientStep builds the correction. The measurement is fixed for the
// sampler's lifetime; a rank-3 (unbatched) measurement is broadcast to
// batch size 1.
func NewGradientStep[B autodiff.BackwardCapable](
	operator MeasurementOperator[B],
	measurement *tensor.Tensor[float32, B],
	loss *MeasurementLoss[B],
	cfg GradientStepConfig,
) (*GradientStep[B], error) {
	if operator == nil {
		return nil, fmt.Errorf("gradient step: nil measurement operator")
	}
	if loss == nil {
		return nil, fmt.Errorf("gradient step: nil measurement loss")
	}
	if cfg.StepSize <= 0 {
		return nil, fmt.Errorf("gradient step: step size must be positive, got %g", cfg.StepSize)
	}

	switch len(measurement.Shape()) {
	case 3:
		measurement = measurement.Detach().Unsqueeze(0)
	case 4:
		measurement = measurement.Detach()
	default:
		return nil, fmt.Errorf("gradient step: measurement must be rank 3 or 4, got shape %v", measurement.Shape())
	}

	fallback := cfg.FallbackStep
	if fallback == 0 {
		fallback = cfg.StepSize
	}

	return &GradientStep[B]{
		operator:     operator,
		measurement:  measurement,
		loss:         loss,
		stepSize:     cfg.StepSize,
		fallbackStep: fallback,
	}, nil
}

// Measurement returns the observed measurement (read-only by contract).
func (g *GradientStep[B]) Measurement() *tensor.Tensor[float32, B] {
	return g.measurement
}

// Correct applies the posterior-gradient correction.
//
// x is the current noisy sample with an active differentiable path,
// predXStart the clean-signal estimate derived from it, and proposal the
// prior-only next sample (ancestral draw or ODE step). The loss gradient
// is taken with respect to x, not predXStart, and the returned tensor is
// detached: a fresh leaf for the next iteration.
//
// Recording is force-enabled for the operator and loss evaluation even
// when the ambient mode has it off; the step-size arithmetic afterwards
// runs untracked, and the ambient recording state is restored on return.
func (g *GradientStep[B]) Correct(x, predXStart, proposal *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	backend := x.Backend()
	tape := backend.GetTape()

	wasRecording := tape.IsRecording()
	if !wasRecording {
		tape.StartRecording()
	}

	predicted := g.operator.Apply(predXStart)
	if len(predicted.Shape()) == 3 {
		predicted = predicted.Unsqueeze(0)
	}
	lossValue := g.loss.Loss(predicted, g.measurement)

	grads := autodiff.Backward(lossValue, backend)
	tape.StopRecording()

	corrected := proposal
	if grad := grads[x.Raw()]; grad != nil {
		zeta := g.adaptiveStep(lossValue.Item(), predicted)
		corrected = proposal.Sub(tensor.New[float32](grad, backend).MulScalar(zeta))
	}
	result := corrected.Detach()

	if wasRecording {
		tape.StartRecording()
	}
	return result
}

// adaptiveStep divides the base step size by the residual norm, falling
// back to the configured constant when the loss is exactly zero.
func (g *GradientStep[B]) adaptiveStep(lossValue float32, predicted *tensor.Tensor[float32, B]) float32 {
	if lossValue == 0 {
		return g.fallbackStep
	}

	diff := predicted.Detach().Sub(g.measurement)
	norm := float32(math.Sqrt(float64(diff.Mul(diff).Sum().Item())))
	if norm == 0 {
		return g.fallbackStep
	}
	return g.stepSize / norm
}
